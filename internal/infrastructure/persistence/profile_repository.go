package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProfileRepository implements identity.ProfileRepository
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// FindByID finds a profile by its ID
func (r *GormProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Profile, error) {
	model, err := findByID[models.ProfileModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists profiles matching the filter
func (r *GormProfileRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Profile, error) {
	rows, err := findAll[models.ProfileModel](ctx, r.db, filter, ProfileFields)
	if err != nil {
		return nil, err
	}
	out := make([]identity.Profile, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a profile
func (r *GormProfileRepository) Save(ctx context.Context, profile *identity.Profile) error {
	model := &models.ProfileModel{}
	model.FromDomain(profile)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

var _ identity.ProfileRepository = (*GormProfileRepository)(nil)
