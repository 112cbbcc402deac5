package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFlatRepository implements property.FlatRepository
type GormFlatRepository struct {
	db *gorm.DB
}

// NewGormFlatRepository creates a new GormFlatRepository
func NewGormFlatRepository(db *gorm.DB) *GormFlatRepository {
	return &GormFlatRepository{db: db}
}

// FindByID finds a flat by its ID
func (r *GormFlatRepository) FindByID(ctx context.Context, id uuid.UUID) (*property.Flat, error) {
	model, err := findByID[models.FlatModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists flats matching the filter
func (r *GormFlatRepository) FindAll(ctx context.Context, filter shared.Filter) ([]property.Flat, error) {
	rows, err := findAll[models.FlatModel](ctx, r.db, filter, FlatFields)
	if err != nil {
		return nil, err
	}
	out := make([]property.Flat, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a flat
func (r *GormFlatRepository) Save(ctx context.Context, flat *property.Flat) error {
	model := &models.FlatModel{}
	model.FromDomain(flat)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// AssignTenant performs a compare-and-swap on tenant_id: the update only
// matches a vacant flat or one already held by tenantID.
func (r *GormFlatRepository) AssignTenant(ctx context.Context, flatID, tenantID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.FlatModel{}).
		Where("id = ? AND (tenant_id IS NULL OR tenant_id = ?)", flatID, tenantID).
		Updates(map[string]interface{}{
			"tenant_id":  tenantID,
			"updated_at": time.Now(),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missOrConflict(ctx, flatID)
	}
	return nil
}

// ClearTenant vacates the flat regardless of who holds it
func (r *GormFlatRepository) ClearTenant(ctx context.Context, flatID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.FlatModel{}).
		Where("id = ?", flatID).
		Updates(map[string]interface{}{
			"tenant_id":  nil,
			"updated_at": time.Now(),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormFlatRepository) missOrConflict(ctx context.Context, flatID uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.FlatModel{}).Where("id = ?", flatID).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConflict
}

var _ property.FlatRepository = (*GormFlatRepository)(nil)
