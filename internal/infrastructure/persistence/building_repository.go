package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBuildingRepository implements property.BuildingRepository
type GormBuildingRepository struct {
	db *gorm.DB
}

// NewGormBuildingRepository creates a new GormBuildingRepository
func NewGormBuildingRepository(db *gorm.DB) *GormBuildingRepository {
	return &GormBuildingRepository{db: db}
}

// FindByID finds a building by its ID
func (r *GormBuildingRepository) FindByID(ctx context.Context, id uuid.UUID) (*property.Building, error) {
	model, err := findByID[models.BuildingModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists buildings matching the filter
func (r *GormBuildingRepository) FindAll(ctx context.Context, filter shared.Filter) ([]property.Building, error) {
	rows, err := findAll[models.BuildingModel](ctx, r.db, filter, BuildingFields)
	if err != nil {
		return nil, err
	}
	out := make([]property.Building, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a building
func (r *GormBuildingRepository) Save(ctx context.Context, building *property.Building) error {
	model := &models.BuildingModel{}
	model.FromDomain(building)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// GormBuildingAccountantRepository implements property.BuildingAccountantRepository
type GormBuildingAccountantRepository struct {
	db *gorm.DB
}

// NewGormBuildingAccountantRepository creates a new GormBuildingAccountantRepository
func NewGormBuildingAccountantRepository(db *gorm.DB) *GormBuildingAccountantRepository {
	return &GormBuildingAccountantRepository{db: db}
}

// FindByBuilding returns the accountant link of a building
func (r *GormBuildingAccountantRepository) FindByBuilding(ctx context.Context, buildingID uuid.UUID) (*property.BuildingAccountant, error) {
	var model models.BuildingAccountantModel
	if err := r.db.WithContext(ctx).First(&model, "building_id = ?", buildingID).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates an accountant link
func (r *GormBuildingAccountantRepository) Save(ctx context.Context, link *property.BuildingAccountant) error {
	model := &models.BuildingAccountantModel{}
	model.FromDomain(link)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

var (
	_ property.BuildingRepository           = (*GormBuildingRepository)(nil)
	_ property.BuildingAccountantRepository = (*GormBuildingAccountantRepository)(nil)
)
