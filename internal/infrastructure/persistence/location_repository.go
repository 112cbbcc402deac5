package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/location"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCountyRepository implements location.CountyRepository
type GormCountyRepository struct {
	db *gorm.DB
}

// NewGormCountyRepository creates a new GormCountyRepository
func NewGormCountyRepository(db *gorm.DB) *GormCountyRepository {
	return &GormCountyRepository{db: db}
}

// FindByID finds a county by its ID
func (r *GormCountyRepository) FindByID(ctx context.Context, id uuid.UUID) (*location.County, error) {
	model, err := findByID[models.CountyModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists counties matching the filter
func (r *GormCountyRepository) FindAll(ctx context.Context, filter shared.Filter) ([]location.County, error) {
	rows, err := findAll[models.CountyModel](ctx, r.db, filter, CountyFields)
	if err != nil {
		return nil, err
	}
	out := make([]location.County, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a county
func (r *GormCountyRepository) Save(ctx context.Context, county *location.County) error {
	model := &models.CountyModel{}
	model.FromDomain(county)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// GormMunicipalityRepository implements location.MunicipalityRepository
type GormMunicipalityRepository struct {
	db *gorm.DB
}

// NewGormMunicipalityRepository creates a new GormMunicipalityRepository
func NewGormMunicipalityRepository(db *gorm.DB) *GormMunicipalityRepository {
	return &GormMunicipalityRepository{db: db}
}

// FindByID finds a municipality by its ID
func (r *GormMunicipalityRepository) FindByID(ctx context.Context, id uuid.UUID) (*location.Municipality, error) {
	model, err := findByID[models.MunicipalityModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists municipalities matching the filter
func (r *GormMunicipalityRepository) FindAll(ctx context.Context, filter shared.Filter) ([]location.Municipality, error) {
	rows, err := findAll[models.MunicipalityModel](ctx, r.db, filter, MunicipalityFields)
	if err != nil {
		return nil, err
	}
	out := make([]location.Municipality, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a municipality
func (r *GormMunicipalityRepository) Save(ctx context.Context, municipality *location.Municipality) error {
	model := &models.MunicipalityModel{}
	model.FromDomain(municipality)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// GormSettlementRepository implements location.SettlementRepository
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewGormSettlementRepository creates a new GormSettlementRepository
func NewGormSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// FindByID finds a settlement by its ID
func (r *GormSettlementRepository) FindByID(ctx context.Context, id uuid.UUID) (*location.Settlement, error) {
	model, err := findByID[models.SettlementModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists settlements matching the filter
func (r *GormSettlementRepository) FindAll(ctx context.Context, filter shared.Filter) ([]location.Settlement, error) {
	rows, err := findAll[models.SettlementModel](ctx, r.db, filter, SettlementFields)
	if err != nil {
		return nil, err
	}
	out := make([]location.Settlement, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a settlement
func (r *GormSettlementRepository) Save(ctx context.Context, settlement *location.Settlement) error {
	model := &models.SettlementModel{}
	model.FromDomain(settlement)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// GormAddressRepository implements location.AddressRepository
type GormAddressRepository struct {
	db *gorm.DB
}

// NewGormAddressRepository creates a new GormAddressRepository
func NewGormAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// FindByID finds an address by its ID
func (r *GormAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*location.Address, error) {
	model, err := findByID[models.AddressModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists addresses matching the filter
func (r *GormAddressRepository) FindAll(ctx context.Context, filter shared.Filter) ([]location.Address, error) {
	rows, err := findAll[models.AddressModel](ctx, r.db, filter, AddressFields)
	if err != nil {
		return nil, err
	}
	out := make([]location.Address, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates an address
func (r *GormAddressRepository) Save(ctx context.Context, address *location.Address) error {
	model := &models.AddressModel{}
	model.FromDomain(address)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

var (
	_ location.CountyRepository       = (*GormCountyRepository)(nil)
	_ location.MunicipalityRepository = (*GormMunicipalityRepository)(nil)
	_ location.SettlementRepository   = (*GormSettlementRepository)(nil)
	_ location.AddressRepository      = (*GormAddressRepository)(nil)
)
