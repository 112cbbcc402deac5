// Package fixture seeds the directory schema through the gorm repositories.
package fixture

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/application/lookup"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/location"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Repos bundles every gorm repository over one connection.
type Repos struct {
	Counties       *persistence.GormCountyRepository
	Municipalities *persistence.GormMunicipalityRepository
	Settlements    *persistence.GormSettlementRepository
	Addresses      *persistence.GormAddressRepository
	Buildings      *persistence.GormBuildingRepository
	Accountants    *persistence.GormBuildingAccountantRepository
	Flats          *persistence.GormFlatRepository
	Profiles       *persistence.GormProfileRepository
	Requests       *persistence.GormRequestRepository
	Intents        *persistence.GormIntentRepository
}

// NewRepos creates the repositories over db.
func NewRepos(db *gorm.DB) *Repos {
	return &Repos{
		Counties:       persistence.NewGormCountyRepository(db),
		Municipalities: persistence.NewGormMunicipalityRepository(db),
		Settlements:    persistence.NewGormSettlementRepository(db),
		Addresses:      persistence.NewGormAddressRepository(db),
		Buildings:      persistence.NewGormBuildingRepository(db),
		Accountants:    persistence.NewGormBuildingAccountantRepository(db),
		Flats:          persistence.NewGormFlatRepository(db),
		Profiles:       persistence.NewGormProfileRepository(db),
		Requests:       persistence.NewGormRequestRepository(db),
		Intents:        persistence.NewGormIntentRepository(db),
	}
}

// Lookup returns the repositories as a lookup.Repositories bundle.
func (r *Repos) Lookup() lookup.Repositories {
	return lookup.Repositories{
		Counties:       r.Counties,
		Municipalities: r.Municipalities,
		Settlements:    r.Settlements,
		Addresses:      r.Addresses,
		Buildings:      r.Buildings,
		Accountants:    r.Accountants,
		Flats:          r.Flats,
		Profiles:       r.Profiles,
		Requests:       r.Requests,
		Intents:        r.Intents,
	}
}

// Client returns a lookup client over the builder's repositories.
func (b *Builder) Client() *lookup.Client {
	return lookup.NewClient(b.Repos.Lookup())
}

// Builder creates related records with sensible defaults.
type Builder struct {
	t     *testing.T
	ctx   context.Context
	Repos *Repos
}

// New creates a Builder over db.
func New(t *testing.T, db *gorm.DB) *Builder {
	return &Builder{t: t, ctx: context.Background(), Repos: NewRepos(db)}
}

// Hierarchy is a county, municipality and settlement chain.
type Hierarchy struct {
	County       *location.County
	Municipality *location.Municipality
	Settlement   *location.Settlement
}

// Hierarchy creates Harbor County / Northshore / Riverside city.
func (b *Builder) Hierarchy() Hierarchy {
	b.t.Helper()
	county, err := location.NewCounty("Harbor County")
	require.NoError(b.t, err)
	require.NoError(b.t, b.Repos.Counties.Save(b.ctx, county))

	mu, err := location.NewMunicipality(county.ID, "Northshore")
	require.NoError(b.t, err)
	require.NoError(b.t, b.Repos.Municipalities.Save(b.ctx, mu))

	s, err := location.NewSettlement(mu.ID, "Riverside", "city")
	require.NoError(b.t, err)
	require.NoError(b.t, b.Repos.Settlements.Save(b.ctx, s))

	return Hierarchy{County: county, Municipality: mu, Settlement: s}
}

// Address creates an address in settlement, approved when approved is true.
func (b *Builder) Address(settlementID uuid.UUID, street string, approved bool) *location.Address {
	b.t.Helper()
	addr, err := location.NewAddress(settlementID, street, nil)
	require.NoError(b.t, err)
	if approved {
		require.NoError(b.t, addr.Approve())
	}
	require.NoError(b.t, b.Repos.Addresses.Save(b.ctx, addr))
	return addr
}

// Profile creates an identity profile.
func (b *Builder) Profile(name string, role identity.Role) *identity.Profile {
	b.t.Helper()
	p, err := identity.NewProfile(name, name+"@example.com", "555-0100", role)
	require.NoError(b.t, err)
	require.NoError(b.t, b.Repos.Profiles.Save(b.ctx, p))
	return p
}

// Building creates a building at addressID managed by managerID.
func (b *Builder) Building(name string, addressID, managerID uuid.UUID) *property.Building {
	b.t.Helper()
	building, err := property.NewBuilding(name, addressID, managerID)
	require.NoError(b.t, err)
	require.NoError(b.t, b.Repos.Buildings.Save(b.ctx, building))
	return building
}

// Accountant links accountantID to buildingID.
func (b *Builder) Accountant(buildingID, accountantID uuid.UUID) {
	b.t.Helper()
	link, err := property.NewBuildingAccountant(buildingID, accountantID)
	require.NoError(b.t, err)
	require.NoError(b.t, b.Repos.Accountants.Save(b.ctx, link))
}

// Flat creates a flat; tenant may be nil.
func (b *Builder) Flat(buildingID uuid.UUID, unit string, tenant *uuid.UUID) *property.Flat {
	b.t.Helper()
	flat, err := property.NewFlat(buildingID, unit)
	require.NoError(b.t, err)
	flat.TenantID = tenant
	require.NoError(b.t, b.Repos.Flats.Save(b.ctx, flat))
	return flat
}

// Request creates a pending occupancy request.
func (b *Builder) Request(flatID, requesterID uuid.UUID) *occupancy.Request {
	b.t.Helper()
	r, err := occupancy.NewRequest(flatID, requesterID)
	require.NoError(b.t, err)
	require.NoError(b.t, b.Repos.Requests.Create(b.ctx, r))
	return r
}

// Scenario is a ready-made directory: one manager with one building on an
// approved address, flats 10, 2 and 1 (vacant) and a registered tenant.
type Scenario struct {
	Hierarchy
	Address  *location.Address
	Manager  *identity.Profile
	Tenant   *identity.Profile
	Building *property.Building
	Flats    map[string]*property.Flat
}

// Scenario seeds the standard scenario.
func (b *Builder) Scenario() *Scenario {
	b.t.Helper()
	h := b.Hierarchy()
	addr := b.Address(h.Settlement.ID, "12 Main St", true)
	manager := b.Profile("manager", identity.RoleManager)
	tenant := b.Profile("tenant", identity.RoleTenant)
	building := b.Building("Block A", addr.ID, manager.ID)

	flats := map[string]*property.Flat{}
	for _, unit := range []string{"10", "2", "1"} {
		flats[unit] = b.Flat(building.ID, unit, nil)
	}
	return &Scenario{
		Hierarchy: h,
		Address:   addr,
		Manager:   manager,
		Tenant:    tenant,
		Building:  building,
		Flats:     flats,
	}
}
