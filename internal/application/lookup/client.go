// Package lookup is the single gateway between the application services and
// the relational store. Every failure leaving this package is a
// *shared.LookupError naming the entity and operation that failed.
package lookup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/location"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
)

// Entity names used in LookupError
const (
	EntityCounty       = "county"
	EntityMunicipality = "municipality"
	EntitySettlement   = "settlement"
	EntityAddress      = "address"
	EntityBuilding     = "building"
	EntityAccountant   = "building_accountant"
	EntityFlat         = "flat"
	EntityProfile      = "profile"
	EntityRequest      = "occupancy_request"
	EntityIntent       = "approval_intent"
)

// Repositories bundles the store adapters the client reads and writes through
type Repositories struct {
	Counties       location.CountyRepository
	Municipalities location.MunicipalityRepository
	Settlements    location.SettlementRepository
	Addresses      location.AddressRepository
	Buildings      property.BuildingRepository
	Accountants    property.BuildingAccountantRepository
	Flats          property.FlatRepository
	Profiles       identity.ProfileRepository
	Requests       occupancy.RequestRepository
	Intents        occupancy.IntentRepository
}

// Client performs typed entity lookups and mutations. It never retries.
type Client struct {
	repos Repositories
}

// NewClient creates a new Client
func NewClient(repos Repositories) *Client {
	return &Client{repos: repos}
}

func wrap(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	return shared.NewLookupError(entity, op, err)
}

// County returns a county by id
func (c *Client) County(ctx context.Context, id uuid.UUID) (*location.County, error) {
	county, err := c.repos.Counties.FindByID(ctx, id)
	return county, wrap(EntityCounty, "get", err)
}

// Municipality returns a municipality by id
func (c *Client) Municipality(ctx context.Context, id uuid.UUID) (*location.Municipality, error) {
	m, err := c.repos.Municipalities.FindByID(ctx, id)
	return m, wrap(EntityMunicipality, "get", err)
}

// Settlement returns a settlement by id
func (c *Client) Settlement(ctx context.Context, id uuid.UUID) (*location.Settlement, error) {
	s, err := c.repos.Settlements.FindByID(ctx, id)
	return s, wrap(EntitySettlement, "get", err)
}

// Address returns an address by id
func (c *Client) Address(ctx context.Context, id uuid.UUID) (*location.Address, error) {
	a, err := c.repos.Addresses.FindByID(ctx, id)
	return a, wrap(EntityAddress, "get", err)
}

// Building returns a building by id
func (c *Client) Building(ctx context.Context, id uuid.UUID) (*property.Building, error) {
	b, err := c.repos.Buildings.FindByID(ctx, id)
	return b, wrap(EntityBuilding, "get", err)
}

// Buildings lists buildings matching filter
func (c *Client) Buildings(ctx context.Context, filter shared.Filter) ([]property.Building, error) {
	rows, err := c.repos.Buildings.FindAll(ctx, filter)
	return rows, wrap(EntityBuilding, "list", err)
}

// Accountant returns the accountant link of a building, NotFound when unlinked
func (c *Client) Accountant(ctx context.Context, buildingID uuid.UUID) (*property.BuildingAccountant, error) {
	link, err := c.repos.Accountants.FindByBuilding(ctx, buildingID)
	return link, wrap(EntityAccountant, "get", err)
}

// Flat returns a flat by id
func (c *Client) Flat(ctx context.Context, id uuid.UUID) (*property.Flat, error) {
	f, err := c.repos.Flats.FindByID(ctx, id)
	return f, wrap(EntityFlat, "get", err)
}

// Flats lists flats matching filter
func (c *Client) Flats(ctx context.Context, filter shared.Filter) ([]property.Flat, error) {
	rows, err := c.repos.Flats.FindAll(ctx, filter)
	return rows, wrap(EntityFlat, "list", err)
}

// Profile returns a profile by id
func (c *Client) Profile(ctx context.Context, id uuid.UUID) (*identity.Profile, error) {
	p, err := c.repos.Profiles.FindByID(ctx, id)
	return p, wrap(EntityProfile, "get", err)
}

// Profiles lists profiles matching filter
func (c *Client) Profiles(ctx context.Context, filter shared.Filter) ([]identity.Profile, error) {
	rows, err := c.repos.Profiles.FindAll(ctx, filter)
	return rows, wrap(EntityProfile, "list", err)
}

// Request returns a request by id
func (c *Client) Request(ctx context.Context, id uuid.UUID) (*occupancy.Request, error) {
	r, err := c.repos.Requests.FindByID(ctx, id)
	return r, wrap(EntityRequest, "get", err)
}

// Requests lists requests matching filter
func (c *Client) Requests(ctx context.Context, filter shared.Filter) ([]occupancy.Request, error) {
	rows, err := c.repos.Requests.FindAll(ctx, filter)
	return rows, wrap(EntityRequest, "list", err)
}

// CountRequests counts requests matching filter
func (c *Client) CountRequests(ctx context.Context, filter shared.Filter) (int64, error) {
	n, err := c.repos.Requests.Count(ctx, filter)
	return n, wrap(EntityRequest, "count", err)
}

// InsertRequest stores a new pending request
func (c *Client) InsertRequest(ctx context.Context, r *occupancy.Request) error {
	return wrap(EntityRequest, "insert", c.repos.Requests.Create(ctx, r))
}

// UpdateRequestReview writes review fields if the stored request is still pending
func (c *Client) UpdateRequestReview(ctx context.Context, r *occupancy.Request) error {
	return wrap(EntityRequest, "update_review", c.repos.Requests.UpdateReview(ctx, r))
}

// AssignFlatTenant sets the tenant if the flat is vacant or already held by tenantID
func (c *Client) AssignFlatTenant(ctx context.Context, flatID, tenantID uuid.UUID) error {
	return wrap(EntityFlat, "assign_tenant", c.repos.Flats.AssignTenant(ctx, flatID, tenantID))
}

// ClearFlatTenant vacates the flat
func (c *Client) ClearFlatTenant(ctx context.Context, flatID uuid.UUID) error {
	return wrap(EntityFlat, "clear_tenant", c.repos.Flats.ClearTenant(ctx, flatID))
}

// RecordIntent journals a new approval intent
func (c *Client) RecordIntent(ctx context.Context, intent *occupancy.ApprovalIntent) error {
	return wrap(EntityIntent, "insert", c.repos.Intents.Create(ctx, intent))
}

// UpdateIntent persists the stage of an approval intent
func (c *Client) UpdateIntent(ctx context.Context, intent *occupancy.ApprovalIntent) error {
	return wrap(EntityIntent, "update", c.repos.Intents.Update(ctx, intent))
}

// OpenIntent returns the unfinished intent of a request, NotFound if none
func (c *Client) OpenIntent(ctx context.Context, requestID uuid.UUID) (*occupancy.ApprovalIntent, error) {
	intent, err := c.repos.Intents.FindOpenByRequest(ctx, requestID)
	return intent, wrap(EntityIntent, "get_open", err)
}

// StaleIntents lists unfinished intents not touched since olderThan
func (c *Client) StaleIntents(ctx context.Context, olderThan time.Time, limit int) ([]occupancy.ApprovalIntent, error) {
	rows, err := c.repos.Intents.FindOpen(ctx, olderThan, limit)
	return rows, wrap(EntityIntent, "list_open", err)
}
