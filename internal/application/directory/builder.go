// Package directory assembles and caches the denormalised views of the
// housing directory: building overviews, flat lists, request lists and
// manager statistics.
package directory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/location"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// View names used in degradation metrics
const (
	ViewOverview = "overview"
	ViewFlats    = "flats"
	ViewRequests = "requests"
	ViewStats    = "stats"
)

// Reader is the read side of the lookup client
type Reader interface {
	Building(ctx context.Context, id uuid.UUID) (*property.Building, error)
	Buildings(ctx context.Context, filter shared.Filter) ([]property.Building, error)
	Accountant(ctx context.Context, buildingID uuid.UUID) (*property.BuildingAccountant, error)
	Flat(ctx context.Context, id uuid.UUID) (*property.Flat, error)
	Flats(ctx context.Context, filter shared.Filter) ([]property.Flat, error)
	Address(ctx context.Context, id uuid.UUID) (*location.Address, error)
	Profile(ctx context.Context, id uuid.UUID) (*identity.Profile, error)
	Requests(ctx context.Context, filter shared.Filter) ([]occupancy.Request, error)
	CountRequests(ctx context.Context, filter shared.Filter) (int64, error)
}

// AddressResolver renders an address with its location chain
type AddressResolver interface {
	ResolveAddress(ctx context.Context, addr *location.Address) string
}

// Builder composes lookups into views. Failed sub-lookups become
// placeholders; only the initial listing of a build can fail it.
type Builder struct {
	reader   Reader
	resolver AddressResolver
	opts     options
}

// NewBuilder creates a new Builder
func NewBuilder(reader Reader, resolver AddressResolver, opts ...Option) *Builder {
	return &Builder{reader: reader, resolver: resolver, opts: buildOptions(opts)}
}

// BuildOverviewsForManager returns one overview per building managed by managerID
func (b *Builder) BuildOverviewsForManager(ctx context.Context, managerID uuid.UUID) ([]BuildingOverview, error) {
	buildings, err := b.managedBuildings(ctx, managerID)
	if err != nil {
		return nil, err
	}

	overviews := make([]BuildingOverview, 0, len(buildings))
	for i := range buildings {
		overviews = append(overviews, b.overview(ctx, &buildings[i]))
	}
	return overviews, nil
}

func (b *Builder) managedBuildings(ctx context.Context, managerID uuid.UUID) ([]property.Building, error) {
	filter := shared.DefaultFilter().Where("manager_id", managerID).OrderedBy("name", "asc")
	return read(ctx, &b.opts, "buildings", func(ctx context.Context) ([]property.Building, error) {
		return b.reader.Buildings(ctx, filter)
	})
}

func (b *Builder) overview(ctx context.Context, building *property.Building) BuildingOverview {
	ov := BuildingOverview{
		BuildingID:  building.ID,
		Name:        building.Name,
		AddressID:   building.AddressID,
		FullAddress: b.fullAddress(ctx, ViewOverview, building.AddressID),
	}

	flats, err := b.flatsOf(ctx, building.ID)
	if err != nil {
		b.degrade(ctx, ViewOverview, "occupancy", building.ID, err)
	} else {
		ov.TotalFlats = len(flats)
		for i := range flats {
			if flats[i].IsOccupied() {
				ov.OccupiedFlats++
			}
		}
		ov.VacantFlats = ov.TotalFlats - ov.OccupiedFlats
	}

	ov.Accountant = b.accountant(ctx, building.ID)
	return ov
}

func (b *Builder) accountant(ctx context.Context, buildingID uuid.UUID) *Contact {
	link, err := read(ctx, &b.opts, "accountant", func(ctx context.Context) (*property.BuildingAccountant, error) {
		return b.reader.Accountant(ctx, buildingID)
	})
	if shared.IsNotFound(err) {
		return nil
	}
	if err != nil {
		b.degrade(ctx, ViewOverview, "accountant", buildingID, err)
		return nil
	}
	c := b.contact(ctx, ViewOverview, "accountant", link.AccountantID)
	return &c
}

// BuildFlatsForBuilding returns the flats of a building sorted by unit
// number with tenants resolved concurrently
func (b *Builder) BuildFlatsForBuilding(ctx context.Context, buildingID uuid.UUID) ([]FlatDetail, error) {
	flats, err := b.flatsOf(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	property.SortFlats(flats)

	details := make([]FlatDetail, len(flats))
	var g errgroup.Group
	g.SetLimit(b.opts.fanOut)
	for i := range flats {
		details[i] = FlatDetail{
			FlatID:     flats[i].ID,
			BuildingID: flats[i].BuildingID,
			UnitNumber: flats[i].UnitNumber,
		}
		if flats[i].TenantID == nil {
			continue
		}
		i, tenantID := i, *flats[i].TenantID
		g.Go(func() error {
			c := b.contact(ctx, ViewFlats, "tenant", tenantID)
			details[i].Tenant = &c
			return nil
		})
	}
	_ = g.Wait()
	return details, nil
}

func (b *Builder) flatsOf(ctx context.Context, buildingID uuid.UUID) ([]property.Flat, error) {
	filter := shared.DefaultFilter().Where("building_id", buildingID)
	return read(ctx, &b.opts, "flats", func(ctx context.Context) ([]property.Flat, error) {
		return b.reader.Flats(ctx, filter)
	})
}

// BuildRequestsFor returns the requests visible to identity in role, newest
// first. Tenants see their own requests, managers the requests for flats in
// buildings they manage and approvers every request.
func (b *Builder) BuildRequestsFor(ctx context.Context, who uuid.UUID, role identity.Role) ([]EnrichedRequest, error) {
	j := newJoiner(b)

	var requests []occupancy.Request
	var err error
	switch role {
	case identity.RoleTenant:
		requests, err = b.listRequests(ctx, shared.DefaultFilter().Where("requester_id", who))
	case identity.RoleApprover:
		requests, err = b.listRequests(ctx, shared.DefaultFilter())
	case identity.RoleManager:
		requests, err = b.managerRequests(ctx, who, j)
	default:
		return nil, shared.Validationf("role %q has no request view", role)
	}
	if err != nil {
		return nil, err
	}

	out := make([]EnrichedRequest, 0, len(requests))
	for i := range requests {
		out = append(out, j.enrich(ctx, &requests[i]))
	}
	sort.SliceStable(out, func(a, c int) bool {
		return out[a].CreatedAt.After(out[c].CreatedAt)
	})
	return out, nil
}

func (b *Builder) listRequests(ctx context.Context, filter shared.Filter) ([]occupancy.Request, error) {
	filter = filter.OrderedBy("created_at", "desc")
	return read(ctx, &b.opts, "requests", func(ctx context.Context) ([]occupancy.Request, error) {
		return b.reader.Requests(ctx, filter)
	})
}

// managerRequests narrows to the manager's flats with membership filters and
// seeds the joiner with what it already loaded
func (b *Builder) managerRequests(ctx context.Context, managerID uuid.UUID, j *joiner) ([]occupancy.Request, error) {
	buildings, err := b.managedBuildings(ctx, managerID)
	if err != nil {
		return nil, err
	}
	buildingIDs := make([]uuid.UUID, len(buildings))
	for i := range buildings {
		buildingIDs[i] = buildings[i].ID
		j.buildings[buildings[i].ID] = &buildings[i]
	}

	flatFilter := shared.DefaultFilter().WhereIn("building_id", buildingIDs)
	flats, err := read(ctx, &b.opts, "flats", func(ctx context.Context) ([]property.Flat, error) {
		return b.reader.Flats(ctx, flatFilter)
	})
	if err != nil {
		return nil, err
	}
	flatIDs := make([]uuid.UUID, len(flats))
	for i := range flats {
		flatIDs[i] = flats[i].ID
		j.flats[flats[i].ID] = &flats[i]
	}

	return b.listRequests(ctx, shared.DefaultFilter().WhereIn("flat_id", flatIDs))
}

func (b *Builder) fullAddress(ctx context.Context, view string, addressID uuid.UUID) string {
	addr, err := read(ctx, &b.opts, "address", func(ctx context.Context) (*location.Address, error) {
		return b.reader.Address(ctx, addressID)
	})
	if err != nil {
		b.degrade(ctx, view, "address", addressID, err)
		return UnknownAddress
	}
	return b.resolver.ResolveAddress(ctx, addr)
}

func (b *Builder) contact(ctx context.Context, view, field string, id uuid.UUID) Contact {
	p, err := read(ctx, &b.opts, "profile", func(ctx context.Context) (*identity.Profile, error) {
		return b.reader.Profile(ctx, id)
	})
	if err != nil {
		b.degrade(ctx, view, field, id, err)
		return unknownContact(id)
	}
	return contactOf(p)
}

func (b *Builder) degrade(ctx context.Context, view, field string, id uuid.UUID, err error) {
	b.opts.metrics.RecordDegradation(ctx, view, field)
	b.opts.logger.Warn("View field degraded to placeholder",
		zap.String("view", view),
		zap.String("field", field),
		zap.String("id", id.String()),
		zap.Error(err))
}

// joiner memoises the lookups of one request list build
type joiner struct {
	b         *Builder
	flats     map[uuid.UUID]*property.Flat
	buildings map[uuid.UUID]*property.Building
	addresses map[uuid.UUID]string
	profiles  map[uuid.UUID]Contact
}

func newJoiner(b *Builder) *joiner {
	return &joiner{
		b:         b,
		flats:     make(map[uuid.UUID]*property.Flat),
		buildings: make(map[uuid.UUID]*property.Building),
		addresses: make(map[uuid.UUID]string),
		profiles:  make(map[uuid.UUID]Contact),
	}
}

func (j *joiner) enrich(ctx context.Context, r *occupancy.Request) EnrichedRequest {
	er := EnrichedRequest{
		RequestID:   r.ID,
		FlatID:      r.FlatID,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		ReviewedAt:  r.ReviewedAt,
		ReviewedBy:  r.ReviewedBy,
		Notes:       r.Notes,
		UnitNumber:  Unknown,
		Building:    Unknown,
		FullAddress: Unknown,
		Requester:   j.requester(ctx, r.RequesterID),
	}

	flat := j.flat(ctx, r.FlatID)
	if flat == nil {
		return er
	}
	er.UnitNumber = flat.UnitNumber
	er.BuildingID = flat.BuildingID

	building := j.building(ctx, flat.BuildingID)
	if building == nil {
		return er
	}
	er.Building = building.Name
	er.FullAddress = j.address(ctx, building.AddressID)
	return er
}

func (j *joiner) flat(ctx context.Context, id uuid.UUID) *property.Flat {
	if f, ok := j.flats[id]; ok {
		return f
	}
	f, err := read(ctx, &j.b.opts, "flat", func(ctx context.Context) (*property.Flat, error) {
		return j.b.reader.Flat(ctx, id)
	})
	if err != nil {
		j.b.degrade(ctx, ViewRequests, "flat", id, err)
	}
	j.flats[id] = f
	return f
}

func (j *joiner) building(ctx context.Context, id uuid.UUID) *property.Building {
	if b, ok := j.buildings[id]; ok {
		return b
	}
	b, err := read(ctx, &j.b.opts, "building", func(ctx context.Context) (*property.Building, error) {
		return j.b.reader.Building(ctx, id)
	})
	if err != nil {
		j.b.degrade(ctx, ViewRequests, "building", id, err)
	}
	j.buildings[id] = b
	return b
}

func (j *joiner) address(ctx context.Context, id uuid.UUID) string {
	if s, ok := j.addresses[id]; ok {
		return s
	}
	s := j.b.fullAddress(ctx, ViewRequests, id)
	if s == UnknownAddress {
		s = Unknown
	}
	j.addresses[id] = s
	return s
}

func (j *joiner) requester(ctx context.Context, id uuid.UUID) Contact {
	if c, ok := j.profiles[id]; ok {
		return c
	}
	c := j.b.contact(ctx, ViewRequests, "requester", id)
	j.profiles[id] = c
	return c
}
