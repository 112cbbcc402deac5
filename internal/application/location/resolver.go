// Package location renders the settlement → municipality → county chain of
// an address as a single line.
package location

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/location"
	"github.com/housing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Lookups is the subset of the lookup client the resolver walks
type Lookups interface {
	Settlement(ctx context.Context, id uuid.UUID) (*location.Settlement, error)
	Municipality(ctx context.Context, id uuid.UUID) (*location.Municipality, error)
	County(ctx context.Context, id uuid.UUID) (*location.County, error)
}

// Resolver formats "<street>, <settlement> <type>, <municipality>, <county>".
// When an ancestor cannot be loaded the longest resolved prefix is returned.
type Resolver struct {
	lookups    Lookups
	logger     *zap.Logger
	newBackOff func(ctx context.Context) backoff.BackOff
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger used for degraded resolutions
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBackOff sets the schedule used to retry a hop that failed with a
// transport error. Other failures truncate the chain at once.
func WithBackOff(newBackOff func(ctx context.Context) backoff.BackOff) Option {
	return func(r *Resolver) {
		if newBackOff != nil {
			r.newBackOff = newBackOff
		}
	}
}

// NewResolver creates a new Resolver
func NewResolver(lookups Lookups, opts ...Option) *Resolver {
	r := &Resolver{lookups: lookups, logger: zap.NewNop(), newBackOff: defaultBackOff}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails; failed hops are logged and truncate the result
func (r *Resolver) Resolve(ctx context.Context, street string, settlementID uuid.UUID) string {
	parts := []string{strings.TrimSpace(street)}

	settlement, err := hop(ctx, r, "settlement", settlementID, r.lookups.Settlement)
	if err != nil {
		r.degraded("settlement", settlementID, err)
		return join(parts)
	}
	parts = append(parts, settlement.Label())

	municipality, err := hop(ctx, r, "municipality", settlement.MunicipalityID, r.lookups.Municipality)
	if err != nil {
		r.degraded("municipality", settlement.MunicipalityID, err)
		return join(parts)
	}
	parts = append(parts, municipality.Name)

	county, err := hop(ctx, r, "county", municipality.CountyID, r.lookups.County)
	if err != nil {
		r.degraded("county", municipality.CountyID, err)
		return join(parts)
	}
	parts = append(parts, county.Name)

	return join(parts)
}

// ResolveAddress resolves the full location of addr
func (r *Resolver) ResolveAddress(ctx context.Context, addr *location.Address) string {
	return r.Resolve(ctx, addr.Street, addr.SettlementID)
}

// three attempts starting at 50ms
func defaultBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)
}

// hop loads one ancestor, retrying transport failures
func hop[T any](ctx context.Context, r *Resolver, name string, id uuid.UUID, get func(context.Context, uuid.UUID) (T, error)) (T, error) {
	op := func() (T, error) {
		v, err := get(ctx, id)
		if err != nil && !shared.IsTransport(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Debug("Retrying location lookup",
			zap.String("hop", name),
			zap.String("id", id.String()),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return backoff.RetryNotifyWithData(op, r.newBackOff(ctx), notify)
}

func (r *Resolver) degraded(hop string, id uuid.UUID, err error) {
	r.logger.Warn("Location chain truncated",
		zap.String("hop", hop),
		zap.String("id", id.String()),
		zap.Error(err))
}

func join(parts []string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
