package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/infrastructure/event"
	"github.com/housing/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newSerializer() *event.EventSerializer {
	s := event.NewEventSerializer()
	event.RegisterAllEvents(s)
	return s
}

func TestAuditHandler_LogsRegisteredEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(event.NewAuditHandler(newSerializer(), zap.New(core)))

	req, err := occupancy.NewRequest(uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, req.Reject(uuid.New(), "no documents", time.Now()))

	require.NoError(t, bus.Publish(context.Background(), req.GetDomainEvents()...))
	// not registered, so the auditor is not subscribed to it
	require.NoError(t, bus.Publish(context.Background(), testutil.NewTestEvent("Unrelated")))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, occupancy.EventTypeRequestSubmitted, entries[0].ContextMap()["event_type"])
	rejected := entries[1].ContextMap()
	assert.Equal(t, occupancy.EventTypeRequestRejected, rejected["event_type"])
	assert.Equal(t, req.ID.String(), rejected["aggregate_id"])
	assert.Contains(t, rejected["payload"], `"notes":"no documents"`)
}

func TestAuditHandler_SubscribesToRegisteredTypes(t *testing.T) {
	h := event.NewAuditHandler(newSerializer(), nil)
	assert.Equal(t, []string{
		"FlatTenantAssigned",
		"FlatVacated",
		"OccupancyRequestApproved",
		"OccupancyRequestRejected",
		"OccupancyRequestSubmitted",
	}, h.EventTypes())
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	s := newSerializer()
	req, err := occupancy.NewRequest(uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, req.Approve(uuid.New(), "ok", time.Now()))
	approved := req.GetDomainEvents()[1]

	data, err := s.Serialize(approved)
	require.NoError(t, err)
	decoded, err := s.Deserialize(approved.EventType(), data)
	require.NoError(t, err)

	got, ok := decoded.(*occupancy.RequestReviewedEvent)
	require.True(t, ok)
	assert.Equal(t, req.ID, got.RequestID)
	assert.Equal(t, occupancy.RequestStatusApproved, got.Status)
	assert.Equal(t, approved.EventID(), got.EventID())

	_, err = s.Serialize(testutil.NewTestEvent("Unrelated"))
	assert.Error(t, err)
	_, err = s.Deserialize("Unrelated", data)
	assert.Error(t, err)
}
