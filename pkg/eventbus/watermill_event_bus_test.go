package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetsuite/vetflow/pkg/channels/gochannel"
	"github.com/vetsuite/vetflow/pkg/eventbus"
	"github.com/vetsuite/vetflow/pkg/events"
)

type eventCollector struct {
	mu     sync.Mutex
	events []events.DomainEvent
	done   chan struct{}
	want   int
}

func newEventCollector(want int) *eventCollector {
	return &eventCollector{done: make(chan struct{}), want: want}
}

func (c *eventCollector) handle(_ context.Context, event events.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)
	if len(c.events) == c.want {
		close(c.done)
	}

	return nil
}

func (c *eventCollector) wait(t *testing.T) []events.DomainEvent {
	t.Helper()

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for events")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.events
}

func newTestBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub, logger)
}

func TestPublishReachesNamedAndCatchAllHandlers(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	named := newEventCollector(1)
	all := newEventCollector(2)

	bus.Handle(events.PatientCreated, named.handle)
	bus.HandleAll(all.handle)

	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "patient-1",
		events.NewDomainEvent(events.PatientCreated, map[string]any{"patientId": "p-1"})))
	require.NoError(t, bus.Publish(ctx, "invoice-1",
		events.NewDomainEvent(events.InvoicePaid, nil)))

	got := named.wait(t)
	require.Len(t, got, 1)
	assert.Equal(t, events.PatientCreated, got[0].Name)
	assert.Equal(t, "p-1", got[0].Data["patientId"])

	everything := all.wait(t)
	names := []string{everything[0].Name, everything[1].Name}
	assert.ElementsMatch(t, []string{events.PatientCreated, events.InvoicePaid}, names)
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := newEventCollector(2)

	bus.HandleAll(func(context.Context, events.DomainEvent) error {
		return errors.New("listener exploded")
	})
	bus.HandleAll(collector.handle)

	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "k1", events.NewDomainEvent(events.AppointmentScheduled, nil)))
	require.NoError(t, bus.Publish(ctx, "k2", events.NewDomainEvent(events.AppointmentCompleted, nil)))

	got := collector.wait(t)
	assert.Len(t, got, 2, "failing sibling handler must not block later handlers or events")
}

func TestGenerateIDIsUnique(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
