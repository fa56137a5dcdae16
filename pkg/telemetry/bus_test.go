package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureForwarder struct {
	mu  sync.Mutex
	got []events.Event
}

func (c *captureForwarder) Publish(ctx context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, e)
	return nil
}

func (c *captureForwarder) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func TestBus_ForwardsPublishedEvents(t *testing.T) {
	fwd := &captureForwarder{}
	bus := NewBus("turns", logger.NewNopLogger(), fwd)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Consume(ctx))

	err := bus.Publish(ctx, events.TurnCompleted{
		UserEmail:       "a@b.c",
		TurnKind:        "diagnose",
		Topic:           "mean",
		RetrievalStatus: "timeout",
		OccurredAt:      time.Now(),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return fwd.len() == 1 }, time.Second, 10*time.Millisecond)

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	assert.Equal(t, events.TypeTurnCompleted, fwd.got[0].EventType())
	assert.Equal(t, "timeout", fwd.got[0].Payload()["retrieval_status"])
}
