package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const metadataEventType = "event_type"

// Forwarder ships events off the process, e.g. to NATS.
type Forwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

// Bus is an in-process watermill channel. Publishing never waits on the
// consumer; the consumer writes each event to the telemetry log and hands it
// to the optional forwarder.
type Bus struct {
	pubSub  *gochannel.GoChannel
	topic   string
	logger  logger.ILogger
	forward Forwarder
}

func NewBus(topic string, log logger.ILogger, forward Forwarder) *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	return &Bus{pubSub: pubSub, topic: topic, logger: log, forward: forward}
}

func (b *Bus) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataEventType, event.EventType())
	msg.SetContext(ctx)
	return b.pubSub.Publish(b.topic, msg)
}

// Consume subscribes and processes messages until ctx is done or the bus closes.
func (b *Bus) Consume(ctx context.Context) error {
	messages, err := b.pubSub.Subscribe(ctx, b.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			b.handle(ctx, msg)
		}
	}()
	return nil
}

func (b *Bus) handle(ctx context.Context, msg *message.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		b.logger.Error("TELEMETRY", "Dropping undecodable event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	event := events.BaseEvent{
		Type:       msg.Metadata.Get(metadataEventType),
		Data:       payload,
		OccurredAt: time.Now(),
	}
	b.logger.Info("TELEMETRY", event.Type, payload)

	if b.forward != nil {
		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := b.forward.Publish(fctx, event)
		cancel()
		if err != nil {
			b.logger.Warn("TELEMETRY", "Forwarding failed", map[string]interface{}{
				"event": event.Type,
				"error": err.Error(),
			})
		}
	}
	msg.Ack()
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
