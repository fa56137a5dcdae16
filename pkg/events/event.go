package events

import "time"

// Event is anything published on the telemetry bus.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// BaseEvent carries an already-flattened payload, e.g. one decoded off the bus.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string               { return e.Type }
func (e BaseEvent) Payload() map[string]interface{} { return e.Data }
func (e BaseEvent) Timestamp() time.Time            { return e.OccurredAt }

const TypeTurnCompleted = "turn.completed"

// TurnCompleted is emitted once per answered question.
type TurnCompleted struct {
	UserEmail       string
	TurnKind        string
	Topic           string
	RetrievalStatus string
	Retrieved       int
	Returned        int
	RetrievalTime   time.Duration
	Latency         time.Duration
	FallbackUsed    bool
	Degraded        bool
	OccurredAt      time.Time
}

func (e TurnCompleted) EventType() string    { return TypeTurnCompleted }
func (e TurnCompleted) Timestamp() time.Time { return e.OccurredAt }

func (e TurnCompleted) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_email":       e.UserEmail,
		"turn_kind":        e.TurnKind,
		"topic":            e.Topic,
		"retrieval_status": e.RetrievalStatus,
		"retrieved":        e.Retrieved,
		"returned":         e.Returned,
		"retrieval_ms":     e.RetrievalTime.Milliseconds(),
		"latency_ms":       e.Latency.Milliseconds(),
		"fallback_used":    e.FallbackUsed,
		"degraded":         e.Degraded,
		"occurred_at":      e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}
