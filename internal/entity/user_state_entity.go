package entity

import (
	"sort"
	"strings"
	"time"
)

type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhaseDiagnose Phase = "DIAGNOSE"
	PhaseTeach    Phase = "TEACH"
)

func ParsePhase(s string) Phase {
	switch Phase(strings.ToUpper(strings.TrimSpace(s))) {
	case PhaseDiagnose:
		return PhaseDiagnose
	case PhaseTeach:
		return PhaseTeach
	default:
		return PhaseIdle
	}
}

// UserState is the per-user tutoring state. Phase DIAGNOSE always carries a topic.
type UserState struct {
	Email           string
	Topic           TopicID
	Phase           Phase
	DiagnosedTopics map[TopicID]struct{}
	UpdatedAt       time.Time
}

// NormalizeEmail is the user identity key: emails are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewUserState(email string) UserState {
	return UserState{
		Email:           NormalizeEmail(email),
		Topic:           TopicUnknown,
		Phase:           PhaseIdle,
		DiagnosedTopics: map[TopicID]struct{}{},
	}
}

func (s UserState) HasTopic() bool {
	return s.Topic != TopicUnknown
}

func (s UserState) IsDiagnosed(t TopicID) bool {
	_, ok := s.DiagnosedTopics[t]
	return ok
}

// Clone returns a deep copy so callers can derive the next state without
// touching a value that may be shared through the cache.
func (s UserState) Clone() UserState {
	out := s
	out.DiagnosedTopics = make(map[TopicID]struct{}, len(s.DiagnosedTopics))
	for t := range s.DiagnosedTopics {
		out.DiagnosedTopics[t] = struct{}{}
	}
	return out
}

func (s *UserState) MarkDiagnosed(t TopicID) {
	if t == TopicUnknown {
		return
	}
	if s.DiagnosedTopics == nil {
		s.DiagnosedTopics = map[TopicID]struct{}{}
	}
	s.DiagnosedTopics[t] = struct{}{}
}

// DiagnosedList returns diagnosed topics sorted by slug, for storage and display.
func (s UserState) DiagnosedList() []TopicID {
	out := make([]TopicID, 0, len(s.DiagnosedTopics))
	for t := range s.DiagnosedTopics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Valid reports whether the DIAGNOSE ⇒ topic invariant holds.
func (s UserState) Valid() bool {
	return s.Phase != PhaseDiagnose || s.HasTopic()
}
