package state

import (
	"strings"
	"time"

	"ai-tutor-be/internal/entity"
)

// TurnDecision is the outcome of DecideTurn. NextState is a fresh copy and
// never shares its diagnosed set with the input state.
type TurnDecision struct {
	ExplicitTopic  entity.TopicID
	ActiveTopic    entity.TopicID
	WantsFastPass  bool
	DiagnosisOnly  bool
	AnsweredPrior  bool
	RetrievalQuery string
	Category       string
	NextState      entity.UserState
}

// Machine decides the kind of each turn from the prompt and the stored state.
// It holds no per-user data and is safe for concurrent use.
type Machine struct {
	topics []Topic
	byID   map[entity.TopicID]Topic
	now    func() time.Time
}

func NewMachine(topics []Topic) *Machine {
	m := &Machine{
		topics: topics,
		byID:   make(map[entity.TopicID]Topic, len(topics)),
		now:    time.Now,
	}
	for _, t := range topics {
		m.byID[t.ID] = t
	}
	return m
}

// DetectTopic returns the first table row matching text, or TopicUnknown.
func (m *Machine) DetectTopic(text string) entity.TopicID {
	for _, t := range m.topics {
		if t.Matches(text) {
			return t.ID
		}
	}
	return entity.TopicUnknown
}

// Topic looks up the table row for id.
func (m *Machine) Topic(id entity.TopicID) (Topic, bool) {
	t, ok := m.byID[id]
	return t, ok
}

// TopicName is the display name for id, or "" when the topic is unknown.
func (m *Machine) TopicName(id entity.TopicID) string {
	return m.byID[id].Name
}

// DecideTurn is a total, deterministic function of the detected topic, the
// fast-pass and selector checks, and the prior state.
func (m *Machine) DecideTurn(prompt string, prior entity.UserState) TurnDecision {
	explicit := m.DetectTopic(prompt)
	d := TurnDecision{
		ExplicitTopic: explicit,
		ActiveTopic:   explicit,
		WantsFastPass: IsFastPassRequest(prompt),
	}
	if d.ActiveTopic == entity.TopicUnknown {
		d.ActiveTopic = prior.Topic
	}
	isAnswer := IsAnswerToPriorQuestion(prompt)

	next := prior.Clone()

	switch {
	case d.WantsFastPass:
		d.DiagnosisOnly = false
	case prior.Phase == entity.PhaseDiagnose && isAnswer:
		d.DiagnosisOnly = false
		d.AnsweredPrior = true
		next.MarkDiagnosed(prior.Topic)
	case d.ActiveTopic == entity.TopicUnknown:
		d.DiagnosisOnly = true
	case explicit != entity.TopicUnknown && explicit != prior.Topic, !prior.IsDiagnosed(d.ActiveTopic):
		d.DiagnosisOnly = !prior.IsDiagnosed(d.ActiveTopic)
	default:
		d.DiagnosisOnly = false
	}

	if d.ActiveTopic != entity.TopicUnknown {
		next.Topic = d.ActiveTopic
	}
	switch {
	case next.Topic == entity.TopicUnknown:
		next.Phase = entity.PhaseIdle
	case d.DiagnosisOnly:
		next.Phase = entity.PhaseDiagnose
		next.MarkDiagnosed(next.Topic)
	default:
		next.Phase = entity.PhaseTeach
	}
	next.UpdatedAt = m.now()
	d.NextState = next

	d.RetrievalQuery = strings.TrimSpace(prompt)
	if explicit == entity.TopicUnknown && d.ActiveTopic != entity.TopicUnknown {
		d.RetrievalQuery = m.TopicName(d.ActiveTopic) + " " + d.RetrievalQuery
	}
	if t, ok := m.byID[d.ActiveTopic]; ok {
		d.Category = t.Category
	}
	return d
}
