package mapper

import (
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"

	"gorm.io/datatypes"
)

type UserStateMapper struct{}

func NewUserStateMapper() *UserStateMapper {
	return &UserStateMapper{}
}

func (m *UserStateMapper) ToEntity(s *model.UserState) *entity.UserState {
	if s == nil {
		return nil
	}

	state := entity.NewUserState(s.Email)
	state.Topic, _ = entity.ParseTopicID(s.Topic)
	state.Phase = entity.ParsePhase(s.Phase)
	state.UpdatedAt = s.UpdatedAt
	for _, slug := range s.DiagnosedTopics {
		// Slugs that no longer map to a topic are dropped rather than kept as unknown.
		if id, ok := entity.ParseTopicID(slug); ok {
			state.MarkDiagnosed(id)
		}
	}
	if !state.Valid() {
		state.Phase = entity.PhaseIdle
	}
	return &state
}

func (m *UserStateMapper) ToModel(s *entity.UserState) *model.UserState {
	if s == nil {
		return nil
	}

	topic := ""
	if s.HasTopic() {
		topic = s.Topic.String()
	}

	diagnosed := make(datatypes.JSONSlice[string], 0, len(s.DiagnosedTopics))
	for _, id := range s.DiagnosedList() {
		diagnosed = append(diagnosed, id.String())
	}

	return &model.UserState{
		Email:           entity.NormalizeEmail(s.Email),
		Topic:           topic,
		Phase:           string(s.Phase),
		DiagnosedTopics: diagnosed,
		UpdatedAt:       s.UpdatedAt,
	}
}
