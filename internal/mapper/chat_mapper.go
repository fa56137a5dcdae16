package mapper

import (
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ToEntity(c *model.ChatMessage) *entity.ChatMessage {
	if c == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:        c.Id,
		UserEmail: c.UserEmail,
		Role:      c.Role,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func (m *ChatMapper) ToModel(c *entity.ChatMessage) *model.ChatMessage {
	if c == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:        c.Id,
		UserEmail: c.UserEmail,
		Role:      c.Role,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func (m *ChatMapper) ToEntities(messages []*model.ChatMessage) []entity.ChatMessage {
	out := make([]entity.ChatMessage, 0, len(messages))
	for _, c := range messages {
		if c == nil {
			continue
		}
		out = append(out, *m.ToEntity(c))
	}
	return out
}
