package dto

type ChatAskRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Question string `json:"question" validate:"required,max=4000"`
}

type SourceDTO struct {
	Source   string  `json:"source"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

type ChatAskResponse struct {
	Reply           string      `json:"reply"`
	Topic           string      `json:"topic,omitempty"`
	TopicName       string      `json:"topic_name,omitempty"`
	Phase           string      `json:"phase"`
	TurnKind        string      `json:"turn_kind"`
	DiagnosisOnly   bool        `json:"diagnosis_only"`
	RetrievalStatus string      `json:"retrieval_status"`
	Sources         []SourceDTO `json:"sources,omitempty"`
}

type WipeHistoryRequest struct {
	Email string `query:"email" json:"email" validate:"required,email"`
}
