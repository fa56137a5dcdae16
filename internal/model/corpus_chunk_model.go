package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type CorpusChunk struct {
	Id        string            `gorm:"type:varchar(128);primaryKey"`
	Text      string            `gorm:"type:text;not null"`
	Embedding pgvector.Vector   `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	Source    string            `gorm:"type:varchar(512);not null;index"`
	Category  string            `gorm:"type:varchar(128);index"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"autoCreateTime"`
}

func (CorpusChunk) TableName() string {
	return "corpus_chunks"
}
