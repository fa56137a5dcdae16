package mapper

import (
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type CorpusChunkMapper struct{}

func NewCorpusChunkMapper() *CorpusChunkMapper {
	return &CorpusChunkMapper{}
}

func (m *CorpusChunkMapper) ToEntity(c *model.CorpusChunk) *entity.Chunk {
	if c == nil {
		return nil
	}
	return &entity.Chunk{
		Id:        c.Id,
		Text:      c.Text,
		Embedding: Float32sToFloat64s(c.Embedding.Slice()),
		Source:    c.Source,
		Category:  c.Category,
		Metadata:  map[string]interface{}(c.Metadata),
	}
}

func (m *CorpusChunkMapper) ToModel(c *entity.Chunk) *model.CorpusChunk {
	if c == nil {
		return nil
	}
	return &model.CorpusChunk{
		Id:        c.Id,
		Text:      c.Text,
		Embedding: pgvector.NewVector(Float64sToFloat32s(c.Embedding)),
		Source:    c.Source,
		Category:  c.Category,
		Metadata:  c.Metadata,
	}
}

func (m *CorpusChunkMapper) ToEntities(chunks []*model.CorpusChunk) []entity.Chunk {
	out := make([]entity.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c == nil {
			continue
		}
		out = append(out, *m.ToEntity(c))
	}
	return out
}

// Float32sToFloat64s widens a stored or provider vector for scoring. nil stays nil
// so a missing embedding remains distinguishable from an empty one.
func Float32sToFloat64s(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func Float64sToFloat32s(v []float64) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
