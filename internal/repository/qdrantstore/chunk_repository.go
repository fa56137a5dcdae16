package qdrantstore

import (
	"context"
	"fmt"
	"strings"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/repository/contract"

	"github.com/qdrant/go-client/qdrant"
)

// ChunkRepository reads corpus chunks from a Qdrant collection. Scoring stays
// with the caller, so points are scrolled with their vectors rather than queried.
type ChunkRepository struct {
	client     *qdrant.Client
	collection string
}

var _ contract.ChunkRepository = (*ChunkRepository)(nil)

func NewClient(host string, port int) (*qdrant.Client, error) {
	return qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
}

func NewChunkRepository(client *qdrant.Client, collection string) *ChunkRepository {
	return &ChunkRepository{client: client, collection: collection}
}

func (r *ChunkRepository) Query(ctx context.Context, category string, limit int) ([]entity.Chunk, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: r.collection,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}
	if limit > 0 {
		req.Limit = qdrant.PtrOf(uint32(limit))
	}
	if c := strings.ToLower(strings.TrimSpace(category)); c != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("category", c)},
		}
	}

	points, err := r.client.Scroll(ctx, req)
	if err != nil {
		return nil, errx.WrapStore("qdrant scroll "+r.collection, err)
	}

	chunks := make([]entity.Chunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, toChunk(p))
	}
	return chunks, nil
}

func toChunk(p *qdrant.RetrievedPoint) entity.Chunk {
	payload := p.GetPayload()
	chunk := entity.Chunk{
		Id:       pointID(p.GetId()),
		Text:     stringValue(payload["text"]),
		Source:   stringValue(payload["source"]),
		Category: stringValue(payload["category"]),
		Metadata: map[string]interface{}{},
	}
	for k, v := range payload {
		switch k {
		case "text", "source", "category":
			continue
		}
		if s := stringValue(v); s != "" {
			chunk.Metadata[k] = s
		}
	}

	chunk.Embedding = mapper.Float32sToFloat64s(p.GetVectors().GetVector().GetData())
	return chunk
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func stringValue(val *qdrant.Value) string {
	if val == nil {
		return ""
	}
	return val.GetStringValue()
}
