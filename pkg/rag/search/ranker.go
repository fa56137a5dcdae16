package search

import (
	"context"
	"sort"

	"ai-tutor-be/internal/entity"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
)

// SimilarityFunc scores two vectors; higher is closer.
type SimilarityFunc func(a, b []float64) float64

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 for empty, mismatched or
// zero-norm input.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

type ScoredChunk struct {
	Chunk      entity.Chunk
	Similarity float64
	rank       int
}

// Ranker scores candidates in fixed-size batches. Batches run one after the
// other; the candidates inside a batch are scored in parallel.
type Ranker struct {
	batchSize  int
	workers    int
	similarity SimilarityFunc
}

func NewRanker(batchSize, workers int, similarity SimilarityFunc) *Ranker {
	if batchSize <= 0 {
		batchSize = 32
	}
	if workers <= 0 {
		workers = 8
	}
	if similarity == nil {
		similarity = CosineSimilarity
	}
	return &Ranker{batchSize: batchSize, workers: workers, similarity: similarity}
}

// Score returns every candidate whose embedding matches the query dimension,
// in candidate order. It stops between batches once ctx is done and returns
// ctx.Err() with whatever was scored so far.
func (r *Ranker) Score(ctx context.Context, query []float64, candidates []entity.Chunk) ([]ScoredChunk, error) {
	scored := make([]ScoredChunk, 0, len(candidates))

	for start := 0; start < len(candidates); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return scored, err
		}

		end := start + r.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]
		results := make([]ScoredChunk, len(batch))
		valid := make([]bool, len(batch))

		p := pool.New().WithMaxGoroutines(r.workers)
		for i := range batch {
			i := i
			emb := batch[i].Embedding
			if len(emb) == 0 || len(emb) != len(query) {
				continue
			}
			p.Go(func() {
				results[i] = ScoredChunk{
					Chunk:      batch[i],
					Similarity: r.similarity(query, emb),
					rank:       start + i,
				}
				valid[i] = true
			})
		}
		p.Wait()

		for i := range results {
			if valid[i] {
				scored = append(scored, results[i])
			}
		}
	}
	return scored, ctx.Err()
}

// Select sorts by similarity, keeps the top k, drops anything at or below
// threshold and keeps only the best chunk per normalized source. Ties keep
// candidate order.
func Select(scored []ScoredChunk, topK int, threshold float64) []ScoredChunk {
	ranked := make([]ScoredChunk, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return ranked[i].rank < ranked[j].rank
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	seen := make(map[string]bool, len(ranked))
	out := make([]ScoredChunk, 0, len(ranked))
	for _, s := range ranked {
		if s.Similarity <= threshold {
			continue
		}
		key := entity.NormalizeSource(s.Chunk.Source)
		if key == "" {
			key = "id:" + s.Chunk.Id
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
