package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/pkg/cache"
	"ai-tutor-be/pkg/embedding"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Status string

const (
	StatusSuccess       Status = "success"
	StatusNoChunks      Status = "no_chunks"
	StatusTimeout       Status = "timeout"
	StatusQuotaExceeded Status = "quota_exceeded"
	StatusError         Status = "error"
	StatusCacheHit      Status = "cache_hit"
	StatusDisabled      Status = "disabled"
	// StatusSkipped is set by callers that decided not to retrieve at all.
	StatusSkipped       Status = "skipped"
)

type Request struct {
	Query         string
	TopK          int
	Category      string
	MaxCandidates int
	Deadline      time.Duration
}

type Metrics struct {
	Retrieved int
	Processed int
	Returned  int
	Elapsed   time.Duration
	Status    Status
}

// Result is never nil-valued in a way callers must check: degraded runs come
// back with empty Chunks and the reason in Metrics.Status.
type Result struct {
	Chunks  []string
	Sources []entity.SourceRef
	Metrics Metrics
}

// cachedResult is the part of a Result worth keeping between requests.
type cachedResult struct {
	Chunks  []string
	Sources []entity.SourceRef
}

// Config encapsulates search parameters
type Config struct {
	Enabled        bool
	TopK           int
	MaxCandidates  int
	Threshold      float64
	BatchSize      int
	Workers        int
	Deadline       time.Duration
	CacheTTL       time.Duration
	QueryKeyLength int
}

// DefaultConfig returns default search configuration
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		TopK:           4,
		MaxCandidates:  500,
		Threshold:      0.1,
		BatchSize:      32,
		Workers:        8,
		Deadline:       700 * time.Millisecond,
		CacheTTL:       10 * time.Minute,
		QueryKeyLength: 100,
	}
}

// Orchestrator runs embedding, candidate lookup and ranking under one deadline.
// Fetch never returns an error: every failure becomes an empty, tagged Result.
type Orchestrator struct {
	embedder embedding.EmbeddingProvider
	chunks   contract.ChunkRepository
	ranker   *Ranker
	cache    *cache.Store
	cfg      Config
	logger   logger.ILogger
	tracer   trace.Tracer
}

type Option func(*Orchestrator)

// WithSimilarity replaces cosine similarity in the ranker.
func WithSimilarity(fn SimilarityFunc) Option {
	return func(o *Orchestrator) {
		o.ranker = NewRanker(o.cfg.BatchSize, o.cfg.Workers, fn)
	}
}

func NewOrchestrator(
	embedder embedding.EmbeddingProvider,
	chunks contract.ChunkRepository,
	store *cache.Store,
	cfg Config,
	log logger.ILogger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		embedder: embedder,
		chunks:   chunks,
		ranker:   NewRanker(cfg.BatchSize, cfg.Workers, nil),
		cache:    store,
		cfg:      cfg,
		logger:   log,
		tracer:   otel.Tracer("ai-tutor-be/pkg/rag/search"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outcome struct {
	result Result
	err    error
}

func (o *Orchestrator) Fetch(ctx context.Context, req Request) Result {
	start := time.Now()
	req = o.withDefaults(req)

	ctx, span := o.tracer.Start(ctx, "retrieval.fetch", trace.WithAttributes(
		attribute.String("retrieval.category", req.Category),
		attribute.Int("retrieval.top_k", req.TopK),
		attribute.Int64("retrieval.deadline_ms", req.Deadline.Milliseconds()),
	))
	defer span.End()

	result := o.fetch(ctx, req)
	result.Metrics.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.String("retrieval.status", string(result.Metrics.Status)),
		attribute.Int("retrieval.returned", result.Metrics.Returned),
	)
	o.logger.Info("RETRIEVAL", "Fetch completed", map[string]interface{}{
		"status":    result.Metrics.Status,
		"retrieved": result.Metrics.Retrieved,
		"processed": result.Metrics.Processed,
		"returned":  result.Metrics.Returned,
		"elapsed":   result.Metrics.Elapsed.String(),
	})
	return result
}

func (o *Orchestrator) fetch(ctx context.Context, req Request) Result {
	if !o.cfg.Enabled {
		return Result{Metrics: Metrics{Status: StatusDisabled}}
	}
	if req.Query == "" {
		return Result{Metrics: Metrics{Status: StatusNoChunks}}
	}

	key := cache.RetrievalKey(req.Category, req.Query, o.cfg.QueryKeyLength)
	if v, ok := o.cache.Get(key); ok {
		if cached, ok := v.(cachedResult); ok {
			return Result{
				Chunks:  append([]string(nil), cached.Chunks...),
				Sources: append([]entity.SourceRef(nil), cached.Sources...),
				Metrics: Metrics{Returned: len(cached.Chunks), Status: StatusCacheHit},
			}
		}
		o.cache.Delete(key)
	}

	runCtx, cancel := context.WithTimeout(ctx, req.Deadline)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := o.run(runCtx, req)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		out = outcome{err: runCtx.Err()}
	}

	if out.err != nil {
		return Result{Metrics: o.classify(runCtx, out.err, out.result.Metrics)}
	}

	if out.result.Metrics.Returned > 0 {
		// The caller owns the returned slices; the cache keeps its own.
		o.cache.Set(key, cachedResult{
			Chunks:  append([]string(nil), out.result.Chunks...),
			Sources: append([]entity.SourceRef(nil), out.result.Sources...),
		}, o.cfg.CacheTTL)
	}
	return out.result
}

// run is the uncached pipeline. Every step observes ctx.
func (o *Orchestrator) run(ctx context.Context, req Request) (Result, error) {
	var m Metrics

	vec, err := o.embedder.Generate(ctx, req.Query, embedding.TaskRetrievalQuery)
	if err != nil {
		return Result{Metrics: m}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{Metrics: m}, err
	}

	candidates, err := o.chunks.Query(ctx, req.Category, req.MaxCandidates)
	if err != nil {
		return Result{Metrics: m}, err
	}
	m.Retrieved = len(candidates)
	if len(candidates) == 0 {
		m.Status = StatusNoChunks
		return Result{Metrics: m}, nil
	}

	scored, err := o.ranker.Score(ctx, vec, candidates)
	m.Processed = len(scored)
	if err != nil {
		return Result{Metrics: m}, err
	}

	selected := Select(scored, req.TopK, o.cfg.Threshold)
	res := Result{
		Chunks:  make([]string, 0, len(selected)),
		Sources: make([]entity.SourceRef, 0, len(selected)),
	}
	for _, s := range selected {
		res.Chunks = append(res.Chunks, s.Chunk.Text)
		res.Sources = append(res.Sources, entity.SourceRef{
			Source:   entity.NormalizeSource(s.Chunk.Source),
			Category: s.Chunk.Category,
			Score:    s.Similarity,
		})
	}

	m.Returned = len(selected)
	m.Status = StatusSuccess
	if m.Returned == 0 {
		m.Status = StatusNoChunks
	}
	res.Metrics = m
	return res, nil
}

func (o *Orchestrator) classify(runCtx context.Context, err error, m Metrics) Metrics {
	m.Returned = 0
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		m.Status = StatusTimeout
	case errx.IsQuotaExceeded(err):
		m.Status = StatusQuotaExceeded
		o.logger.Warn("RETRIEVAL", "Upstream quota exhausted, continuing without context", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		m.Status = StatusError
		o.logger.Error("RETRIEVAL", "Retrieval failed, continuing without context", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return m
}

func (o *Orchestrator) withDefaults(req Request) Request {
	req.Query = strings.TrimSpace(req.Query)
	if req.TopK <= 0 {
		req.TopK = o.cfg.TopK
	}
	if req.MaxCandidates <= 0 {
		req.MaxCandidates = o.cfg.MaxCandidates
	}
	if req.Deadline <= 0 {
		req.Deadline = o.cfg.Deadline
	}
	return req
}
