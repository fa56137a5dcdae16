package bootstrap

import (
	"context"
	"fmt"
	"log"

	"ai-tutor-be/internal/config"
	"ai-tutor-be/internal/controller"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/implementation"
	"ai-tutor-be/internal/repository/memory"
	"ai-tutor-be/internal/repository/qdrantstore"
	"ai-tutor-be/internal/repository/redisstore"
	"ai-tutor-be/pkg/background"
	"ai-tutor-be/pkg/cache"
	"ai-tutor-be/pkg/embedding"
	"ai-tutor-be/pkg/llm/factory"
	pktNats "ai-tutor-be/pkg/nats"
	"ai-tutor-be/pkg/rag/executor"
	"ai-tutor-be/pkg/rag/history"
	"ai-tutor-be/pkg/rag/search"
	"ai-tutor-be/pkg/rag/session"
	"ai-tutor-be/pkg/rag/state"
	"ai-tutor-be/pkg/telemetry"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	ChatbotController controller.IChatbotController

	Executor  *executor.TurnExecutor
	Runner    *background.Runner
	Telemetry *telemetry.Bus
	Logger    logger.ILogger

	closers []func() error
}

// NewContainer wires every dependency. db may be nil when no backend is "postgres".
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	backgroundLogger := logger.NewIsolatedLogger(cfg.App.BackgroundLogPath)
	c := &Container{Logger: sysLogger}

	// 1. Background work and cache
	runner := background.NewRunner(backgroundLogger, 0)
	c.Runner = runner

	store := cache.New(
		cache.WithHighWaterMark(cfg.Cache.HighWaterMark),
		cache.WithLogger(sysLogger),
		cache.WithSweepScheduler(runner.Schedule),
	)

	// 2. Providers
	embedder, err := embedding.NewProvider(ctx, embedding.Config{
		Provider:     cfg.Ai.EmbeddingProvider,
		GeminiAPIKey: cfg.Ai.GeminiAPIKey,
		GeminiModel:  cfg.Ai.GeminiEmbeddingModel,
		OllamaURL:    cfg.Ai.OllamaBaseURL,
		OllamaModel:  cfg.Ai.OllamaModel,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:     cfg.Ai.LLMProvider,
		Model:        cfg.Ai.LLMModel,
		OllamaURL:    cfg.Ai.OllamaBaseURL,
		GeminiAPIKey: cfg.Ai.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 3. Stores
	chunks, err := c.newChunkRepository(db, cfg)
	if err != nil {
		return nil, err
	}
	states, err := c.newUserStateRepository(ctx, db, cfg)
	if err != nil {
		return nil, err
	}

	var messages contract.ChatMessageRepository
	if db != nil {
		messages = implementation.NewChatMessageRepository(db)
	} else {
		log.Printf("[WARN] No database configured, chat history is kept in memory")
		messages = memory.NewChatMessageRepository()
	}

	// 4. Telemetry
	var forwarder telemetry.Forwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	var publisher executor.Publisher
	if cfg.Telemetry.Enabled {
		bus := telemetry.NewBus(cfg.Telemetry.Topic, logger.NewIsolatedLogger(cfg.Telemetry.LogFilePath), forwarder)
		c.Telemetry = bus
		c.closers = append(c.closers, bus.Close)
		publisher = bus
	}

	// 5. Turn engine
	memCfg := history.Config{
		Window:         cfg.Memory.HistoryWindow,
		Limit:          cfg.Memory.HistoryLimit,
		TokenBudget:    cfg.Memory.TokenBudget,
		RetentionCap:   cfg.Memory.RetentionCap,
		PruneBatchSize: cfg.Memory.PruneBatchSize,
		CacheTTL:       cfg.Cache.HistoryTTL,
		FirstTTL:       cfg.Cache.FirstContactTTL,
	}
	conversation := history.NewMemory(messages, store, runner, memCfg, sysLogger)
	sessions := session.NewManager(states, conversation, store, cfg.Cache.StateTTL, sysLogger)

	searchCfg := search.DefaultConfig()
	searchCfg.Enabled = cfg.Retrieval.Enabled
	searchCfg.TopK = cfg.Retrieval.TopK
	searchCfg.MaxCandidates = cfg.Retrieval.MaxCandidates
	searchCfg.Threshold = cfg.Retrieval.Threshold
	searchCfg.BatchSize = cfg.Retrieval.BatchSize
	searchCfg.Deadline = cfg.Retrieval.Deadline
	searchCfg.CacheTTL = cfg.Retrieval.CacheTTL
	searchCfg.QueryKeyLength = cfg.Retrieval.QueryKeyLength
	retrieval := search.NewOrchestrator(embedder, chunks, store, searchCfg, sysLogger)

	c.Executor = executor.NewTurnExecutor(executor.Deps{
		Machine:   state.NewMachine(state.DefaultTopics()),
		Sessions:  sessions,
		Memory:    conversation,
		Retrieval: retrieval,
		LLM:       llmProvider,
		Cache:     store,
		Runner:    runner,
		Telemetry: publisher,
		Logger:    sysLogger,
	}, executor.Config{
		Persona:            cfg.Completion.Persona,
		MaxTokens:          cfg.Completion.MaxTokens,
		DiagnosisMaxTokens: cfg.Completion.DiagnosisMaxTokens,
		Temperature:        cfg.Completion.Temperature,
		FilterByCategory:   cfg.Retrieval.FilterByCategory,
	})

	// 6. Controllers
	c.ChatbotController = controller.NewChatbotController(c.Executor)

	return c, nil
}

func (c *Container) newChunkRepository(db *gorm.DB, cfg *config.Config) (contract.ChunkRepository, error) {
	switch cfg.Retrieval.VectorBackend {
	case "qdrant":
		client, err := qdrantstore.NewClient(cfg.Retrieval.QdrantHost, cfg.Retrieval.QdrantPort)
		if err != nil {
			return nil, fmt.Errorf("qdrant client: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		log.Printf("[INFO] Using Vector Backend: QDRANT (%s)", cfg.Retrieval.QdrantCollection)
		return qdrantstore.NewChunkRepository(client, cfg.Retrieval.QdrantCollection), nil
	case "memory":
		log.Printf("[INFO] Using Vector Backend: MEMORY (empty corpus)")
		return memory.NewChunkRepository(), nil
	default:
		if db == nil {
			return nil, fmt.Errorf("vector backend %q requires DB_CONNECTION_STRING", cfg.Retrieval.VectorBackend)
		}
		log.Printf("[INFO] Using Vector Backend: POSTGRES")
		return implementation.NewCorpusChunkRepository(db), nil
	}
}

func (c *Container) newUserStateRepository(ctx context.Context, db *gorm.DB, cfg *config.Config) (contract.UserStateRepository, error) {
	switch cfg.State.Backend {
	case "redis":
		rdb, err := redisstore.NewClient(ctx, redisstore.Config{URL: cfg.App.RedisURL})
		if err != nil {
			return nil, fmt.Errorf("redis client: %w", err)
		}
		c.closers = append(c.closers, rdb.Close)
		log.Printf("[INFO] Using State Backend: REDIS")
		return redisstore.NewUserStateRepository(redis.Cmdable(rdb), 0), nil
	case "memory":
		log.Printf("[INFO] Using State Backend: MEMORY")
		return memory.NewUserStateRepository(), nil
	default:
		if db == nil {
			return nil, fmt.Errorf("state backend %q requires DB_CONNECTION_STRING", cfg.State.Backend)
		}
		log.Printf("[INFO] Using State Backend: POSTGRES")
		return implementation.NewUserStateRepository(db), nil
	}
}

// Close drains background work, then releases clients in reverse order.
func (c *Container) Close(ctx context.Context) error {
	if err := c.Runner.Shutdown(ctx); err != nil {
		c.Logger.Warn("BOOTSTRAP", "Background tasks still running at shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("BOOTSTRAP", "Close failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return c.Logger.Sync()
}
