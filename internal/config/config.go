package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Ai         AIConfig
	Retrieval  RetrievalConfig
	Memory     MemoryConfig
	Cache      CacheConfig
	State      StateConfig
	Completion CompletionConfig
	Telemetry  TelemetryConfig
	Tracing    TracingConfig
}

type AppConfig struct {
	Port               string `envconfig:"APP_PORT" default:"3000"`
	Environment        string `envconfig:"GO_ENV" default:"development"`
	LogFilePath        string `envconfig:"LOG_FILE_PATH" default:"logs/app.log"`
	BackgroundLogPath  string `envconfig:"BACKGROUND_LOG_PATH" default:"logs/background.log"`
	CorsAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	NatsURL            string `envconfig:"NATS_URL"`
	RedisURL           string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type DatabaseConfig struct {
	Connection string `envconfig:"DB_CONNECTION_STRING"`
}

type AIConfig struct {
	EmbeddingProvider    string `envconfig:"EMBEDDING_PROVIDER" default:"gemini"` // "gemini" or "ollama"
	GeminiAPIKey         string `envconfig:"GOOGLE_GEMINI_API_KEY"`
	GeminiEmbeddingModel string `envconfig:"GEMINI_EMBEDDING_MODEL" default:"text-embedding-004"`
	OllamaBaseURL        string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel          string `envconfig:"OLLAMA_EMBEDDING_MODEL" default:"nomic-embed-text"`
	LLMProvider          string `envconfig:"LLM_PROVIDER" default:"ollama"` // "ollama" or "gemini"
	LLMModel             string `envconfig:"LLM_MODEL" default:"llama3"`
}

type RetrievalConfig struct {
	Enabled          bool          `envconfig:"RETRIEVAL_ENABLED" default:"true"`
	VectorBackend    string        `envconfig:"VECTOR_BACKEND" default:"postgres"` // "postgres", "qdrant" or "memory"
	TopK             int           `envconfig:"RETRIEVAL_TOP_K" default:"4"`
	MaxCandidates    int           `envconfig:"RETRIEVAL_MAX_CANDIDATES" default:"500"`
	Threshold        float64       `envconfig:"RETRIEVAL_THRESHOLD" default:"0.1"`
	BatchSize        int           `envconfig:"RETRIEVAL_BATCH_SIZE" default:"32"`
	Deadline         time.Duration `envconfig:"RETRIEVAL_DEADLINE" default:"700ms"`
	CacheTTL         time.Duration `envconfig:"RETRIEVAL_CACHE_TTL" default:"10m"`
	QueryKeyLength   int           `envconfig:"RETRIEVAL_QUERY_KEY_LENGTH" default:"100"`
	FilterByCategory bool          `envconfig:"RETRIEVAL_FILTER_BY_CATEGORY" default:"false"`
	QdrantHost       string        `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort       int           `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantCollection string        `envconfig:"QDRANT_COLLECTION" default:"course_chunks"`
}

type MemoryConfig struct {
	HistoryWindow  int `envconfig:"HISTORY_WINDOW" default:"50"`
	HistoryLimit   int `envconfig:"HISTORY_LIMIT" default:"20"`
	TokenBudget    int `envconfig:"HISTORY_TOKEN_BUDGET" default:"3000"`
	RetentionCap   int `envconfig:"HISTORY_RETENTION_CAP" default:"200"`
	PruneBatchSize int `envconfig:"HISTORY_PRUNE_BATCH_SIZE" default:"500"`
}

type CacheConfig struct {
	StateTTL        time.Duration `envconfig:"CACHE_STATE_TTL" default:"30m"`
	HistoryTTL      time.Duration `envconfig:"CACHE_HISTORY_TTL" default:"15m"`
	FirstContactTTL time.Duration `envconfig:"CACHE_FIRST_CONTACT_TTL" default:"1h"`
	HighWaterMark   int           `envconfig:"CACHE_HIGH_WATER_MARK" default:"5000"`
}

type StateConfig struct {
	Backend string `envconfig:"STATE_BACKEND" default:"postgres"` // "postgres", "redis" or "memory"
}

type CompletionConfig struct {
	MaxTokens          int     `envconfig:"COMPLETION_MAX_TOKENS" default:"1200"`
	DiagnosisMaxTokens int     `envconfig:"COMPLETION_DIAGNOSIS_MAX_TOKENS" default:"200"`
	Temperature        float64 `envconfig:"COMPLETION_TEMPERATURE" default:"0.3"`
	Persona            string  `envconfig:"COMPLETION_PERSONA" default:"You are a patient statistics tutor for a university course. Answer only from the course material provided."`
}

type TelemetryConfig struct {
	Enabled     bool   `envconfig:"TELEMETRY_ENABLED" default:"true"`
	Topic       string `envconfig:"TELEMETRY_TOPIC" default:"turn.completed"`
	LogFilePath string `envconfig:"TELEMETRY_LOG_PATH" default:"logs/telemetry.log"`
}

type TracingConfig struct {
	Enabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	Service  string `envconfig:"OTEL_SERVICE_NAME" default:"ai-tutor-backend"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}
	return &cfg
}
