package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	SMTP       SMTPConfig
	Keys       APIKeys
	Ai         AIConfig
	Retrieval  RetrievalConfig
	Escalation EscalationConfig
	Workflow   WorkflowConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	HubLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	OtelEnabled        bool
	OtelEndpoint       string
	EmbedTopic         string // watermill topic for knowledge embedding jobs
	BackfillSchedule   string // cron spec for the embedding backfill
	SessionCacheTTL    time.Duration
}

type DatabaseConfig struct {
	Connection string
	Verbose    bool
}

type SMTPConfig struct {
	Host         string
	Port         int
	Email        string
	Password     string
	SenderName   string
	SupportDesk  string // alert recipient for high and urgent escalations
	DashboardURL string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
	HuggingFace  string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama", "huggingface"
	LLMModel          string
	LLMBaseURL        string
	CompletionTimeout time.Duration
	EmbeddingTimeout  time.Duration
	MaxTokens         int
	Temperature       float64
	RetryAttempts     int
}

type RetrievalConfig struct {
	SimilarityFloor float64
	VectorWeight    float64
	LexicalWeight   float64
	MaxResults      int
	SearchTimeout   time.Duration
}

type EscalationConfig struct {
	ConfidenceThreshold  float64
	RepeatCount          int
	SimilarityThreshold  float64
	NegativeHits         int
	MaxSessionDuration   time.Duration
	AlertPriorityMinimum string
}

type WorkflowConfig struct {
	DefinitionDir   string // empty uses the embedded definitions
	DefaultWorkflow string
	LockTTL         time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "logs/hub.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			EmbedTopic:         getEnv("EMBED_KNOWLEDGE_TOPIC_NAME", "EMBED_KNOWLEDGE_ITEM"),
			BackfillSchedule:   getEnv("EMBEDDING_BACKFILL_SCHEDULE", "@every 10m"),
			SessionCacheTTL:    getEnvAsDuration("SESSION_CACHE_TTL", time.Hour),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Verbose:    getEnvAsBool("DB_VERBOSE", false),
		},
		SMTP: SMTPConfig{
			Host:         getEnv("SMTP_HOST", ""),
			Port:         getEnvAsInt("SMTP_PORT", 587),
			Email:        getEnv("SMTP_EMAIL", ""),
			Password:     getEnv("SMTP_PASSWORD", ""),
			SenderName:   getEnv("SMTP_SENDER_NAME", "MNP Assistant"),
			SupportDesk:  getEnv("SUPPORT_DESK_EMAIL", ""),
			DashboardURL: getEnv("SUPPORT_DASHBOARD_URL", "http://localhost:5174"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen2.5"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			CompletionTimeout: getEnvAsDuration("COMPLETION_TIMEOUT", 30*time.Second),
			EmbeddingTimeout:  getEnvAsDuration("EMBEDDING_TIMEOUT", 5*time.Second),
			MaxTokens:         getEnvAsInt("COMPLETION_MAX_TOKENS", 800),
			Temperature:       getEnvAsFloat("COMPLETION_TEMPERATURE", 0.3),
			RetryAttempts:     getEnvAsInt("COMPLETION_RETRY_ATTEMPTS", 3),
		},
		Retrieval: RetrievalConfig{
			SimilarityFloor: getEnvAsFloat("RETRIEVAL_SIMILARITY_FLOOR", 0.7),
			VectorWeight:    getEnvAsFloat("RETRIEVAL_VECTOR_WEIGHT", 0.7),
			LexicalWeight:   getEnvAsFloat("RETRIEVAL_LEXICAL_WEIGHT", 0.3),
			MaxResults:      getEnvAsInt("RETRIEVAL_MAX_RESULTS", 5),
			SearchTimeout:   getEnvAsDuration("RETRIEVAL_SEARCH_TIMEOUT", 3*time.Second),
		},
		Escalation: EscalationConfig{
			ConfidenceThreshold:  getEnvAsFloat("ESCALATION_CONFIDENCE_THRESHOLD", 0.3),
			RepeatCount:          getEnvAsInt("ESCALATION_REPEAT_COUNT", 3),
			SimilarityThreshold:  getEnvAsFloat("ESCALATION_SIMILARITY_THRESHOLD", 0.7),
			NegativeHits:         getEnvAsInt("ESCALATION_NEGATIVE_HITS", 2),
			MaxSessionDuration:   getEnvAsDuration("ESCALATION_MAX_SESSION_DURATION", 30*time.Minute),
			AlertPriorityMinimum: getEnv("ESCALATION_ALERT_PRIORITY", "high"),
		},
		Workflow: WorkflowConfig{
			DefinitionDir:   getEnv("WORKFLOW_DEFINITION_DIR", ""),
			DefaultWorkflow: getEnv("WORKFLOW_DEFAULT", "carrier_switch"),
			LockTTL:         getEnvAsDuration("WORKFLOW_LOCK_TTL", 10*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
