package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Provider identifies an LLM/embedding backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM
	LLMProvider Provider
	LLMModel    string
	OllamaHost  string

	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Embeddings
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// Speech-to-text
	WhisperURL      string
	WhisperLanguage string

	// Filesystem roots for transient data
	RepoRoot    string // cloned snapshots, one directory per project
	MeetingRoot string // uploaded audio awaiting transcription

	// Pipeline tuning
	EmbedBatchSize int           // embedding documents inserted per batch
	CommitLimit    int           // most recent commits extracted per index run
	JobRetention   time.Duration // terminal jobs remain queryable this long
	SearchResults  int           // similarity search k for chat

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	tmp := filepath.Join(os.TempDir(), "repolens")

	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "repolens"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "main"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider: Provider(getEnv("REPOLENS_LLM_PROVIDER", string(ProviderOllama))),
		LLMModel:    getEnv("REPOLENS_LLM_MODEL", "llama3.2"),
		OllamaHost:  getEnv("OLLAMA_HOST", "http://localhost:11434"),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		EmbedProvider:  Provider(getEnv("REPOLENS_EMBED_PROVIDER", string(ProviderOllama))),
		EmbedModel:     getEnv("REPOLENS_EMBED_MODEL", "nomic-embed-text"),
		EmbedDimension: getEnvInt("REPOLENS_EMBED_DIMENSION", 768),

		WhisperURL:      getEnv("REPOLENS_WHISPER_URL", "http://localhost:9000"),
		WhisperLanguage: getEnv("REPOLENS_WHISPER_LANGUAGE", "en"),

		RepoRoot:    getEnv("REPOLENS_REPO_ROOT", filepath.Join(tmp, "repos")),
		MeetingRoot: getEnv("REPOLENS_MEETING_ROOT", filepath.Join(tmp, "meetings")),

		EmbedBatchSize: getEnvInt("REPOLENS_EMBED_BATCH_SIZE", 50),
		CommitLimit:    getEnvInt("REPOLENS_COMMIT_LIMIT", 50),
		JobRetention:   getEnvDuration("REPOLENS_JOB_RETENTION", 5*time.Minute),
		SearchResults:  getEnvInt("REPOLENS_SEARCH_RESULTS", 5),

		LogFile:  getEnv("REPOLENS_LOG_FILE", "/tmp/repolens.log"),
		LogLevel: parseLogLevel(getEnv("REPOLENS_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
