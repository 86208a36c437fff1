package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an AI backend for chat or embeddings.
type Provider string

const (
	ProviderNone      Provider = ""
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
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

	// Chat model backend. Empty provider means no AI backend is configured
	// and every consumer degrades to its documented fallback.
	LLMProvider Provider
	LLMModel    string

	// Embedding backend
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// Provider credentials/endpoints
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Owner scopes all captures and searches. Single-user deployments
	// keep the default.
	Owner string

	// Blob storage root for uploaded payloads (bucket = subdirectory)
	BlobRoot string

	// Pipeline tuning
	StaleWindow       time.Duration // PROCESSING items older than this are reclaimable
	GenerateMaxChars  int           // input truncation before the chat call
	WorkerConcurrency int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables, then overlays the
// optional YAML config file named by DISTILL_CONFIG if present.
func Load() Config {
	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "distill"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "main"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider: Provider(getEnv("DISTILL_LLM_PROVIDER", "")),
		LLMModel:    getEnv("DISTILL_LLM_MODEL", "gpt-4o-mini"),

		EmbedProvider:  Provider(getEnv("DISTILL_EMBED_PROVIDER", "")),
		EmbedModel:     getEnv("DISTILL_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: getEnvInt("DISTILL_EMBED_DIMENSION", 1536),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		Owner: getEnv("DISTILL_OWNER", "default"),

		BlobRoot: getEnv("DISTILL_BLOB_ROOT", "/var/lib/distill/blobs"),

		StaleWindow:       getEnvDuration("DISTILL_STALE_WINDOW", time.Hour),
		GenerateMaxChars:  getEnvInt("DISTILL_GENERATE_MAX_CHARS", 8000),
		WorkerConcurrency: getEnvInt("DISTILL_WORKER_CONCURRENCY", 4),

		LogFile:  getEnv("DISTILL_LOG_FILE", "/tmp/distill.log"),
		LogLevel: parseLogLevel(getEnv("DISTILL_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("DISTILL_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			slog.Warn("failed to load config file, using env only", "path", path, "error", err)
		}
	}

	return cfg
}

// fileConfig is the YAML shape of the optional config file. Only set fields
// override the environment-derived config.
type fileConfig struct {
	SurrealDB struct {
		URL       string `yaml:"url"`
		Namespace string `yaml:"namespace"`
		Database  string `yaml:"database"`
		User      string `yaml:"user"`
		Pass      string `yaml:"pass"`
		AuthLevel string `yaml:"auth_level"`
	} `yaml:"surrealdb"`
	LLM struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
	} `yaml:"llm"`
	Embedding struct {
		Provider  string `yaml:"provider"`
		Model     string `yaml:"model"`
		Dimension int    `yaml:"dimension"`
	} `yaml:"embedding"`
	Owner             string `yaml:"owner"`
	BlobRoot          string `yaml:"blob_root"`
	StaleWindow       string `yaml:"stale_window"`
	GenerateMaxChars  int    `yaml:"generate_max_chars"`
	WorkerConcurrency int    `yaml:"worker_concurrency"`
	LogFile           string `yaml:"log_file"`
	LogLevel          string `yaml:"log_level"`
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setIf(&c.SurrealDBURL, fc.SurrealDB.URL)
	setIf(&c.SurrealDBNamespace, fc.SurrealDB.Namespace)
	setIf(&c.SurrealDBDatabase, fc.SurrealDB.Database)
	setIf(&c.SurrealDBUser, fc.SurrealDB.User)
	setIf(&c.SurrealDBPass, fc.SurrealDB.Pass)
	setIf(&c.SurrealDBAuthLevel, fc.SurrealDB.AuthLevel)

	if fc.LLM.Provider != "" {
		c.LLMProvider = Provider(fc.LLM.Provider)
	}
	setIf(&c.LLMModel, fc.LLM.Model)
	if fc.Embedding.Provider != "" {
		c.EmbedProvider = Provider(fc.Embedding.Provider)
	}
	setIf(&c.EmbedModel, fc.Embedding.Model)
	if fc.Embedding.Dimension > 0 {
		c.EmbedDimension = fc.Embedding.Dimension
	}

	setIf(&c.Owner, fc.Owner)
	setIf(&c.BlobRoot, fc.BlobRoot)
	if fc.StaleWindow != "" {
		d, err := time.ParseDuration(fc.StaleWindow)
		if err != nil {
			return fmt.Errorf("parse stale_window: %w", err)
		}
		c.StaleWindow = d
	}
	if fc.GenerateMaxChars > 0 {
		c.GenerateMaxChars = fc.GenerateMaxChars
	}
	if fc.WorkerConcurrency > 0 {
		c.WorkerConcurrency = fc.WorkerConcurrency
	}
	setIf(&c.LogFile, fc.LogFile)
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}

	return nil
}

func setIf(dst *string, val string) {
	if val != "" {
		*dst = val
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
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
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
