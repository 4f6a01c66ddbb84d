package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"family-os/internal/family"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Store backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Config holds the configuration for the application.
type Config struct {
	FamilyID string

	// Language model
	LLMProvider   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	GroqAPIKey    string
	GroqModel     string
	GeminiAPIKey  string
	GeminiModel   string
	LLMTimeout    time.Duration

	// Document store
	StoreBackend            string
	DatabasePath            string
	FirestoreProjectID      string
	FirebaseCredentialsJSON string
	FirebaseCredentialsFile string
	CacheTTL                time.Duration
	RedisAddr               string

	// Sessions and HTTP
	SessionSecret string
	SessionTTL    time.Duration
	Port          string
	CORSOrigins   []string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64

	LogMode string
	LogFile string
}

// NewFromEnv creates a new Config object from environment variables. A .env
// file in the working directory is loaded first when present; variables that
// are already set win.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		FamilyID:                envOr("FAMILY_ID", family.DefaultID),
		LLMProvider:             strings.ToLower(envOr("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:            os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:           strings.TrimRight(envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		OpenAIModel:             envOr("OPENAI_MODEL", "gpt-4o"),
		GroqAPIKey:              os.Getenv("GROQ_API_KEY"),
		GroqModel:               envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GeminiAPIKey:            os.Getenv("GEMINI_API_KEY"),
		GeminiModel:             envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		StoreBackend:            strings.ToLower(envOr("STORE_BACKEND", BackendSQLite)),
		DatabasePath:            envOr("DATABASE_PATH", "data/family-os.db"),
		FirestoreProjectID:      os.Getenv("FIRESTORE_PROJECT_ID"),
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_JSON"),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		SessionSecret:           os.Getenv("SESSION_SECRET"),
		Port:                    envOr("PORT", "8080"),
		TelegramBotToken:        os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:      os.Getenv("TELEGRAM_WEBHOOK_URL"),
		LogMode:                 envOr("LOG_MODE", "dev"),
		LogFile:                 os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.LLMTimeout, err = seconds("LLM_TIMEOUT_SECONDS", 120); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = seconds("CACHE_TTL_SECONDS", 600); err != nil {
		return nil, err
	}
	hours, err := intEnv("SESSION_TTL_HOURS", 24*30)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = time.Duration(hours) * time.Hour

	switch cfg.LLMProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	switch cfg.StoreBackend {
	case BackendSQLite:
	case BackendFirestore:
		if cfg.FirestoreProjectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT_ID environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	// Telegram Config (Optional for CLI, required for Bot)
	for _, raw := range splitList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", raw, err)
		}
		cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
	}

	return cfg, nil
}

// TelegramEnabled reports whether the chat front end should be started.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func seconds(key string, def int) (time.Duration, error) {
	n, err := intEnv(key, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
