package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable through DB_TYPE.
const (
	DBTypeJSON     = "json"
	DBTypePostgres = "postgres"
	DBTypeSQLite   = "sqlite"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	LLMProvider   string
	VideoProvider string

	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	OpenAIMaxTokens int

	AriaAPIKey  string
	AriaBaseURL string
	AriaModel   string

	AllegroAPIKey  string
	AllegroBaseURL string

	// SuccessMarkers is the allow-list of vendor business status values that
	// count as success when the status field is present.
	SuccessMarkers []string

	PollAttempts    int
	PollDelay       time.Duration
	ProviderTimeout time.Duration

	DBType      string
	JSONDBPath  string
	DatabaseURL string
	SQLitePath  string

	SuggestionsQty int

	CORSAllowedOrigins []string
	// GenerationRateLimit caps generation calls per client IP per minute;
	// zero disables the limit.
	GenerationRateLimit int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// WatchInterval is how often a conversation websocket re-reads the store.
	WatchInterval time.Duration
}

// DefaultSuccessMarkers are the status strings the Rhymes API has been seen
// to return on success.
var DefaultSuccessMarkers = []string{"success", "Success", "成功"}

// LoadConfig reads .env files when present, then environment variables, and
// applies defaults where needed.
func LoadConfig() (*Config, error) {
	// Missing env files are fine; real environment variables win.
	for _, file := range []string{".env", ".env.local"} {
		_ = godotenv.Load(file)
	}

	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		LLMProvider:         strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		VideoProvider:       strings.ToLower(getEnv("TEXT_TO_VIDEO_PROVIDER", "rhymes")),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIMaxTokens:     getEnvInt("OPENAI_MAX_TOKENS", 0),
		AriaAPIKey:          os.Getenv("RHYMES_ARIA_API_KEY"),
		AriaBaseURL:         getEnv("RHYMES_ARIA_BASE_URL", "https://api.rhymes.ai/v1"),
		AriaModel:           getEnv("RHYMES_ARIA_MODEL", "aria"),
		AllegroAPIKey:       os.Getenv("RHYMES_ALLEGRO_API_KEY"),
		AllegroBaseURL:      getEnv("RHYMES_ALLEGRO_BASE_URL", "https://api.rhymes.ai/v1"),
		SuccessMarkers:      getEnvList("RHYMES_SUCCESS_MARKERS", DefaultSuccessMarkers),
		PollAttempts:        getEnvInt("POLL_ATTEMPTS", 10),
		PollDelay:           time.Second * time.Duration(getEnvInt("POLL_DELAY_SECONDS", 60)),
		ProviderTimeout:     time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60)),
		DBType:              strings.ToLower(getEnv("DB_TYPE", DBTypeJSON)),
		JSONDBPath:          getEnv("JSON_DB_PATH", "./db/conversations.json"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLitePath:          getEnv("SQLITE_PATH", "./db/conversations.db"),
		SuggestionsQty:      getEnvInt("SUGGESTIONS_QTY", 4),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", nil),
		GenerationRateLimit: getEnvInt("GENERATION_RATE_LIMIT", 10),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		WatchInterval:       time.Second * time.Duration(getEnvInt("WATCH_INTERVAL_SECONDS", 2)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks field combinations that cannot work at runtime.
func (c *Config) Validate() error {
	if c.PollAttempts <= 0 {
		return fmt.Errorf("POLL_ATTEMPTS must be > 0")
	}
	if c.PollDelay < 0 {
		return fmt.Errorf("POLL_DELAY_SECONDS must be >= 0")
	}
	switch c.DBType {
	case DBTypeJSON:
		if c.JSONDBPath == "" {
			return fmt.Errorf("JSON_DB_PATH is required for DB_TYPE=json")
		}
	case DBTypePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for DB_TYPE=postgres")
		}
	case DBTypeSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for DB_TYPE=sqlite")
		}
	default:
		return fmt.Errorf("invalid DB_TYPE: %q", c.DBType)
	}
	return nil
}

// MaxGenerationWait is the longest a video job can keep polling.
func (c *Config) MaxGenerationWait() time.Duration {
	return time.Duration(c.PollAttempts)*(c.PollDelay+c.ProviderTimeout) + c.ProviderTimeout
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
