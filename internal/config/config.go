package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

type Config struct {
	// Secrets (from .env)
	FinnhubToken    string
	WebhookURL      string
	AppName         string
	APIKey          string
	CORSAllowOrigin string

	// Store
	StoreBackend string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Mongo
	MongoURI      string
	MongoDatabase string

	// Quotes
	QuoteBaseURL           string
	QuotePricePath         string
	QuoteTimeoutSeconds    int
	QuoteRetryAttempts     int
	QuoteMaxAgeSeconds     int
	ReconcileConcurrency   int
	RefreshIntervalSeconds int

	// Risk Management
	MaxDailyTrades     int
	MaxPositionSizeUSD float64
	StopLossPercent    float64
	TakeProfitPercent  float64

	// Server
	ServerPort int

	// Logging
	LogLevel  string
	LogPretty bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		FinnhubToken:    envStr("FINNHUB_TOKEN", ""),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		AppName:         envStr("APP_NAME", "PaperTrader"),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		StoreBackend: strings.ToLower(envStr("STORE_BACKEND", BackendPostgres)),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "paper_trades"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Mongo
		MongoURI:      envStr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: envStr("MONGO_DATABASE", "paper-trades"),

		// Quotes
		QuoteBaseURL:           envStr("QUOTE_BASE_URL", "https://finnhub.io/api/v1"),
		QuotePricePath:         envStr("QUOTE_PRICE_PATH", "$.c"),
		QuoteTimeoutSeconds:    envInt("QUOTE_TIMEOUT_SECONDS", 10),
		QuoteRetryAttempts:     envInt("QUOTE_RETRY_ATTEMPTS", 3),
		QuoteMaxAgeSeconds:     envInt("QUOTE_MAX_AGE_SECONDS", 60),
		ReconcileConcurrency:   envInt("RECONCILE_CONCURRENCY", 8),
		RefreshIntervalSeconds: envInt("REFRESH_INTERVAL_SECONDS", 60),

		// Risk Management
		MaxDailyTrades:     envInt("MAX_DAILY_TRADES", 0),
		MaxPositionSizeUSD: envFloat("MAX_POSITION_SIZE_USD", 0),
		StopLossPercent:    envFloat("STOP_LOSS_PERCENT", 0),
		TakeProfitPercent:  envFloat("TAKE_PROFIT_PERCENT", 0),

		ServerPort: envInt("PORT", 3001),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogPretty: envBool("LOG_PRETTY", false),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DBUser == "" {
			errs = append(errs, "DB_USER is required for STORE_BACKEND=postgres")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			errs = append(errs, "MONGO_URI is required for STORE_BACKEND=mongo")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be postgres, mongo or memory (got %q)", c.StoreBackend))
	}

	if _, err := url.ParseRequestURI(c.QuoteBaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("QUOTE_BASE_URL is not a valid URL: %v", err))
	}
	if c.QuoteRetryAttempts < 1 {
		errs = append(errs, "QUOTE_RETRY_ATTEMPTS must be at least 1")
	}
	if c.QuoteTimeoutSeconds < 1 {
		errs = append(errs, "QUOTE_TIMEOUT_SECONDS must be at least 1")
	}
	if c.ReconcileConcurrency < 1 {
		errs = append(errs, "RECONCILE_CONCURRENCY must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Warnings lists settings that are valid but probably not intended.
func (c *Config) Warnings() []string {
	var warns []string
	if c.StoreBackend == BackendMemory {
		warns = append(warns, "STORE_BACKEND=memory: trades are lost on exit")
	}
	if c.FinnhubToken == "" {
		warns = append(warns, "FINNHUB_TOKEN not set: quote requests will likely be rejected")
	}
	if c.StopLossPercent == 0 && c.TakeProfitPercent == 0 {
		warns = append(warns, "STOP_LOSS_PERCENT and TAKE_PROFIT_PERCENT are both 0, no portfolio alerts active")
	}
	if c.APIKey == "" {
		warns = append(warns, "API_KEY not set, REST API has no authentication")
	}
	return warns
}

func (c *Config) Print() {
	fmt.Println("=== Paper Trader Configuration ===")
	fmt.Printf("Store: %s\n", c.StoreBackend)
	switch c.StoreBackend {
	case BackendPostgres:
		fmt.Printf("  Postgres: %s@%s:%d/%s\n", c.DBUser, c.DBHost, c.DBPort, c.DBName)
	case BackendMongo:
		fmt.Printf("  Mongo: %s (db %s)\n", redactURI(c.MongoURI), c.MongoDatabase)
	}
	fmt.Println("--------------------------------------")
	fmt.Println("Quotes:")
	fmt.Printf("  Endpoint: %s\n", c.QuoteBaseURL)
	fmt.Printf("  Token: %s\n", boolLabel(c.FinnhubToken != "", "configured", "not set"))
	fmt.Printf("  Timeout: %ds, lookup attempts: %d, max age: %ds\n",
		c.QuoteTimeoutSeconds, c.QuoteRetryAttempts, c.QuoteMaxAgeSeconds)
	fmt.Printf("  Refresh every %ds, %d quotes in flight\n", c.RefreshIntervalSeconds, c.ReconcileConcurrency)
	fmt.Println("--------------------------------------")
	fmt.Println("Risk:")
	fmt.Printf("  Max daily buys: %s\n", limitLabel(float64(c.MaxDailyTrades), "%.0f"))
	fmt.Printf("  Max position: %s\n", limitLabel(c.MaxPositionSizeUSD, "$%.2f"))
	fmt.Printf("  Stop-loss: %s\n", limitLabel(c.StopLossPercent, "-%.1f%%"))
	fmt.Printf("  Take-profit: %s\n", limitLabel(c.TakeProfitPercent, "+%.1f%%"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) QuoteTimeout() time.Duration {
	return time.Duration(c.QuoteTimeoutSeconds) * time.Second
}

func (c *Config) QuoteMaxAge() time.Duration {
	return time.Duration(c.QuoteMaxAgeSeconds) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func redactURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User(u.User.Username())
	return u.String()
}

func limitLabel(v float64, format string) string {
	if v <= 0 {
		return "off"
	}
	return fmt.Sprintf(format, v)
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
