// Package config loads application configuration from environment variables,
// with a .env file picked up automatically when present.
package config

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Binance market data (keys optional for public endpoints)
	BinanceAPIKey    string
	BinanceAPISecret string
	BinanceTestnet   bool

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Control API: TOTP secret guarding mutating endpoints. Empty disables.
	TOTPSecret string

	// Notifications (all optional)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Scheduler
	TickInterval time.Duration

	// Logging
	LogLevel slog.Level

	// Default account seeded on first boot
	Symbol          string
	Interval        string
	Leverage        float64
	PositionSizePct float64
	StopLossPct     float64
	TakeProfitPct   float64
	RuleSet         string
	InitialBalance  float64
}

// Load reads configuration from the environment with sensible defaults.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	return &Config{
		BinanceAPIKey:    getEnv("BINANCE_API_KEY", ""),
		BinanceAPISecret: getEnv("BINANCE_API_SECRET", ""),
		BinanceTestnet:   getBool("BINANCE_TESTNET", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/papertrader.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		TOTPSecret: getEnv("TOTP_SECRET", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		TickInterval: getDuration("TICK_INTERVAL", time.Minute),

		LogLevel: getLogLevel("LOG_LEVEL", slog.LevelInfo),

		Symbol:          getEnv("SYMBOL", "BTCUSDT"),
		Interval:        getEnv("INTERVAL", "15m"),
		Leverage:        getFloat("LEVERAGE", 5),
		PositionSizePct: getFloat("POSITION_SIZE_PCT", 10),
		StopLossPct:     getFloat("STOP_LOSS_PCT", 5),
		TakeProfitPct:   getFloat("TAKE_PROFIT_PCT", 10),
		RuleSet:         getEnv("RULE_SET", "v1"),
		InitialBalance:  getFloat("INITIAL_BALANCE", 10000),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getLogLevel(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return lvl
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
