package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBPath        string
	TelegramToken string
	Timezone      *time.Location

	WhoopClientID     string
	WhoopClientSecret string
	WhoopRedirectURL  string

	FatSecretClientID     string
	FatSecretClientSecret string
	FatSecretSharedSecret string

	GCPProject         string
	GCPLocation        string
	GeminiModel        string
	GCPCredentialsFile string
	GCPTemperature     float32

	HTTPAddr    string
	BaseURL     string
	HTTPTimeout time.Duration
	DebugToken  string

	LogLevel  string
	LogPretty bool
}

const (
	DefaultDBPath   = "/root/data/bot.db"
	DefaultTimezone = "Europe/Kyiv"

	botTokenSecret = "/run/secrets/telegram_bot_token"
)

// Load reads the environment; call godotenv.Load first to pick up .env.
func Load() (Config, error) {
	tzName := getEnv("TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("config: TIMEZONE %q: %w", tzName, err)
	}
	c := Config{
		DBPath:        getEnv("DB_PATH", DefaultDBPath),
		TelegramToken: secretOrEnv(botTokenSecret, "TELEGRAM_BOT_TOKEN"),
		Timezone:      loc,

		WhoopClientID:     getEnv("WHOOP_CLIENT_ID", ""),
		WhoopClientSecret: getEnv("WHOOP_CLIENT_SECRET", ""),
		WhoopRedirectURL:  getEnv("WHOOP_REDIRECT_URL", ""),

		FatSecretClientID:     getEnv("FATSECRET_CLIENT_ID", ""),
		FatSecretClientSecret: getEnv("FATSECRET_CLIENT_SECRET", ""),
		FatSecretSharedSecret: getEnv("FATSECRET_SHARED_SECRET", ""),

		GCPProject:         getEnv("GCP_PROJECT", ""),
		GCPLocation:        getEnv("GCP_LOCATION", "us-central1"),
		GeminiModel:        getEnv("GCP_MODEL", "gemini-1.5-flash"),
		GCPCredentialsFile: getEnv("GCP_CREDENTIALS_FILE", ""),
		GCPTemperature:     getFloatEnv("GCP_TEMPERATURE", 0.3),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 15*time.Second),
		DebugToken:  getEnv("DEBUG_TOKEN", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getBoolEnv("LOG_PRETTY", false),
	}
	if c.TelegramToken == "" {
		return c, errors.New("config: bot token not found in docker secret or TELEGRAM_BOT_TOKEN")
	}
	if c.WhoopRedirectURL == "" && c.BaseURL != "" {
		c.WhoopRedirectURL = c.BaseURL + "/whoop/callback"
	}
	return c, nil
}

func (c Config) WhoopEnabled() bool {
	return c.WhoopClientID != "" && c.WhoopClientSecret != "" && c.WhoopRedirectURL != ""
}

func (c Config) FatSecretEnabled() bool {
	return c.FatSecretClientID != "" && c.FatSecretClientSecret != "" && c.FatSecretSharedSecret != ""
}

func (c Config) AssistantEnabled() bool { return c.GCPProject != "" }

func secretOrEnv(path, key string) string {
	if data, err := os.ReadFile(path); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(os.Getenv(key))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float32) float32 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return fallback
}
