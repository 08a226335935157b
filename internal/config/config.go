package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Game feed bridge
	FeedHost string
	FeedPort int

	// Flip API
	APIBaseURL  string
	APIEmail    string
	APIPassword string

	// Recommendation refresh
	RefreshMinutes      int
	FlipStyle           string
	RecommendationLimit int

	// Local journal
	JournalPath string

	// Limits file
	LimitsPath string

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		FeedHost: envStr("FEED_HOST", "127.0.0.1"),
		FeedPort: envInt("FEED_PORT", 7461),

		APIBaseURL:  envStr("FLIP_API_URL", ""),
		APIEmail:    envStr("FLIP_API_EMAIL", ""),
		APIPassword: envStr("FLIP_API_PASSWORD", ""),

		RefreshMinutes:      envInt("REFRESH_MINUTES", 5),
		FlipStyle:           envStr("FLIP_STYLE", "balanced"),
		RecommendationLimit: envInt("RECOMMENDATION_LIMIT", 25),

		JournalPath: envStr("JOURNAL_PATH", "data/journal.db"),

		LimitsPath: envStr("LIMITS_PATH", "internal/config/limits.yaml"),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

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
