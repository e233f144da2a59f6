package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DatabaseURL string

	// Auth
	JWTSecret string

	// Push Notifications
	APNsKeyID      string
	APNsTeamID     string
	APNsPrivateKey string
	APNsBundleID   string
	FCMProjectID   string
	FCMPrivateKey  string

	// Slack
	SlackWebhookURL string

	// Cron
	CronSecret    string
	SweepInterval time.Duration

	// Context providers
	OpenWeatherAPIKey   string
	WeatherBaseURL      string
	WeatherCacheTTL     time.Duration
	RedisURL            string
	LocationMaxAge      time.Duration
	DefaultRadiusMeters float64

	// Server
	Port               string
	Environment        string
	CORSOrigins        []string
	RateLimitPerMinute int
}

func Load() *Config {
	return &Config{
		// Database
		DatabaseURL: getEnv("DATABASE_URL", "sqlite:nudge.db"),

		// Auth
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Push Notifications
		APNsKeyID:      getEnv("APNS_KEY_ID", ""),
		APNsTeamID:     getEnv("APNS_TEAM_ID", ""),
		APNsPrivateKey: getEnv("APNS_PRIVATE_KEY", ""),
		APNsBundleID:   getEnv("APNS_BUNDLE_ID", "com.nudge.app"),
		FCMProjectID:   getEnv("FCM_PROJECT_ID", ""),
		FCMPrivateKey:  getEnv("FCM_PRIVATE_KEY", ""),

		// Slack
		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),

		// Cron
		CronSecret:    getEnv("CRON_SECRET", ""),
		SweepInterval: getDuration("SWEEP_INTERVAL", 15*time.Minute),

		// Context providers
		OpenWeatherAPIKey:   getEnv("OPENWEATHER_API_KEY", ""),
		WeatherBaseURL:      getEnv("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		WeatherCacheTTL:     getDuration("WEATHER_CACHE_TTL", 10*time.Minute),
		RedisURL:            getEnv("REDIS_URL", ""),
		LocationMaxAge:      getDuration("LOCATION_MAX_AGE", 30*time.Minute),
		DefaultRadiusMeters: getFloat("DEFAULT_RADIUS_METERS", 500),

		// Server
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		CORSOrigins:        getList("CORS_ALLOWED_ORIGINS"),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "0" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Printf("[Config] Invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		log.Printf("[Config] Invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("[Config] Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getList splits a comma separated variable, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) APNsConfigured() bool {
	return c.APNsKeyID != "" && c.APNsTeamID != "" && c.APNsPrivateKey != ""
}

func (c *Config) FCMConfigured() bool {
	return c.FCMProjectID != "" && c.FCMPrivateKey != ""
}
