package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port                 string
	DatabaseURL          string
	LogLevel             string
	RedisAddr            string
	RatesURL             string
	RatesTTL             time.Duration
	RatesRefreshSchedule string
	RatesWarmCurrencies  []string
	RequestTimeout       time.Duration
	ShutdownTimeout      time.Duration
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RatesURL:             getEnv("RATES_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		RatesRefreshSchedule: getEnv("RATES_REFRESH_SCHEDULE", "@every 1h"),
		RatesWarmCurrencies:  splitList(getEnv("RATES_WARM_CURRENCIES", "USD,EUR,KZT,RUB")),
	}

	var err error
	if cfg.RatesTTL, err = getDuration("RATES_TTL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RatesTTL <= 0 {
		return nil, fmt.Errorf("RATES_TTL must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
