// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/receiptsplit/internal/share"
	"github.com/mmynk/receiptsplit/pkg/logging"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port        int
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	LogLevel    slog.Level
	Currency    string
	CountryCode string
	// Places is the number of decimals amounts are rounded to for display,
	// taken from the currency.
	Places int32
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for lookups, applying defaults for
// unset variables.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return fallback
	}

	port, err := strconv.Atoi(get("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", getenv("PORT"))
	}

	ttl, err := time.ParseDuration(get("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL %q", getenv("TOKEN_TTL"))
	}

	currency := strings.ToUpper(get("CURRENCY", "IDR"))
	if !share.ValidCurrency(currency) {
		return nil, fmt.Errorf("unknown CURRENCY %q", currency)
	}

	countryCode := strings.TrimPrefix(get("PHONE_COUNTRY_CODE", share.DefaultCountryCode), "+")
	if _, err := strconv.ParseUint(countryCode, 10, 16); err != nil {
		return nil, fmt.Errorf("invalid PHONE_COUNTRY_CODE %q", countryCode)
	}

	return &Config{
		Port:        port,
		DBPath:      get("DB_PATH", "./data/receipts.db"),
		JWTSecret:   getenv("JWT_SECRET"),
		TokenTTL:    ttl,
		LogLevel:    logging.ParseLevel(getenv("LOG_LEVEL")),
		Currency:    currency,
		CountryCode: countryCode,
		Places:      share.Places(currency),
	}, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
