// Package config loads platform secrets from the environment (.env in
// development, the teacher's godotenv convention) and business parameters
// from a YAML file, the way an operator tunes forecasting thresholds
// without a redeploy (spec.md §9).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Secrets holds connection/runtime settings that must never be committed:
// database DSN, HTTP port, CORS origins.
type Secrets struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins []string
}

// Business holds the operator-tunable forecasting/ordering parameters
// (spec.md §4.3-§4.5). YAML field names match original_source's constants
// so an operator migrating config from the Python bot recognizes them.
type Business struct {
	DaysThreshold          int     `yaml:"days_threshold"`
	OrderDays              int     `yaml:"order_days"`
	NotifyThresholdAmount  string  `yaml:"notify_threshold_amount"`
	MaxConcurrentForecasts int     `yaml:"max_concurrent_forecasts"`
	DraftCacheTTLMinutes   int     `yaml:"draft_cache_ttl_minutes"`
	WorkingDayRolloverHour int     `yaml:"working_day_rollover_hour"`
}

// DefaultBusiness mirrors the constants baked into
// original_source/utils/calculations.py, used when no YAML override file is
// present.
func DefaultBusiness() Business {
	return Business{
		DaysThreshold:          7,
		OrderDays:              14,
		NotifyThresholdAmount:  "500000",
		MaxConcurrentForecasts: 8,
		DraftCacheTTLMinutes:   60,
		WorkingDayRolloverHour: 2,
	}
}

// LoadSecrets reads a .env file (if present; it is not an error for it to be
// absent in production where the environment is set by the deploy
// platform) and then the process environment.
func LoadSecrets() (Secrets, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return Secrets{}, fmt.Errorf("DATABASE_URL is not set")
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	var origins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = splitAndTrim(raw)
	}
	return Secrets{DatabaseURL: dbURL, ServerPort: port, AllowedOrigins: origins}, nil
}

// LoadBusiness reads path as YAML, falling back to DefaultBusiness for any
// zero-valued field left unset in the file.
func LoadBusiness(path string) (Business, error) {
	b := DefaultBusiness()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return b, nil
	}
	if err != nil {
		return Business{}, fmt.Errorf("reading business config: %w", err)
	}
	var override Business
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Business{}, fmt.Errorf("parsing business config: %w", err)
	}
	merge(&b, override)
	return b, nil
}

func merge(base *Business, override Business) {
	if override.DaysThreshold != 0 {
		base.DaysThreshold = override.DaysThreshold
	}
	if override.OrderDays != 0 {
		base.OrderDays = override.OrderDays
	}
	if override.NotifyThresholdAmount != "" {
		base.NotifyThresholdAmount = override.NotifyThresholdAmount
	}
	if override.MaxConcurrentForecasts != 0 {
		base.MaxConcurrentForecasts = override.MaxConcurrentForecasts
	}
	if override.DraftCacheTTLMinutes != 0 {
		base.DraftCacheTTLMinutes = override.DraftCacheTTLMinutes
	}
	if override.WorkingDayRolloverHour != 0 {
		base.WorkingDayRolloverHour = override.WorkingDayRolloverHour
	}
}

// DraftCacheTTL converts DraftCacheTTLMinutes to a time.Duration.
func (b Business) DraftCacheTTL() time.Duration {
	return time.Duration(b.DraftCacheTTLMinutes) * time.Minute
}

func splitAndTrim(raw string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			part := trimSpace(raw[start:i])
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
