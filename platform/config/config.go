// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	IsMetricsEnabled() bool
}

// ZipcodeConfig provides settings for the zippopotam geocoding client.
type ZipcodeConfig interface {
	GetZipcodeAPIBaseURL() string
	GetZipcodeAPITimeout() time.Duration
}

// MapConfig provides settings for the Leaflet map rendered on the lookup page.
type MapConfig interface {
	GetMapTileURL() string
	GetMapTileMaxZoom() int
	GetMapDefaultCenter() (lat float64, lon float64)
	GetMapDefaultZoom() int
	GetMapResultZoom() int
}

// PageConfig provides settings for browser page sessions.
type PageConfig interface {
	MapConfig
	GetPageSessionTTL() time.Duration
}

// RateLimitConfig provides settings for the per-IP lookup rate limiter.
type RateLimitConfig interface {
	GetLookupRatePerMinute() float64
	GetLookupRateBurst() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	CORSAllowAll        bool
	CORSOrigins         []string
	MetricsEnabled      bool
	ZipcodeAPIBaseURL   string
	ZipcodeAPITimeout   time.Duration
	MapTileURL          string
	MapTileMaxZoom      int
	MapDefaultLat       float64
	MapDefaultLon       float64
	MapDefaultZoom      int
	MapResultZoom       int
	PageSessionTTL      time.Duration
	LookupRatePerMinute float64
	LookupRateBurst     int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) IsMetricsEnabled() bool   { return c.MetricsEnabled }

// ZipcodeConfig implementation
func (c *Config) GetZipcodeAPIBaseURL() string        { return c.ZipcodeAPIBaseURL }
func (c *Config) GetZipcodeAPITimeout() time.Duration { return c.ZipcodeAPITimeout }

// MapConfig implementation
func (c *Config) GetMapTileURL() string  { return c.MapTileURL }
func (c *Config) GetMapTileMaxZoom() int { return c.MapTileMaxZoom }
func (c *Config) GetMapDefaultZoom() int { return c.MapDefaultZoom }
func (c *Config) GetMapResultZoom() int  { return c.MapResultZoom }
func (c *Config) GetMapDefaultCenter() (float64, float64) {
	return c.MapDefaultLat, c.MapDefaultLon
}

// PageConfig implementation
func (c *Config) GetPageSessionTTL() time.Duration { return c.PageSessionTTL }

// RateLimitConfig implementation
func (c *Config) GetLookupRatePerMinute() float64 { return c.LookupRatePerMinute }
func (c *Config) GetLookupRateBurst() int         { return c.LookupRateBurst }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", ""))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	env := &envParser{}
	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		MetricsEnabled:      strings.EqualFold(getEnv("METRICS_ENABLED", "true"), "true"),
		ZipcodeAPIBaseURL:   getEnv("ZIPCODE_API_BASE_URL", "https://api.zippopotam.us/"),
		ZipcodeAPITimeout:   env.duration("ZIPCODE_API_TIMEOUT", "0"),
		MapTileURL:          getEnv("MAP_TILE_URL", "https://tile.openstreetmap.org/{z}/{x}/{y}.png"),
		MapTileMaxZoom:      env.int("MAP_TILE_MAX_ZOOM", "19"),
		MapDefaultLat:       env.float("MAP_DEFAULT_LAT", "51.505"),
		MapDefaultLon:       env.float("MAP_DEFAULT_LON", "-0.09"),
		MapDefaultZoom:      env.int("MAP_DEFAULT_ZOOM", "13"),
		MapResultZoom:       env.int("MAP_RESULT_ZOOM", "8"),
		PageSessionTTL:      env.duration("PAGE_SESSION_TTL", "30m"),
		LookupRatePerMinute: env.float("LOOKUP_RATE_PER_MINUTE", "30"),
		LookupRateBurst:     env.int("LOOKUP_RATE_BURST", "10"),
	}
	if err := env.err(); err != nil {
		return nil, err
	}

	if _, err := url.ParseRequestURI(cfg.ZipcodeAPIBaseURL); err != nil {
		return nil, fmt.Errorf("ZIPCODE_API_BASE_URL is invalid: %w", err)
	}
	if cfg.MapTileURL == "" {
		return nil, fmt.Errorf("MAP_TILE_URL is required")
	}
	if cfg.PageSessionTTL <= 0 {
		return nil, fmt.Errorf("PAGE_SESSION_TTL must be a positive duration")
	}
	if cfg.ZipcodeAPITimeout < 0 {
		return nil, fmt.Errorf("ZIPCODE_API_TIMEOUT must not be negative")
	}
	if cfg.LookupRatePerMinute <= 0 || cfg.LookupRateBurst <= 0 {
		return nil, fmt.Errorf("LOOKUP_RATE_PER_MINUTE and LOOKUP_RATE_BURST must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// envParser reads typed variables and remembers every malformed one.
type envParser struct {
	errs []error
}

func (p *envParser) duration(key, fallback string) time.Duration {
	value := strings.TrimSpace(getEnv(key, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be a duration, got %q", key, value))
	}
	return d
}

func (p *envParser) int(key, fallback string) int {
	value := strings.TrimSpace(getEnv(key, fallback))
	result, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be an integer, got %q", key, value))
	}
	return result
}

func (p *envParser) float(key, fallback string) float64 {
	value := strings.TrimSpace(getEnv(key, fallback))
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be a number, got %q", key, value))
	}
	return result
}

func (p *envParser) err() error {
	return errors.Join(p.errs...)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
