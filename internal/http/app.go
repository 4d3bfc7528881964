// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"zipcode_map/platform/config"
	"zipcode_map/platform/logger"
	"zipcode_map/platform/metrics"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.RateLimitConfig
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP and rate limit settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Metrics backs /metrics; nil disables the endpoint.
	Metrics *metrics.Metrics
	// ContentSecurityPolicy is sent on every response; empty means default-src 'self'.
	ContentSecurityPolicy string
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
