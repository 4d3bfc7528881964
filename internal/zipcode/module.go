package zipcode

import (
	apphttp "zipcode_map/internal/http"
	"zipcode_map/platform/config"
	"zipcode_map/platform/logger"
	"zipcode_map/platform/metrics"
)

// Module wires the zip code lookup HTTP routes.
type Module struct {
	service   *Service
	catalogue *Catalogue
	handler   *Handler
}

func NewModule(cfg config.ZipcodeConfig, log *logger.Logger, m *metrics.Metrics) *Module {
	svc := NewService(cfg, log, m)
	catalogue := DefaultCatalogue()
	return &Module{
		service:   svc,
		catalogue: catalogue,
		handler:   NewHandler(svc, catalogue),
	}
}

func (m *Module) Name() string {
	return "zipcode"
}

// Service exposes the geocoding client to other modules.
func (m *Module) Service() *Service {
	return m.service
}

// Catalogue exposes the supported countries to other modules.
func (m *Module) Catalogue() *Catalogue {
	return m.catalogue
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/countries", m.handler.ListCountries)
	ctx.V1.GET("/zipcodes/:source/:zip", ctx.LookupRateLimiter.RateLimit(), m.handler.Lookup)
}

var _ apphttp.Module = (*Module)(nil)
