package page

import (
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"zipcode_map/internal/events"
	apphttp "zipcode_map/internal/http"
	"zipcode_map/internal/lookup"
	"zipcode_map/internal/zipcode"
	"zipcode_map/platform/config"
	"zipcode_map/platform/logger"
	"zipcode_map/platform/metrics"
)

const leafletOrigin = "https://unpkg.com"

// Module wires the lookup page, its session API and static assets.
type Module struct {
	store   *Store
	handler *Handler
	tmpl    *template.Template
}

func NewModule(cfg config.PageConfig, catalogue *zipcode.Catalogue, fetcher lookup.PlaceFetcher, bus events.Bus, log *logger.Logger, m *metrics.Metrics) *Module {
	lat, lon := cfg.GetMapDefaultCenter()
	factory := func(views lookup.Views) *lookup.Controller {
		return lookup.NewController(fetcher, views, log, lookup.Options{
			ResultZoom: cfg.GetMapResultZoom(),
			Bus:        bus,
		})
	}

	store := NewStore(cfg.GetPageSessionTTL(), lookup.LatLng{Lat: lat, Lng: lon}, cfg.GetMapDefaultZoom(), factory, log, m)

	return &Module{
		store:   store,
		handler: NewHandler(store, catalogue, cfg, log),
		tmpl:    template.Must(template.ParseFS(templateFS, "templates/*.tmpl")),
	}
}

func (m *Module) Name() string {
	return "page"
}

// Store exposes the session store for shutdown.
func (m *Module) Store() *Store {
	return m.store
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.SetHTMLTemplate(m.tmpl)
	ctx.Engine.StaticFS("/static", http.FS(mustSub(staticFS, "static")))
	ctx.Engine.GET("/", m.handler.Index)

	pages := ctx.V1.Group("/pages/:id")
	pages.GET("", m.handler.Snapshot)
	pages.GET("/events", m.handler.Events)
	pages.POST("/lookups", ctx.LookupRateLimiter.RateLimit(), m.handler.Submit)
}

// ContentSecurityPolicy allows the page to load Leaflet and the configured map tiles.
func ContentSecurityPolicy(cfg config.MapConfig) string {
	imgSrc := []string{"'self'", "data:", leafletOrigin}
	if origin := tileOrigin(cfg.GetMapTileURL()); origin != "" {
		imgSrc = append(imgSrc, origin)
	}

	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' " + leafletOrigin,
		"style-src 'self' " + leafletOrigin,
		"img-src " + strings.Join(imgSrc, " "),
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")
}

// tileOrigin turns a Leaflet tile template into a CSP source. A {s}
// subdomain placeholder becomes a wildcard.
func tileOrigin(tileURL string) string {
	scheme, rest, ok := strings.Cut(tileURL, "://")
	if !ok || rest == "" {
		return ""
	}
	host, _, _ := strings.Cut(rest, "/")
	host = strings.ReplaceAll(host, "{s}", "*")
	if host == "" || strings.ContainsAny(host, "{}") {
		return ""
	}
	return scheme + "://" + host
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

var _ apphttp.Module = (*Module)(nil)
