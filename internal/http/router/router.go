package router

import (
	"net/http"

	apphttp "zipcode_map/internal/http"
	"zipcode_map/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the gin engine and mounts every module.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders(app.ContentSecurityPolicy))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if app.Metrics != nil && app.Config.IsMetricsEnabled() {
		engine.GET("/metrics", gin.WrapH(app.Metrics.Handler()))
	}

	v1 := engine.Group("/api/v1")
	v1.Use(cors.New(corsConfig(app.Config)))

	ctx := &apphttp.RouterContext{
		Engine: engine,
		V1:     v1,
		LookupRateLimiter: httpkit.NewPerMinuteRateLimiter(
			app.Config.GetLookupRatePerMinute(),
			app.Config.GetLookupRateBurst(),
			app.Logger,
		),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Info("module registered", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", httpkit.HeaderRequestID},
		ExposeHeaders: []string{httpkit.HeaderRequestID},
	}

	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		return corsCfg
	}

	origins := make([]string, 0, len(cfg.GetCORSOrigins()))
	for _, origin := range cfg.GetCORSOrigins() {
		if origin != "*" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		// Same-origin page only; cors.New panics on an empty config.
		origins = []string{"http://localhost"}
	}
	corsCfg.AllowOrigins = origins
	return corsCfg
}
