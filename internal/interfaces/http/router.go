package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Chem/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-Chem/internal/interfaces/http/middleware"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// RouterConfig aggregates the handlers and middleware settings of the API.
type RouterConfig struct {
	// Handlers
	MoleculeHandler  *handlers.MoleculeHandler
	ScreeningHandler *handlers.ScreeningHandler
	HealthHandler    *handlers.HealthHandler

	// Middleware
	CORS        *middleware.CORSConfig
	Logging     middleware.LoggingConfig
	MaxBodySize int64

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the route tree: health and metrics at the root, the API
// under /api/v1.  Nil handlers leave their routes unregistered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = prometheus.NewNopAppMetrics()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.Metrics(cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1", middleware.BodyLimit(cfg.MaxBodySize))
	registerMoleculeRoutes(api, cfg.MoleculeHandler)
	registerScreeningRoutes(api, cfg.ScreeningHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Code:      string(errors.ErrCodeNotFound),
			Message:   "route not found",
			RequestID: middleware.GetRequestID(c),
		})
	})
	return r
}

func registerMoleculeRoutes(rg *gin.RouterGroup, h *handlers.MoleculeHandler) {
	if h == nil {
		return
	}
	rg.POST("/parse", h.Parse)
	rg.POST("/fingerprint", h.Fingerprint)
	rg.POST("/compounds", h.RegisterCompound)
	rg.GET("/compounds/:id", h.GetCompound)
}

func registerScreeningRoutes(rg *gin.RouterGroup, h *handlers.ScreeningHandler) {
	if h == nil {
		return
	}
	rg.POST("/match", h.Match)
	rg.POST("/screen", h.Screen)
	rg.POST("/library/search", h.SearchLibrary)
}

//Personal.AI order the ending
