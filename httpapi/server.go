package httpapi

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/duragraph/graphrt/checkpoint"
	"github.com/duragraph/graphrt/engine"
	"github.com/duragraph/graphrt/httpapi/middleware"
	"github.com/duragraph/graphrt/telemetry/metrics"
)

// ServerConfig configures the routes and middleware New installs.
type ServerConfig struct {
	ServiceName string
	AuthToken   string // empty disables bearer-token auth
	Metrics     *metrics.Metrics
}

// New builds an *echo.Echo exposing invoke/stream/checkpoint-inspection
// routes over eng, grounded on the teacher's cmd/server router setup:
// Logger, Recover, CORS, then Auth (skipping /healthz and /metrics),
// followed by otelecho's request-tracing middleware and, when
// cfg.Metrics is set, Metrics. The returned Handler lets the caller
// RegisterGraph before serving.
func New(eng *engine.Engine, cp checkpoint.Checkpointer, cfg ServerConfig) (*echo.Echo, *Handler) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "graphrt"
	}

	h := NewHandler(eng, cp, cfg.ServiceName)

	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler()

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.Auth(middleware.AuthConfig{
		Token:     cfg.AuthToken,
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	e.Use(otelecho.Middleware(cfg.ServiceName))
	if cfg.Metrics != nil {
		e.Use(middleware.Metrics(cfg.Metrics))
	}

	e.GET("/healthz", h.Healthz)
	e.GET("/info", h.Info)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/graphs/:name/invoke", h.Invoke)
	e.POST("/graphs/:name/stream", h.Stream)

	e.GET("/checkpoints/:thread_id", h.ListCheckpoints)
	e.GET("/checkpoints/:thread_id/:checkpoint_id", h.GetCheckpoint)
	e.DELETE("/checkpoints/:thread_id/:checkpoint_id", h.DeleteCheckpoint)

	return e, h
}
