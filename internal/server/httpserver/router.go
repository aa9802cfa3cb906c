package httpserver

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/server/httpserver/handler"
	"github.com/yndnr/pcompress-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Catalog stores and serves chains.
	Catalog handler.Catalog

	// Service decodes chains for replay.
	Service *service.ChainService

	// Metrics receives request metrics and is served on /metrics.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger *slog.Logger

	// UploadAPIKey guards POST /chains. Empty leaves uploads open.
	UploadAPIKey string

	// MaxUploadBytes caps the upload request body.
	MaxUploadBytes int64

	// RateLimit is the per-IP request rate. Zero disables limiting.
	RateLimit float64

	// RateBurst is the per-IP burst size.
	RateBurst int

	// EnableAudit enables audit logging for all requests.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		MaxUploadBytes: 64 << 20,
		RateLimit:      20,
		RateBurst:      40,
		EnableAudit:    true,
	}
}

// NewRouter creates the HTTP handler with all routes and middleware.
//
// Order: Recover -> RequestID -> Audit -> RateLimit -> Metrics -> routes.
// The upload route adds APIKey -> BodyLimit.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = metric.Global()
	}

	h := handler.New(cfg.Catalog, cfg.Service, log)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", reg.Handler())
	mux.Handle("POST /chains", Chain(h.Upload(),
		APIKey(cfg.UploadAPIKey),
		BodyLimit(cfg.MaxUploadBytes),
	))

	middlewares := []Middleware{Recover(log), RequestID()}
	if cfg.EnableAudit {
		middlewares = append(middlewares, Audit(log))
	}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimit(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1)))
	}
	// Metrics must see the request the mux routes, so it stays innermost.
	middlewares = append(middlewares, Metrics(reg))

	return Chain(mux, middlewares...)
}
