package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/storage/catalog"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
)

// Catalog is the part of the chain catalog the handlers use.
type Catalog interface {
	Import(ctx context.Context, req *catalog.ImportRequest) (*domain.Chain, error)
	Get(ctx context.Context, id string) (*domain.Chain, error)
	List(ctx context.Context, f catalog.Filter) ([]*domain.Chain, error)
	OpenFile(ctx context.Context, id string) (*os.File, *domain.Chain, error)
	Stats() (int, int64, error)
}

// Handler serves the chain API.
type Handler struct {
	catalog Catalog
	svc     *service.ChainService
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a Handler over cat. svc decodes chains for replay.
func New(cat Catalog, svc *service.ChainService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		catalog: cat,
		svc:     svc,
		logger:  log,
		mux:     http.NewServeMux(),
	}
	h.Register(h.mux)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Register adds the read-only routes to mux. The upload route is exposed
// separately through Upload so callers can guard it.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.scoped(h.handleHealth))
	mux.HandleFunc("GET /chains", h.scoped(h.handleListChains))
	mux.HandleFunc("GET /chains/{id}", h.scoped(h.handleGetChain))
	mux.HandleFunc("GET /chains/{id}/file", h.scoped(h.handleChainFile))
	mux.HandleFunc("GET /chains/{id}/replay", h.scoped(h.handleReplay))
}

// Upload returns the handler for POST /chains.
func (h *Handler) Upload() http.Handler {
	return h.scoped(h.handleUpload)
}

// scoped puts the handler logger and the chain id from the path into the
// request context, so logger.L carries request_id and chain_id.
func (h *Handler) scoped(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithLogger(r.Context(), logger.FromSlog(h.logger))
		if id := r.PathValue("id"); id != "" {
			ctx = logger.WithChainID(ctx, id)
		}
		fn(w, r.WithContext(ctx))
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.L(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteError(w, r, status, code, message)
}

// WriteError writes an error envelope. Middleware uses it for errors raised
// before a handler runs.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, nil))
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		err = domain.ErrPayloadTooLarge.WithCause(err)
	}

	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := StatusForCode(code)
		if status >= 500 {
			logger.L(r.Context()).Error("request failed", "error", err)
		}
		h.writeError(w, r, status, code, err.Error())
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, "internal server error")
}

// StatusForCode maps an error code to an HTTP status. The last four digits
// of a code are the status followed by a sequence digit: PC-CHAN-4041 is a
// 404.
func StatusForCode(code string) int {
	if len(code) < 4 {
		return http.StatusInternalServerError
	}
	n, err := strconv.Atoi(code[len(code)-4:])
	if err != nil {
		return http.StatusInternalServerError
	}
	status := n / 10
	if status < 400 || status > 599 || http.StatusText(status) == "" {
		return http.StatusInternalServerError
	}
	return status
}
