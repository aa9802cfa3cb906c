package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/storage/catalog"
	"github.com/yndnr/pcompress-go/internal/storage/chainfile"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
)

// handleListChains handles GET /chains.
func (h *Handler) handleListChains(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		User:      q.Get("user"),
		GraphHash: q.Get("graph_hash"),
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("invalid limit "+strconv.Quote(s)))
			return
		}
		f.Limit = n
	}

	chains, err := h.catalog.List(r.Context(), f)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if chains == nil {
		chains = []*domain.Chain{}
	}
	h.writeJSON(w, r, http.StatusOK, &ListChainsResponse{Chains: chains, Count: len(chains)})
}

// handleGetChain handles GET /chains/{id}.
func (h *Handler) handleGetChain(w http.ResponseWriter, r *http.Request) {
	chain, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, chain)
}

// handleChainFile handles GET /chains/{id}/file. The stored file is sent
// unchanged, so a zstd chain downloads as zstd.
func (h *Handler) handleChainFile(w http.ResponseWriter, r *http.Request) {
	f, chain, err := h.catalog.OpenFile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.handleServiceError(w, r, domain.ErrStorage.WithCause(err))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName(chain)+`"`)
	w.Header().Set("X-Chain-SHA256", chain.SHA256)
	w.Header().Set("X-Chain-Compression", string(chain.Compression))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

func downloadName(chain *domain.Chain) string {
	name := chain.ID + chainfile.FileExtension
	if chain.Compression == domain.CompressionZstd {
		name += ".zst"
	}
	return name
}

// handleReplay handles GET /chains/{id}/replay?location=&diff=.
func (h *Handler) handleReplay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &service.ReplayRequest{}
	if s := q.Get("location"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("invalid location "+strconv.Quote(s)))
			return
		}
		req.Location = n
	}
	if s := q.Get("diff"); s != "" {
		diff, err := strconv.ParseBool(s)
		if err != nil {
			h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("invalid diff "+strconv.Quote(s)))
			return
		}
		req.Diff = diff
	}

	f, chain, err := h.catalog.OpenFile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	defer f.Close()

	raw, _, err := chainfile.NewReader(f)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrStorage.WithCause(err))
		return
	}
	defer raw.Close()

	out := &lazyWriter{w: w}
	req.Input = raw
	req.Output = out

	res, err := h.svc.Replay(r.Context(), req)
	if err != nil {
		if !out.started {
			h.handleServiceError(w, r, err)
			return
		}
		// Headers are gone; all we can do is cut the stream short.
		logger.L(r.Context()).Error("replay aborted", "error", err)
		panic(http.ErrAbortHandler)
	}
	if !out.started {
		out.start()
	}
	logger.L(r.Context()).Debug("chain replayed",
		"compression", chain.Compression,
		"records", res.Records,
		"emitted", res.Emitted)
}

// lazyWriter commits the 200 status on the first write, so errors found
// before any output can still be reported as JSON.
type lazyWriter struct {
	w       http.ResponseWriter
	started bool
}

func (l *lazyWriter) start() {
	l.started = true
	l.w.Header().Set("Content-Type", "application/x-ndjson")
	l.w.WriteHeader(http.StatusOK)
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	if !l.started {
		l.start()
	}
	return l.w.Write(p)
}

var _ io.Writer = (*lazyWriter)(nil)
