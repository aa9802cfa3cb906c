package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/storage/catalog"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
)

// maxUploadMemory is the part of a multipart upload kept in memory; the
// rest spills to temporary files.
const maxUploadMemory = 8 << 20

// handleUpload handles POST /chains.
//
// The chain is the "file" part. Metadata comes from form fields: user,
// graph_hash, git_commit, git_repo_clean, start_timestamp, end_timestamp,
// filename, compression, extreme and repeated attr=key=value pairs.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.handleServiceError(w, r, domain.ErrPayloadTooLarge.WithDetails(
				"limit is "+strconv.FormatInt(maxErr.Limit, 10)+" bytes"))
			return
		}
		h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("multipart form: "+err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("missing file part"))
		return
	}
	defer file.Close()

	req, err := importRequest(r.MultipartForm, header)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	req.Source = file

	chain, err := h.catalog.Import(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	logger.L(r.Context()).Info("chain uploaded",
		"chain_id", chain.ID,
		"user", chain.User,
		"steps", chain.Steps,
		"size", chain.Size)
	h.writeJSON(w, r, http.StatusCreated, chain)
}

func importRequest(form *multipart.Form, header *multipart.FileHeader) (*catalog.ImportRequest, error) {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	req := &catalog.ImportRequest{
		Filename:    value("filename"),
		User:        value("user"),
		GraphHash:   value("graph_hash"),
		GitCommit:   value("git_commit"),
		Compression: domain.Compression(value("compression")),
		Attributes:  make(map[string]string),
	}
	if req.Filename == "" {
		req.Filename = header.Filename
	}

	var err error
	if req.StartTimestamp, err = int64Field(value("start_timestamp"), "start_timestamp"); err != nil {
		return nil, err
	}
	if req.EndTimestamp, err = int64Field(value("end_timestamp"), "end_timestamp"); err != nil {
		return nil, err
	}
	if s := value("git_repo_clean"); s != "" {
		clean, err := strconv.ParseBool(s)
		if err != nil {
			return nil, domain.ErrBadRequest.WithDetails("invalid git_repo_clean " + strconv.Quote(s))
		}
		req.GitRepoClean = &clean
	}
	if s := value("extreme"); s != "" {
		if req.Extreme, err = strconv.ParseBool(s); err != nil {
			return nil, domain.ErrBadRequest.WithDetails("invalid extreme " + strconv.Quote(s))
		}
	}
	for _, pair := range form.Value["attr"] {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, domain.ErrBadRequest.WithDetails("attribute " + strconv.Quote(pair) + ": want key=value")
		}
		req.Attributes[k] = v
	}
	return req, nil
}

func int64Field(s, name string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, domain.ErrBadRequest.WithDetails("invalid " + name + " " + strconv.Quote(s))
	}
	return n, nil
}
