// Package handler exposes the import pipeline over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	importservice "github.com/FACorreiaa/activity-importer/internal/domain/import/service"
)

const uploadField = "file"

// Importer is the part of the import service the handler needs.
type Importer interface {
	ProcessBatch(ctx context.Context, files []document.File) []importservice.Outcome
	Implementations() []implementation.Info
}

// ImportHandler serves document uploads
type ImportHandler struct {
	importSvc Importer
	limiter   *rate.Limiter
	maxBytes  int64
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler. Uploads are capped at
// maxBytes per request and admitted at perSecond with the given burst.
func NewImportHandler(importSvc Importer, maxBytes int64, perSecond float64, burst int, logger *slog.Logger) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{
		importSvc: importSvc,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Routes returns the handler's HTTP routes wrapped in logging and recovery.
func (h *ImportHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/import", h.limit(h.Import))
	mux.HandleFunc("GET /v1/implementations", h.Implementations)
	mux.HandleFunc("GET /healthz", h.Health)
	return h.recovery(h.logRequests(mux))
}

// Import handles POST /v1/import. Every "file" part is processed and the
// outcomes are returned in upload order.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file is required")
		return
	}

	files := make([]document.File, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			h.logger.Error("failed to read upload", slog.String("file", header.Filename), slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		// Strip client-supplied directories from the name.
		files = append(files, document.File{Name: filepath.Base(header.Filename), Data: data})
	}

	outcomes := h.importSvc.ProcessBatch(r.Context(), files)
	writeJSON(w, http.StatusOK, outcomes)
}

// Implementations handles GET /v1/implementations
func (h *ImportHandler) Implementations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.importSvc.Implementations())
}

// Health handles GET /healthz
func (h *ImportHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
