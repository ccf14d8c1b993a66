// Package httpapi exposes the transfer service over HTTP: multipart upload,
// blob download by public key and delete by private key.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsmirnov/filedrop/internal/common"
	"github.com/dsmirnov/filedrop/internal/logging"
	"github.com/dsmirnov/filedrop/internal/server/services"
)

const (
	msgDeleted        = "File successfully deleted."
	msgAlreadyDeleted = "File was already deleted"
	msgInternalError  = "internal server error"
)

// Handler serves the public file-sharing API.
type Handler struct {
	svc    *services.TransferService
	logger logging.Logger
}

func NewHandler(svc *services.TransferService, logger logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("module", "httpapi")}
}

// NewRouter assembles the chi router with the standard middleware chain.
// middleware.RealIP resolves the client identity behind a trusted proxy.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(metricsMiddleware)
	r.Use(requestLogger(h.logger))

	r.Post("/files", h.Upload)
	r.Get("/files/{publicKey}", h.Download)
	r.Delete("/files/{privateKey}", h.Delete)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Upload reads the "file" part of a multipart request and streams it into
// the transfer service. The part is consumed without buffering the payload,
// so the service's size cap applies to the stream itself.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	part, fileName, err := filePart(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "multipart request with a \"file\" field expected")
		return
	}
	defer part.Close()

	res, err := h.svc.Upload(r.Context(), clientIP(r), fileName, part)
	if err != nil {
		transfersTotal.WithLabelValues("upload", outcome(err)).Inc()
		h.writeServiceError(w, r, err)
		return
	}
	transfersTotal.WithLabelValues("upload", "accepted").Inc()

	writeJSON(w, http.StatusCreated, map[string]string{
		"publicKey":  res.PublicKey,
		"privateKey": res.PrivateKey,
	})
}

// Download resolves the public key, charges the quota and streams the bytes.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	publicKey := chi.URLParam(r, "publicKey")

	file, err := h.svc.Download(r.Context(), clientIP(r), publicKey)
	if err != nil {
		transfersTotal.WithLabelValues("download", outcome(err)).Inc()
		h.writeServiceError(w, r, err)
		return
	}
	transfersTotal.WithLabelValues("download", "accepted").Inc()

	rc, err := h.svc.OpenBlob(r.Context(), file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are gone; all we can do is log the broken stream.
		h.logger.Warn(r.Context(), "download stream aborted", "error", err.Error())
	}
}

// Delete removes the file addressed by the private key. Unknown keys and
// already-deleted files get the same response.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	privateKey := chi.URLParam(r, "privateKey")

	removed, err := h.svc.Delete(r.Context(), privateKey)
	if err != nil {
		transfersTotal.WithLabelValues("delete", outcome(err)).Inc()
		h.writeServiceError(w, r, err)
		return
	}
	transfersTotal.WithLabelValues("delete", "accepted").Inc()

	msg := msgAlreadyDeleted
	if removed {
		msg = msgDeleted
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// filePart walks the multipart stream until the "file" field and hands that
// part back as a reader.
func filePart(r *http.Request) (io.ReadCloser, string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", err
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, "", fmt.Errorf("no file field in request: %w", err)
		}
		if part.FormName() == "file" {
			name := part.FileName()
			if name == "" {
				name = "file"
			}
			return part, name, nil
		}
		part.Close()
	}
}

// clientIP strips the port from RemoteAddr. Behind RealIP middleware the
// address may already be a bare IP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeServiceError maps service errors to status codes. Internal details
// never reach the response body.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		h.writeError(w, r, http.StatusNotFound, "file not found")
	case errors.Is(err, common.ErrQuotaExceeded):
		h.writeError(w, r, http.StatusTooManyRequests, common.ErrQuotaExceeded.Error())
	case errors.Is(err, common.ErrSizeExceeded):
		h.writeError(w, r, http.StatusRequestEntityTooLarge, common.ErrSizeExceeded.Error())
	default:
		h.logger.Error(r.Context(), "request failed", "error", err.Error())
		h.writeError(w, r, http.StatusInternalServerError, msgInternalError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// outcome classifies a service error for the transfer counter.
func outcome(err error) string {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, common.ErrSizeExceeded):
		return "size_exceeded"
	default:
		return "error"
	}
}
