package coordinator

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HeaderKeyVolumes lists a key's replica set on read redirects.
	HeaderKeyVolumes = "Key-Volumes"

	// HeaderRequestID carries the request ID, generated when absent.
	HeaderRequestID = "X-Request-Id"
)

// Handler is the client-facing HTTP surface:
//
//	GET    /{key}  302 with Location and Key-Volumes, or 404
//	PUT    /{key}  201, 400 empty body, 409 exists, 503 storage failure
//	DELETE /{key}  204 or 404
//
// The key is the whole decoded URL path after the leading slash.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler returns the HTTP handler for svc.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// statusRecorder remembers the status code written for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	reqID := r.Header.Get(HeaderRequestID)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(HeaderRequestID, reqID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	key := strings.TrimPrefix(r.URL.Path, "/")

	switch r.Method {
	case http.MethodGet:
		h.get(rec, r, key)
	case http.MethodPut:
		h.put(rec, r, key)
	case http.MethodDelete:
		h.delete(rec, r, key)
	default:
		rec.Header().Set("Allow", "GET, PUT, DELETE")
		http.Error(rec, "method not allowed", http.StatusMethodNotAllowed)
	}

	h.logger.Info("request",
		zap.String("request_id", reqID),
		zap.String("method", r.Method),
		zap.String("key", key),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, key string) {
	redirect, err := h.svc.Read(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Location", redirect.Location)
	w.Header().Set(HeaderKeyVolumes, strings.Join(redirect.Volumes, ","))
	w.WriteHeader(http.StatusFound)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request, key string) {
	value, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	replicas, err := h.svc.Write(r.Context(), key, value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set(HeaderKeyVolumes, strings.Join(replicas, ","))
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, key string) {
	if err := h.svc.Delete(r.Context(), key); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	http.Error(w, publicMessage(err), code)
}
