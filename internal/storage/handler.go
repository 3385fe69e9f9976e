package storage

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dreamware/keyvol/internal/placement"
)

// NewHandler serves a blob store over the volume protocol:
//
//	HEAD   /{path}  200 with Content-Length, or 404
//	GET    /{path}  200 with the blob, or 404
//	PUT    /{path}  201, the body becomes the blob
//	DELETE /{path}  204
//	GET    /health  200
//	GET    /stats   blob count and total bytes
//
// Blob paths always contain a slash, so they never collide with /health
// or /stats.
func NewHandler(store Store, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats, err := store.Stats()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handleBlob(store, logger, w, r)
	})
	return mux
}

func handleBlob(store Store, logger *zap.Logger, w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path

	switch r.Method {
	case http.MethodHead, http.MethodGet:
		blob, err := store.Get(p)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(blob)
		}

	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		if err := store.Put(p, body); err != nil {
			logger.Error("blob write failed", zap.String("path", p), zap.Error(err))
			writeStoreError(w, err)
			return
		}
		fields := []zap.Field{zap.String("path", p), zap.Int("bytes", len(body))}
		if key, err := placement.KeyFromPath(strings.TrimPrefix(p, "/")); err == nil {
			fields = append(fields, zap.String("key", key))
		}
		logger.Debug("blob stored", fields...)
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		if err := store.Delete(p); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "HEAD, GET, PUT, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBlobNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidPath):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "storage error", http.StatusInternalServerError)
	}
}
