// Package main runs a development volume server.
//
// It speaks the volume protocol the coordinator relies on (HEAD and PUT of
// raw blobs by path) plus GET, DELETE, /health and /stats for debugging.
// Blobs live in memory unless VOLUME_DIR names a directory.
//
// Configuration:
//   - VOLUME_LISTEN: listen address (default: ":3101")
//   - VOLUME_DIR: blob directory (default: empty, keep blobs in memory)
//   - LOG_LEVEL, LOG_FORMAT: logger settings (default: "info", "json")
//
// Example usage:
//
//	VOLUME_LISTEN=:3101 VOLUME_DIR=/tmp/v1 ./volume &
//	VOLUME_LISTEN=:3102 VOLUME_DIR=/tmp/v2 ./volume &
//	VOLUME_LISTEN=:3103 ./volume &
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/keyvol/internal/logging"
	"github.com/dreamware/keyvol/internal/storage"
)

// logFatal is a variable to allow mocking fatal exits in tests.
var logFatal = func(format string, args ...any) {
	zap.S().Fatalf(format, args...)
}

// openStore returns a disk store rooted at dir, or a memory store when dir
// is empty.
func openStore(dir string) (storage.Store, error) {
	if dir == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewDiskStore(dir)
}

func main() {
	logger, err := logging.New(getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "json"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	listen := getenv("VOLUME_LISTEN", ":3101")
	dir := os.Getenv("VOLUME_DIR")

	store, err := openStore(dir)
	if err != nil {
		logger.Fatal("open blob store", zap.String("dir", dir), zap.Error(err))
	}

	s := &http.Server{
		Addr:              listen,
		Handler:           storage.NewHandler(store, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("volume listening", zap.String("addr", listen), zap.String("dir", dir))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logFatal("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	logger.Info("volume stopped")
}

// getenv returns the value of k, or def when k is unset or empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
