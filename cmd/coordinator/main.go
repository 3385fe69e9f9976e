// Package main runs the keyvol coordinator.
//
// The coordinator owns the key index and decides which volumes hold each
// key. It never proxies blob bytes on reads: a GET is answered with a
// redirect to a replica that has the blob.
//
// Configuration:
//   - VOLUMES: comma-separated volume list (required)
//   - REPLICAS: replicas per key (default: 3, clamped to the volume count)
//   - INDEX_DSN: index backend (default: "bolt:index.db")
//   - VOLUME_TIMEOUT: bound on each volume call (default: "5s")
//   - COORDINATOR_ADDR: data listen address (default: ":3000")
//   - COORDINATOR_ADMIN_ADDR: admin listen address (default: ":3001", empty disables)
//   - HEALTH_INTERVAL: volume health check interval (default: "10s")
//   - LOG_LEVEL, LOG_FORMAT: logger settings (default: "info", "json")
//
// Example usage:
//
//	VOLUMES=localhost:3101,localhost:3102,localhost:3103 \
//	REPLICAS=2 \
//	./coordinator
//
//	curl -X PUT localhost:3000/user:123 -d '{"name":"Alice"}'
//	curl -L localhost:3000/user:123
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/keyvol/internal/cluster"
	"github.com/dreamware/keyvol/internal/coordinator"
	"github.com/dreamware/keyvol/internal/index"
	"github.com/dreamware/keyvol/internal/logging"
	"github.com/dreamware/keyvol/internal/volume"
)

// logFatal is a variable to allow mocking fatal exits in tests.
var logFatal = func(format string, args ...any) {
	zap.S().Fatalf(format, args...)
}

const defaultAdminAddr = ":3001"

// config is the coordinator's process configuration.
type config struct {
	Cluster        cluster.Config
	Addr           string
	AdminAddr      string // empty disables the admin listener
	IndexDSN       string
	VolumeTimeout  time.Duration
	HealthInterval time.Duration
}

// loadConfig reads the configuration from the environment.
func loadConfig() (config, error) {
	replicas, err := strconv.Atoi(getenv("REPLICAS", strconv.Itoa(cluster.DefaultReplicas)))
	if err != nil {
		return config{}, fmt.Errorf("REPLICAS: %w", err)
	}
	clusterCfg, err := cluster.ParseConfig(mustGetenv("VOLUMES"), replicas)
	if err != nil {
		return config{}, fmt.Errorf("VOLUMES: %w", err)
	}
	volumeTimeout, err := time.ParseDuration(getenv("VOLUME_TIMEOUT", volume.DefaultTimeout.String()))
	if err != nil {
		return config{}, fmt.Errorf("VOLUME_TIMEOUT: %w", err)
	}
	if volumeTimeout <= 0 {
		return config{}, fmt.Errorf("VOLUME_TIMEOUT: must be positive, got %s", volumeTimeout)
	}
	healthInterval, err := time.ParseDuration(getenv("HEALTH_INTERVAL", "10s"))
	if err != nil {
		return config{}, fmt.Errorf("HEALTH_INTERVAL: %w", err)
	}
	if healthInterval <= 0 {
		return config{}, fmt.Errorf("HEALTH_INTERVAL: must be positive, got %s", healthInterval)
	}

	adminAddr := defaultAdminAddr
	if v, ok := os.LookupEnv("COORDINATOR_ADMIN_ADDR"); ok {
		adminAddr = v
	}

	return config{
		Cluster:        clusterCfg,
		Addr:           getenv("COORDINATOR_ADDR", ":3000"),
		AdminAddr:      adminAddr,
		IndexDSN:       getenv("INDEX_DSN", index.DefaultDSN),
		VolumeTimeout:  volumeTimeout,
		HealthInterval: healthInterval,
	}, nil
}

func main() {
	logger, err := logging.New(getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "json"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	idx, err := index.Open(cfg.IndexDSN)
	if err != nil {
		logger.Fatal("open index", zap.String("dsn", cfg.IndexDSN), zap.Error(err))
	}

	svc := coordinator.NewService(cfg.Cluster, idx, volume.NewClient(cfg.VolumeTimeout), logger)
	dataSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           coordinator.NewHandler(svc, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var adminSrv *http.Server
	if cfg.AdminAddr != "" {
		monitor := coordinator.NewHealthMonitor(cfg.Cluster, cfg.HealthInterval, logger)
		go monitor.Run(ctx)
		adminSrv = &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           coordinator.NewAdminHandler(cfg.Cluster, monitor),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go serve(adminSrv, "admin", logger)
	}

	logger.Info("coordinator starting",
		zap.Strings("volumes", cfg.Cluster.Volumes),
		zap.Int("replicas", cfg.Cluster.Replicas),
		zap.String("index", cfg.IndexDSN),
		zap.Duration("volume_timeout", cfg.VolumeTimeout))
	go serve(dataSrv, "data", logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := dataSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("data server shutdown", zap.Error(err))
	}
	if adminSrv != nil {
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin server shutdown", zap.Error(err))
		}
	}
	if err := idx.Close(); err != nil {
		logger.Warn("close index", zap.Error(err))
	}
	logger.Info("coordinator stopped")
}

// serve runs srv until it is shut down. Any other listen error is fatal.
func serve(srv *http.Server, name string, logger *zap.Logger) {
	logger.Info("listening", zap.String("listener", name), zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logFatal("%s listener: %v", name, err)
	}
}

// getenv returns the value of k, or def when k is unset or empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// mustGetenv returns the value of k and exits the process if it is unset
// or empty.
func mustGetenv(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	logFatal("missing env %s", k)
	return ""
}
