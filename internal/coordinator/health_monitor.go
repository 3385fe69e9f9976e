package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/keyvol/internal/cluster"
)

// Volume health states.
const (
	HealthUnknown   = "unknown"
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// VolumeHealth tracks the health of one configured volume.
type VolumeHealth struct {
	LastCheck        time.Time `json:"last_check"`   // Last check attempt
	LastHealthy      time.Time `json:"last_healthy"` // Last successful check
	Volume           string    `json:"volume"`
	Status           string    `json:"status"` // HealthUnknown, HealthHealthy or HealthUnhealthy
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// HealthMonitor periodically checks every configured volume and keeps a
// health record per volume for operators.
//
// It is advisory only. Reads still probe replicas in stored order and
// writes still go to the placed replicas whatever the monitor reports;
// the monitor never changes where a key lives.
type HealthMonitor struct {
	volumes     []string                                       // Volumes to check, fixed at construction
	health      map[string]*VolumeHealth                       // Current health per volume
	httpClient  *http.Client                                   // Client for the default check
	checkFunc   func(ctx context.Context, volume string) error // Performs one check
	onUnhealthy func(volume string)                            // Called when a volume turns unhealthy
	logger      *zap.Logger
	interval    time.Duration // Time between check rounds
	timeout     time.Duration // Bound on one check
	mu          sync.RWMutex  // Protects health and the hooks
	maxFailures int           // Failures before unhealthy
}

// NewHealthMonitor creates a monitor for the volumes of cfg that checks
// every interval. Volumes are marked unhealthy after 3 consecutive failures.
func NewHealthMonitor(cfg cluster.Config, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HealthMonitor{
		volumes:     append([]string(nil), cfg.Volumes...),
		health:      make(map[string]*VolumeHealth, len(cfg.Volumes)),
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		httpClient: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
	for _, v := range h.volumes {
		h.health[v] = &VolumeHealth{Volume: v, Status: HealthUnknown}
	}
	h.checkFunc = h.defaultCheck
	return h
}

// SetCheckFunction replaces the volume check. Used by tests.
func (h *HealthMonitor) SetCheckFunction(fn func(ctx context.Context, volume string) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkFunc = fn
}

// SetOnUnhealthy registers a callback invoked, on its own goroutine, each
// time a volume transitions to unhealthy.
func (h *HealthMonitor) SetOnUnhealthy(fn func(volume string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUnhealthy = fn
}

// Run checks all volumes immediately and then every interval until ctx is
// canceled.
func (h *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Info("volume health monitor started",
		zap.Duration("interval", h.interval),
		zap.Int("volumes", len(h.volumes)))

	h.CheckAll(ctx)
	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx)
		case <-ctx.Done():
			h.logger.Info("volume health monitor stopped")
			return
		}
	}
}

// CheckAll runs one check round over every volume.
func (h *HealthMonitor) CheckAll(ctx context.Context) {
	for _, v := range h.volumes {
		if ctx.Err() != nil {
			return
		}
		h.checkVolume(ctx, v)
	}
}

func (h *HealthMonitor) checkVolume(ctx context.Context, volume string) {
	h.mu.RLock()
	check := h.checkFunc
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	err := check(ctx, volume)
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	rec := h.health[volume]
	rec.LastCheck = time.Now()

	if err == nil {
		if rec.Status == HealthUnhealthy {
			h.logger.Info("volume recovered", zap.String("volume", volume))
		}
		rec.Status = HealthHealthy
		rec.ConsecutiveFails = 0
		rec.LastHealthy = rec.LastCheck
		return
	}

	rec.ConsecutiveFails++
	h.logger.Warn("volume health check failed",
		zap.String("volume", volume),
		zap.Int("attempt", rec.ConsecutiveFails),
		zap.Int("max_failures", h.maxFailures),
		zap.Error(err))

	if rec.ConsecutiveFails >= h.maxFailures && rec.Status != HealthUnhealthy {
		rec.Status = HealthUnhealthy
		h.logger.Error("volume marked unhealthy",
			zap.String("volume", volume),
			zap.Int("failures", rec.ConsecutiveFails))
		if h.onUnhealthy != nil {
			go h.onUnhealthy(volume)
		}
	}
}

// defaultCheck sends HEAD to the volume's base URL. Any HTTP answer below
// 500 means the server is up; the volume protocol defines no health path.
func (h *HealthMonitor) defaultCheck(ctx context.Context, volume string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cluster.BaseURL(volume)+"/", nil)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Health returns a copy of the record for volume, or nil if the
// volume is not configured.
func (h *HealthMonitor) Health(volume string) *VolumeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.health[volume]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// Snapshot returns copies of all records in configuration order.
func (h *HealthMonitor) Snapshot() []VolumeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]VolumeHealth, 0, len(h.volumes))
	for _, v := range h.volumes {
		out = append(out, *h.health[v])
	}
	return out
}

// IsHealthy reports whether volume passed its most recent check.
func (h *HealthMonitor) IsHealthy(volume string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.health[volume]
	return ok && rec.Status == HealthHealthy
}
