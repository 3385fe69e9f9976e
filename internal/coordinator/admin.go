package coordinator

import (
	"encoding/json"
	"net/http"

	"github.com/dreamware/keyvol/internal/cluster"
)

// NewAdminHandler serves the operator endpoints on their own listener, so
// they can never shadow a client key:
//
//	GET /health   200 while the coordinator is up
//	GET /volumes  configured replica count and per-volume health
func NewAdminHandler(cfg cluster.Config, monitor *HealthMonitor) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/volumes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		response := struct {
			Replicas int            `json:"replicas"`
			Volumes  []VolumeHealth `json:"volumes"`
		}{
			Replicas: cfg.Replicas,
			Volumes:  monitor.Snapshot(),
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	})
	return mux
}
