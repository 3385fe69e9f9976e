package cluster

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// DefaultReplicas is the replica count used when none is configured.
const DefaultReplicas = 3

// Config is the static cluster view: the volumes keys may be placed on and
// how many of them hold each key. It is built once at startup and never
// mutated afterwards; a membership change means restarting with a new Config.
type Config struct {
	// Volumes lists the volume identifiers in configuration order.
	Volumes []string `json:"volumes"`

	// Replicas is the number of volumes each key is written to.
	// Always in [1, len(Volumes)].
	Replicas int `json:"replicas"`
}

// ParseConfig builds a Config from a comma-separated volume list and a
// requested replica count. Whitespace around entries is ignored. The replica
// count is clamped to the number of volumes.
func ParseConfig(volumes string, replicas int) (Config, error) {
	if strings.TrimSpace(volumes) == "" {
		return Config{}, errors.New("no volumes configured")
	}
	if replicas < 1 {
		return Config{}, fmt.Errorf("replicas must be positive, got %d", replicas)
	}

	var list []string
	for _, v := range strings.Split(volumes, ",") {
		v = strings.TrimRight(strings.TrimSpace(v), "/")
		if v == "" {
			return Config{}, fmt.Errorf("empty volume entry in %q", volumes)
		}
		if slices.Contains(list, v) {
			return Config{}, fmt.Errorf("duplicate volume %q", v)
		}
		list = append(list, v)
	}

	return Config{
		Volumes:  list,
		Replicas: min(replicas, len(list)),
	}, nil
}

// BaseURL returns the HTTP base URL for a volume identifier. Identifiers
// without a scheme are treated as host:port and served over plain HTTP.
func BaseURL(volume string) string {
	base := volume
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}

// ObjectURL is the URL of the blob stored under path on volume.
func ObjectURL(volume, path string) string {
	return BaseURL(volume) + "/" + strings.TrimLeft(path, "/")
}
