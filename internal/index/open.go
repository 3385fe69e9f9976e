package index

import (
	"fmt"
	"strings"
)

// DefaultDSN is the backend used when none is configured.
const DefaultDSN = "bolt:index.db"

// Open returns the backend described by dsn:
//
//	memory                          in-process map, lost on exit
//	bolt:/var/lib/keyvol/index.db   bbolt file
//	sqlite:/var/lib/keyvol/index.db SQLite file
//	etcd:http://e1:2379,http://e2:2379
func Open(dsn string) (Store, error) {
	scheme, rest, _ := strings.Cut(dsn, ":")
	switch scheme {
	case "memory":
		return NewMemoryStore(), nil
	case "bolt":
		if rest == "" {
			return nil, fmt.Errorf("index dsn %q: missing file path", dsn)
		}
		return OpenBolt(rest)
	case "sqlite":
		if rest == "" {
			return nil, fmt.Errorf("index dsn %q: missing file path", dsn)
		}
		return OpenSQLite(rest)
	case "etcd":
		var endpoints []string
		for _, ep := range strings.Split(rest, ",") {
			if ep = strings.TrimSpace(ep); ep != "" {
				endpoints = append(endpoints, ep)
			}
		}
		if len(endpoints) == 0 {
			return nil, fmt.Errorf("index dsn %q: missing etcd endpoints", dsn)
		}
		return OpenEtcd(endpoints)
	default:
		return nil, fmt.Errorf("index dsn %q: unknown backend %q", dsn, scheme)
	}
}
