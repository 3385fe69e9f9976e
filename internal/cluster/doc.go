// Package cluster holds the coordinator's static view of the cluster: the
// configured volumes, the replication factor, and the helpers that turn a
// volume identifier into the URLs the coordinator talks to.
//
// # Membership
//
// There is no membership protocol. The volume list is read once at startup
// and injected into every component that needs it:
//
//	cfg, err := cluster.ParseConfig("http://v1:3101,http://v2:3101,http://v3:3101", 2)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Restarting with a different list is the only supported membership change.
// Keys written before the change keep pointing at the replica set recorded in
// the index, even if one of those volumes has since left the list.
//
// # Volume identifiers
//
// A volume identifier is either a base URL ("http://host:3101") or a bare
// "host:port", which is addressed over plain HTTP. The identifier is stored
// verbatim in the index and in the Key-Volumes response header; only
// BaseURL and ObjectURL normalize it. Identifiers may not contain commas
// because index entries and headers are comma-joined.
//
// # Limitations
//
//   - Membership is static for the lifetime of the process
//   - Already placed keys are never rebalanced onto new volumes
package cluster
