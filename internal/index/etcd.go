package index

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// etcdPrefix namespaces index entries inside a shared etcd cluster.
const etcdPrefix = "/keyvol/index/"

// EtcdStore keeps the index in etcd. Create is a single transaction that
// only puts when the key's create revision is 0, i.e. the key does not exist.
type EtcdStore struct {
	client *clientv3.Client
}

// OpenEtcd connects to the given etcd endpoints.
func OpenEtcd(endpoints []string) (*EtcdStore, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connect etcd %v: %w", endpoints, err)
	}
	return &EtcdStore{client: client}, nil
}

func (e *EtcdStore) Get(ctx context.Context, key string) ([]string, error) {
	resp, err := e.client.Get(ctx, etcdPrefix+key)
	if err != nil {
		return nil, fmt.Errorf("etcd get %q: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}
	return decodeVolumes(string(resp.Kvs[0].Value)), nil
}

func (e *EtcdStore) Create(ctx context.Context, key string, volumes []string) error {
	k := etcdPrefix + key
	resp, err := e.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(k), "=", 0)).
		Then(clientv3.OpPut(k, encodeVolumes(volumes))).
		Commit()
	if err != nil {
		return fmt.Errorf("etcd create %q: %w", key, err)
	}
	if !resp.Succeeded {
		return ErrExists
	}
	return nil
}

func (e *EtcdStore) Delete(ctx context.Context, key string) error {
	resp, err := e.client.Delete(ctx, etcdPrefix+key)
	if err != nil {
		return fmt.Errorf("etcd delete %q: %w", key, err)
	}
	if resp.Deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (e *EtcdStore) Close() error {
	return e.client.Close()
}
