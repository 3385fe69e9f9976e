package index

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("index")

// BoltStore keeps the index in a single bbolt file. Every mutation runs in
// its own read-write transaction; bbolt serializes those, so the existence
// check and the insert in Create cannot interleave with another writer.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the index file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt index %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Get(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var volumes []string
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction; decode copies it.
		volumes = decodeVolumes(string(v))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return volumes, nil
}

func (b *BoltStore) Create(ctx context.Context, key string, volumes []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket.Get([]byte(key)) != nil {
			return ErrExists
		}
		return bucket.Put([]byte(key), []byte(encodeVolumes(volumes)))
	})
}

func (b *BoltStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(key))
	})
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
