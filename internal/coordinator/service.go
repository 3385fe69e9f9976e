package coordinator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/keyvol/internal/cluster"
	"github.com/dreamware/keyvol/internal/index"
	"github.com/dreamware/keyvol/internal/placement"
)

// VolumeClient is what the coordinator needs from volume servers.
// Each call either succeeds (nil) or fails; there are no retries.
type VolumeClient interface {
	Exists(ctx context.Context, volume, path string) error
	Store(ctx context.Context, volume, path string, value []byte) error
}

// Redirect is the answer to a successful read.
type Redirect struct {
	// Location is the URL of the blob on the first replica that answered.
	Location string

	// Volumes is the key's full replica set in preference order.
	Volumes []string
}

// Service runs the write, read and delete protocols. It holds no mutable
// state of its own; the index store is the only shared resource.
type Service struct {
	cfg     cluster.Config
	index   index.Store
	volumes VolumeClient
	logger  *zap.Logger
}

// NewService wires a service over an immutable cluster config, an index
// backend and a volume client.
func NewService(cfg cluster.Config, idx index.Store, volumes VolumeClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:     cfg,
		index:   idx,
		volumes: volumes,
		logger:  logger,
	}
}

// Write stores value under a new key and returns the replica set it was
// committed with.
//
// Protocol:
//  1. Reject an empty key or value without touching anything
//  2. Refuse keys that are already indexed, before any volume is written,
//     so a repeated write never overwrites committed blobs
//  3. Place the key and store the value on every replica concurrently;
//     the first failure cancels the rest and the write stops there
//  4. Only when every replica acknowledged, create the index entry
//
// Blobs written before a failure, or by the loser of a race for the same
// new key, are left on the volumes. No index entry ever points at them.
func (s *Service) Write(ctx context.Context, key string, value []byte) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if len(value) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidArgument)
	}

	_, err := s.index.Get(ctx, key)
	switch {
	case err == nil:
		return nil, ErrConflict
	case !errors.Is(err, index.ErrNotFound):
		return nil, fmt.Errorf("%w: index lookup: %v", ErrUnavailable, err)
	}

	replicas := placement.Place(key, s.cfg.Volumes, s.cfg.Replicas)
	if len(replicas) == 0 {
		return nil, fmt.Errorf("%w: no volumes configured", ErrUnavailable)
	}
	path := placement.Path(key)

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range replicas {
		v := v
		g.Go(func() error {
			if err := s.volumes.Store(gctx, v, path, value); err != nil {
				s.logger.Warn("replica write failed",
					zap.String("key", key),
					zap.String("volume", v),
					zap.Error(err))
				return fmt.Errorf("volume %s: %w", v, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	err = s.index.Create(ctx, key, replicas)
	switch {
	case errors.Is(err, index.ErrExists):
		s.logger.Info("lost create race, replica blobs orphaned",
			zap.String("key", key),
			zap.Strings("volumes", replicas))
		return nil, ErrConflict
	case err != nil:
		s.logger.Error("index commit failed after replication",
			zap.String("key", key),
			zap.Strings("volumes", replicas),
			zap.Error(err))
		return nil, fmt.Errorf("%w: index commit: %v", ErrUnavailable, err)
	}

	return replicas, nil
}

// Read finds a live replica of key.
//
// Replicas are probed one at a time in stored order and the first one that
// answers wins. When none answers the result is ErrNotFound, the same as for
// a key that was never written.
func (s *Service) Read(ctx context.Context, key string) (Redirect, error) {
	if key == "" {
		return Redirect{}, fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}

	replicas, err := s.index.Get(ctx, key)
	if errors.Is(err, index.ErrNotFound) {
		return Redirect{}, ErrNotFound
	}
	if err != nil {
		return Redirect{}, fmt.Errorf("%w: index lookup: %v", ErrUnavailable, err)
	}

	path := placement.Path(key)
	for _, v := range replicas {
		if err := ctx.Err(); err != nil {
			return Redirect{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := s.volumes.Exists(ctx, v, path); err != nil {
			s.logger.Debug("replica probe failed",
				zap.String("key", key),
				zap.String("volume", v),
				zap.Error(err))
			continue
		}
		return Redirect{
			Location: cluster.ObjectURL(v, path),
			Volumes:  replicas,
		}, nil
	}

	s.logger.Warn("no replica reachable",
		zap.String("key", key),
		zap.Strings("volumes", replicas))
	return Redirect{}, fmt.Errorf("%w: no replica reachable", ErrNotFound)
}

// Delete removes the index entry for key. Blobs stay on the volumes.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}

	err := s.index.Delete(ctx, key)
	if errors.Is(err, index.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: index delete: %v", ErrUnavailable, err)
	}
	return nil
}
