package coordinator

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/dreamware/keyvol/internal/cluster"
	"github.com/dreamware/keyvol/internal/index"
)

var errVolumeDown = errors.New("volume down")

// fakeVolumes is an in-memory VolumeClient with switchable outages.
type fakeVolumes struct {
	mu     sync.Mutex
	blobs  map[string][]byte // volume + "|" + path -> value
	down   map[string]bool
	stores []string // volumes written, in call order
	probes []string // volumes probed, in call order
}

func newFakeVolumes() *fakeVolumes {
	return &fakeVolumes{
		blobs: make(map[string][]byte),
		down:  make(map[string]bool),
	}
}

func (f *fakeVolumes) setDown(volume string, down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down[volume] = down
}

func (f *fakeVolumes) Exists(ctx context.Context, volume, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.probes = append(f.probes, volume)
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.down[volume] {
		return errVolumeDown
	}
	if _, ok := f.blobs[volume+"|"+path]; !ok {
		return errors.New("not found")
	}
	return nil
}

func (f *fakeVolumes) Store(ctx context.Context, volume, path string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stores = append(f.stores, volume)
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.down[volume] {
		return errVolumeDown
	}
	f.blobs[volume+"|"+path] = append([]byte(nil), value...)
	return nil
}

func (f *fakeVolumes) blob(volume, path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[volume+"|"+path]
	return b, ok
}

func (f *fakeVolumes) calls() (stores, probes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stores), len(f.probes)
}

// failingIndex wraps a memory index and fails chosen operations.
type failingIndex struct {
	*index.MemoryStore
	failGet    bool
	failCreate bool
	failDelete bool
}

var errIndexIO = errors.New("disk on fire")

func (f *failingIndex) Get(ctx context.Context, key string) ([]string, error) {
	if f.failGet {
		return nil, errIndexIO
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *failingIndex) Create(ctx context.Context, key string, volumes []string) error {
	if f.failCreate {
		return errIndexIO
	}
	return f.MemoryStore.Create(ctx, key, volumes)
}

func (f *failingIndex) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errIndexIO
	}
	return f.MemoryStore.Delete(ctx, key)
}

var testConfig = cluster.Config{Volumes: []string{"v1", "v2", "v3"}, Replicas: 2}

func newTestService(idx index.Store, vols *fakeVolumes) *Service {
	return NewService(testConfig, idx, vols, zap.NewNop())
}
