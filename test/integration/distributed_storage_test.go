package integration

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/keyvol/internal/cluster"
	"github.com/dreamware/keyvol/internal/coordinator"
	"github.com/dreamware/keyvol/internal/index"
	"github.com/dreamware/keyvol/internal/placement"
	"github.com/dreamware/keyvol/internal/storage"
	"github.com/dreamware/keyvol/internal/volume"
)

// testVolume is a dev volume server that can be switched off.
type testVolume struct {
	server  *httptest.Server
	store   *storage.MemoryStore
	handler http.Handler
	down    atomic.Bool
}

func (v *testVolume) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if v.down.Load() {
		http.Error(w, "volume offline", http.StatusServiceUnavailable)
		return
	}
	v.handler.ServeHTTP(w, r)
}

// TestSystem represents the whole store under test: a coordinator with a
// bolt index in front of real volume handlers, all in process
type TestSystem struct {
	t          *testing.T
	volumes    map[string]*testVolume // base URL -> volume
	cfg        cluster.Config
	indexPath  string
	idx        index.Store
	coord      *httptest.Server
	httpClient *http.Client
}

// NewTestSystem starts n volumes and a coordinator replicating k ways
func NewTestSystem(t *testing.T, n, k int) *TestSystem {
	t.Helper()

	ts := &TestSystem{
		t:         t,
		volumes:   make(map[string]*testVolume, n),
		indexPath: filepath.Join(t.TempDir(), "index.db"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	urls := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v := &testVolume{store: storage.NewMemoryStore()}
		v.handler = storage.NewHandler(v.store, zap.NewNop())
		v.server = httptest.NewServer(v)
		t.Cleanup(v.server.Close)
		ts.volumes[v.server.URL] = v
		urls = append(urls, v.server.URL)
	}

	cfg, err := cluster.ParseConfig(strings.Join(urls, ","), k)
	require.NoError(t, err)
	ts.cfg = cfg

	ts.startCoordinator()
	t.Cleanup(ts.stopCoordinator)
	return ts
}

func (ts *TestSystem) startCoordinator() {
	idx, err := index.Open("bolt:" + ts.indexPath)
	require.NoError(ts.t, err)
	ts.idx = idx

	svc := coordinator.NewService(ts.cfg, idx, volume.NewClient(2*time.Second), zap.NewNop())
	ts.coord = httptest.NewServer(coordinator.NewHandler(svc, zap.NewNop()))
}

func (ts *TestSystem) stopCoordinator() {
	if ts.coord == nil {
		return
	}
	ts.coord.Close()
	ts.coord = nil
	assert.NoError(ts.t, ts.idx.Close())
}

// Restart replaces the coordinator with a fresh one over the same index
func (ts *TestSystem) Restart() {
	ts.stopCoordinator()
	ts.startCoordinator()
}

func (ts *TestSystem) keyURL(key string) string {
	return ts.coord.URL + "/" + url.PathEscape(key)
}

func (ts *TestSystem) do(method, target string, body []byte) *http.Response {
	ts.t.Helper()
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(ts.t, err)
	resp, err := ts.httpClient.Do(req)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *TestSystem) PUT(key, value string) *http.Response {
	return ts.do(http.MethodPut, ts.keyURL(key), []byte(value))
}

func (ts *TestSystem) GET(key string) *http.Response {
	return ts.do(http.MethodGet, ts.keyURL(key), nil)
}

func (ts *TestSystem) DELETE(key string) *http.Response {
	return ts.do(http.MethodDelete, ts.keyURL(key), nil)
}

// Fetch reads key through its redirect and returns the blob
func (ts *TestSystem) Fetch(key string) string {
	ts.t.Helper()
	resp := ts.GET(key)
	require.Equal(ts.t, http.StatusFound, resp.StatusCode, "GET %s", key)

	blob := ts.do(http.MethodGet, resp.Header.Get("Location"), nil)
	require.Equal(ts.t, http.StatusOK, blob.StatusCode)
	data, err := io.ReadAll(blob.Body)
	require.NoError(ts.t, err)
	return string(data)
}

// Holders returns the volumes that store a blob for key
func (ts *TestSystem) Holders(key string) []string {
	var out []string
	for u, v := range ts.volumes {
		if _, err := v.store.Get(placement.Path(key)); err == nil {
			out = append(out, u)
		}
	}
	return out
}

func (ts *TestSystem) SetDown(volume string, down bool) {
	ts.volumes[volume].down.Store(down)
}

func TestDistributedStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts := NewTestSystem(t, 5, 3)

	t.Run("StoreAndRetrieve", func(t *testing.T) {
		resp := ts.PUT("user:123", `{"name":"Alice","age":30}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		want := placement.Place("user:123", ts.cfg.Volumes, 3)
		assert.Equal(t, strings.Join(want, ","), resp.Header.Get(coordinator.HeaderKeyVolumes))
		assert.ElementsMatch(t, want, ts.Holders("user:123"))

		get := ts.GET("user:123")
		require.Equal(t, http.StatusFound, get.StatusCode)
		assert.Equal(t, strings.Join(want, ","), get.Header.Get(coordinator.HeaderKeyVolumes))
		assert.Equal(t, cluster.ObjectURL(want[0], placement.Path("user:123")), get.Header.Get("Location"))
		assert.NotEmpty(t, get.Header.Get(coordinator.HeaderRequestID))

		assert.Equal(t, `{"name":"Alice","age":30}`, ts.Fetch("user:123"))
	})

	t.Run("ConflictKeepsValue", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, ts.PUT("conflict", "first").StatusCode)
		assert.Equal(t, http.StatusConflict, ts.PUT("conflict", "second").StatusCode)
		assert.Equal(t, "first", ts.Fetch("conflict"))
	})

	t.Run("EmptyBody", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, ts.PUT("empty", "").StatusCode)
		assert.Equal(t, http.StatusNotFound, ts.GET("empty").StatusCode)
		assert.Empty(t, ts.Holders("empty"))
	})

	t.Run("NonExistentKey", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, ts.GET("never-written").StatusCode)
		assert.Equal(t, http.StatusNotFound, ts.DELETE("never-written").StatusCode)
	})

	t.Run("DeleteThenRewrite", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, ts.PUT("cycle", "one").StatusCode)
		assert.Equal(t, http.StatusNoContent, ts.DELETE("cycle").StatusCode)
		assert.Equal(t, http.StatusNotFound, ts.GET("cycle").StatusCode)

		// The tombstone removes only the index entry.
		assert.Len(t, ts.Holders("cycle"), 3)

		require.Equal(t, http.StatusCreated, ts.PUT("cycle", "two").StatusCode)
		assert.Equal(t, "two", ts.Fetch("cycle"))
	})

	t.Run("ReadFailsOver", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, ts.PUT("failover", "v").StatusCode)
		replicas := placement.Place("failover", ts.cfg.Volumes, 3)

		ts.SetDown(replicas[0], true)
		defer ts.SetDown(replicas[0], false)

		resp := ts.GET("failover")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, cluster.ObjectURL(replicas[1], placement.Path("failover")), resp.Header.Get("Location"))
	})

	t.Run("AllReplicasDown", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, ts.PUT("dark", "v").StatusCode)
		replicas := placement.Place("dark", ts.cfg.Volumes, 3)
		for _, v := range replicas {
			ts.SetDown(v, true)
		}
		defer func() {
			for _, v := range replicas {
				ts.SetDown(v, false)
			}
		}()

		assert.Equal(t, http.StatusNotFound, ts.GET("dark").StatusCode)
	})

	t.Run("WriteNeedsEveryReplica", func(t *testing.T) {
		replicas := placement.Place("partial", ts.cfg.Volumes, 3)
		ts.SetDown(replicas[2], true)

		assert.Equal(t, http.StatusServiceUnavailable, ts.PUT("partial", "v").StatusCode)
		ts.SetDown(replicas[2], false)

		assert.Equal(t, http.StatusNotFound, ts.GET("partial").StatusCode, "no index entry after a failed write")
		require.Equal(t, http.StatusCreated, ts.PUT("partial", "v").StatusCode)
		assert.Equal(t, "v", ts.Fetch("partial"))
	})

	t.Run("VariousKeyPatterns", func(t *testing.T) {
		keys := []string{
			"simple",
			"with spaces",
			"with/slashes/inside",
			"unicode-ключ-鍵",
			"query?and#fragment",
			strings.Repeat("long", 100),
		}
		for _, key := range keys {
			require.Equal(t, http.StatusCreated, ts.PUT(key, "value:"+key).StatusCode, "PUT %q", key)
			assert.Equal(t, "value:"+key, ts.Fetch(key))
		}
	})

	t.Run("KeyDistribution", func(t *testing.T) {
		counts := make(map[string]int)
		for i := 0; i < 200; i++ {
			key := fmt.Sprintf("dist-%d", i)
			require.Equal(t, http.StatusCreated, ts.PUT(key, "v").StatusCode)
			for _, v := range ts.Holders(key) {
				counts[v]++
			}
		}
		// 600 replicas over 5 volumes, 120 each on average.
		for _, v := range ts.cfg.Volumes {
			assert.Greater(t, counts[v], 60, "volume %s underused", v)
			assert.Less(t, counts[v], 180, "volume %s overused", v)
		}
	})

	t.Run("ConcurrentSameKey", func(t *testing.T) {
		const writers = 10
		codes := make([]int, writers)

		var wg sync.WaitGroup
		wg.Add(writers)
		for i := 0; i < writers; i++ {
			go func(i int) {
				defer wg.Done()
				req, err := http.NewRequest(http.MethodPut, ts.keyURL("contended"), strings.NewReader(fmt.Sprintf("writer-%d", i)))
				if err != nil {
					t.Error(err)
					return
				}
				resp, err := ts.httpClient.Do(req)
				if err != nil {
					t.Error(err)
					return
				}
				resp.Body.Close()
				codes[i] = resp.StatusCode
			}(i)
		}
		wg.Wait()

		created := 0
		for _, c := range codes {
			switch c {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
			default:
				t.Errorf("unexpected status %d", c)
			}
		}
		assert.Equal(t, 1, created)
		assert.True(t, strings.HasPrefix(ts.Fetch("contended"), "writer-"))
	})

	t.Run("SurvivesRestart", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, ts.PUT("durable", "kept").StatusCode)
		ts.Restart()
		assert.Equal(t, "kept", ts.Fetch("durable"))
		assert.Equal(t, http.StatusConflict, ts.PUT("durable", "again").StatusCode)
	})
}

// TestStandaloneScenarios covers clusters with fewer volumes than replicas
func TestStandaloneScenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts := NewTestSystem(t, 2, 3)
	assert.Equal(t, 2, ts.cfg.Replicas, "replicas clamp to the volume count")

	resp := ts.PUT("solo", "value")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, strings.Split(resp.Header.Get(coordinator.HeaderKeyVolumes), ","), 2)
	assert.Len(t, ts.Holders("solo"), 2)
	assert.Equal(t, "value", ts.Fetch("solo"))
}
