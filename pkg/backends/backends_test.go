package backends

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/syia/fleetgate/pkg/config"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func testMongoConfig() *config.MongoClusterConfig {
	cfg := &config.MongoClusterConfig{Host: "db.internal", Database: "fleet"}
	cfg.SetDefaults()
	return cfg
}

func TestConnectWithRetry_SucceedsAfterFailures(t *testing.T) {
	var calls int32
	key := Key{Endpoint: "db.internal:27017", Name: "core"}

	err := connectWithRetry(context.Background(), key, DefaultConnectAttempts, time.Millisecond, noSleep,
		func(ctx context.Context) error {
			if atomic.AddInt32(&calls, 1) < 5 {
				return fmt.Errorf("connection refused")
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestConnectWithRetry_Exhaustion(t *testing.T) {
	var calls int32
	key := Key{Endpoint: "db.internal:27017", Name: "core"}

	err := connectWithRetry(context.Background(), key, DefaultConnectAttempts, time.Millisecond, noSleep,
		func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return fmt.Errorf("connection refused")
		})

	require.Error(t, err)
	assert.Equal(t, int32(DefaultConnectAttempts), atomic.LoadInt32(&calls))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, key.Endpoint, connErr.Endpoint)
	assert.Equal(t, DefaultConnectAttempts, connErr.Attempts)
	assert.Contains(t, connErr.Error(), "after 5 attempts")
}

func TestConnectWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := connectWithRetry(ctx, Key{Endpoint: "x"}, 5, time.Millisecond, noSleep,
		func(ctx context.Context) error {
			t.Fatal("dial should not run with canceled context")
			return nil
		})

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, connErr.Err, context.Canceled)
}

func TestMongoHandle_Connect_ExhaustionMarksFailed(t *testing.T) {
	h := NewMongoHandle("core", testMongoConfig())
	h.sleep = noSleep
	var calls int32
	h.dial = func(ctx context.Context, cfg *config.MongoClusterConfig) (*mongo.Client, error) {
		atomic.AddInt32(&calls, 1)
		return nil, fmt.Errorf("connection refused")
	}

	err := h.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(DefaultConnectAttempts), atomic.LoadInt32(&calls))
	assert.Equal(t, StateFailed, h.State())

	// The handle is not stuck: a later call retries the full sequence.
	_ = h.Connect(context.Background())
	assert.Equal(t, int32(2*DefaultConnectAttempts), atomic.LoadInt32(&calls))
}

func TestMongoHandle_Connect_OnceUnderConcurrency(t *testing.T) {
	h := NewMongoHandle("core", testMongoConfig())
	h.sleep = noSleep
	var dials int32
	h.dial = func(ctx context.Context, cfg *config.MongoClusterConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		return &mongo.Client{}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Connect(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
	assert.Equal(t, StateConnected, h.State())
	assert.False(t, h.LastHealthCheck().IsZero())
}

func TestRegistry_Mongo_SharedHandle(t *testing.T) {
	cfg := &config.Config{
		Mongo: map[string]config.MongoClusterConfig{"core": *testMongoConfig()},
	}
	r := NewRegistry(cfg)

	// Seed the slot with a handle whose dialer never touches the network.
	seeded := NewMongoHandle("core", testMongoConfig())
	seeded.sleep = noSleep
	var dials int32
	seeded.dial = func(ctx context.Context, c *config.MongoClusterConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		return &mongo.Client{}, nil
	}
	require.NoError(t, r.handles.Register(mongoHandleKey("core"), seeded))

	var wg sync.WaitGroup
	results := make([]*MongoHandle, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.Mongo(context.Background(), "core")
			assert.NoError(t, err)
			results[i] = h
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
	for _, h := range results {
		assert.Same(t, seeded, h)
	}
}

func TestRegistry_Mongo_UnknownCluster(t *testing.T) {
	r := NewRegistry(&config.Config{})
	_, err := r.Mongo(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document-store cluster")
}

// failingHandle always errors on Close; used to prove CloseAll keeps going.
type failingHandle struct {
	connState
	key Key
}

func (f *failingHandle) Key() Key { return f.key }

func (f *failingHandle) Connect(ctx context.Context) error { return nil }

func (f *failingHandle) Ping(ctx context.Context) error { return nil }
func (f *failingHandle) Close(ctx context.Context) error {
	return fmt.Errorf("close failed for %s", f.key.Name)
}

func TestRegistry_CloseAll_CollectsErrors(t *testing.T) {
	r := NewRegistry(&config.Config{})
	require.NoError(t, r.handles.Register("a", &failingHandle{key: Key{Name: "a"}}))
	require.NoError(t, r.handles.Register("b", &failingHandle{key: Key{Name: "b"}}))

	err := r.CloseAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close failed for a")
	assert.Contains(t, err.Error(), "close failed for b")
	assert.Equal(t, 0, r.handles.Count())
}

// probeCountingHandle records Ping calls; used by the monitor test.
type probeCountingHandle struct {
	connState
	key    Key
	probes atomic.Int32
}

func (p *probeCountingHandle) Key() Key { return p.key }

func (p *probeCountingHandle) Connect(ctx context.Context) error { return nil }

func (p *probeCountingHandle) Close(ctx context.Context) error { return nil }

func (p *probeCountingHandle) Ping(ctx context.Context) error {
	p.probes.Add(1)
	p.markChecked(time.Now())
	return nil
}

func TestRegistry_HealthMonitorProbesHandles(t *testing.T) {
	r := NewRegistry(&config.Config{})
	h := &probeCountingHandle{key: Key{Name: "core"}}
	h.setState(StateConnected)
	require.NoError(t, r.handles.Register("a", h))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartHealthMonitor(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return h.probes.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	r.StopHealthMonitor()
	assert.False(t, h.LastHealthCheck().IsZero())
}

func TestRegistry_CloseAll_Empty(t *testing.T) {
	r := NewRegistry(&config.Config{})
	assert.NoError(t, r.CloseAll(context.Background()))
}

func searchConfigFor(t *testing.T, srvURL string) *config.SearchClusterConfig {
	t.Helper()
	u, err := url.Parse(srvURL)
	require.NoError(t, err)
	port := 80
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		require.NoError(t, err)
	}
	cfg := &config.SearchClusterConfig{
		Protocol: u.Scheme,
		Host:     u.Hostname(),
		Port:     port,
		APIKey:   "test-key",
	}
	cfg.SetDefaults()
	return cfg
}

func TestSearchHandle_Search(t *testing.T) {
	var gotKey, gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-TYPESENSE-API-KEY")
		switch r.URL.Path {
		case "/health":
			fmt.Fprint(w, `{"ok":true}`)
		case "/collections/casefiles/documents/search":
			gotFilter = r.URL.Query().Get("filter_by")
			fmt.Fprint(w, `{"found":1,"page":1,"hits":[{"document":{"imo":9123456,"title":"Main engine overhaul"}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewSearchHandle("search", searchConfigFor(t, srv.URL))
	h.sleep = noSleep

	result, err := h.Search(context.Background(), "casefiles", SearchParams{
		Query:    "overhaul",
		QueryBy:  "title",
		FilterBy: "imo:[9123456]",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "imo:[9123456]", gotFilter)
	assert.Equal(t, 1, result.Found)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Main engine overhaul", result.Hits[0].Document["title"])
	assert.Equal(t, StateConnected, h.State())
}

func TestSearchHandle_PingFailureMarksFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	h := NewSearchHandle("search", searchConfigFor(t, srv.URL))
	h.sleep = noSleep

	err := h.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, h.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "failed", StateFailed.String())
}
