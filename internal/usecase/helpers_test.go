package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/config"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/stretchr/testify/require"
)

// fakeStore counts fetches per key. With a gate every fetch waits until the gate
// is closed.
type fakeStore struct {
	mu      sync.Mutex
	calls   map[tile.Key]int
	gate    chan struct{}
	respond func(k tile.Key, call int) ([]byte, error)
	purged  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{calls: make(map[tile.Key]int)}
}

func (s *fakeStore) Fetch(ctx context.Context, k tile.Key) ([]byte, error) {
	s.mu.Lock()
	s.calls[k]++
	n := s.calls[k]
	gate := s.gate
	respond := s.respond
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, tile.Transient("fake", k, ctx.Err())
		}
	}
	if respond != nil {
		return respond(k, n)
	}
	return []byte("tile"), nil
}

func (s *fakeStore) Purge(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = append(s.purged, source)
	return nil
}

func (s *fakeStore) Calls(k tile.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[k]
}

func (s *fakeStore) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

type fakeNotifier struct {
	mu       sync.Mutex
	loaded   int
	failed   int
	warnings int
	unusable int
}

func (n *fakeNotifier) TileLoaded(tile.Key) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loaded++
}

func (n *fakeNotifier) TileFailed(tile.Key, tile.Reason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
}

func (n *fakeNotifier) FailureWarning(string, int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings++
}

func (n *fakeNotifier) BackendUnusable(string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unusable++
}

func (n *fakeNotifier) counts() (loaded, failed, warnings, unusable int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loaded, n.failed, n.warnings, n.unusable
}

type memoryState struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryState() *memoryState {
	return &memoryState{data: make(map[string][]byte)}
}

func (m *memoryState) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryState) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func testSourceConfig(id, kind string) config.Source {
	return config.Source{
		ID:          id,
		Name:        id,
		Kind:        kind,
		TileWidth:   256,
		TileHeight:  256,
		MinZoom:     0,
		MaxZoom:     19,
		MaxOverzoom: 2,
	}
}

func testSource(t *testing.T, id, kind string) Source {
	t.Helper()
	s, err := NewSource(testSourceConfig(id, kind))
	require.NoError(t, err)
	return s
}

func newTestCache() *cache.LRUCache {
	return cache.NewLRUCache(1<<20, logger.NewNoOp())
}

func newTestProvider(t *testing.T, s *fakeStore, c cache.TileCache, maxAttempts int) *AsyncTileProvider {
	t.Helper()
	p := NewAsyncTileProvider(s, c, nil, ProviderConfig{
		Workers:      4,
		MaxAttempts:  maxAttempts,
		Backoff:      time.Millisecond,
		FetchTimeout: 5 * time.Second,
	}, logger.NewNoOp())
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	return p
}

// results collects callback results in delivery order.
type results struct {
	mu  sync.Mutex
	got []Result
}

func (r *results) callback() Callback {
	return func(res Result) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.got = append(r.got, res)
	}
}

func (r *results) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func (r *results) all() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.got))
	copy(out, r.got)
	return out
}
