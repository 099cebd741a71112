package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/store"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/metrics"
	"github.com/paulmach/orb"
)

// MaxViewportTiles bounds the tile range of one draw pass.
const MaxViewportTiles = 1024

var ErrViewportTooLarge = errors.New("viewport covers too many tiles")

// Viewport is a geographic rectangle drawn at one zoom level.
type Viewport struct {
	Bound orb.Bound
	Zoom  int
}

type FacadeConfig struct {
	FailureThreshold int64
}

type Status struct {
	Source      string      `json:"source"`
	Generation  uint64      `json:"generation"`
	Pass        uint64      `json:"pass"`
	Failures    int64       `json:"failures"`
	Warning     bool        `json:"warning"`
	Pending     int         `json:"pending"`
	Cache       cache.Stats `json:"cache"`
	LastSources []string    `json:"last_sources"`
}

// TileDeliveryFacade is what the drawing side talks to. It hands out cached
// tiles, triggers fetches on misses and keeps the failure accounting of the
// active source.
type TileDeliveryFacade struct {
	cache    cache.TileCache
	provider *AsyncTileProvider
	resolver *FallbackResolver
	catalog  *Catalog
	stores   store.Purger
	mru      *MRUList
	notifier Notifier
	cfg      FacadeConfig
	logger   logger.Logger

	mu         sync.Mutex
	source     Source
	generation uint64
	pass       uint64
	failures   int64
	warning    bool
	lastZoom   int
	unusable   map[string]bool
}

var _ TileGetter = (*TileDeliveryFacade)(nil)

func NewTileDeliveryFacade(
	c cache.TileCache,
	p *AsyncTileProvider,
	r *FallbackResolver,
	catalog *Catalog,
	stores store.Purger,
	mru *MRUList,
	n Notifier,
	cfg FacadeConfig,
	l logger.Logger,
) *TileDeliveryFacade {
	return &TileDeliveryFacade{
		cache:    c,
		provider: p,
		resolver: r,
		catalog:  catalog,
		stores:   stores,
		mru:      mru,
		notifier: n,
		cfg:      cfg,
		logger:   l,
		lastZoom: -1,
		unusable: make(map[string]bool),
	}
}

// GetTile returns the cached tile or, on a miss, makes sure a fetch is in flight
// and returns false.
func (f *TileDeliveryFacade) GetTile(k tile.Key, owner Owner) (tile.Blob, bool) {
	k = k.Wrap()
	if blob, ok := f.cache.Get(k); ok {
		return blob, true
	}
	f.provider.Ensure(k, owner, f.onResult)
	return tile.Blob{}, false
}

// GetTileFromCacheOnly never starts a fetch.
func (f *TileDeliveryFacade) GetTileFromCacheOnly(k tile.Key) (tile.Blob, bool) {
	return f.cache.Get(k.Wrap())
}

// BeginPass returns the owner token of a new draw pass.
func (f *TileDeliveryFacade) BeginPass() Owner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pass++
	return Owner{Generation: f.generation, Pass: f.pass}
}

func (f *TileDeliveryFacade) Source() Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

// SetSource switches the active source. Requests of the old source are flushed,
// its id goes to the recent sources list and the failure accounting restarts.
func (f *TileDeliveryFacade) SetSource(id string) error {
	src, ok := f.catalog.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}

	f.mu.Lock()
	old := f.source
	if old.ID == src.ID {
		f.mu.Unlock()
		return nil
	}
	f.source = src
	f.generation++
	f.failures = 0
	f.warning = false
	f.lastZoom = -1
	f.mu.Unlock()

	if old.ID != "" {
		flushed := f.provider.FlushQueue(old.ID, tile.AllZooms)
		f.mru.Push(old.ID)
		f.logger.Info("tile source changed", "from", old.ID, "to", src.ID, "flushed", flushed)
	} else {
		f.logger.Info("tile source selected", "source", src.ID)
	}

	return nil
}

// Draw runs one draw pass over the viewport of the active source. Leaving a zoom
// level flushes the requests still queued for it.
func (f *TileDeliveryFacade) Draw(vp Viewport) (Plan, error) {
	if vp.Zoom < 0 || vp.Zoom > tile.MaxZoom {
		return Plan{}, fmt.Errorf("zoom %d out of range", vp.Zoom)
	}
	rng := tile.RangeFor(vp.Bound, vp.Zoom)
	if rng.Len() > MaxViewportTiles {
		return Plan{}, fmt.Errorf("%w: %d tiles", ErrViewportTooLarge, rng.Len())
	}

	f.mu.Lock()
	src := f.source
	if src.ID == "" {
		f.mu.Unlock()
		return Plan{}, ErrUnknownSource
	}
	prevZoom := f.lastZoom
	f.lastZoom = vp.Zoom
	f.pass++
	owner := Owner{Generation: f.generation, Pass: f.pass}
	f.mu.Unlock()

	if prevZoom >= 0 && prevZoom != vp.Zoom {
		f.provider.FlushQueue(src.ID, prevZoom)
	}

	return f.resolver.Resolve(src, rng, owner, f), nil
}

func (f *TileDeliveryFacade) onResult(res Result) {
	if res.Loaded() {
		f.notifier.TileLoaded(res.Key)
		return
	}

	f.notifier.TileFailed(res.Key, res.Reason)

	if errors.Is(res.Err, tile.ErrBackendUnusable) {
		f.reportUnusable(res.Key.Source, res.Err)
	}

	if !res.Reason.Terminal() {
		return
	}

	f.mu.Lock()
	// tiles of other sources fetched through GetTile never count
	if res.Owner.Generation != f.generation || res.Key.Source != f.source.ID {
		f.mu.Unlock()
		return
	}
	f.failures++
	failures := f.failures
	fire := failures > f.cfg.FailureThreshold && !f.warning
	if fire {
		f.warning = true
	}
	source := f.source.ID
	f.mu.Unlock()

	if fire {
		metrics.FailureWarnings.Inc()
		f.notifier.FailureWarning(source, failures)
	}
}

func (f *TileDeliveryFacade) reportUnusable(source string, err error) {
	f.mu.Lock()
	reported := f.unusable[source]
	f.unusable[source] = true
	f.mu.Unlock()

	if !reported {
		f.notifier.BackendUnusable(source, err)
	}
}

// Warning reports whether the failure warning is raised for the active source.
func (f *TileDeliveryFacade) Warning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warning
}

func (f *TileDeliveryFacade) Failures() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

// FlushCache drops the cached tiles of source. With all set the persistent
// layers of the source are purged too.
func (f *TileDeliveryFacade) FlushCache(ctx context.Context, source string, all bool) (int, error) {
	removed := f.cache.Flush(source, tile.AllZooms)
	if !all {
		return removed, nil
	}
	if err := f.stores.Purge(ctx, source); err != nil {
		return removed, fmt.Errorf("failed to purge tile layers: %w", err)
	}
	return removed, nil
}

// ForgetSource drops id from the recent sources list.
func (f *TileDeliveryFacade) ForgetSource(id string) bool {
	removed := f.mru.Remove(id)
	if removed {
		f.logger.Info("source removed from recent sources", "source", id)
	}
	return removed
}

func (f *TileDeliveryFacade) FlushQueue(source string, zoom int) int {
	return f.provider.FlushQueue(source, zoom)
}

func (f *TileDeliveryFacade) OnLowMemory() {
	f.cache.OnLowMemory()
}

func (f *TileDeliveryFacade) Clear() {
	f.cache.Clear()
}

func (f *TileDeliveryFacade) Status() Status {
	f.mu.Lock()
	s := Status{
		Source:     f.source.ID,
		Generation: f.generation,
		Pass:       f.pass,
		Failures:   f.failures,
		Warning:    f.warning,
	}
	f.mu.Unlock()

	s.Pending = f.provider.PendingCount()
	s.Cache = f.cache.Stats()
	s.LastSources = f.mru.Items()
	return s
}
