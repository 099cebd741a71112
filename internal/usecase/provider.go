package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gammazero/workerpool"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/render"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/store"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Owner identifies the draw pass that last asked for a tile. Generation changes
// with the active source, Pass with every draw.
type Owner struct {
	Generation uint64
	Pass       uint64
}

// Result is delivered to every waiter of a resolved request. Reason is
// tile.ReasonNone for a loaded tile.
type Result struct {
	Key    tile.Key
	Owner  Owner
	Reason tile.Reason
	Err    error
}

func (r Result) Loaded() bool {
	return r.Reason == tile.ReasonNone
}

// Callback receives the outcome of a request. Callbacks run on a fetch worker and
// must not call FlushQueue.
type Callback func(Result)

// Decoders returns the renderer that decodes tiles of a source.
type Decoders interface {
	Renderer(source string) (render.Renderer, bool)
}

type ProviderConfig struct {
	Workers      int
	MaxAttempts  int
	Backoff      time.Duration
	FetchTimeout time.Duration
}

type pendingRequest struct {
	key      tile.Key
	owner    Owner
	waiters  []Callback
	attempts int
	backoff  *backoff.ExponentialBackOff
}

// AsyncTileProvider keeps at most one fetch in flight per key. Fetches run on a
// worker pool whose submit queue is unbounded, so requests never block. A
// request flushed while still queued is skipped when its turn comes.
//
// Lock order is deliverMu, then mu, then the cache's own lock. Waiters are
// called while holding deliverMu only, which is what lets FlushQueue promise that
// nothing matching it is delivered after it returns.
type AsyncTileProvider struct {
	store    store.Store
	cache    cache.TileCache
	decoders Decoders
	cfg      ProviderConfig
	logger   logger.Logger
	tracer   trace.Tracer

	deliverMu sync.Mutex

	mu      sync.Mutex
	pending map[tile.Key]*pendingRequest
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc

	pool *workerpool.WorkerPool
}

func NewAsyncTileProvider(s store.Store, c cache.TileCache, d Decoders, cfg ProviderConfig, l logger.Logger) *AsyncTileProvider {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}

	p := &AsyncTileProvider{
		store:    s,
		cache:    c,
		decoders: d,
		cfg:      cfg,
		logger:   l,
		tracer:   telemetry.Tracer(),
		pending:  make(map[tile.Key]*pendingRequest),
		ctx:      context.Background(),
		pool:     workerpool.New(cfg.Workers),
	}

	return p
}

// Start binds fetches to ctx. Stop cancels it.
func (p *AsyncTileProvider) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.logger.Info("tile provider started", "workers", p.cfg.Workers)
}

// Stop cancels in-flight fetches and waits for the running ones. Requests still
// pending are dropped without notification.
func (p *AsyncTileProvider) Stop() {
	p.mu.Lock()
	p.closed = true
	dropped := len(p.pending)
	p.pending = make(map[tile.Key]*pendingRequest)
	metrics.PendingRequests.Set(0)
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.pool.Stop()

	p.logger.Info("tile provider stopped", "dropped", dropped)
}

// RequestAsync attaches cb to the pending request for key, starting a fetch if
// none is in flight.
func (p *AsyncTileProvider) RequestAsync(key tile.Key, owner Owner, cb Callback) {
	p.request(key.Wrap(), owner, cb, true)
}

// Ensure makes sure a fetch for key is in flight. An existing request only has
// its owner refreshed; cb is attached only when a new request is created.
// It reports whether a new request was created.
func (p *AsyncTileProvider) Ensure(key tile.Key, owner Owner, cb Callback) bool {
	return p.request(key.Wrap(), owner, cb, false)
}

func (p *AsyncTileProvider) request(key tile.Key, owner Owner, cb Callback, attach bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	if req, ok := p.pending[key]; ok {
		req.owner = owner
		if attach && cb != nil {
			req.waiters = append(req.waiters, cb)
			metrics.DedupAttaches.Inc()
		}
		return false
	}

	req := &pendingRequest{key: key, owner: owner}
	if cb != nil {
		req.waiters = append(req.waiters, cb)
	}
	p.pending[key] = req
	metrics.PendingRequests.Set(float64(len(p.pending)))
	p.submitLocked(req)

	return true
}

func (p *AsyncTileProvider) submitLocked(req *pendingRequest) {
	ctx := p.ctx
	p.pool.Submit(func() {
		if !p.current(req) {
			return
		}
		p.process(ctx, req)
	})
}

// current reports whether req is still the live request of its key.
func (p *AsyncTileProvider) current(req *pendingRequest) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && p.pending[req.key] == req
}

// FlushQueue forgets every pending request of source at zoom (or every zoom for
// tile.AllZooms). Fetches already running finish, but their results are
// dropped. It returns the number of requests removed.
func (p *AsyncTileProvider) FlushQueue(source string, zoom int) int {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for k := range p.pending {
		if k.Source == source && (zoom == tile.AllZooms || k.Zoom == zoom) {
			delete(p.pending, k)
			removed++
		}
	}

	metrics.PendingRequests.Set(float64(len(p.pending)))
	if removed > 0 {
		p.logger.Debug("pending requests flushed", "source", source, "zoom", zoom, "removed", removed)
	}

	return removed
}

func (p *AsyncTileProvider) Pending(key tile.Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[key.Wrap()]
	return ok
}

func (p *AsyncTileProvider) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *AsyncTileProvider) process(ctx context.Context, req *pendingRequest) {
	k := req.key

	ctx, span := p.tracer.Start(ctx, "tile.fetch", trace.WithAttributes(
		attribute.String("tile.source", k.Source),
		attribute.Int("tile.zoom", k.Zoom),
		attribute.Int("tile.x", k.X),
		attribute.Int("tile.y", k.Y),
		attribute.Int("tile.attempt", req.attempts+1),
	))
	defer span.End()

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	start := time.Now()
	data, err := p.store.Fetch(fetchCtx, k)
	cancel()
	metrics.FetchLatency.WithLabelValues(k.Source).Observe(time.Since(start).Seconds())

	var blob tile.Blob
	if err == nil {
		blob, err = p.decode(k, data)
	}

	reason := tile.Classify(err)
	metrics.FetchResults.WithLabelValues(k.Source, reason.String()).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason.String())
	} else {
		span.SetAttributes(attribute.Int("tile.bytes", len(data)))
		span.SetStatus(codes.Ok, "")
	}

	p.complete(req, blob, reason, err)
}

func (p *AsyncTileProvider) decode(k tile.Key, data []byte) (tile.Blob, error) {
	blob := tile.Blob{Data: data}
	if p.decoders == nil {
		return blob, nil
	}

	r, ok := p.decoders.Renderer(k.Source)
	if !ok {
		return blob, nil
	}

	decoded, err := r.Decode(data)
	if err != nil {
		return tile.Blob{}, tile.Corrupt("decode", k, err)
	}
	blob.Decoded = decoded

	return blob, nil
}

func (p *AsyncTileProvider) complete(req *pendingRequest, blob tile.Blob, reason tile.Reason, err error) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.pending[req.key] != req {
		p.mu.Unlock()
		metrics.DiscardedResults.Inc()
		p.logger.Debug("discarding result of flushed request", "tile", req.key.String())
		return
	}

	req.attempts++
	if reason == tile.ReasonTransient && req.attempts < p.cfg.MaxAttempts {
		delay := p.nextBackoff(req)
		p.mu.Unlock()

		metrics.FetchRetries.Inc()
		p.logger.Debug("retrying tile fetch", "tile", req.key.String(), "attempt", req.attempts, "delay", delay, "error", err)
		time.AfterFunc(delay, func() { p.retry(req) })
		return
	}

	delete(p.pending, req.key)
	metrics.PendingRequests.Set(float64(len(p.pending)))
	if reason == tile.ReasonNone {
		p.cache.Put(req.key, blob)
	}
	waiters := req.waiters
	res := Result{Key: req.key, Owner: req.owner, Reason: reason, Err: err}
	p.mu.Unlock()

	if err != nil {
		p.logger.Debug("tile fetch failed", "tile", req.key.String(), "reason", reason.String(), "attempts", req.attempts, "error", err)
	}

	for _, w := range waiters {
		w(res)
	}
}

func (p *AsyncTileProvider) retry(req *pendingRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.pending[req.key] != req {
		return
	}
	p.submitLocked(req)
}

// nextBackoff returns the delay before the next attempt of req. Each request
// keeps its own exponential schedule starting at cfg.Backoff.
func (p *AsyncTileProvider) nextBackoff(req *pendingRequest) time.Duration {
	if p.cfg.Backoff <= 0 {
		return 0
	}
	if req.backoff == nil {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.cfg.Backoff
		b.MaxInterval = p.cfg.Backoff << 10
		b.Reset()
		req.backoff = b
	}

	d := req.backoff.NextBackOff()
	if d < 0 {
		d = req.backoff.MaxInterval
	}
	return d
}
