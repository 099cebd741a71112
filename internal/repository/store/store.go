// Package store holds the tile backends: the network fetcher, the MBTiles archive
// reader, and read-through layers that can sit in front of either.
package store

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
)

// Store fetches the raw bytes of one tile. Errors are always classified with the
// tile package reason sentinels.
type Store interface {
	Fetch(ctx context.Context, k tile.Key) ([]byte, error)
}

// Purger is implemented by stores that keep persistent copies of tiles.
type Purger interface {
	Purge(ctx context.Context, source string) error
}

// Registry dispatches fetches to the store registered for the key's source.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Store
}

var _ Store = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		stores: make(map[string]Store),
	}
}

func (r *Registry) Register(source string, s Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[source] = s
}

func (r *Registry) Lookup(source string) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[source]
	return s, ok
}

func (r *Registry) Fetch(ctx context.Context, k tile.Key) ([]byte, error) {
	s, ok := r.Lookup(k.Source)
	if !ok {
		return nil, tile.NotFound("registry fetch", k, errors.New("unknown source"))
	}
	return s.Fetch(ctx, k)
}

func (r *Registry) Purge(ctx context.Context, source string) error {
	s, ok := r.Lookup(source)
	if !ok {
		return nil
	}
	if p, ok := s.(Purger); ok {
		return p.Purge(ctx, source)
	}
	return nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, s := range r.stores {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
