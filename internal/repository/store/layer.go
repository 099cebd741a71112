package store

import (
	"context"
	"errors"
	"time"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/metrics"
)

// Layer is a persistent copy of tiles kept in front of a slower store.
type Layer interface {
	Name() string
	Get(ctx context.Context, k tile.Key) ([]byte, bool, error)
	Set(ctx context.Context, k tile.Key, data []byte) error
}

// ReadThrough serves tiles from its layers and falls back to the inner store,
// writing fetched tiles back into every layer. Layer errors only cost a miss.
type ReadThrough struct {
	inner  Store
	layers []Layer
	logger logger.Logger
}

var _ Store = (*ReadThrough)(nil)
var _ Purger = (*ReadThrough)(nil)

func NewReadThrough(inner Store, l logger.Logger, layers ...Layer) *ReadThrough {
	return &ReadThrough{
		inner:  inner,
		layers: layers,
		logger: l,
	}
}

func (s *ReadThrough) Fetch(ctx context.Context, k tile.Key) ([]byte, error) {
	for i, layer := range s.layers {
		start := time.Now()
		data, ok, err := layer.Get(ctx, k)
		metrics.LayerOperationDuration.WithLabelValues(layer.Name(), "get").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.LayerErrors.WithLabelValues(layer.Name(), "get").Inc()
			s.logger.Warn("layer lookup failed", "layer", layer.Name(), "tile", k.String(), "error", err)
			continue
		}
		if ok {
			s.logger.Debug("layer hit", "layer", layer.Name(), "tile", k.String())
			s.backfill(ctx, k, data, s.layers[:i])
			return data, nil
		}
	}

	data, err := s.inner.Fetch(ctx, k)
	if err != nil {
		return nil, err
	}

	s.backfill(ctx, k, data, s.layers)
	return data, nil
}

func (s *ReadThrough) backfill(ctx context.Context, k tile.Key, data []byte, layers []Layer) {
	for _, layer := range layers {
		start := time.Now()
		err := layer.Set(ctx, k, data)
		metrics.LayerOperationDuration.WithLabelValues(layer.Name(), "set").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.LayerErrors.WithLabelValues(layer.Name(), "set").Inc()
			s.logger.Warn("failed to store tile in layer", "layer", layer.Name(), "tile", k.String(), "error", err)
		}
	}
}

func (s *ReadThrough) Purge(ctx context.Context, source string) error {
	var errs []error
	for _, layer := range s.layers {
		if p, ok := layer.(Purger); ok {
			errs = append(errs, p.Purge(ctx, source))
		}
	}
	if p, ok := s.inner.(Purger); ok {
		errs = append(errs, p.Purge(ctx, source))
	}
	return errors.Join(errs...)
}

// Close closes the inner store. Layers may be shared between sources and are
// closed by their owner.
func (s *ReadThrough) Close() error {
	if c, ok := s.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
