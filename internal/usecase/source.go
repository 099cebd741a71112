package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/render"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/config"
)

var ErrUnknownSource = errors.New("unknown tile source")

// Source is an immutable tile layer description with its renderer.
type Source struct {
	ID          string
	Name        string
	Kind        string
	TileWidth   int
	TileHeight  int
	MinZoom     int
	MaxZoom     int
	MaxOverzoom int
	Renderer    render.Renderer
}

func NewSource(cfg config.Source) (Source, error) {
	if cfg.ID == "" {
		return Source{}, errors.New("source id is required")
	}
	if cfg.TileWidth <= 0 || cfg.TileHeight <= 0 {
		return Source{}, fmt.Errorf("source %q: tile size must be positive", cfg.ID)
	}
	if cfg.MinZoom < 0 || cfg.MaxZoom < cfg.MinZoom || cfg.MaxZoom > tile.MaxZoom {
		return Source{}, fmt.Errorf("source %q: invalid zoom range %d..%d", cfg.ID, cfg.MinZoom, cfg.MaxZoom)
	}
	if cfg.MaxOverzoom < 0 {
		return Source{}, fmt.Errorf("source %q: negative max overzoom", cfg.ID)
	}

	r, err := render.New(cfg.Kind, cfg.TileWidth, cfg.TileHeight)
	if err != nil {
		return Source{}, fmt.Errorf("source %q: %w", cfg.ID, err)
	}

	kind := cfg.Kind
	if kind == "" {
		kind = render.KindRaster
	}

	return Source{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Kind:        kind,
		TileWidth:   cfg.TileWidth,
		TileHeight:  cfg.TileHeight,
		MinZoom:     cfg.MinZoom,
		MaxZoom:     cfg.MaxZoom,
		MaxOverzoom: cfg.MaxOverzoom,
		Renderer:    r,
	}, nil
}

func (s Source) Vector() bool {
	return s.Kind == render.KindVector
}

// LoadSourceConfigs returns the env configured source followed by the ones listed
// in its catalog file, if any. Catalog entries inherit unset numeric fields from
// the env source.
func LoadSourceConfigs(base config.Source) ([]config.Source, error) {
	out := []config.Source{base}
	if base.CatalogFile == "" {
		return out, nil
	}

	data, err := os.ReadFile(base.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read source catalog: %w", err)
	}

	var entries []config.Source
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse source catalog: %w", err)
	}

	for _, e := range entries {
		if e.TileWidth == 0 {
			e.TileWidth = base.TileWidth
		}
		if e.TileHeight == 0 {
			e.TileHeight = base.TileHeight
		}
		if e.MaxZoom == 0 {
			e.MaxZoom = base.MaxZoom
		}
		if e.MaxOverzoom == 0 {
			e.MaxOverzoom = base.MaxOverzoom
		}
		out = append(out, e)
	}

	return out, nil
}

// Catalog holds every configured source in registration order. It doubles as the
// decoder lookup of the provider.
type Catalog struct {
	mu      sync.RWMutex
	sources map[string]Source
	order   []string
}

var _ Decoders = (*Catalog)(nil)

func NewCatalog() *Catalog {
	return &Catalog{
		sources: make(map[string]Source),
	}
}

func (c *Catalog) Add(s Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sources[s.ID]; ok {
		return fmt.Errorf("duplicate source %q", s.ID)
	}
	c.sources[s.ID] = s
	c.order = append(c.order, s.ID)
	return nil
}

func (c *Catalog) Lookup(id string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sources[id]
	return s, ok
}

func (c *Catalog) List() []Source {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Source, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.sources[id])
	}
	return out
}

func (c *Catalog) Renderer(source string) (render.Renderer, bool) {
	s, ok := c.Lookup(source)
	if !ok {
		return nil, false
	}
	return s.Renderer, true
}
