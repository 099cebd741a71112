package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/render"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceValidates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Source)
	}{
		{"missing id", func(c *config.Source) { c.ID = "" }},
		{"zero width", func(c *config.Source) { c.TileWidth = 0 }},
		{"inverted zooms", func(c *config.Source) { c.MinZoom, c.MaxZoom = 10, 2 }},
		{"negative overzoom", func(c *config.Source) { c.MaxOverzoom = -1 }},
		{"unknown kind", func(c *config.Source) { c.Kind = "hologram" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSourceConfig("s", render.KindRaster)
			tt.mutate(&cfg)
			_, err := NewSource(cfg)
			assert.Error(t, err)
		})
	}

	src, err := NewSource(testSourceConfig("v", render.KindVector))
	require.NoError(t, err)
	assert.True(t, src.Vector())
}

func TestLoadSourceConfigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "topo", "name": "Topo", "url_template": "https://topo/{z}/{x}/{y}.png"},
		{"id": "world", "kind": "vector", "archive_path": "world.mbtiles", "max_zoom": 14}
	]`), 0644))

	base := testSourceConfig("osm", render.KindRaster)
	base.CatalogFile = path

	cfgs, err := LoadSourceConfigs(base)
	require.NoError(t, err)
	require.Len(t, cfgs, 3)
	assert.Equal(t, "osm", cfgs[0].ID)
	assert.Equal(t, 256, cfgs[1].TileWidth)
	assert.Equal(t, 19, cfgs[1].MaxZoom)
	assert.Equal(t, 14, cfgs[2].MaxZoom)
	assert.Equal(t, "world.mbtiles", cfgs[2].ArchivePath)

	catalog := NewCatalog()
	for _, cfg := range cfgs {
		src, err := NewSource(cfg)
		require.NoError(t, err)
		require.NoError(t, catalog.Add(src))
	}
	assert.Error(t, catalog.Add(testSource(t, "osm", render.KindRaster)))
	assert.Len(t, catalog.List(), 3)

	r, ok := catalog.Renderer("world")
	require.True(t, ok)
	assert.IsType(t, &render.Vector{}, r)
}
