package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, path string, tiles map[tile.Key][]byte) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE metadata (name TEXT, value TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO metadata (name, value) VALUES ('format', 'png')`)
	require.NoError(t, err)

	for k, data := range tiles {
		_, err = db.Exec(`INSERT INTO tiles VALUES (?, ?, ?, ?)`, k.Zoom, k.X, k.FlipY(), data)
		require.NoError(t, err)
	}
}

func TestArchiveStoreFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.mbtiles")
	k := tile.NewKey("world", 2, 1, 0)
	writeArchive(t, path, map[tile.Key][]byte{k: []byte("tile")})

	s := NewArchiveStore(path, logger.NewNoOp())
	defer s.Close()

	data, err := s.Fetch(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), data)

	_, err = s.Fetch(context.Background(), tile.NewKey("world", 2, 1, 1))
	assert.ErrorIs(t, err, tile.ErrNotFound)

	meta, err := s.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "png", meta["format"])
}

func TestArchiveStoreUnusableAfterSecondFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mbtiles")
	s := NewArchiveStore(path, logger.NewNoOp())
	k := tile.NewKey("world", 0, 0, 0)

	_, err := s.Fetch(context.Background(), k)
	assert.ErrorIs(t, err, tile.ErrTransient)
	assert.NotErrorIs(t, err, tile.ErrBackendUnusable)

	_, err = s.Fetch(context.Background(), k)
	assert.ErrorIs(t, err, tile.ErrCorrupt)
	assert.ErrorIs(t, err, tile.ErrBackendUnusable)

	// stays unusable even once the file shows up
	writeArchive(t, path, map[tile.Key][]byte{k: []byte("tile")})
	_, err = s.Fetch(context.Background(), k)
	assert.ErrorIs(t, err, tile.ErrBackendUnusable)
}

func TestArchiveStoreRecoversAfterOneFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.mbtiles")
	s := NewArchiveStore(path, logger.NewNoOp())
	defer s.Close()
	k := tile.NewKey("world", 0, 0, 0)

	_, err := s.Fetch(context.Background(), k)
	assert.ErrorIs(t, err, tile.ErrTransient)

	writeArchive(t, path, map[tile.Key][]byte{k: []byte("tile")})
	data, err := s.Fetch(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), data)
}

func TestArchiveStoreRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.mbtiles")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0644))

	s := NewArchiveStore(path, logger.NewNoOp())
	k := tile.NewKey("world", 0, 0, 0)

	_, _ = s.Fetch(context.Background(), k)
	_, err := s.Fetch(context.Background(), k)
	assert.ErrorIs(t, err, tile.ErrBackendUnusable)
}
