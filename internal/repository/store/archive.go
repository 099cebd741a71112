package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
)

const archiveOp = "archive fetch"

// ArchiveStore reads tiles from a local MBTiles file. Rows are stored in TMS
// order, so y is flipped on lookup.
//
// The database handle is opened lazily and shared by all fetches; database/sql
// serializes access to the underlying connections. The first failed open is
// reported as transient. A second consecutive failure marks the archive
// unusable and every later fetch fails as corrupt without touching the disk.
type ArchiveStore struct {
	path   string
	logger logger.Logger

	mu           sync.Mutex
	db           *sql.DB
	openFailures int
	unusable     error
}

var _ Store = (*ArchiveStore)(nil)

func NewArchiveStore(path string, l logger.Logger) *ArchiveStore {
	return &ArchiveStore{
		path:   path,
		logger: l,
	}
}

func (s *ArchiveStore) Fetch(ctx context.Context, k tile.Key) ([]byte, error) {
	db, err := s.handle(ctx)
	if err != nil {
		if errors.Is(err, tile.ErrBackendUnusable) {
			return nil, tile.Corrupt(archiveOp, k, err)
		}
		return nil, tile.Transient(archiveOp, k, err)
	}

	query := `SELECT tile_data
	FROM tiles
	WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`

	var data []byte
	err = db.QueryRowContext(ctx, query, k.Zoom, k.X, k.FlipY()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tile.NotFound(archiveOp, k, nil)
		}
		s.logger.Error("archive read failed", "path", s.path, "tile", k.String(), "error", err)
		return nil, tile.Transient(archiveOp, k, err)
	}

	if len(data) == 0 {
		return nil, tile.NotFound(archiveOp, k, nil)
	}

	return data, nil
}

// Metadata returns the name/value pairs of the archive's metadata table.
func (s *ArchiveStore) Metadata(ctx context.Context) (map[string]string, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT name, value FROM metadata`)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan archive metadata: %w", err)
		}
		meta[name] = value
	}

	return meta, rows.Err()
}

func (s *ArchiveStore) handle(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unusable != nil {
		return nil, s.unusable
	}
	if s.db != nil {
		return s.db, nil
	}

	db, err := s.open(ctx)
	if err != nil {
		s.openFailures++
		if s.openFailures > 1 {
			s.unusable = fmt.Errorf("%w: %s: %w", tile.ErrBackendUnusable, s.path, err)
			s.logger.Error("archive unusable", "path", s.path, "error", err)
			return nil, s.unusable
		}
		s.logger.Warn("failed to open archive", "path", s.path, "error", err)
		return nil, err
	}

	s.openFailures = 0
	s.db = db
	s.logger.Info("archive opened", "path", s.path)

	return db, nil
}

func (s *ArchiveStore) open(ctx context.Context) (*sql.DB, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?mode=ro", s.path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	var name string
	err = db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = 'tiles'`).Scan(&name)
	if err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("not an mbtiles archive: no tiles table")
		}
		return nil, err
	}

	return db, nil
}

func (s *ArchiveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
