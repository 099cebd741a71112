package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
)

// DiskLayer keeps tiles as files: {dir}/{source}/{z}/{x}/{y}.tile
type DiskLayer struct {
	dir string
}

var _ Layer = (*DiskLayer)(nil)
var _ Purger = (*DiskLayer)(nil)

func NewDiskLayer(dir string) (*DiskLayer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tile directory: %w", err)
	}

	return &DiskLayer{
		dir: dir,
	}, nil
}

func (c *DiskLayer) Name() string {
	return "disk"
}

func (c *DiskLayer) Get(_ context.Context, k tile.Key) ([]byte, bool, error) {
	content, err := os.ReadFile(c.keyToPath(k))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return content, true, nil
}

func (c *DiskLayer) Set(_ context.Context, k tile.Key, v []byte) error {
	path := c.keyToPath(k)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// write atomically so a concurrent Get never sees a partial tile
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return nil
}

func (c *DiskLayer) Purge(_ context.Context, source string) error {
	return os.RemoveAll(filepath.Join(c.dir, filepath.Base(source)))
}

func (c *DiskLayer) keyToPath(k tile.Key) string {
	return filepath.Join(c.dir, filepath.Base(k.Source), strconv.Itoa(k.Zoom), strconv.Itoa(k.X), strconv.Itoa(k.Y)+".tile")
}
