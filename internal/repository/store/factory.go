package store

import (
	"fmt"
	"path/filepath"

	"github.com/jaennil/guide_helper/backend/tileengine/pkg/config"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
)

// Layers are the persistent copies shared by every network source.
type Layers struct {
	Disk  *DiskLayer
	Redis *RedisLayer
}

func NewLayers(disk config.Disk, redis config.Redis, l logger.Logger) (*Layers, error) {
	layers := &Layers{}

	if disk.Enabled {
		d, err := NewDiskLayer(disk.Dir)
		if err != nil {
			return nil, err
		}
		layers.Disk = d
		l.Info("disk tile layer enabled", "dir", disk.Dir)
	}

	if redis.Enabled {
		r, err := NewRedisLayer(RedisConfig{
			Addr:     redis.Addr,
			Password: redis.Password,
			DB:       redis.DB,
			TTL:      redis.TTL,
		})
		if err != nil {
			return nil, err
		}
		layers.Redis = r
		l.Info("redis tile layer enabled", "addr", redis.Addr)
	}

	return layers, nil
}

func (ls *Layers) list() []Layer {
	var out []Layer
	// fastest first
	if ls.Redis != nil {
		out = append(out, ls.Redis)
	}
	if ls.Disk != nil {
		out = append(out, ls.Disk)
	}
	return out
}

// NewSourceStore builds the backend for one source. Archives are already local
// and are read directly; network sources get the configured layers in front.
func NewSourceStore(src config.Source, userAgent string, layers *Layers, l logger.Logger) (Store, error) {
	if src.ID == "" {
		return nil, fmt.Errorf("source without id")
	}

	if src.ArchivePath != "" {
		l.Info("using archive store", "source", src.ID, "path", src.ArchivePath)
		return NewArchiveStore(filepath.Clean(src.ArchivePath), l), nil
	}

	if src.URLTemplate == "" {
		return nil, fmt.Errorf("source %q has neither an archive path nor a url template", src.ID)
	}

	network := NewNetworkStore(NetworkConfig{
		URLTemplate: src.URLTemplate,
		UserAgent:   userAgent,
	}, l)

	if layers == nil || len(layers.list()) == 0 {
		return network, nil
	}
	return NewReadThrough(network, l, layers.list()...), nil
}

func (ls *Layers) Close() error {
	if ls.Redis != nil {
		return ls.Redis.Close()
	}
	return nil
}
