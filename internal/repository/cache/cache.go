package cache

import (
	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
)

type TileCache interface {
	Get(tile.Key) (tile.Blob, bool)
	Put(tile.Key, tile.Blob)
	// Flush drops every entry of source at zoom, or at every zoom for tile.AllZooms.
	Flush(source string, zoom int) int
	OnLowMemory()
	Clear()
	Stats() Stats
}

type Stats struct {
	Entries   int    `json:"entries"`
	Bytes     int64  `json:"bytes"`
	Budget    int64  `json:"budget"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}
