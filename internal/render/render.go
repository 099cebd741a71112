// Package render decodes tile payloads and paints them onto an image.
package render

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
)

const (
	KindRaster = "raster"
	KindVector = "vector"
)

// Renderer is chosen once per source kind. Decode runs on fetch workers; Draw
// runs on the drawing goroutine with a blob borrowed from the cache.
//
// src is expressed in tile pixels, where the full tile is
// image.Rect(0, 0, tileWidth, tileHeight).
type Renderer interface {
	Decode(data []byte) (any, error)
	Draw(dst draw.Image, blob tile.Blob, src, dr image.Rectangle)
}

func New(kind string, tileWidth, tileHeight int) (Renderer, error) {
	switch kind {
	case KindRaster, "":
		return NewRaster(tileWidth, tileHeight), nil
	case KindVector:
		return NewVector(tileWidth, tileHeight), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
