package render

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type Raster struct {
	tileWidth  int
	tileHeight int
}

var _ Renderer = (*Raster)(nil)

func NewRaster(tileWidth, tileHeight int) *Raster {
	return &Raster{
		tileWidth:  tileWidth,
		tileHeight: tileHeight,
	}
}

func (r *Raster) Decode(data []byte) (any, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	return img, nil
}

func (r *Raster) Draw(dst draw.Image, blob tile.Blob, src, dr image.Rectangle) {
	img, ok := blob.Decoded.(image.Image)
	if !ok {
		return
	}

	// tiles served at a higher density than the configured size are scaled
	b := img.Bounds()
	sr := image.Rect(
		b.Min.X+src.Min.X*b.Dx()/r.tileWidth,
		b.Min.Y+src.Min.Y*b.Dy()/r.tileHeight,
		b.Min.X+src.Max.X*b.Dx()/r.tileWidth,
		b.Min.Y+src.Max.Y*b.Dy()/r.tileHeight,
	)
	if sr.Empty() {
		return
	}

	if sr.Dx() == dr.Dx() && sr.Dy() == dr.Dy() {
		draw.Draw(dst, dr, img, sr.Min, draw.Over)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dr, img, sr, xdraw.Over, nil)
}
