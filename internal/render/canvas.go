package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
)

var background = color.RGBA{0xe8, 0xe8, 0xe8, 0xff}

// MaxCanvasPixels bounds the area of a composed image.
const MaxCanvasPixels = 4096 * 4096

var ErrCanvasTooLarge = errors.New("canvas too large")

// Op paints one blob. Src is in tile pixels, Dst in canvas pixels.
type Op struct {
	Blob tile.Blob
	Src  image.Rectangle
	Dst  image.Rectangle
}

// Canvas composes draw operations into a single image.
type Canvas struct {
	renderer Renderer
}

func NewCanvas(r Renderer) *Canvas {
	return &Canvas{
		renderer: r,
	}
}

// CheckSize rejects canvases that are empty or larger than MaxCanvasPixels.
func CheckSize(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxCanvasPixels/height {
		return fmt.Errorf("%w: %dx%d", ErrCanvasTooLarge, width, height)
	}
	return nil
}

func (c *Canvas) Render(width, height int, ops []Op) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	for _, op := range ops {
		dr := op.Dst.Intersect(img.Bounds())
		if dr.Empty() {
			continue
		}
		c.renderer.Draw(img, op.Blob, op.Src, op.Dst)
	}

	return img
}
