package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"golang.org/x/image/vector"
)

var (
	vectorInk  = color.RGBA{0x33, 0x33, 0x33, 0xff}
	vectorFill = color.RGBA{0xc8, 0xc8, 0xc8, 0xff}
)

const (
	strokeWidth = 2
	pointSize   = 3
)

// Vector handles Mapbox vector tiles, gzipped or plain. Polygons are filled and
// every feature is stroked in one ink; styling belongs to the host.
type Vector struct {
	tileWidth  int
	tileHeight int
}

var _ Renderer = (*Vector)(nil)

func NewVector(tileWidth, tileHeight int) *Vector {
	return &Vector{
		tileWidth:  tileWidth,
		tileHeight: tileHeight,
	}
}

func (v *Vector) Decode(data []byte) (any, error) {
	if len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b {
		return mvt.UnmarshalGzipped(data)
	}
	return mvt.Unmarshal(data)
}

func (v *Vector) Draw(dst draw.Image, blob tile.Blob, src, dr image.Rectangle) {
	layers, ok := blob.Decoded.(mvt.Layers)
	if !ok || src.Empty() || dr.Empty() {
		return
	}

	fill := vector.NewRasterizer(dr.Dx(), dr.Dy())
	stroke := vector.NewRasterizer(dr.Dx(), dr.Dy())

	for _, layer := range layers {
		extent := float64(layer.Extent)
		if extent == 0 {
			extent = mvt.DefaultExtent
		}

		// layer coordinates -> tile pixels -> rasterizer pixels
		project := func(p orb.Point) (float32, float32) {
			px := p[0] / extent * float64(v.tileWidth)
			py := p[1] / extent * float64(v.tileHeight)
			x := (px - float64(src.Min.X)) * float64(dr.Dx()) / float64(src.Dx())
			y := (py - float64(src.Min.Y)) * float64(dr.Dy()) / float64(src.Dy())
			return float32(x), float32(y)
		}

		for _, f := range layer.Features {
			addGeometry(fill, stroke, f.Geometry, project)
		}
	}

	fill.Draw(dst, dr, image.NewUniform(vectorFill), image.Point{})
	stroke.Draw(dst, dr, image.NewUniform(vectorInk), image.Point{})
}

type projection func(orb.Point) (float32, float32)

func addGeometry(fill, stroke *vector.Rasterizer, g orb.Geometry, project projection) {
	switch g := g.(type) {
	case orb.Point:
		addPoint(stroke, g, project)
	case orb.MultiPoint:
		for _, p := range g {
			addPoint(stroke, p, project)
		}
	case orb.LineString:
		addStroke(stroke, g, project)
	case orb.MultiLineString:
		for _, ls := range g {
			addStroke(stroke, ls, project)
		}
	case orb.Ring:
		addStroke(stroke, orb.LineString(g), project)
	case orb.Polygon:
		for _, r := range g {
			addRing(fill, r, project)
			addStroke(stroke, orb.LineString(r), project)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			addGeometry(fill, stroke, p, project)
		}
	case orb.Collection:
		for _, c := range g {
			addGeometry(fill, stroke, c, project)
		}
	}
}

func addPoint(z *vector.Rasterizer, p orb.Point, project projection) {
	x, y := project(p)
	h := float32(pointSize) / 2
	z.MoveTo(x-h, y-h)
	z.LineTo(x+h, y-h)
	z.LineTo(x+h, y+h)
	z.LineTo(x-h, y+h)
	z.ClosePath()
}

func addRing(z *vector.Rasterizer, r orb.Ring, project projection) {
	if len(r) < 3 {
		return
	}
	z.MoveTo(project(r[0]))
	for _, p := range r[1:] {
		z.LineTo(project(p))
	}
	z.ClosePath()
}

// addStroke outlines every segment of ls as a quad strokeWidth pixels wide.
func addStroke(z *vector.Rasterizer, ls orb.LineString, project projection) {
	for i := 1; i < len(ls); i++ {
		x0, y0 := project(ls[i-1])
		x1, y1 := project(ls[i])

		dx, dy := x1-x0, y1-y0
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		nx := -dy / l * strokeWidth / 2
		ny := dx / l * strokeWidth / 2

		z.MoveTo(x0+nx, y0+ny)
		z.LineTo(x1+nx, y1+ny)
		z.LineTo(x1-nx, y1-ny)
		z.LineTo(x0-nx, y0-ny)
		z.ClosePath()
	}
}
