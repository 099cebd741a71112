package tile

import (
	"math"

	"github.com/paulmach/orb"
)

// MaxLatitude is the northern limit of the web mercator projection.
const MaxLatitude = 85.0511287798066

// TileIndexFromLon returns the column containing lon (degrees) for n = 2^zoom.
func TileIndexFromLon(lon float64, n int) int {
	return int(math.Floor(((lon + 180) / 360) * float64(n)))
}

// TileIndexFromLat returns the row containing lat (radians) for n = 2^zoom.
func TileIndexFromLat(lat float64, n int) int {
	return int(math.Floor((1 - math.Log(math.Tan(lat)+1/math.Cos(lat))/math.Pi) * float64(n) / 2))
}

// LonFromTileIndex returns the longitude of the western edge of column x.
func LonFromTileIndex(x, zoom int) float64 {
	return float64(x)/float64(int(1)<<zoom)*360 - 180
}

// LatFromTileIndex returns the latitude (degrees) of the northern edge of row y.
func LatFromTileIndex(y, zoom int) float64 {
	n := math.Pi - 2*math.Pi*float64(y)/float64(int(1)<<zoom)
	return math.Atan(math.Sinh(n)) * 180 / math.Pi
}

// At returns the tile of source containing the point (lon, lat in degrees).
func At(source string, lon, lat float64, zoom int) Key {
	n := 1 << zoom
	lat = clampLat(lat)
	return Key{
		Source: source,
		Zoom:   zoom,
		X:      TileIndexFromLon(lon, n),
		Y:      TileIndexFromLat(lat*math.Pi/180, n),
	}.Wrap()
}

// Bound returns the geographic rectangle covered by k.
func Bound(k Key) orb.Bound {
	return orb.Bound{
		Min: orb.Point{LonFromTileIndex(k.X, k.Zoom), LatFromTileIndex(k.Y+1, k.Zoom)},
		Max: orb.Point{LonFromTileIndex(k.X+1, k.Zoom), LatFromTileIndex(k.Y, k.Zoom)},
	}
}

// Range is an inclusive rectangle of tile indices at one zoom. Indices are not
// wrapped, so a range crossing the antimeridian stays contiguous.
type Range struct {
	Zoom                   int
	MinX, MaxX, MinY, MaxY int
}

// RangeFor returns the tiles needed to cover bound at zoom.
func RangeFor(bound orb.Bound, zoom int) Range {
	n := 1 << zoom
	left := TileIndexFromLon(bound.Min.Lon(), n)
	right := TileIndexFromLon(bound.Max.Lon(), n)
	top := TileIndexFromLat(clampLat(bound.Max.Lat())*math.Pi/180, n)
	bottom := TileIndexFromLat(clampLat(bound.Min.Lat())*math.Pi/180, n)
	return Range{
		Zoom: zoom,
		MinX: min(left, right),
		MaxX: max(left, right),
		MinY: min(top, bottom),
		MaxY: max(top, bottom),
	}
}

func (r Range) Width() int  { return r.MaxX - r.MinX + 1 }
func (r Range) Height() int { return r.MaxY - r.MinY + 1 }
func (r Range) Len() int    { return r.Width() * r.Height() }

// Contains reports whether the unwrapped column/row pair lies inside r.
func (r Range) Contains(x, y int) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Index returns the row-major position of (x, y) inside r.
func (r Range) Index(x, y int) int {
	return (y-r.MinY)*r.Width() + (x - r.MinX)
}

func clampLat(lat float64) float64 {
	return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
}
