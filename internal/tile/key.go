// Package tile holds the tile pyramid addressing shared by every layer of the
// engine: keys, coordinate math, blobs and the fetch error taxonomy.
package tile

import (
	"fmt"
	"strings"
)

// AllZooms selects every zoom level of a source in flush operations.
const AllZooms = -1

// MaxZoom is the deepest zoom level a key may address.
const MaxZoom = 30

// Key addresses one tile of one source.
type Key struct {
	Source string
	Zoom   int
	X      int
	Y      int
}

func NewKey(source string, z, x, y int) Key {
	return Key{Source: source, Zoom: z, X: x, Y: y}.Wrap()
}

// Wrap folds x and y into [0, 2^zoom). Tile space wraps in x, and y is masked the
// same way so that every key used for lookup is canonical.
func (k Key) Wrap() Key {
	mask := (1 << k.Zoom) - 1
	k.X &= mask
	k.Y &= mask
	return k
}

func (k Key) Valid() bool {
	if k.Zoom < 0 || k.Zoom > MaxZoom {
		return false
	}
	n := 1 << k.Zoom
	return k.X >= 0 && k.X < n && k.Y >= 0 && k.Y < n
}

// Parent returns the tile one level up that contains k. The zero zoom tile is its
// own parent.
func (k Key) Parent() Key {
	if k.Zoom == 0 {
		return k
	}
	return Key{Source: k.Source, Zoom: k.Zoom - 1, X: k.X >> 1, Y: k.Y >> 1}
}

// Children returns the four tiles one level down in NW, NE, SW, SE order.
func (k Key) Children() [4]Key {
	z, x, y := k.Zoom+1, k.X<<1, k.Y<<1
	return [4]Key{
		{Source: k.Source, Zoom: z, X: x, Y: y},
		{Source: k.Source, Zoom: z, X: x + 1, Y: y},
		{Source: k.Source, Zoom: z, X: x, Y: y + 1},
		{Source: k.Source, Zoom: z, X: x + 1, Y: y + 1},
	}
}

// FlipY converts between XYZ and TMS row numbering.
func (k Key) FlipY() int {
	return (1 << k.Zoom) - 1 - k.Y
}

// QuadKey returns the Bing style quadtree key of the tile.
func (k Key) QuadKey() string {
	var b strings.Builder
	for i := k.Zoom; i > 0; i-- {
		digit := byte('0')
		mask := 1 << (i - 1)
		if k.X&mask != 0 {
			digit++
		}
		if k.Y&mask != 0 {
			digit += 2
		}
		b.WriteByte(digit)
	}
	return b.String()
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Source, k.Zoom, k.X, k.Y)
}
