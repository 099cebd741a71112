package tile

import (
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	points := []orb.Point{
		{0, 0},
		{13.4050, 52.5200},
		{-122.4194, 37.7749},
		{151.2093, -33.8688},
		{-179.999, 84.9},
		{179.999, -84.9},
		{8.5417, 47.3769},
	}

	for _, p := range points {
		for zoom := 0; zoom <= 20; zoom++ {
			t.Run(fmt.Sprintf("%v@%d", p, zoom), func(t *testing.T) {
				k := At("s", p.Lon(), p.Lat(), zoom)
				require.True(t, k.Valid(), "key %s out of range", k)

				b := Bound(k)
				const eps = 1e-9
				assert.LessOrEqual(t, b.Min.Lon()-eps, p.Lon())
				assert.GreaterOrEqual(t, b.Max.Lon()+eps, p.Lon())
				assert.LessOrEqual(t, b.Min.Lat()-eps, p.Lat())
				assert.GreaterOrEqual(t, b.Max.Lat()+eps, p.Lat())
			})
		}
	}
}

func TestAddressMatchesMaptile(t *testing.T) {
	p := orb.Point{2.3522, 48.8566}
	for zoom := 0; zoom <= 18; zoom++ {
		want := maptile.At(p, maptile.Zoom(zoom))
		got := At("s", p.Lon(), p.Lat(), zoom)
		assert.Equal(t, int(want.X), got.X, "zoom %d", zoom)
		assert.Equal(t, int(want.Y), got.Y, "zoom %d", zoom)
	}
}

func TestInverseIsExact(t *testing.T) {
	for zoom := 1; zoom <= 18; zoom++ {
		n := 1 << zoom
		for _, x := range []int{0, 1, n / 3, n / 2, n - 1} {
			lon := LonFromTileIndex(x, zoom)
			// the NW corner belongs to its own tile
			assert.Equal(t, x, TileIndexFromLon(lon+1e-9, n))
		}
		for _, y := range []int{1, n / 3, n / 2, n - 1} {
			lat := LatFromTileIndex(y, zoom)
			assert.Equal(t, y, TileIndexFromLat((lat-1e-9)*math.Pi/180, n))
		}
	}
}

func TestIndicesWrapIntoRange(t *testing.T) {
	for zoom := 0; zoom <= 12; zoom++ {
		n := 1 << zoom
		for _, lon := range []float64{-540, -180, -0.5, 0, 179.9, 180, 359, 725} {
			k := Key{Source: "s", Zoom: zoom, X: TileIndexFromLon(lon, n)}.Wrap()
			assert.GreaterOrEqual(t, k.X, 0)
			assert.Less(t, k.X, n)
		}
	}

	k := NewKey("s", 3, -1, 9)
	assert.Equal(t, Key{Source: "s", Zoom: 3, X: 7, Y: 1}, k)
}

func TestRangeFor(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}}
	r := RangeFor(bound, 1)

	assert.Equal(t, Range{Zoom: 1, MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}, r)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 3, r.Index(1, 1))
	assert.True(t, r.Contains(0, 1))
	assert.False(t, r.Contains(2, 1))
}

func TestKeyHierarchy(t *testing.T) {
	k := Key{Source: "s", Zoom: 5, X: 3, Y: 3}

	assert.Equal(t, Key{Source: "s", Zoom: 4, X: 1, Y: 1}, k.Parent())
	assert.Equal(t, Key{Source: "s", Zoom: 3, X: 0, Y: 0}, k.Parent().Parent())

	for _, c := range k.Children() {
		assert.Equal(t, k, c.Parent())
	}
	assert.Equal(t, 28, k.FlipY())
	assert.Equal(t, "00033", k.QuadKey())
	assert.Equal(t, "", Key{Zoom: 0}.QuadKey())
}
