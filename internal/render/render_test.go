package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.RGBA{0xff, 0, 0, 0xff}
	blue = color.RGBA{0, 0, 0xff, 0xff}
)

// quadrantPNG is a 256px tile whose bottom right quarter is blue and the rest red.
func quadrantPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			c := red
			if x >= 128 && y >= 128 {
				c = blue
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewRenderer(t *testing.T) {
	r, err := New(KindRaster, 256, 256)
	require.NoError(t, err)
	assert.IsType(t, &Raster{}, r)

	r, err = New(KindVector, 256, 256)
	require.NoError(t, err)
	assert.IsType(t, &Vector{}, r)

	_, err = New("hologram", 256, 256)
	assert.Error(t, err)
}

func TestRasterDecode(t *testing.T) {
	r := NewRaster(256, 256)

	decoded, err := r.Decode(quadrantPNG(t))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), decoded.(image.Image).Bounds())

	_, err = r.Decode([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestRasterDrawCrop(t *testing.T) {
	r := NewRaster(256, 256)
	decoded, err := r.Decode(quadrantPNG(t))
	require.NoError(t, err)

	// stretch the blue quarter over the whole destination
	dst := image.NewRGBA(image.Rect(0, 0, 256, 256))
	r.Draw(dst, tile.Blob{Decoded: decoded}, image.Rect(128, 128, 256, 256), dst.Bounds())

	assert.Equal(t, blue, dst.RGBAAt(10, 10))
	assert.Equal(t, blue, dst.RGBAAt(245, 245))
}

func TestRasterDrawIgnoresForeignPayload(t *testing.T) {
	r := NewRaster(256, 256)
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	r.Draw(dst, tile.Blob{Decoded: "nope"}, image.Rect(0, 0, 256, 256), dst.Bounds())
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(0, 0))
}

func encodeVector(t *testing.T, gzipped bool) []byte {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{0, 2048}, {4096, 2048}}))

	layers := mvt.Layers{mvt.NewLayer("roads", fc)}
	var (
		data []byte
		err  error
	)
	if gzipped {
		data, err = mvt.MarshalGzipped(layers)
	} else {
		data, err = mvt.Marshal(layers)
	}
	require.NoError(t, err)
	return data
}

func TestVectorDecodeAndDraw(t *testing.T) {
	v := NewVector(256, 256)

	for _, gz := range []bool{false, true} {
		decoded, err := v.Decode(encodeVector(t, gz))
		require.NoError(t, err)

		layers := decoded.(mvt.Layers)
		require.Len(t, layers, 1)
		assert.Equal(t, "roads", layers[0].Name)

		dst := image.NewRGBA(image.Rect(0, 0, 256, 256))
		v.Draw(dst, tile.Blob{Decoded: decoded}, image.Rect(0, 0, 256, 256), dst.Bounds())
		ink := dst.RGBAAt(100, 128)
		assert.InDelta(t, vectorInk.R, ink.R, 2)
		assert.Greater(t, ink.A, uint8(0xf0))
		assert.Equal(t, color.RGBA{}, dst.RGBAAt(100, 20))
	}

	_, err := v.Decode([]byte{0x1f, 0x8b, 0x00})
	assert.Error(t, err)
}

func TestVectorFillsPolygons(t *testing.T) {
	v := NewVector(256, 256)

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{{{1024, 1024}, {3072, 1024}, {3072, 3072}, {1024, 3072}, {1024, 1024}}}))
	data, err := mvt.Marshal(mvt.Layers{mvt.NewLayer("water", fc)})
	require.NoError(t, err)

	decoded, err := v.Decode(data)
	require.NoError(t, err)

	dst := image.NewRGBA(image.Rect(0, 0, 256, 256))
	v.Draw(dst, tile.Blob{Decoded: decoded}, image.Rect(0, 0, 256, 256), dst.Bounds())

	inside := dst.RGBAAt(128, 128)
	assert.InDelta(t, vectorFill.R, inside.R, 2)
	assert.Greater(t, inside.A, uint8(0xf0))

	edge := dst.RGBAAt(128, 64)
	assert.InDelta(t, vectorInk.R, edge.R, 2)

	assert.Equal(t, color.RGBA{}, dst.RGBAAt(20, 20))
}

func TestCheckSize(t *testing.T) {
	assert.NoError(t, CheckSize(256, 256))
	assert.NoError(t, CheckSize(4096, 4096))
	assert.ErrorIs(t, CheckSize(4096, 4097), ErrCanvasTooLarge)
	assert.ErrorIs(t, CheckSize(32*256, 32*256), ErrCanvasTooLarge)
	assert.ErrorIs(t, CheckSize(0, 256), ErrCanvasTooLarge)
}

func TestCanvasRender(t *testing.T) {
	r := NewRaster(256, 256)
	decoded, err := r.Decode(quadrantPNG(t))
	require.NoError(t, err)

	c := NewCanvas(r)
	img := c.Render(512, 256, []Op{
		{Blob: tile.Blob{Decoded: decoded}, Src: image.Rect(0, 0, 256, 256), Dst: image.Rect(0, 0, 256, 256)},
	})

	assert.Equal(t, red, img.RGBAAt(10, 10))
	assert.Equal(t, blue, img.RGBAAt(200, 200))
	assert.Equal(t, background, img.RGBAAt(400, 100))
}
