package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	tex, err := DecodeBytes("red-blue", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tex.Data.Width)
	assert.Equal(t, uint32(1), tex.Data.Height)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, tex.Data.Pixels)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, tex.Format)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeBytes("junk", []byte("not an image"))
	assert.Error(t, err)
}

func TestSolid(t *testing.T) {
	tex := Solid("white", [4]uint8{255, 255, 255, 255})
	assert.Equal(t, uint32(1), tex.Data.Width)
	assert.Len(t, tex.Data.Pixels, 4)
}
