// Package texture holds decoded image assets ready for upload as sampled 2D textures.
package texture

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-render/common"

	"github.com/cogentcore/webgpu/wgpu"
)

// Texture is an RGBA8 image plus the sampler it should be read with.
type Texture struct {
	Label   string
	Data    common.TextureStagingData
	Sampler common.SamplerStagingData
	Format  wgpu.TextureFormat
}

// Decode reads an encoded image (PNG, JPEG, BMP, TIFF or WebP) into a Texture with the
// default sampler and an sRGB format.
//
// Parameters:
//   - label: the debug label of the texture
//   - r: the encoded image
//
// Returns:
//   - *Texture: the decoded texture
//   - error: error if the image cannot be decoded
func Decode(label string, r io.Reader) (*Texture, error) {
	data, _, err := common.DecodeImage(r)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", label, err)
	}
	return &Texture{
		Label:  label,
		Data:   data,
		Format: wgpu.TextureFormatRGBA8UnormSrgb,
	}, nil
}

// DecodeBytes is Decode over an in-memory image.
func DecodeBytes(label string, data []byte) (*Texture, error) {
	return Decode(label, bytes.NewReader(data))
}

// Solid returns a 1x1 texture of a single color. Used as the fallback for materials
// that declare a texture binding without providing one.
//
// Parameters:
//   - label: the debug label of the texture
//   - rgba: the texel color
//
// Returns:
//   - *Texture: the 1x1 texture
func Solid(label string, rgba [4]uint8) *Texture {
	return &Texture{
		Label: label,
		Data: common.TextureStagingData{
			Pixels: rgba[:],
			Width:  1,
			Height: 1,
		},
		Format: wgpu.TextureFormatRGBA8Unorm,
	}
}
