package resource

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lodquery/internal/gpuerr"
)

// MipLevelCount returns floor(log2(max(width, height))) + 1, the length of
// a full mip chain for the given extent.
func MipLevelCount(width, height uint32) (uint32, error) {
	if width == 0 || height == 0 {
		return 0, fmt.Errorf("%w: %dx%d", gpuerr.ErrInvalidDimensions, width, height)
	}
	return uint32(bits.Len32(max(width, height))), nil
}

// TextureDescriptor describes a 2D texture.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32

	// MipMapped requests a full mip chain. When false the texture has a
	// single level.
	MipMapped bool

	// MipLevelCount is filled in by Resolve.
	MipLevelCount uint32

	// SampleCount defaults to 1.
	SampleCount uint32

	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// Resolve validates the descriptor and derives MipLevelCount.
func (d TextureDescriptor) Resolve() (TextureDescriptor, error) {
	levels, err := MipLevelCount(d.Width, d.Height)
	if err != nil {
		return d, err
	}
	if !d.MipMapped {
		levels = 1
	}
	if d.MipLevelCount != 0 && d.MipLevelCount != levels {
		return d, fmt.Errorf("%w: %s: mip level count %d, extent %dx%d needs %d",
			gpuerr.ErrValidation, d.Label, d.MipLevelCount, d.Width, d.Height, levels)
	}
	d.MipLevelCount = levels
	if d.SampleCount == 0 {
		d.SampleCount = 1
	}
	if d.SampleCount != 1 {
		return d, fmt.Errorf("%w: %s: sample count %d, only 1 is supported",
			gpuerr.ErrValidation, d.Label, d.SampleCount)
	}
	if d.Usage == 0 {
		return d, fmt.Errorf("%w: %s: empty usage", gpuerr.ErrValidation, d.Label)
	}
	return d, nil
}

// RenderTargetDescriptor describes a single-level color target that can be
// copied out after rendering.
func RenderTargetDescriptor(width, height uint32, format gputypes.TextureFormat) TextureDescriptor {
	return TextureDescriptor{
		Label:  "render_target",
		Width:  width,
		Height: height,
		Format: format,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}
}

// SampledDescriptor describes a mip-mapped texture that is uploaded from the
// host and sampled in shaders.
func SampledDescriptor(width, height uint32, format gputypes.TextureFormat) TextureDescriptor {
	return TextureDescriptor{
		Label:     "lod_texture",
		Width:     width,
		Height:    height,
		MipMapped: true,
		Format:    format,
		Usage:     gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

// Texture is a texture together with a view over all of its levels.
type Texture struct {
	raw  hal.Texture
	view hal.TextureView
	desc TextureDescriptor
}

// Raw returns the underlying texture handle.
func (t *Texture) Raw() hal.Texture { return t.raw }

// View returns the full-chain view.
func (t *Texture) View() hal.TextureView { return t.view }

// Descriptor returns the resolved descriptor.
func (t *Texture) Descriptor() TextureDescriptor { return t.desc }

// Width returns the level 0 width.
func (t *Texture) Width() uint32 { return t.desc.Width }

// Height returns the level 0 height.
func (t *Texture) Height() uint32 { return t.desc.Height }

// MipLevelCount returns the number of mip levels.
func (t *Texture) MipLevelCount() uint32 { return t.desc.MipLevelCount }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }
