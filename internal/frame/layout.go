package frame

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/lodquery/internal/gpuerr"
	"github.com/gogpu/lodquery/internal/resource"
)

// CopyPitchAlignment is the required alignment of the row pitch of a
// texture-to-buffer copy.
const CopyPitchAlignment = 256

// CopyLayout describes how the render target is laid out in the staging
// buffer. Rows are tightly packed: there is no padding between them.
type CopyLayout struct {
	Offset        uint64
	Width         uint32
	Height        uint32
	BytesPerPixel uint32
	RowPitch      uint32
	RowsPerImage  uint32
}

// TightLayout returns the unpadded layout of a width x height image.
func TightLayout(width, height, bytesPerPixel uint32) CopyLayout {
	return CopyLayout{
		Width:         width,
		Height:        height,
		BytesPerPixel: bytesPerPixel,
		RowPitch:      width * bytesPerPixel,
		RowsPerImage:  height,
	}
}

// Size returns the number of bytes the layout covers.
func (l CopyLayout) Size() uint64 {
	return uint64(l.RowPitch) * uint64(l.RowsPerImage)
}

// Validate checks the layout against the copy source and destination.
func (l CopyLayout) Validate(target *resource.Texture, staging *resource.Buffer) error {
	if l.Width == 0 || l.Height == 0 || l.BytesPerPixel == 0 {
		return fmt.Errorf("%w: copy %dx%d at %d bytes per pixel",
			gpuerr.ErrInvalidDimensions, l.Width, l.Height, l.BytesPerPixel)
	}
	if l.Width != target.Width() || l.Height != target.Height() {
		return fmt.Errorf("%w: copy extent %dx%d, target is %dx%d",
			gpuerr.ErrValidation, l.Width, l.Height, target.Width(), target.Height())
	}
	if l.Offset != 0 {
		return fmt.Errorf("%w: copy offset %d, want 0", gpuerr.ErrValidation, l.Offset)
	}
	if l.RowPitch != l.Width*l.BytesPerPixel {
		return fmt.Errorf("%w: row pitch %d, want width*%d = %d",
			gpuerr.ErrValidation, l.RowPitch, l.BytesPerPixel, l.Width*l.BytesPerPixel)
	}
	if l.RowPitch%CopyPitchAlignment != 0 {
		return fmt.Errorf("%w: row pitch %d is not a multiple of %d",
			gpuerr.ErrValidation, l.RowPitch, CopyPitchAlignment)
	}
	if l.RowsPerImage != l.Height {
		return fmt.Errorf("%w: rows per image %d, want %d", gpuerr.ErrValidation, l.RowsPerImage, l.Height)
	}
	if staging.Size() != l.Size() {
		return fmt.Errorf("%w: staging holds %d bytes, copy writes %d",
			resource.ErrInvalidBufferSize, staging.Size(), l.Size())
	}

	usage := target.Descriptor().Usage
	if !usage.Contains(gputypes.TextureUsageRenderAttachment) || !usage.Contains(gputypes.TextureUsageCopySrc) {
		return fmt.Errorf("%w: render target usage %v lacks RenderAttachment|CopySrc", gpuerr.ErrValidation, usage)
	}
	if target.MipLevelCount() != 1 {
		return fmt.Errorf("%w: render target has %d mip levels", gpuerr.ErrValidation, target.MipLevelCount())
	}
	if !staging.Usage().Contains(gputypes.BufferUsageCopyDst) || !staging.Usage().Contains(gputypes.BufferUsageMapRead) {
		return fmt.Errorf("%w: staging usage %v lacks MapRead|CopyDst", gpuerr.ErrValidation, staging.Usage())
	}
	return nil
}
