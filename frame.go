package lodquery

import (
	"encoding/binary"
	"math"
)

// BytesPerPixel is the size of one RGBA32Float pixel.
const BytesPerPixel = 16

// Frame is the host copy of a rendered image: Width*Height pixels of four
// little-endian float32 channels, rows top to bottom, no padding.
type Frame struct {
	Width  int
	Height int
	Data   []byte
}

// Bytes returns the raw image.
func (f *Frame) Bytes() []byte { return f.Data }

// At returns the RGBA channels of pixel (x, y). Pixels outside the frame,
// or beyond the end of Data, read as zero.
func (f *Frame) At(x, y int) [4]float32 {
	var px [4]float32
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return px
	}
	off := (y*f.Width + x) * BytesPerPixel
	if off+BytesPerPixel > len(f.Data) {
		return px
	}
	for c := range px {
		px[c] = math.Float32frombits(binary.LittleEndian.Uint32(f.Data[off+4*c:]))
	}
	return px
}
