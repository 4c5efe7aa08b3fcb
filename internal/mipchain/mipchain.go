// Package mipchain builds CPU-side mip chains for seeding sampled textures.
//
// A level-coded chain fills every texel of level i with i*Step(n) in each
// color channel, so a filtered sample divided by Step(n) yields the level
// the sampler read from, interpolated between neighbouring levels.
package mipchain

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Chain holds the levels of a mip chain. Level 0 is full resolution, each
// following level halves both dimensions down to a minimum of 1.
type Chain struct {
	levels []*image.RGBA
}

// Step returns the per-level code increment for an n-level chain: the
// largest integer such that (n-1)*Step fits in one unorm8 channel. It is 0
// for chains of fewer than two levels.
func Step(n int) uint8 {
	if n < 2 {
		return 0
	}
	return uint8(255 / (n - 1))
}

// LevelCoded builds an n-level chain for a w x h base whose level i is the
// uniform color Code(i, n).
// Returns nil if the extent is empty or n < 1.
func LevelCoded(w, h, n int) *Chain {
	if w < 1 || h < 1 || n < 1 {
		return nil
	}
	c := &Chain{levels: make([]*image.RGBA, n)}
	for i := range n {
		dst := image.NewRGBA(image.Rect(0, 0, max(1, w>>i), max(1, h>>i)))
		draw.Draw(dst, dst.Bounds(), image.NewUniform(Code(i, n)), image.Point{}, draw.Src)
		c.levels[i] = dst
	}
	return c
}

// Code returns the color stored in level i of an n-level coded chain.
func Code(i, n int) color.RGBA {
	v := uint8(i) * Step(n)
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

// Decode maps a normalized channel value read from a coded chain back to a
// fractional level.
func Decode(v float64, n int) float64 {
	s := Step(n)
	if s == 0 {
		return 0
	}
	return v * 255 / float64(s)
}

// Len returns the number of levels.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.levels)
}

// Level returns level i, or nil if out of range.
func (c *Chain) Level(i int) *image.RGBA {
	if c == nil || i < 0 || i >= len(c.levels) {
		return nil
	}
	return c.levels[i]
}
