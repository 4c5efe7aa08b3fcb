package mipchain

import (
	"image"
	"math"
	"testing"
)

func TestLevelCodedSizes(t *testing.T) {
	c := LevelCoded(64, 16, 7)
	if c.Len() != 7 {
		t.Fatalf("Len = %d, want 7", c.Len())
	}
	want := []image.Point{{64, 16}, {32, 8}, {16, 4}, {8, 2}, {4, 1}, {2, 1}, {1, 1}}
	for i, p := range want {
		if got := c.Level(i).Bounds().Size(); got != p {
			t.Errorf("level %d size = %v, want %v", i, got, p)
		}
	}
	if c.Level(7) != nil || c.Level(-1) != nil {
		t.Error("out of range levels should be nil")
	}
}

func TestLevelCodedValues(t *testing.T) {
	const n = 10
	c := LevelCoded(512, 512, n)
	if Step(n) != 28 {
		t.Fatalf("Step(%d) = %d, want 28", n, Step(n))
	}
	for i := range n {
		img := c.Level(i)
		b := img.Bounds()
		for _, p := range []image.Point{b.Min, {b.Max.X - 1, b.Max.Y - 1}} {
			got := img.RGBAAt(p.X, p.Y)
			if got != Code(i, n) {
				t.Errorf("level %d at %v = %v, want %v", i, p, got, Code(i, n))
			}
		}
		if lvl := Decode(float64(Code(i, n).R)/255, n); math.Abs(lvl-float64(i)) > 1e-9 {
			t.Errorf("Decode(level %d) = %v", i, lvl)
		}
	}
	if top := Code(n-1, n).R; top != 252 {
		t.Errorf("top level code = %d, want 252", top)
	}
}

func TestDecodeInterpolated(t *testing.T) {
	const n = 10
	// Halfway between level 2 and level 3.
	v := (float64(Code(2, n).R) + float64(Code(3, n).R)) / 2 / 255
	if got := Decode(v, n); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("Decode = %v, want 2.5", got)
	}
}

func TestSingleLevel(t *testing.T) {
	c := LevelCoded(1, 1, 1)
	if c.Len() != 1 || c.Level(0).RGBAAt(0, 0).R != 0 {
		t.Error("single level chain should hold level 0")
	}
	if Step(1) != 0 || Decode(0.7, 1) != 0 {
		t.Error("single level chain has no step")
	}
}

func TestLevelCodedNil(t *testing.T) {
	if LevelCoded(0, 4, 3) != nil || LevelCoded(4, 4, 0) != nil {
		t.Error("empty chains should be nil")
	}
	var c *Chain
	if c.Len() != 0 {
		t.Error("nil chain Len should be 0")
	}
}
