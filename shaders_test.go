package lodquery

import (
	"math"
	"testing"

	"github.com/gogpu/lodquery/internal/mipchain"
	"github.com/gogpu/lodquery/internal/shader"
)

func TestLODShaderSamplesThroughSampler(t *testing.T) {
	fs, err := shader.NewCompiler().Compile(lodQuerySource, shader.StageFragment, fragmentEntry)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !fs.QueriesTexture() {
		t.Fatal("fragment program does not sample lod_texture through lod_sampler")
	}
	for _, b := range fs.Bindings() {
		if !b.Sampled {
			t.Errorf("binding %d (%s) is declared but never sampled", b.Binding, b.Name)
		}
	}
}

// The fragment stage decodes with floor(255 / max(levels-1, 1)); it must
// agree with the codes uploaded for every chain length.
func TestLODShaderStepMatchesChain(t *testing.T) {
	for n := 2; n <= 16; n++ {
		shaderStep := math.Floor(255 / math.Max(float64(n-1), 1))
		if uint8(shaderStep) != mipchain.Step(n) {
			t.Errorf("levels %d: shader step %v, chain step %d", n, shaderStep, mipchain.Step(n))
		}
		top := mipchain.Code(n-1, n).R
		if got := float64(top) / shaderStep; got != float64(n-1) {
			t.Errorf("levels %d: top level decodes to %v", n, got)
		}
	}
}
