// Package pipeline validates shader programs against a binding layout and
// builds the render pipeline and resource groups for a frame.
package pipeline

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/lodquery/internal/gpuerr"
	"github.com/gogpu/lodquery/internal/shader"
)

// Entry is one slot of a BindingLayout. All entries are visible to the
// fragment stage.
type Entry struct {
	Binding uint32
	Kind    shader.BindingKind
}

// BindingLayout is the layout of resource group 0.
type BindingLayout struct {
	entries []Entry
}

// NewBindingLayout returns a layout of entries ordered by binding index.
// Binding indices must be unique and every kind must be bindable.
func NewBindingLayout(entries ...Entry) (BindingLayout, error) {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b Entry) int { return int(a.Binding) - int(b.Binding) })
	for i, e := range sorted {
		if i > 0 && sorted[i-1].Binding == e.Binding {
			return BindingLayout{}, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
				fmt.Errorf("duplicate binding index %d", e.Binding))
		}
		if e.Kind != shader.KindSampledTexture && e.Kind != shader.KindSampler {
			return BindingLayout{}, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
				fmt.Errorf("binding %d: unsupported kind %v", e.Binding, e.Kind))
		}
	}
	return BindingLayout{entries: sorted}, nil
}

// TextureQueryLayout is the layout used by texture-querying fragment
// programs: a sampled texture at binding 0 and a sampler at binding 1.
func TextureQueryLayout() BindingLayout {
	return BindingLayout{entries: []Entry{
		{Binding: 0, Kind: shader.KindSampledTexture},
		{Binding: 1, Kind: shader.KindSampler},
	}}
}

// Entries returns a copy of the layout entries.
func (l BindingLayout) Entries() []Entry { return slices.Clone(l.entries) }

// Lookup returns the entry at binding index b.
func (l BindingLayout) Lookup(b uint32) (Entry, bool) {
	for _, e := range l.entries {
		if e.Binding == b {
			return e, true
		}
	}
	return Entry{}, false
}

func (l BindingLayout) halEntries() []gputypes.BindGroupLayoutEntry {
	out := make([]gputypes.BindGroupLayoutEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: gputypes.ShaderStageFragment,
		}
		switch e.Kind {
		case shader.KindSampledTexture:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case shader.KindSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		}
		out = append(out, entry)
	}
	return out
}

// check verifies that every resource p declares is present in l with the
// same kind.
func (l BindingLayout) check(p *shader.Program) error {
	for _, b := range p.Bindings() {
		if b.Group != 0 {
			return fmt.Errorf("%s: %s uses group %d, only group 0 is bound", p.Label(), b.Name, b.Group)
		}
		e, ok := l.Lookup(b.Binding)
		if !ok {
			return fmt.Errorf("%s: %s at binding %d is missing from the layout", p.Label(), b.Name, b.Binding)
		}
		if e.Kind != b.Kind {
			return fmt.Errorf("%s: %s at binding %d is %v, layout has %v", p.Label(), b.Name, b.Binding, b.Kind, e.Kind)
		}
	}
	return nil
}
