package shader

import (
	"fmt"
	"slices"

	"github.com/gogpu/naga/ir"
)

// BindingKind classifies a resource declaration.
type BindingKind int

const (
	KindOther BindingKind = iota
	KindSampledTexture
	KindSampler
)

// String returns the kind name.
func (k BindingKind) String() string {
	switch k {
	case KindSampledTexture:
		return "SampledTexture"
	case KindSampler:
		return "Sampler"
	default:
		return "Other"
	}
}

// Binding is a resource declared by a program. Sampled is set on textures
// and samplers that an image sample in the entry point reads.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Type    string
	Kind    BindingKind
	Sampled bool
}

func irStage(s Stage) (ir.ShaderStage, bool) {
	switch s {
	case StageVertex:
		return ir.StageVertex, true
	case StageFragment:
		return ir.StageFragment, true
	default:
		return 0, false
	}
}

// findEntryPoint returns the stage entry point called name, or nil.
func findEntryPoint(module *ir.Module, stage Stage, name string) *ir.EntryPoint {
	want, ok := irStage(stage)
	if !ok {
		return nil
	}
	for i := range module.EntryPoints {
		if ep := &module.EntryPoints[i]; ep.Stage == want && ep.Name == name {
			return ep
		}
	}
	return nil
}

// sampledGlobals returns the globals that image sample expressions in fn
// use directly as image or sampler.
func sampledGlobals(fn *ir.Function) map[ir.GlobalVariableHandle]bool {
	global := func(h ir.ExpressionHandle) (ir.GlobalVariableHandle, bool) {
		if int(h) >= len(fn.Expressions) {
			return 0, false
		}
		g, ok := fn.Expressions[h].Kind.(ir.ExprGlobalVariable)
		return g.Variable, ok
	}
	used := make(map[ir.GlobalVariableHandle]bool)
	for _, e := range fn.Expressions {
		sample, ok := e.Kind.(ir.ExprImageSample)
		if !ok {
			continue
		}
		img, okImg := global(sample.Image)
		smp, okSmp := global(sample.Sampler)
		if okImg && okSmp {
			used[img] = true
			used[smp] = true
		}
	}
	return used
}

// bindings returns the resource globals of module ordered by group and
// binding index.
func bindings(module *ir.Module, ep *ir.EntryPoint) ([]Binding, error) {
	var out []Binding
	sampled := sampledGlobals(&ep.Function)
	seen := make(map[ir.ResourceBinding]string)
	for i, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		slot := *gv.Binding
		if prev, dup := seen[slot]; dup {
			return nil, fmt.Errorf("%s and %s share @group(%d) @binding(%d)", prev, gv.Name, slot.Group, slot.Binding)
		}
		seen[slot] = gv.Name

		if int(gv.Type) >= len(module.Types) {
			return nil, fmt.Errorf("%s: type handle %d out of range", gv.Name, gv.Type)
		}
		inner := module.Types[gv.Type].Inner
		out = append(out, Binding{
			Group:   slot.Group,
			Binding: slot.Binding,
			Name:    gv.Name,
			Type:    describe(inner),
			Kind:    classify(inner),
			Sampled: sampled[ir.GlobalVariableHandle(i)],
		})
	}
	slices.SortFunc(out, func(a, b Binding) int {
		if a.Group != b.Group {
			return int(a.Group) - int(b.Group)
		}
		return int(a.Binding) - int(b.Binding)
	})
	return out, nil
}

func classify(t ir.TypeInner) BindingKind {
	switch t := t.(type) {
	case ir.SamplerType:
		if t.Comparison {
			return KindOther
		}
		return KindSampler
	case ir.ImageType:
		if t.Class == ir.ImageClassSampled && !t.Multisampled {
			return KindSampledTexture
		}
		return KindOther
	default:
		return KindOther
	}
}

func describe(t ir.TypeInner) string {
	switch t := t.(type) {
	case ir.SamplerType:
		if t.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	case ir.ImageType:
		dim := [...]string{"1d", "2d", "3d", "cube"}
		name := "texture"
		switch t.Class {
		case ir.ImageClassDepth:
			name += "_depth"
		case ir.ImageClassStorage:
			name += "_storage"
		case ir.ImageClassExternal:
			return "texture_external"
		}
		if t.Multisampled {
			name += "_multisampled"
		}
		if int(t.Dim) < len(dim) {
			name += "_" + dim[t.Dim]
		}
		if t.Arrayed {
			name += "_array"
		}
		return name
	default:
		return fmt.Sprintf("%T", t)
	}
}
