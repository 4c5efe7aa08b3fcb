package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lodquery/internal/gpuerr"
	"github.com/gogpu/lodquery/internal/shader"
)

// ErrPipelineDestroyed is returned when using a destroyed pipeline.
var ErrPipelineDestroyed = errors.New("pipeline: pipeline has been destroyed")

// Pipeline is an immutable render pipeline with its layout objects.
type Pipeline struct {
	device hal.Device

	vertex   *shader.Program
	fragment *shader.Program
	layout   BindingLayout
	format   gputypes.TextureFormat

	vsModule   hal.ShaderModule
	fsModule   hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	raw        hal.RenderPipeline
}

// Builder creates pipelines on one device.
type Builder struct {
	device hal.Device
	log    *slog.Logger
}

// NewBuilder returns a builder for device.
func NewBuilder(device hal.Device, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Builder{device: device, log: log}
}

// Build validates vertex and fragment against layout and creates a
// triangle-list pipeline with no vertex buffers, writing to a single color
// target of the given format.
func (b *Builder) Build(vertex, fragment *shader.Program, layout BindingLayout, format gputypes.TextureFormat) (*Pipeline, error) {
	if err := validate(vertex, fragment, layout, format); err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation, err)
	}

	p := &Pipeline{
		device:   b.device,
		vertex:   vertex,
		fragment: fragment,
		layout:   layout,
		format:   format,
	}
	if err := p.create(); err != nil {
		p.Destroy()
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation, err)
	}
	b.log.Debug("pipeline: created",
		"vertex", vertex.Label(),
		"fragment", fragment.Label(),
		"bindings", len(layout.entries))
	return p, nil
}

func validate(vertex, fragment *shader.Program, layout BindingLayout, format gputypes.TextureFormat) error {
	if vertex == nil || fragment == nil {
		return errors.New("pipeline: nil program")
	}
	if vertex.Stage() != shader.StageVertex {
		return fmt.Errorf("vertex program %s has stage %v", vertex.Label(), vertex.Stage())
	}
	if fragment.Stage() != shader.StageFragment {
		return fmt.Errorf("fragment program %s has stage %v", fragment.Label(), fragment.Stage())
	}
	if len(vertex.Bindings()) > 0 {
		return fmt.Errorf("%s declares resources, the layout is fragment-only", vertex.Label())
	}
	if err := layout.check(fragment); err != nil {
		return err
	}
	if fragment.QueriesTexture() {
		if e, ok := layout.Lookup(0); !ok || e.Kind != shader.KindSampledTexture {
			return errors.New("texture query needs a sampled texture at binding 0")
		}
		if e, ok := layout.Lookup(1); !ok || e.Kind != shader.KindSampler {
			return errors.New("texture query needs a sampler at binding 1")
		}
	}
	if format == 0 {
		return errors.New("undefined color target format")
	}
	return nil
}

func (p *Pipeline) create() error {
	var err error
	p.vsModule, err = p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.vertex.Label(),
		Source: hal.ShaderSource{SPIRV: p.vertex.SPIRV()},
	})
	if err != nil {
		return fmt.Errorf("create vertex module: %w", err)
	}
	p.fsModule, err = p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.fragment.Label(),
		Source: hal.ShaderSource{SPIRV: p.fragment.SPIRV()},
	})
	if err != nil {
		return fmt.Errorf("create fragment module: %w", err)
	}

	p.bindLayout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "lod_query_bind_layout",
		Entries: p.layout.halEntries(),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	p.pipeLayout, err = p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "lod_query_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	p.raw, err = p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "lod_query_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vsModule,
			EntryPoint: p.vertex.EntryPoint(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.fsModule,
			EntryPoint: p.fragment.EntryPoint(),
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	return nil
}

// Raw returns the render pipeline handle.
func (p *Pipeline) Raw() hal.RenderPipeline { return p.raw }

// Layout returns the binding layout the pipeline was built with.
func (p *Pipeline) Layout() BindingLayout { return p.layout }

// Format returns the color target format.
func (p *Pipeline) Format() gputypes.TextureFormat { return p.format }

// NewBindGroup creates the resource group for slot 0, binding view to every
// sampled texture entry and sampler to every sampler entry.
func (p *Pipeline) NewBindGroup(view hal.TextureView, sampler hal.Sampler) (hal.BindGroup, error) {
	if p.raw == nil {
		return nil, ErrPipelineDestroyed
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(p.layout.entries))
	for _, e := range p.layout.entries {
		switch e.Kind {
		case shader.KindSampledTexture:
			if view == nil {
				return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
					fmt.Errorf("binding %d needs a texture view", e.Binding))
			}
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  e.Binding,
				Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
			})
		case shader.KindSampler:
			if sampler == nil {
				return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
					fmt.Errorf("binding %d needs a sampler", e.Binding))
			}
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  e.Binding,
				Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()},
			})
		}
	}

	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "lod_query_bind_group",
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("create bind group: %w", err))
	}
	return bg, nil
}

// Destroy releases the pipeline and its layout objects. Destroy is
// idempotent.
func (p *Pipeline) Destroy() {
	if p.raw != nil {
		p.device.DestroyRenderPipeline(p.raw)
		p.raw = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.fsModule != nil {
		p.device.DestroyShaderModule(p.fsModule)
		p.fsModule = nil
	}
	if p.vsModule != nil {
		p.device.DestroyShaderModule(p.vsModule)
		p.vsModule = nil
	}
}
