package pipeline

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/lodquery/internal/gpuerr"
	"github.com/gogpu/lodquery/internal/resource"
	"github.com/gogpu/lodquery/internal/shader"
)

const vertexSrc = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn main(@builtin(vertex_index) index: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32(index) - 1.0;
    out.position = vec4<f32>(x, -1.0, 0.0, 1.0);
    out.uv = vec2<f32>(x, 1.0);
    return out;
}
`

const fragmentSrc = `
@group(0) @binding(0) var lod_texture: texture_2d<f32>;
@group(0) @binding(1) var lod_sampler: sampler;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(lod_texture, lod_sampler, uv);
}
`

// swappedSrc declares the sampler and texture at each other's binding.
const swappedSrc = `
@group(0) @binding(0) var lod_sampler: sampler;
@group(0) @binding(1) var lod_texture: texture_2d<f32>;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(lod_texture, lod_sampler, uv);
}
`

const extraBindingSrc = `
@group(0) @binding(0) var lod_texture: texture_2d<f32>;
@group(0) @binding(1) var lod_sampler: sampler;
@group(0) @binding(2) var extra_texture: texture_2d<f32>;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(lod_texture, lod_sampler, uv) + textureSample(extra_texture, lod_sampler, uv);
}
`

func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	return openDev.Device, openDev.Queue, func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
}

func compile(t *testing.T, c *shader.Compiler, src string, stage shader.Stage) *shader.Program {
	t.Helper()
	p, err := c.Compile(src, stage, "main")
	if err != nil {
		t.Fatalf("Compile %v: %v", stage, err)
	}
	return p
}

func TestNewBindingLayoutDuplicate(t *testing.T) {
	_, err := NewBindingLayout(
		Entry{Binding: 0, Kind: shader.KindSampledTexture},
		Entry{Binding: 0, Kind: shader.KindSampler},
	)
	if !errors.Is(err, gpuerr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	_, err = NewBindingLayout(Entry{Binding: 3, Kind: shader.KindOther})
	if !errors.Is(err, gpuerr.ErrValidation) {
		t.Errorf("unsupported kind err = %v, want ErrValidation", err)
	}

	l, err := NewBindingLayout(
		Entry{Binding: 1, Kind: shader.KindSampler},
		Entry{Binding: 0, Kind: shader.KindSampledTexture},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Entries(); got[0].Binding != 0 || got[1].Binding != 1 {
		t.Errorf("entries not ordered: %+v", got)
	}
}

func TestBuild(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	c := shader.NewCompiler()
	vs := compile(t, c, vertexSrc, shader.StageVertex)
	fs := compile(t, c, fragmentSrc, shader.StageFragment)

	p, err := NewBuilder(device, nil).Build(vs, fs, TextureQueryLayout(), gputypes.TextureFormatRGBA32Float)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Destroy()
	if p.Raw() == nil {
		t.Fatal("Raw() is nil")
	}
	if p.Format() != gputypes.TextureFormatRGBA32Float {
		t.Errorf("Format = %v", p.Format())
	}

	factory, err := resource.NewFactory(device, queue, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer factory.Close()
	tex, err := factory.CreateTexture(resource.SampledDescriptor(64, 64, gputypes.TextureFormatRGBA8Unorm))
	if err != nil {
		t.Fatal(err)
	}
	defer factory.DestroyTexture(tex)
	smp, err := factory.CreateSampler(resource.LODSampler())
	if err != nil {
		t.Fatal(err)
	}

	bg, err := p.NewBindGroup(tex.View(), smp)
	if err != nil {
		t.Fatalf("NewBindGroup: %v", err)
	}
	device.DestroyBindGroup(bg)

	if _, err := p.NewBindGroup(nil, smp); !errors.Is(err, gpuerr.ErrValidation) {
		t.Errorf("missing view err = %v, want ErrValidation", err)
	}

	p.Destroy()
	p.Destroy()
	if _, err := p.NewBindGroup(tex.View(), smp); !errors.Is(err, ErrPipelineDestroyed) {
		t.Errorf("after Destroy err = %v", err)
	}
}

func TestBuildRejectsMismatchedLayouts(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	c := shader.NewCompiler()
	vs := compile(t, c, vertexSrc, shader.StageVertex)
	fs := compile(t, c, fragmentSrc, shader.StageFragment)
	swapped := compile(t, c, swappedSrc, shader.StageFragment)
	extra := compile(t, c, extraBindingSrc, shader.StageFragment)

	textureOnly, err := NewBindingLayout(Entry{Binding: 0, Kind: shader.KindSampledTexture})
	if err != nil {
		t.Fatal(err)
	}
	swappedLayout, err := NewBindingLayout(
		Entry{Binding: 0, Kind: shader.KindSampler},
		Entry{Binding: 1, Kind: shader.KindSampledTexture},
	)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		vs, fs *shader.Program
		layout BindingLayout
		format gputypes.TextureFormat
	}{
		{"missing sampler", vs, fs, textureOnly, gputypes.TextureFormatRGBA32Float},
		{"kind mismatch", vs, fs, swappedLayout, gputypes.TextureFormatRGBA32Float},
		{"query convention", vs, swapped, swappedLayout, gputypes.TextureFormatRGBA32Float},
		{"extra binding", vs, extra, TextureQueryLayout(), gputypes.TextureFormatRGBA32Float},
		{"stages swapped", fs, vs, TextureQueryLayout(), gputypes.TextureFormatRGBA32Float},
		{"no format", vs, fs, TextureQueryLayout(), 0},
	}
	b := NewBuilder(device, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := b.Build(tt.vs, tt.fs, tt.layout, tt.format)
			if err == nil {
				p.Destroy()
				t.Fatal("Build succeeded, want validation error")
			}
			if !errors.Is(err, gpuerr.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}
