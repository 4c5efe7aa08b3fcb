package resource

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/lodquery/internal/gpuerr"
	"github.com/gogpu/lodquery/internal/mipchain"
)

// samplerCacheSize bounds the number of distinct live samplers.
const samplerCacheSize = 16

// Factory creates GPU resources on one device.
//
// Samplers are deduplicated by descriptor and owned by the factory; they are
// destroyed on eviction or Close. Textures and buffers are owned by the
// caller.
type Factory struct {
	device   hal.Device
	queue    hal.Queue
	samplers *lru.Cache[SamplerDescriptor, hal.Sampler]
	log      *slog.Logger
}

// NewFactory returns a factory for device and queue.
func NewFactory(device hal.Device, queue hal.Queue, log *slog.Logger) (*Factory, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	f := &Factory{device: device, queue: queue, log: log}
	cache, err := lru.NewWithEvict[SamplerDescriptor, hal.Sampler](samplerCacheSize,
		func(_ SamplerDescriptor, s hal.Sampler) {
			f.log.Debug("resource: sampler released")
			f.device.DestroySampler(s)
		})
	if err != nil {
		return nil, fmt.Errorf("resource: sampler cache: %w", err)
	}
	f.samplers = cache
	return f, nil
}

// CreateTexture resolves desc and creates the texture and a view over all
// of its mip levels.
func (f *Factory) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	resolved, err := desc.Resolve()
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation, err)
	}

	raw, err := f.device.CreateTexture(&hal.TextureDescriptor{
		Label: resolved.Label,
		Size: hal.Extent3D{
			Width:              resolved.Width,
			Height:             resolved.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: resolved.MipLevelCount,
		SampleCount:   resolved.SampleCount,
		Dimension:     gputypes.TextureDimension2D,
		Format:        resolved.Format,
		Usage:         resolved.Usage,
	})
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("create texture %s: %w", resolved.Label, err))
	}

	view, err := f.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         resolved.Label + "_view",
		Format:        resolved.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: resolved.MipLevelCount,
	})
	if err != nil {
		f.device.DestroyTexture(raw)
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("create texture view %s: %w", resolved.Label, err))
	}

	f.log.Debug("resource: texture created",
		"label", resolved.Label,
		"width", resolved.Width,
		"height", resolved.Height,
		"mips", resolved.MipLevelCount)
	return &Texture{raw: raw, view: view, desc: resolved}, nil
}

// DestroyTexture releases a texture created by CreateTexture.
func (f *Factory) DestroyTexture(t *Texture) {
	if t == nil {
		return
	}
	if t.view != nil {
		f.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.raw != nil {
		f.device.DestroyTexture(t.raw)
		t.raw = nil
	}
}

// CreateSampler returns a sampler for desc, reusing a live one when an
// identical descriptor was requested before.
func (f *Factory) CreateSampler(desc SamplerDescriptor) (hal.Sampler, error) {
	if err := desc.Validate(); err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation, err)
	}
	if s, ok := f.samplers.Get(desc); ok {
		return s, nil
	}

	s, err := f.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "lod_sampler",
		AddressModeU: desc.AddressModeU,
		AddressModeV: desc.AddressModeV,
		AddressModeW: desc.AddressModeW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: desc.MipmapFilter,
		LodMinClamp:  desc.LodMinClamp,
		LodMaxClamp:  desc.LodMaxClamp,
		Anisotropy:   desc.Anisotropy,
	})
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("create sampler: %w", err))
	}
	f.samplers.Add(desc, s)
	return s, nil
}

// CreateBuffer creates a buffer. Buffers with MapRead usage can be mapped
// for host reads once the submission that fills them is tracked and the
// queue reports it complete.
func (f *Factory) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	if desc.Size == 0 {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("%w: %s: zero size", ErrInvalidBufferSize, desc.Label))
	}
	raw, err := f.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("create buffer %s: %w", desc.Label, err))
	}
	f.log.Debug("resource: buffer created", "label", desc.Label, "size", desc.Size)
	return newBuffer(raw, desc, f.queue, f.device, f.device.DestroyBuffer), nil
}

// CreateStagingBuffer creates a host-readable copy destination holding
// exactly width*height*bytesPerPixel bytes.
func (f *Factory) CreateStagingBuffer(width, height, bytesPerPixel uint32) (*Buffer, error) {
	if width == 0 || height == 0 || bytesPerPixel == 0 {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("%w: staging %dx%d, %d bytes per pixel",
				gpuerr.ErrInvalidDimensions, width, height, bytesPerPixel))
	}
	return f.CreateBuffer(BufferDescriptor{
		Label: "staging",
		Size:  uint64(width) * uint64(height) * uint64(bytesPerPixel),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
}

// SeedMipChain uploads every level of chain into t. The chain must have
// exactly t's level count and level 0 must match t's extent.
func (f *Factory) SeedMipChain(t *Texture, chain *mipchain.Chain) error {
	if uint32(chain.Len()) != t.MipLevelCount() {
		return gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("mip chain has %d levels, %s has %d", chain.Len(), t.desc.Label, t.MipLevelCount()))
	}
	base := chain.Level(0).Bounds()
	if uint32(base.Dx()) != t.Width() || uint32(base.Dy()) != t.Height() {
		return gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
			fmt.Errorf("mip chain base %v, %s is %dx%d", base.Size(), t.desc.Label, t.Width(), t.Height()))
	}

	for i := range chain.Len() {
		img := chain.Level(i)
		w, h := uint32(img.Bounds().Dx()), uint32(img.Bounds().Dy())
		err := f.queue.WriteTexture(
			&hal.ImageCopyTexture{
				Texture:  t.raw,
				MipLevel: uint32(i),
				Aspect:   gputypes.TextureAspectAll,
			},
			img.Pix,
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(img.Stride),
				RowsPerImage: h,
			},
			&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
		if err != nil {
			return gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation,
				fmt.Errorf("upload %s level %d: %w", t.desc.Label, i, err))
		}
	}
	f.log.Debug("resource: mip chain uploaded", "label", t.desc.Label, "levels", chain.Len())
	return nil
}

// Close destroys every cached sampler.
func (f *Factory) Close() {
	f.samplers.Purge()
}
