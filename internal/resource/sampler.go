package resource

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/lodquery/internal/gpuerr"
)

// SamplerDescriptor describes a sampler. It is comparable and used as the
// sampler cache key.
type SamplerDescriptor struct {
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode
	Anisotropy   uint16
	LodMinClamp  float32
	LodMaxClamp  float32
}

// LODSampler returns the sampler used for level of detail queries:
// clamp-to-edge on every axis, linear filtering at every stage, no
// anisotropy and an unbounded level range.
func LODSampler() SamplerDescriptor {
	return SamplerDescriptor{
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		Anisotropy:   1,
		LodMinClamp:  0,
		LodMaxClamp:  math.MaxFloat32,
	}
}

// Validate checks the descriptor on its own.
func (d SamplerDescriptor) Validate() error {
	if d.Anisotropy < 1 {
		return fmt.Errorf("%w: sampler anisotropy %d < 1", gpuerr.ErrValidation, d.Anisotropy)
	}
	if d.LodMinClamp < 0 || d.LodMinClamp > d.LodMaxClamp {
		return fmt.Errorf("%w: sampler lod range [%g, %g]", gpuerr.ErrValidation, d.LodMinClamp, d.LodMaxClamp)
	}
	if d.Anisotropy > 1 && (d.MagFilter != gputypes.FilterModeLinear ||
		d.MinFilter != gputypes.FilterModeLinear || d.MipmapFilter != gputypes.FilterModeLinear) {
		return fmt.Errorf("%w: anisotropic sampler needs linear filters", gpuerr.ErrValidation)
	}
	return nil
}

// CheckCompatible reports whether d can sample t. A mip-mapped texture needs
// a sampler whose mipmap filter selects between levels.
func CheckCompatible(t *Texture, d SamplerDescriptor) error {
	if t.MipLevelCount() <= 1 {
		return nil
	}
	switch d.MipmapFilter {
	case gputypes.FilterModeLinear, gputypes.FilterModeNearest:
		return nil
	default:
		return fmt.Errorf("%w: %s has %d levels, sampler mipmap filter %v",
			gpuerr.ErrValidation, t.desc.Label, t.MipLevelCount(), d.MipmapFilter)
	}
}
