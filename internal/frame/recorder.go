// Package frame records and submits the commands of one render cycle: a
// single render pass drawing one triangle into the render target, followed
// by a copy of the target into the staging buffer.
package frame

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lodquery/internal/gpuerr"
	"github.com/gogpu/lodquery/internal/pipeline"
	"github.com/gogpu/lodquery/internal/resource"
)

// ErrInvalidState is returned when a recorder method is called out of order.
var ErrInvalidState = errors.New("frame: invalid recorder state")

// State is the lifecycle state of a Recorder.
//
//	Idle -> Recording -> Recorded -> Submitted
type State int

const (
	StateIdle State = iota
	StateRecording
	StateRecorded
	StateSubmitted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateRecorded:
		return "Recorded"
	case StateSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ClearColor is the load value of the render target: opaque black.
var ClearColor = gputypes.Color{R: 0, G: 0, B: 0, A: 1}

// Recorder records one frame. It is used once and is not safe for
// concurrent use.
type Recorder struct {
	device  hal.Device
	queue   hal.Queue
	target  *resource.Texture
	staging *resource.Buffer
	layout  CopyLayout
	log     *slog.Logger

	state   State
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
}

// NewRecorder validates layout against target and staging and returns an
// idle recorder. The copy layout is checked here so that a bad layout never
// reaches the queue.
func NewRecorder(device hal.Device, queue hal.Queue, target *resource.Texture, staging *resource.Buffer, layout CopyLayout, log *slog.Logger) (*Recorder, error) {
	if err := layout.Validate(target, staging); err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation, err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		device:  device,
		queue:   queue,
		target:  target,
		staging: staging,
		layout:  layout,
		log:     log,
	}, nil
}

// State returns the current state.
func (r *Recorder) State() State { return r.state }

func (r *Recorder) expect(want State, op string) error {
	if r.state != want {
		return gpuerr.New(gpuerr.StageRecord, gpuerr.ErrValidation,
			fmt.Errorf("%w: %s in state %v, want %v", ErrInvalidState, op, r.state, want))
	}
	return nil
}

// Record encodes the render pass and the copy. The pass clears the target
// to ClearColor, binds p and group at slot 0 and draws 3 vertices of 1
// instance. The target is then copied, mip level 0 at origin zero, into the
// staging buffer with the recorder's layout.
func (r *Recorder) Record(p *pipeline.Pipeline, group hal.BindGroup) error {
	if err := r.expect(StateIdle, "Record"); err != nil {
		return err
	}
	if p == nil || p.Raw() == nil || group == nil {
		return gpuerr.New(gpuerr.StageRecord, gpuerr.ErrValidation, errors.New("frame: pipeline and bind group are required"))
	}
	if p.Format() != r.target.Format() {
		return gpuerr.New(gpuerr.StageRecord, gpuerr.ErrValidation,
			fmt.Errorf("pipeline target format %v, render target is %v", p.Format(), r.target.Format()))
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "frame_encoder",
	})
	if err != nil {
		return gpuerr.New(gpuerr.StageRecord, gpuerr.ErrValidation, fmt.Errorf("create command encoder: %w", err))
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		return gpuerr.New(gpuerr.StageRecord, gpuerr.ErrValidation, fmt.Errorf("begin encoding: %w", err))
	}
	r.encoder = encoder
	r.state = StateRecording

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "lod_query_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.target.View(),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: ClearColor,
		}},
	})
	rp.SetPipeline(p.Raw())
	rp.SetBindGroup(0, group, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.target.Raw(),
		Range: hal.TextureRange{
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		},
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	encoder.CopyTextureToBuffer(r.target.Raw(), r.staging.Raw(), []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       r.layout.Offset,
			BytesPerRow:  r.layout.RowPitch,
			RowsPerImage: r.layout.RowsPerImage,
		},
		TextureBase: hal.ImageCopyTexture{Texture: r.target.Raw(), MipLevel: 0, Aspect: gputypes.TextureAspectAll},
		Size:        hal.Extent3D{Width: r.layout.Width, Height: r.layout.Height, DepthOrArrayLayers: 1},
	}})
	return nil
}

// Finish closes the command sequence.
func (r *Recorder) Finish() error {
	if err := r.expect(StateRecording, "Finish"); err != nil {
		return err
	}
	cmd, err := r.encoder.EndEncoding()
	if err != nil {
		r.encoder.DiscardEncoding()
		r.encoder = nil
		r.state = StateIdle
		return gpuerr.New(gpuerr.StageRecord, gpuerr.ErrValidation, fmt.Errorf("end encoding: %w", err))
	}
	r.cmd = cmd
	r.encoder = nil
	r.state = StateRecorded
	return nil
}

// Submit hands the command sequence to the queue. The staging buffer is
// told which submission index makes its contents ready.
func (r *Recorder) Submit() error {
	if err := r.expect(StateRecorded, "Submit"); err != nil {
		return err
	}
	idx, err := r.queue.Submit([]hal.CommandBuffer{r.cmd})
	if err != nil {
		return gpuerr.New(gpuerr.StageRecord, gpuerr.ErrValidation, fmt.Errorf("submit: %w", err))
	}
	r.staging.Track(idx)
	r.state = StateSubmitted
	r.log.Debug("frame: submitted",
		"width", r.layout.Width,
		"height", r.layout.Height,
		"bytes", r.layout.Size(),
		"submission", idx)
	return nil
}

// Release frees the command sequence. Call it after the readback
// has completed or been abandoned. Release is idempotent.
func (r *Recorder) Release() {
	if r.encoder != nil {
		r.encoder.DiscardEncoding()
		r.encoder = nil
	}
	if r.cmd != nil {
		r.device.FreeCommandBuffer(r.cmd)
		r.cmd = nil
	}
}
