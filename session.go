package lodquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lodquery/internal/device"
	"github.com/gogpu/lodquery/internal/frame"
	"github.com/gogpu/lodquery/internal/gpuerr"
	"github.com/gogpu/lodquery/internal/mipchain"
	"github.com/gogpu/lodquery/internal/pipeline"
	"github.com/gogpu/lodquery/internal/readback"
	"github.com/gogpu/lodquery/internal/resource"
	"github.com/gogpu/lodquery/internal/shader"
)

// ErrSessionClosed is returned by Render after Close.
var ErrSessionClosed = errors.New("lodquery: session closed")

const (
	targetFormat = gputypes.TextureFormatRGBA32Float
	lodFormat    = gputypes.TextureFormatRGBA8Unorm
)

// Session owns a device and the long-lived objects of the render cycle:
// compiled programs, pipeline, the queried texture and its sampler. Each
// Render creates its own render target and staging buffer.
//
// Session is safe for concurrent use; Render calls are serialized.
type Session struct {
	mu     sync.Mutex
	closed bool

	opts options
	log  *slog.Logger

	dev      *device.Context
	factory  *resource.Factory
	pipe     *pipeline.Pipeline
	lodTex   *resource.Texture
	group    hal.BindGroup
	readback *readback.Synchronizer
}

// NewSession compiles the shader programs, acquires a device and builds the
// pipeline. Programs are compiled before any device work so a bad program
// never reaches the GPU.
func NewSession(opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	if _, err := resource.MipLevelCount(o.width, o.height); err != nil {
		return nil, gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation, err)
	}

	compiler := shader.NewCompiler()
	vs, err := compiler.Compile(triangleSource, shader.StageVertex, vertexEntry)
	if err != nil {
		return nil, err
	}
	fs, err := compiler.Compile(lodQuerySource, shader.StageFragment, fragmentEntry)
	if err != nil {
		return nil, err
	}
	if !fs.QueriesTexture() {
		return nil, gpuerr.New(gpuerr.StageCompile, gpuerr.ErrCompile,
			errors.New("fragment program does not sample its texture through a sampler"))
	}

	dev, err := device.Open(device.Backend(o.backend), log)
	if err != nil {
		return nil, err
	}

	s := &Session{
		opts:     o,
		log:      log,
		dev:      dev,
		readback: readback.NewSynchronizer(o.timeout, log),
	}
	if err := s.setup(vs, fs); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) setup(vs, fs *shader.Program) error {
	var err error
	s.factory, err = resource.NewFactory(s.dev.Device, s.dev.Queue, s.log)
	if err != nil {
		return gpuerr.New(gpuerr.StageDeviceAcquire, gpuerr.ErrSetup, err)
	}

	s.lodTex, err = s.factory.CreateTexture(resource.SampledDescriptor(s.opts.width, s.opts.height, lodFormat))
	if err != nil {
		return err
	}
	levels := int(s.lodTex.MipLevelCount())
	if err := s.factory.SeedMipChain(s.lodTex, mipchain.LevelCoded(int(s.opts.width), int(s.opts.height), levels)); err != nil {
		return err
	}

	samplerDesc := resource.LODSampler()
	if err := resource.CheckCompatible(s.lodTex, samplerDesc); err != nil {
		return gpuerr.New(gpuerr.StageValidate, gpuerr.ErrValidation, err)
	}
	sampler, err := s.factory.CreateSampler(samplerDesc)
	if err != nil {
		return err
	}

	s.pipe, err = pipeline.NewBuilder(s.dev.Device, s.log).Build(vs, fs, pipeline.TextureQueryLayout(), targetFormat)
	if err != nil {
		return err
	}
	s.group, err = s.pipe.NewBindGroup(s.lodTex.View(), sampler)
	return err
}

// Width returns the image width.
func (s *Session) Width() int { return int(s.opts.width) }

// Height returns the image height.
func (s *Session) Height() int { return int(s.opts.height) }

// Adapter returns the name of the adapter in use.
func (s *Session) Adapter() string { return s.dev.Adapter }

// Render runs one cycle and returns the image.
func (s *Session) Render(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	w, h := s.opts.width, s.opts.height
	target, err := s.factory.CreateTexture(resource.RenderTargetDescriptor(w, h, targetFormat))
	if err != nil {
		return nil, err
	}
	defer s.factory.DestroyTexture(target)

	staging, err := s.factory.CreateStagingBuffer(w, h, BytesPerPixel)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	rec, err := frame.NewRecorder(s.dev.Device, s.dev.Queue, target, staging,
		frame.TightLayout(w, h, BytesPerPixel), s.log)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	if err := rec.Record(s.pipe, s.group); err != nil {
		return nil, err
	}
	if err := rec.Finish(); err != nil {
		return nil, err
	}
	if err := rec.Submit(); err != nil {
		return nil, err
	}

	data, err := s.readback.Readback(ctx, staging)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != staging.Size() {
		return nil, gpuerr.New(gpuerr.StageReadback, gpuerr.ErrValidation,
			fmt.Errorf("read %d bytes, want %d", len(data), staging.Size()))
	}
	return &Frame{Width: int(w), Height: int(h), Data: data}, nil
}

// Close releases the device and everything created on it. Close is
// idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if s.group != nil {
		s.dev.Device.DestroyBindGroup(s.group)
		s.group = nil
	}
	if s.pipe != nil {
		s.pipe.Destroy()
	}
	if s.factory != nil {
		s.factory.DestroyTexture(s.lodTex)
		s.factory.Close()
	}
	s.dev.Close()
}

// Render runs a single cycle on a fresh Session.
func Render(ctx context.Context, opts ...Option) (*Frame, error) {
	s, err := NewSession(opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Render(ctx)
}
