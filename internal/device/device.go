// Package device acquires the GPU instance, adapter, device and queue used
// for a render cycle.
package device

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/lodquery/internal/gpuerr"
)

// Backend names the HAL backend to open.
type Backend string

const (
	// BackendVulkan opens the first adapter exposed by the Vulkan backend.
	BackendVulkan Backend = "vulkan"

	// BackendNoop opens the HAL noop device. Commands are accepted and
	// complete immediately, buffer contents are not produced.
	BackendNoop Backend = "noop"
)

var (
	// ErrBackendUnavailable is returned when the backend is not compiled in
	// or not supported on this host.
	ErrBackendUnavailable = errors.New("device: backend not available")

	// ErrNoAdapter is returned when the instance exposes no adapters.
	ErrNoAdapter = errors.New("device: no adapters found")
)

// instanceFactory is the part of a HAL backend Open needs.
type instanceFactory interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Context holds an opened device and its queue.
type Context struct {
	Device  hal.Device
	Queue   hal.Queue
	Adapter string
	Backend Backend

	instance hal.Instance
}

// ParseBackend maps a flag value to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendVulkan, BackendNoop:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBackendUnavailable, s)
	}
}

// Open creates an instance for backend and opens a device on its first
// adapter. Failures are reported as setup errors of the device-acquire stage.
func Open(backend Backend, log *slog.Logger) (*Context, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	factory, err := lookup(backend)
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageDeviceAcquire, gpuerr.ErrSetup, err)
	}

	instance, err := factory.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageDeviceAcquire, gpuerr.ErrSetup,
			fmt.Errorf("create instance: %w", err))
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, gpuerr.New(gpuerr.StageDeviceAcquire, gpuerr.ErrSetup, ErrNoAdapter)
	}
	selected := &adapters[0]

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, gpuerr.New(gpuerr.StageDeviceAcquire, gpuerr.ErrSetup,
			fmt.Errorf("open device: %w", err))
	}

	log.Info("device: adapter selected",
		"backend", string(backend),
		"adapter", selected.Info.Name,
		"type", selected.Info.DeviceType)

	return &Context{
		Device:   openDev.Device,
		Queue:    openDev.Queue,
		Adapter:  selected.Info.Name,
		Backend:  backend,
		instance: instance,
	}, nil
}

func lookup(backend Backend) (instanceFactory, error) {
	switch backend {
	case BackendNoop:
		return &noop.API{}, nil
	case BackendVulkan:
		b, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, fmt.Errorf("%w: vulkan", ErrBackendUnavailable)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackendUnavailable, string(backend))
	}
}

// Close destroys the device and instance. Close is idempotent.
func (c *Context) Close() {
	if c == nil {
		return
	}
	if c.Device != nil {
		c.Device.Destroy()
		c.Device = nil
		c.Queue = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
}
