package lodquery

import (
	"log/slog"
	"time"

	"github.com/gogpu/lodquery/internal/device"
	"github.com/gogpu/lodquery/internal/readback"
)

// DefaultSize is the default edge length of the render target and the
// queried texture.
const DefaultSize = 512

// DefaultTimeout bounds the wait for the readback mapping.
const DefaultTimeout = readback.DefaultTimeout

// Backend selects the GPU backend.
type Backend string

const (
	BackendVulkan Backend = Backend(device.BackendVulkan)
	BackendNoop   Backend = Backend(device.BackendNoop)
)

// Option configures a Session.
//
// Example:
//
//	s, err := lodquery.NewSession(
//	    lodquery.WithSize(256, 256),
//	    lodquery.WithTimeout(2*time.Second),
//	)
type Option func(*options)

type options struct {
	width   uint32
	height  uint32
	timeout time.Duration
	backend Backend
	logger  *slog.Logger
}

func defaultOptions() options {
	return options{
		width:   DefaultSize,
		height:  DefaultSize,
		timeout: DefaultTimeout,
		backend: BackendVulkan,
	}
}

// WithSize sets the extent of both the render target and the queried
// texture. The row pitch width*16 must be a multiple of 256, so width must
// be a multiple of 16.
func WithSize(width, height uint32) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithTimeout bounds how long a readback waits for the mapping to complete.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithBackend selects the GPU backend. The default is BackendVulkan.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithLogger sets the logger for one Session instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
