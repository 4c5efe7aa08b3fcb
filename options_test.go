package lodquery

import (
	"log/slog"
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.width != 512 || o.height != 512 {
		t.Errorf("size = %dx%d, want 512x512", o.width, o.height)
	}
	if o.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", o.timeout)
	}
	if o.backend != BackendVulkan {
		t.Errorf("backend = %q, want vulkan", o.backend)
	}
}

func TestOptionsApply(t *testing.T) {
	l := slog.Default()
	o := defaultOptions()
	for _, opt := range []Option{
		WithSize(64, 32),
		WithTimeout(time.Second),
		WithBackend(BackendNoop),
		WithLogger(l),
	} {
		opt(&o)
	}
	if o.width != 64 || o.height != 32 || o.timeout != time.Second ||
		o.backend != BackendNoop || o.logger != l {
		t.Errorf("options = %+v", o)
	}
}
