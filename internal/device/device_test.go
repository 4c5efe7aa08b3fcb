package device

import (
	"errors"
	"testing"

	"github.com/gogpu/lodquery/internal/gpuerr"
)

func TestOpenNoop(t *testing.T) {
	ctx, err := Open(BackendNoop, nil)
	if err != nil {
		t.Fatalf("Open(noop): %v", err)
	}
	defer ctx.Close()

	if ctx.Device == nil || ctx.Queue == nil {
		t.Fatal("device or queue is nil")
	}
	if ctx.Backend != BackendNoop {
		t.Errorf("Backend = %q, want noop", ctx.Backend)
	}

	ctx.Close()
	ctx.Close()
	if ctx.Device != nil {
		t.Error("Device should be nil after Close")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(Backend("metal"), nil)
	if !errors.Is(err, gpuerr.ErrSetup) {
		t.Fatalf("err = %v, want ErrSetup", err)
	}
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("err = %v, want ErrBackendUnavailable", err)
	}
	if stage, _ := gpuerr.StageOf(err); stage != gpuerr.StageDeviceAcquire {
		t.Errorf("stage = %v, want device-acquire", stage)
	}
}

func TestOpenVulkan(t *testing.T) {
	ctx, err := Open(BackendVulkan, nil)
	if err != nil {
		if !errors.Is(err, gpuerr.ErrSetup) {
			t.Fatalf("vulkan failure not reported as setup error: %v", err)
		}
		t.Skipf("GPU not available: %v", err)
	}
	defer ctx.Close()
	if ctx.Adapter == "" {
		t.Log("adapter reported an empty name")
	}
}

func TestParseBackend(t *testing.T) {
	for _, s := range []string{"vulkan", "noop"} {
		if b, err := ParseBackend(s); err != nil || string(b) != s {
			t.Errorf("ParseBackend(%q) = %q, %v", s, b, err)
		}
	}
	if _, err := ParseBackend("dx12"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("ParseBackend(dx12) err = %v", err)
	}
}
