//go:build !nogpu

package device

import (
	// Registers the Vulkan backend with hal.GetBackend.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)
