package lodquery

import (
	"fmt"
	"os"

	"github.com/gogpu/lodquery/internal/gpuerr"
)

// DefaultOutputPath is where the command writes the image when no path is given.
const DefaultOutputPath = "output.vulkan.bin"

// Sink receives the raw image of a cycle.
type Sink interface {
	Write(name string, data []byte) error
}

// FileSink writes the image verbatim to a file, replacing any existing one.
type FileSink struct {
	// Perm is the mode of created files. Zero means 0o644.
	Perm os.FileMode
}

// Write writes data to path.
func (s FileSink) Write(path string, data []byte) error {
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return gpuerr.New(gpuerr.StageOutput, gpuerr.ErrOutput, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// WriteFile writes data to path with a default FileSink.
func WriteFile(path string, data []byte) error {
	return FileSink{}.Write(path, data)
}
