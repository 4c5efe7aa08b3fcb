package lodquery

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSinkWritesVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultOutputPath)
	data := []byte{0, 0, 128, 63, 0, 0, 32, 64}

	if err := WriteFile(path, data); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("file = %v, want %v", got, data)
	}
}

func TestFileSinkError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.bin")
	err := FileSink{}.Write(path, []byte{1})
	if !errors.Is(err, ErrOutput) {
		t.Fatalf("err = %v, want ErrOutput", err)
	}
	if stage, _ := StageOf(err); stage != StageOutput {
		t.Errorf("stage = %v, want output", stage)
	}
}
