// Command lodquery renders one triangle that queries the level of detail of
// a mip-mapped texture and writes the raw RGBA32Float target to a file.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/pkg/profile"

	"github.com/gogpu/lodquery"
)

func main() {
	err := run(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fatal(err)
	}
}

// run parses args, renders one frame and writes it. Deferred cleanup,
// including the CPU profile, completes before it returns.
func run(args []string) error {
	fs := flag.NewFlagSet("lodquery", flag.ContinueOnError)
	var (
		size       = fs.Uint("size", lodquery.DefaultSize, "target width and height in pixels")
		timeout    = fs.Duration("timeout", lodquery.DefaultTimeout, "readback timeout")
		backend    = fs.String("backend", string(lodquery.BackendVulkan), "GPU backend (vulkan|noop)")
		verbose    = fs.Bool("v", false, "debug logging to stderr")
		cpuprofile = fs.Bool("cpuprofile", false, "write a CPU profile to the working directory")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cpuprofile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	if *verbose {
		lodquery.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	output := lodquery.DefaultOutputPath
	if fs.NArg() > 0 {
		output = fs.Arg(0)
	}

	frame, err := lodquery.Render(context.Background(),
		lodquery.WithSize(uint32(*size), uint32(*size)),
		lodquery.WithTimeout(*timeout),
		lodquery.WithBackend(lodquery.Backend(*backend)),
	)
	if err != nil {
		return err
	}
	if err := lodquery.WriteFile(output, frame.Bytes()); err != nil {
		return err
	}

	w, h := frame.Width, frame.Height
	log.Printf("Wrote %d bytes to %s (%dx%d)", len(frame.Bytes()), output, w, h)
	log.Printf("corner (0,0) = %v", frame.At(0, 0))
	log.Printf("inside (%d,%d) = %v", w/2, h-4, frame.At(w/2, h-4))
	return nil
}

func fatal(err error) {
	if stage, ok := lodquery.StageOf(err); ok {
		log.Fatalf("%s: %v", stage, err)
	}
	log.Fatalf("lodquery: %v", err)
}
