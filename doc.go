// Package lodquery renders one triangle into an offscreen RGBA32Float target
// and reads the result back to host memory.
//
// The fragment stage reports, for every covered pixel, the level of detail
// that sampling a mip-mapped texture would select there. Uncovered pixels
// keep the opaque black clear color. The readback is the raw image: width *
// height pixels of four little-endian float32 channels, rows top to bottom
// with no padding.
//
// # Quick Start
//
//	frame, err := lodquery.Render(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := lodquery.WriteFile(lodquery.DefaultOutputPath, frame.Bytes()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Cycle
//
// A render cycle compiles the shader programs, acquires a device, creates
// the textures, sampler and staging buffer, records one render pass and a
// texture-to-buffer copy, submits, and then maps the staging buffer for
// reading. Mapping completes through a one-shot signal that the host awaits
// while polling the device, bounded by a timeout.
//
// Use a Session to run several cycles on one device. Cycles on a Session
// are strictly sequential.
//
// # Errors
//
// Every failure carries the stage it came from (see StageOf) and one of
// ErrSetup, ErrCompile, ErrValidation or ErrReadbackTimeout.
package lodquery
