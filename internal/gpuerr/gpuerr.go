// Package gpuerr defines the error taxonomy shared by the lodquery stages.
//
// Every failure that leaves a stage is wrapped in an *Error carrying the
// Stage it came from and one of the Kind sentinels below, so callers can
// test either with errors.Is and still reach the underlying cause.
package gpuerr

import (
	"errors"
	"fmt"
)

// Kind sentinels.
var (
	// ErrSetup is returned when no adapter, device or queue could be acquired.
	ErrSetup = errors.New("lodquery: setup failed")

	// ErrCompile is returned when a shader program is rejected.
	ErrCompile = errors.New("lodquery: shader compile failed")

	// ErrValidation is returned when descriptors or layouts are inconsistent.
	ErrValidation = errors.New("lodquery: validation failed")

	// ErrInvalidDimensions is returned for zero-sized textures.
	ErrInvalidDimensions = fmt.Errorf("%w: invalid dimensions", ErrValidation)

	// ErrReadbackTimeout is returned when the map completion signal does
	// not arrive within the configured bound.
	ErrReadbackTimeout = errors.New("lodquery: readback timed out")

	// ErrOutput is returned when the output sink fails.
	ErrOutput = errors.New("lodquery: output failed")
)

// Stage identifies where in the cycle a failure occurred.
type Stage int

const (
	StageCompile Stage = iota
	StageDeviceAcquire
	StageValidate
	StageRecord
	StageReadback
	StageOutput
)

// String returns the stage name used in diagnostics.
func (s Stage) String() string {
	switch s {
	case StageCompile:
		return "compile"
	case StageDeviceAcquire:
		return "device-acquire"
	case StageValidate:
		return "validate"
	case StageRecord:
		return "record"
	case StageReadback:
		return "readback"
	case StageOutput:
		return "output"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Error is a stage-tagged failure.
type Error struct {
	Stage Stage
	Kind  error
	Err   error
}

// New wraps err as a failure of the given stage and kind.
// A nil err yields a nil *Error.
func New(stage Stage, kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Stage: stage, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil || errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// StageOf reports the stage of the first *Error in err's chain.
func StageOf(err error) (Stage, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage, true
	}
	return 0, false
}
