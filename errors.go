package lodquery

import "github.com/gogpu/lodquery/internal/gpuerr"

// Error kinds. Test with errors.Is.
var (
	ErrSetup             = gpuerr.ErrSetup
	ErrCompile           = gpuerr.ErrCompile
	ErrValidation        = gpuerr.ErrValidation
	ErrInvalidDimensions = gpuerr.ErrInvalidDimensions
	ErrReadbackTimeout   = gpuerr.ErrReadbackTimeout
	ErrOutput            = gpuerr.ErrOutput
)

// Stage identifies where a cycle failed.
type Stage = gpuerr.Stage

// Stages.
const (
	StageCompile       = gpuerr.StageCompile
	StageDeviceAcquire = gpuerr.StageDeviceAcquire
	StageValidate      = gpuerr.StageValidate
	StageRecord        = gpuerr.StageRecord
	StageReadback      = gpuerr.StageReadback
	StageOutput        = gpuerr.StageOutput
)

// StageOf reports the stage a lodquery error came from.
func StageOf(err error) (Stage, bool) {
	return gpuerr.StageOf(err)
}
