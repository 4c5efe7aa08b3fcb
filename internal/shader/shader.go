package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"

	"github.com/gogpu/lodquery/internal/cache"
	"github.com/gogpu/lodquery/internal/gpuerr"
)

// Stage is a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

// String returns the WGSL attribute name of the stage.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

var (
	// ErrEntryPointNotFound is returned when the source does not declare the
	// requested entry point for the requested stage.
	ErrEntryPointNotFound = errors.New("shader: entry point not found")

	// ErrInvalidSPIRV is returned when the compiler output is not a SPIR-V module.
	ErrInvalidSPIRV = errors.New("shader: compiler produced invalid SPIR-V")
)

const spirvMagic = 0x07230203

// Program is a compiled, verified shader program.
type Program struct {
	stage    Stage
	entry    string
	spirv    []uint32
	bindings []Binding
}

// Stage returns the stage the program was compiled for.
func (p *Program) Stage() Stage { return p.stage }

// EntryPoint returns the entry point name.
func (p *Program) EntryPoint() string { return p.entry }

// SPIRV returns the compiled SPIR-V words.
func (p *Program) SPIRV() []uint32 { return p.spirv }

// Bindings returns the resources the program declares.
func (p *Program) Bindings() []Binding { return p.bindings }

// Label returns a debug name for GPU objects built from the program.
func (p *Program) Label() string { return p.stage.String() + ":" + p.entry }

// QueriesTexture reports whether the entry point samples a sampled texture
// through a sampler. Declaring them without a sample does not count.
func (p *Program) QueriesTexture() bool {
	var tex, smp bool
	for _, b := range p.bindings {
		if !b.Sampled {
			continue
		}
		switch b.Kind {
		case KindSampledTexture:
			tex = true
		case KindSampler:
			smp = true
		}
	}
	return tex && smp
}

type programKey struct {
	stage  Stage
	entry  string
	source string
}

// Compiler turns WGSL source into Programs. Results are cached by stage,
// entry point and source text.
type Compiler struct {
	programs *cache.Cache[programKey, *Program]
	generate func(module *ir.Module) ([]byte, error)
}

// NewCompiler returns a compiler backed by naga.
func NewCompiler() *Compiler {
	return &Compiler{
		programs: cache.New[programKey, *Program](32),
		generate: generateSPIRV,
	}
}

func generateSPIRV(module *ir.Module) ([]byte, error) {
	return naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
}

// Compile compiles source for stage and verifies that entryPoint exists.
// Failures are compile-stage errors.
func (c *Compiler) Compile(source string, stage Stage, entryPoint string) (*Program, error) {
	key := programKey{stage: stage, entry: entryPoint, source: source}
	p, err := c.programs.GetOrCreate(key, func() (*Program, error) {
		return c.compile(source, stage, entryPoint)
	})
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageCompile, gpuerr.ErrCompile,
			fmt.Errorf("%s %q: %w", stage, entryPoint, err))
	}
	return p, nil
}

// Stats reports program cache statistics.
func (c *Compiler) Stats() cache.Stats { return c.programs.Stats() }

func (c *Compiler) compile(source string, stage Stage, entryPoint string) (*Program, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("naga: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("naga: %w", err)
	}
	ep := findEntryPoint(module, stage, entryPoint)
	if ep == nil {
		return nil, ErrEntryPointNotFound
	}
	decls, err := bindings(module, ep)
	if err != nil {
		return nil, err
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("naga: %w", err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("naga: %w", &verrs[0])
	}

	spirvBytes, err := c.generate(module)
	if err != nil {
		return nil, fmt.Errorf("naga: %w", err)
	}
	words, err := toWords(spirvBytes)
	if err != nil {
		return nil, err
	}

	return &Program{
		stage:    stage,
		entry:    entryPoint,
		spirv:    words,
		bindings: decls,
	}, nil
}

// toWords converts little-endian SPIR-V bytes to 32-bit words.
func toWords(b []byte) ([]uint32, error) {
	if len(b) < 20 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSPIRV, len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: magic %#08x", ErrInvalidSPIRV, words[0])
	}
	return words, nil
}
