// Package shader compiles WGSL programs to SPIR-V and reflects the
// entry points and resource bindings they declare.
//
// A *Program can only be obtained from a successful Compile, so holding one
// means the source passed the compiler and exposes the requested entry
// point for the requested stage.
package shader
