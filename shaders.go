package lodquery

import _ "embed"

// Shader entry points.
const (
	vertexEntry   = "main"
	fragmentEntry = "main"
)

//go:embed shaders/triangle.wgsl
var triangleSource string

//go:embed shaders/lod_query.wgsl
var lodQuerySource string
