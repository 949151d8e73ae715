package webgpu

import (
	"fmt"
	"strings"

	"github.com/born-ml/upscale/internal/logging"
	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Entry points shared between this backend and its shader assets.
const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "main"
)

// vertexShader emits one triangle covering the whole viewport without a
// vertex buffer. UV (0,0) is the top-left texel of the input texture.
const vertexShader = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOutput {
    // index 0,1,2 -> uv (0,0), (2,0), (0,2)
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    var out: VertexOutput;
    out.position = vec4<f32>(uv.x * 2.0 - 1.0, 1.0 - uv.y * 2.0, 0.0, 1.0);
    out.uv = uv;
    return out;
}
`

// ValidateFragmentShader checks that src is WGSL which compiles and declares
// a @fragment entry point named main. It runs on the CPU and needs no device.
func ValidateFragmentShader(src string) error {
	return validateWGSL(src, fragmentEntryPoint, ir.StageFragment)
}

// validateWGSL lowers src with naga, checks that it declares the entry
// point with the given stage, then compiles it and discards the SPIR-V.
// The device still receives the WGSL source; this only gives readable
// errors early. Features naga has not implemented yet are left for the
// device to judge.
func validateWGSL(src, entry string, stage ir.ShaderStage) error {
	name := stageName(stage)
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("%w: empty %s shader", upscaler.ErrShaderCompile, name)
	}
	ast, err := naga.Parse(src)
	if err != nil {
		return preflightError(name, err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return preflightError(name, err)
	}
	if !hasEntryPoint(module, entry, stage) {
		return fmt.Errorf("%w: missing @%s entry point %q", upscaler.ErrShaderCompile, name, entry)
	}
	if _, err := naga.Compile(src); err != nil {
		return preflightError(name, err)
	}
	return nil
}

func hasEntryPoint(m *ir.Module, name string, stage ir.ShaderStage) bool {
	for i := range m.EntryPoints {
		if ep := &m.EntryPoints[i]; ep.Name == name && ep.Stage == stage {
			return true
		}
	}
	return false
}

func stageName(stage ir.ShaderStage) string {
	switch stage {
	case ir.StageVertex:
		return "vertex"
	case ir.StageFragment:
		return "fragment"
	}
	return fmt.Sprintf("stage(%d)", stage)
}

func preflightError(stage string, err error) error {
	if unsupportedByNaga(err) {
		logging.L().Debug("webgpu shader preflight skipped", "stage", stage, "reason", err.Error())
		return nil
	}
	return fmt.Errorf("%w: %s shader: %v", upscaler.ErrShaderCompile, stage, err)
}

func unsupportedByNaga(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported")
}
