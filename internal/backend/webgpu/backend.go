// Package webgpu implements the GPU upscaling backend.
//
// The loaded image is uploaded to a texture and drawn into a larger render
// target by a single full-screen triangle. The fragment shader decides how
// texels are interpolated; the result is copied into a mappable buffer and
// read back.
package webgpu

import (
	"fmt"
	"os"

	"github.com/born-ml/upscale/internal/logging"
	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
)

// DefaultResolution is the side of the blank image New starts with.
const DefaultResolution = 512

// Option configures a Backend.
type Option func(*options)

type options struct {
	power wgpu.PowerPreference
	clear wgpu.Color
	label string
}

func defaultOptions() options {
	return options{
		power: wgpu.PowerPreferenceHighPerformance,
		clear: wgpu.Color{R: 0, G: 1, B: 0, A: 1},
		label: "upscale",
	}
}

// WithPowerPreference selects the adapter power preference.
func WithPowerPreference(p wgpu.PowerPreference) Option {
	return func(o *options) { o.power = p }
}

// ParsePowerPreference parses "high-performance" or "low-power".
func ParsePowerPreference(s string) (wgpu.PowerPreference, error) {
	switch s {
	case "high-performance", "":
		return wgpu.PowerPreferenceHighPerformance, nil
	case "low-power":
		return wgpu.PowerPreferenceLowPower, nil
	}
	return 0, fmt.Errorf("webgpu: unknown power preference %q", s)
}

// WithClearColor sets the color the render target is cleared to before
// drawing. Channels are in [0, 1].
func WithClearColor(r, g, b, a float64) Option {
	return func(o *options) { o.clear = wgpu.Color{R: r, G: g, B: b, A: a} }
}

// WithLabel prefixes the debug labels of every GPU object.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// Backend upscales square images with a WGSL fragment shader.
// It is not safe for concurrent use. Call Release when done.
type Backend struct {
	gpu  *gpu
	pipe *pipeline
	in   *inputSet
	out  *outputSet

	image    *upscaler.Image
	upscaled *upscaler.Image
	factor   float32
	clear    wgpu.Color
	label    string
	state    state
}

// Compile-time check that Backend implements upscaler.Upscaler.
var _ upscaler.Upscaler = (*Backend)(nil)

// New creates a backend with a blank DefaultResolution square image loaded,
// reading the fragment shader from shaderPath.
func New(shaderPath string, factor float32, opts ...Option) (*Backend, error) {
	img := upscaler.NewImage(DefaultResolution, DefaultResolution, upscaler.RGBA)
	return NewFromImage(shaderPath, img, factor, opts...)
}

// NewFromImage creates a backend with img loaded, reading the fragment
// shader from shaderPath.
func NewFromImage(shaderPath string, img *upscaler.Image, factor float32, opts ...Option) (*Backend, error) {
	src, err := os.ReadFile(shaderPath)
	if err != nil {
		return nil, fmt.Errorf("webgpu: read shader: %w", err)
	}
	return NewFromSource(string(src), img, factor, opts...)
}

// NewFromSource creates a backend with img loaded and the given fragment
// shader source. The shader must define `@fragment fn main` and bind a
// texture_2d<f32> at binding 0 and a sampler at binding 1 of group 0.
func NewFromSource(fragmentWGSL string, img *upscaler.Image, factor float32, opts ...Option) (b *Backend, err error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := img.CheckSquare(); err != nil {
		return nil, err
	}
	target, err := upscaler.CheckFactor(img.Width, factor)
	if err != nil {
		return nil, fmt.Errorf("webgpu: %w", err)
	}

	g, err := acquire(o.power)
	if err != nil {
		return nil, err
	}
	logging.L().Info("webgpu adapter selected", "adapter", g.name())

	b = &Backend{
		gpu:    g,
		factor: factor,
		clear:  o.clear,
		label:  o.label,
		state:  stateUninitialized,
	}
	defer func() {
		if err != nil {
			b.Release()
			b = nil
		}
	}()

	if err = ValidateFragmentShader(fragmentWGSL); err != nil {
		return b, fmt.Errorf("webgpu: %w", err)
	}
	if err = validateWGSL(vertexShader, vertexEntryPoint, ir.StageVertex); err != nil {
		return b, fmt.Errorf("webgpu: %w", err)
	}
	if b.pipe, err = newPipeline(g.device, o.label, fragmentWGSL); err != nil {
		return b, err
	}
	if b.out, err = newOutputSet(g.device, o.label, target); err != nil {
		return b, err
	}
	if b.in, err = newInputSet(g.device, g.queue, b.pipe, o.label, img); err != nil {
		return b, err
	}
	b.image = img.Clone()
	b.upscaled = upscaler.NewImage(target, target, upscaler.RGBA)
	b.setState(stateReady)

	logging.L().Debug("webgpu backend ready",
		"input", img.Width, "output", target,
		"row_pitch", b.out.dims.paddedBytesPerRow, "staging_bytes", b.out.dims.size())
	return b, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "WebGPU"
}

// AdapterName returns the selected adapter's name and vendor.
func (b *Backend) AdapterName() string {
	if b.gpu == nil {
		return ""
	}
	return b.gpu.name()
}

// Load uploads img into a new input texture. The output texture and staging
// buffer are reallocated only if the target resolution changes.
func (b *Backend) Load(img *upscaler.Image) error {
	if b.state == stateReleased {
		return upscaler.ErrReleased
	}
	if err := img.CheckSquare(); err != nil {
		return err
	}
	target, err := upscaler.CheckFactor(img.Width, b.factor)
	if err != nil {
		return fmt.Errorf("webgpu: %w", err)
	}

	in, err := newInputSet(b.gpu.device, b.gpu.queue, b.pipe, b.label, img)
	if err != nil {
		return err
	}
	if target != b.out.dims.width {
		out, err := newOutputSet(b.gpu.device, b.label, target)
		if err != nil {
			in.release()
			return err
		}
		b.out.release()
		b.out = out
		b.upscaled = upscaler.NewImage(target, target, upscaler.RGBA)
		logging.L().Debug("webgpu output reallocated", "side", target, "row_pitch", out.dims.paddedBytesPerRow)
	}
	b.in.release()
	b.in = in
	b.image = img.Clone()
	return nil
}

// Upscale renders the loaded image and returns the result as a new RGBA
// image of UpscaledResolution.
func (b *Backend) Upscale() (*upscaler.Image, error) {
	if b.state == stateReleased {
		return nil, upscaler.ErrReleased
	}
	if err := b.encodeAndSubmit(); err != nil {
		b.setState(stateReady)
		return nil, err
	}
	return b.readback()
}

// UpscaleInPlace upscales into the backend's output slot.
func (b *Backend) UpscaleInPlace() (*upscaler.Image, error) {
	out, err := b.Upscale()
	if err != nil {
		return nil, err
	}
	b.upscaled = out
	return b.upscaled, nil
}

// UpscaleRepeat runs UpscaleInPlace n times against the loaded image.
func (b *Backend) UpscaleRepeat(n int) (*upscaler.Image, error) {
	return upscaler.Repeat(b, n, b.upscaled)
}

// Upscaled returns the last in-place result.
func (b *Backend) Upscaled() *upscaler.Image {
	return b.upscaled
}

// Factor returns the scale factor.
func (b *Backend) Factor() float32 {
	return b.factor
}

// OriginalResolution returns the side of the loaded image.
func (b *Backend) OriginalResolution() int {
	return b.image.Width
}

// UpscaledResolution returns floor(OriginalResolution * Factor).
func (b *Backend) UpscaledResolution() int {
	return upscaler.TargetResolution(b.OriginalResolution(), b.factor)
}

// Release frees every GPU object in reverse order of creation.
// It is safe to call more than once.
func (b *Backend) Release() {
	if b.state == stateReleased {
		return
	}
	b.in.release()
	b.out.release()
	b.pipe.release()
	if b.gpu != nil {
		b.gpu.release()
	}
	b.in, b.out, b.pipe, b.gpu = nil, nil, nil, nil
	b.setState(stateReleased)
}
