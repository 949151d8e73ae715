// Package cpu implements the filter-based CPU upscaling backend.
//
// Resampling is delegated to bild's separable convolution resizer; this
// package owns image bookkeeping and the upscale contract.
package cpu

import (
	"fmt"

	"github.com/anthonynsimon/bild/transform"
	"github.com/born-ml/upscale/internal/logging"
	"github.com/born-ml/upscale/internal/upscaler"
)

// DefaultResolution is the side of the blank image a new backend starts with.
const DefaultResolution = 512

// DefaultFactor is the scale factor used by NewDefault.
const DefaultFactor = 2.0

// Backend upscales square images on the CPU with a resampling filter.
// It is not safe for concurrent use.
type Backend struct {
	image    *upscaler.Image
	upscaled *upscaler.Image
	filter   Filter
	kernel   transform.ResampleFilter
	factor   float32
}

// Compile-time check that Backend implements upscaler.Upscaler.
var _ upscaler.Upscaler = (*Backend)(nil)

// New creates a CPU backend with the given scale factor and filter.
// The backend starts with a blank DefaultResolution square RGB image loaded.
func New(factor float32, filter Filter) (*Backend, error) {
	kernel, err := filter.kernel()
	if err != nil {
		return nil, err
	}
	target, err := upscaler.CheckFactor(DefaultResolution, factor)
	if err != nil {
		return nil, fmt.Errorf("cpu: %w", err)
	}
	return &Backend{
		image:    upscaler.NewImage(DefaultResolution, DefaultResolution, upscaler.RGB),
		upscaled: upscaler.NewImage(target, target, upscaler.RGB),
		filter:   filter,
		kernel:   kernel,
		factor:   factor,
	}, nil
}

// NewDefault creates a nearest-neighbour backend with DefaultFactor.
func NewDefault() *Backend {
	b, err := New(DefaultFactor, Nearest)
	if err != nil {
		panic("cpu: default backend: " + err.Error())
	}
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "CPU (" + b.filter.String() + ")"
}

// Filter returns the resampling filter.
func (b *Backend) Filter() Filter {
	return b.filter
}

// Load stores a copy of img for upcoming upscales.
func (b *Backend) Load(img *upscaler.Image) error {
	if err := img.CheckSquare(); err != nil {
		return err
	}
	if _, err := upscaler.CheckFactor(img.Width, b.factor); err != nil {
		return fmt.Errorf("cpu: %w", err)
	}
	b.image = img.Clone()
	return nil
}

// Upscale resamples the loaded image to UpscaledResolution and returns it
// in the loaded image's channel layout.
func (b *Backend) Upscale() (*upscaler.Image, error) {
	side := b.UpscaledResolution()
	logging.L().Debug("cpu upscale", "filter", b.filter.String(), "from", b.image.Width, "to", side)

	resized := transform.Resize(b.image.ToStd(), side, side, b.kernel)
	out := upscaler.FromImage(resized).ToLayout(b.image.Layout)
	if out.Width != side || out.Height != side {
		return nil, fmt.Errorf("cpu: %w: resized to %dx%d, want %dx%d",
			upscaler.ErrMalformedOutput, out.Width, out.Height, side, side)
	}
	return out, nil
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
