// Package upscaler defines the contract shared by every upscaling backend,
// the owned square image type they exchange, and the errors they return.
package upscaler

import (
	"fmt"
	"math"
)

// Upscaler is an allocation-efficient upscaler of square images.
//
// Implementations are not safe for concurrent use. Independent instances
// share no mutable state and may be used from different goroutines.
type Upscaler interface {
	// Load stores img for upcoming upscales, replacing the previous image.
	// It fails with ErrUnsquareImage if img is not square.
	Load(img *Image) error

	// Upscale upscales the loaded image and returns a new image of
	// UpscaledResolution() x UpscaledResolution().
	Upscale() (*Image, error)

	// UpscaleInPlace upscales the loaded image into the backend's own output
	// slot and returns it. The returned image is superseded by the next call.
	UpscaleInPlace() (*Image, error)

	// UpscaleRepeat runs UpscaleInPlace n times against the same loaded
	// image. It exists for throughput measurement, not iterative refinement.
	UpscaleRepeat(n int) (*Image, error)

	// Factor returns the ratio of output to input linear resolution.
	Factor() float32

	// OriginalResolution returns the side of the loaded image.
	OriginalResolution() int

	// UpscaledResolution returns the side of the upscaled image.
	UpscaledResolution() int
}

// TargetResolution returns the original resolution multiplied by factor,
// truncated toward zero.
func TargetResolution(original int, factor float32) int {
	return int(float32(original) * factor)
}

// CheckFactor validates factor against an original resolution and returns
// the target resolution.
func CheckFactor(original int, factor float32) (int, error) {
	f := float64(factor)
	if math.IsNaN(f) || math.IsInf(f, 0) || factor <= 0 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidScaleFactor, factor)
	}
	target := TargetResolution(original, factor)
	if target < 1 {
		return 0, fmt.Errorf("%w: %d x %v truncates to %d", ErrInvalidScaleFactor, original, factor, target)
	}
	return target, nil
}

// InPlacer is the part of Upscaler that Repeat drives.
type InPlacer interface {
	UpscaleInPlace() (*Image, error)
}

// Repeat calls u.UpscaleInPlace n times in sequence and returns the last
// result. If n <= 0 no work is done and current is returned.
func Repeat(u InPlacer, n int, current *Image) (*Image, error) {
	out := current
	for i := 0; i < n; i++ {
		var err error
		out, err = u.UpscaleInPlace()
		if err != nil {
			return nil, fmt.Errorf("repeat %d/%d: %w", i+1, n, err)
		}
	}
	return out, nil
}
