// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package upscale

import (
	"image"
	"log/slog"

	"github.com/born-ml/upscale/internal/logging"
	"github.com/born-ml/upscale/internal/upscaler"
)

// Upscaler is implemented by every backend.
type Upscaler = upscaler.Upscaler

// Image is an owned, tightly packed 8-bit square or rectangular image.
type Image = upscaler.Image

// Layout is the channel layout of an Image.
type Layout = upscaler.Layout

// Image layouts.
const (
	RGB  = upscaler.RGB
	RGBA = upscaler.RGBA
)

// ShapeError describes why an ONNX model was rejected.
type ShapeError = upscaler.ShapeError

// Errors returned by the backends. Test for them with errors.Is.
var (
	ErrUnsquareImage      = upscaler.ErrUnsquareImage
	ErrInvalidScaleFactor = upscaler.ErrInvalidScaleFactor
	ErrMalformedOutput    = upscaler.ErrMalformedOutput

	ErrDeviceUnavailable = upscaler.ErrDeviceUnavailable
	ErrShaderCompile     = upscaler.ErrShaderCompile
	ErrBufferMap         = upscaler.ErrBufferMap
	ErrReleased          = upscaler.ErrReleased

	ErrIncompatibleModel  = upscaler.ErrIncompatibleModel
	ErrUnsquareModelIO    = upscaler.ErrUnsquareModelIO
	ErrResolutionMismatch = upscaler.ErrResolutionMismatch
)

// NewImage allocates a zeroed image.
func NewImage(width, height int, layout Layout) *Image {
	return upscaler.NewImage(width, height, layout)
}

// FromPix wraps a tightly packed pixel buffer without copying it.
func FromPix(width, height int, layout Layout, pix []uint8) (*Image, error) {
	return upscaler.FromPix(width, height, layout, pix)
}

// FromImage converts a standard library image. Opaque images become RGB.
func FromImage(img image.Image) *Image {
	return upscaler.FromImage(img)
}

// TargetResolution returns floor(original * factor).
func TargetResolution(original int, factor float32) int {
	return upscaler.TargetResolution(original, factor)
}

// SetLogger installs the logger used by every package of the module.
// Passing nil silences logging again.
//
// Example:
//
//	upscale.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
//	    &slog.HandlerOptions{Level: slog.LevelDebug})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the logger installed with SetLogger.
func Logger() *slog.Logger {
	return logging.L()
}
