// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/upscale"
	internalcpu "github.com/born-ml/upscale/internal/backend/cpu"
)

// Backend is the CPU filter upscaler.
type Backend = internalcpu.Backend

// Filter selects the resampling kernel.
type Filter = internalcpu.Filter

// Resampling kernels.
const (
	Nearest           = internalcpu.Nearest
	Box               = internalcpu.Box
	Linear            = internalcpu.Linear
	Gaussian          = internalcpu.Gaussian
	MitchellNetravali = internalcpu.MitchellNetravali
	CatmullRom        = internalcpu.CatmullRom
	Lanczos           = internalcpu.Lanczos
)

// DefaultResolution is the side of the blank image a new Backend holds.
const DefaultResolution = internalcpu.DefaultResolution

// Compile-time check that Backend implements upscale.Upscaler.
var _ upscale.Upscaler = (*Backend)(nil)

// New creates a CPU backend.
//
// factor must be finite and > 0; it fails with upscale.ErrInvalidScaleFactor
// otherwise.
//
// Example:
//
//	b, err := cpu.New(1.5, cpu.CatmullRom)
func New(factor float32, filter Filter) (*Backend, error) {
	return internalcpu.New(factor, filter)
}

// NewDefault creates a nearest-neighbour backend with factor 2.
func NewDefault() *Backend {
	return internalcpu.NewDefault()
}

// ParseFilter parses a filter name such as "lanczos" or "bicubic".
func ParseFilter(name string) (Filter, error) {
	return internalcpu.ParseFilter(name)
}
