// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the GPU upscaling backend.
//
// The image is uploaded to a texture and drawn into a render target of
// the upscaled size by a WGSL fragment shader. Shaders take the texture at
// @group(0) @binding(0) and a sampler at @group(0) @binding(1), and define
// `@fragment fn main`. See the shaders package for ready-made ones.
//
// WebGPU runs on:
//   - Windows (D3D12, Vulkan)
//   - macOS (Metal)
//   - Linux (Vulkan)
//
// Example:
//
//	import (
//	    "github.com/born-ml/upscale/backend/webgpu"
//	    "github.com/born-ml/upscale/shaders"
//	)
//
//	func main() {
//	    b, err := webgpu.NewFromSource(shaders.MustSource(shaders.CatmullRom), img, 2.0)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer b.Release()
//
//	    out, err := b.Upscale() // RGBA
//	}
package webgpu

import (
	"github.com/born-ml/upscale"
	internalwebgpu "github.com/born-ml/upscale/internal/backend/webgpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Backend is the GPU pipeline upscaler. Call Release when done.
type Backend = internalwebgpu.Backend

// Option configures a Backend.
type Option = internalwebgpu.Option

// DefaultResolution is the side of the blank image New starts with.
const DefaultResolution = internalwebgpu.DefaultResolution

// Compile-time check that Backend implements upscale.Upscaler.
var _ upscale.Upscaler = (*Backend)(nil)

// New creates a backend with a blank image loaded, reading the fragment
// shader from shaderPath.
func New(shaderPath string, factor float32, opts ...Option) (*Backend, error) {
	return internalwebgpu.New(shaderPath, factor, opts...)
}

// NewFromImage creates a backend with img loaded, reading the fragment
// shader from shaderPath.
func NewFromImage(shaderPath string, img *upscale.Image, factor float32, opts ...Option) (*Backend, error) {
	return internalwebgpu.NewFromImage(shaderPath, img, factor, opts...)
}

// NewFromSource creates a backend from WGSL fragment shader source.
//
// Returns upscale.ErrDeviceUnavailable when no adapter can be acquired and
// upscale.ErrShaderCompile when the shader is rejected.
func NewFromSource(fragmentWGSL string, img *upscale.Image, factor float32, opts ...Option) (*Backend, error) {
	return internalwebgpu.NewFromSource(fragmentWGSL, img, factor, opts...)
}

// WithPowerPreference selects a high-performance or low-power adapter.
func WithPowerPreference(p wgpu.PowerPreference) Option {
	return internalwebgpu.WithPowerPreference(p)
}

// ParsePowerPreference parses "high-performance" or "low-power".
func ParsePowerPreference(s string) (wgpu.PowerPreference, error) {
	return internalwebgpu.ParsePowerPreference(s)
}

// WithClearColor sets the color the render target is cleared to.
func WithClearColor(r, g, b, a float64) Option {
	return internalwebgpu.WithClearColor(r, g, b, a)
}

// WithLabel prefixes the debug labels of GPU objects.
func WithLabel(label string) Option {
	return internalwebgpu.WithLabel(label)
}

// ValidateFragmentShader checks WGSL source without a GPU.
func ValidateFragmentShader(src string) error {
	return internalwebgpu.ValidateFragmentShader(src)
}

// IsAvailable checks if a WebGPU adapter and device can be acquired.
//
// Example:
//
//	var b upscale.Upscaler
//	if webgpu.IsAvailable() {
//	    b, err = webgpu.NewFromSource(src, img, 2)
//	} else {
//	    b, err = cpu.New(2, cpu.Linear)
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
