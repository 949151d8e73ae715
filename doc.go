// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package upscale enlarges square images with interchangeable backends.
//
// Three backends implement the [Upscaler] contract:
//   - backend/cpu: separable resampling filters (nearest to Lanczos)
//   - backend/webgpu: a WGSL fragment shader drawn into a larger render target
//   - backend/neural: an ONNX super-resolution model run on the CPU
//
// Every backend owns its output buffers. Load an image once and call
// Upscale, UpscaleInPlace or UpscaleRepeat as often as needed.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/upscale"
//	    "github.com/born-ml/upscale/backend/cpu"
//	)
//
//	func main() {
//	    b, err := cpu.New(2.0, cpu.CatmullRom)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    img := upscale.NewImage(256, 256, upscale.RGB)
//	    if err := b.Load(img); err != nil {
//	        log.Fatal(err)
//	    }
//	    out, err := b.Upscale() // 512x512
//	}
//
// # Errors
//
// Failures are reported with sentinel errors that can be tested with
// errors.Is, for example [ErrUnsquareImage] or [ErrIncompatibleModel].
// Model validation failures also carry a [*ShapeError] naming the
// offending tensor.
//
// # Logging
//
// The module is silent by default. Install a *slog.Logger with
// [SetLogger] to see adapter selection, model loading and pipeline
// state transitions.
//
// # Thread Safety
//
// A backend instance is not safe for concurrent use. Separate instances
// share no state and may run on different goroutines.
package upscale
