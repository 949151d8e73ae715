// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the filter-based CPU upscaling backend.
//
// # Overview
//
// Resampling is separable: rows and columns are convolved with a kernel
// chosen by [Filter]. Available filters, cheapest first:
//   - Nearest: replicates pixels, no new colors
//   - Box, Linear: fast, soft edges
//   - Gaussian: smooth, slightly blurred
//   - MitchellNetravali, CatmullRom: sharp bicubic kernels
//   - Lanczos: sharpest, may ring on hard edges
//
// # Basic Usage
//
//	b, err := cpu.New(2.0, cpu.Lanczos)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Load(img); err != nil { // img must be square
//	    log.Fatal(err)
//	}
//	out, err := b.Upscale()
//
// The output keeps the layout of the loaded image (RGB or RGBA).
//
// # Thread Safety
//
// A Backend is not safe for concurrent use.
package cpu
