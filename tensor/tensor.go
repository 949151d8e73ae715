// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	internaltensor "github.com/born-ml/upscale/internal/tensor"
)

// Shape is a list of dimension sizes.
type Shape = internaltensor.Shape

// Tensor is a dense float32 tensor.
type Tensor = internaltensor.Tensor

// New wraps data as a tensor of the given shape without copying it.
func New(shape Shape, data []float32) (*Tensor, error) {
	return internaltensor.New(shape, data)
}

// Zeros allocates a zero-filled tensor.
func Zeros(shape ...int) *Tensor {
	return internaltensor.Zeros(shape...)
}

// Scalar returns a rank-0 tensor.
func Scalar(v float32) *Tensor {
	return internaltensor.Scalar(v)
}

// Broadcast returns the NumPy broadcast of two shapes.
func Broadcast(a, b Shape) (Shape, error) {
	return internaltensor.Broadcast(a, b)
}
