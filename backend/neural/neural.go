// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package neural provides the ONNX model upscaling backend.
//
// The model must take one [1,3,S,S] float32 input and produce one
// [1,3,O,O] output; its scale factor is O/S. Models are checked when the
// backend is created:
//   - wrong rank, batch, channel count or symbolic dims: upscale.ErrIncompatibleModel
//   - height differs from width: upscale.ErrUnsquareModelIO
//
// Loaded images must be S x S (upscale.ErrResolutionMismatch otherwise).
// Pixels are fed in BGR plane order scaled to [0, 1] unless configured
// otherwise; the output is always RGB.
//
// Example:
//
//	b, err := neural.New("realesr-x4.onnx", neural.WithChannelOrder(neural.RGB))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Load(img); err != nil {
//	    log.Fatal(err)
//	}
//	out, err := b.Upscale()
package neural

import (
	"github.com/born-ml/upscale"
	internalneural "github.com/born-ml/upscale/internal/backend/neural"
	"github.com/born-ml/upscale/onnx"
)

// Backend is the ONNX upscaler.
type Backend = internalneural.Backend

// Option configures a Backend.
type Option = internalneural.Option

// ChannelOrder is the plane order of the model tensors.
type ChannelOrder = internalneural.ChannelOrder

// Channel orders.
const (
	BGR = internalneural.BGR
	RGB = internalneural.RGB
)

// Compile-time check that Backend implements upscale.Upscaler.
var _ upscale.Upscaler = (*Backend)(nil)

// New loads and validates the ONNX model at modelPath.
func New(modelPath string, opts ...Option) (*Backend, error) {
	return internalneural.New(modelPath, opts...)
}

// NewFromSession wraps a session returned by onnx.Load.
func NewFromSession(sess *onnx.Session, opts ...Option) (*Backend, error) {
	return internalneural.NewFromSession(sess, opts...)
}

// WithChannelOrder sets the plane order of the model tensors.
func WithChannelOrder(o ChannelOrder) Option {
	return internalneural.WithChannelOrder(o)
}

// ParseChannelOrder parses "bgr" or "rgb".
func ParseChannelOrder(s string) (ChannelOrder, error) {
	return internalneural.ParseChannelOrder(s)
}

// WithValueRange maps pixel values 0 and 255 to lo and hi.
func WithValueRange(lo, hi float32) Option {
	return internalneural.WithValueRange(lo, hi)
}

// WithLoadOptions replaces the options New loads the model with.
func WithLoadOptions(o onnx.LoadOptions) Option {
	return internalneural.WithLoadOptions(o)
}
