// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package onnx loads ONNX models for the neural upscaling backend.
//
// Models are parsed from protobuf, their operators checked against the
// built-in kernels and their graph sorted once. A [Session] then runs
// inference on float32 tensors on the CPU.
//
// # Supported Features
//
//   - ONNX format parsing (protobuf wire format, no generated code)
//   - Float32 inference with float, double, int32 and int64 initializers
//   - Raw and typed tensor data
//   - Named input/output support
//
// # Example Usage
//
//	import (
//	    "github.com/born-ml/upscale/onnx"
//	    "github.com/born-ml/upscale/tensor"
//	)
//
//	sess, err := onnx.Load("espcn-x3.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := sess.Run(tensor.Zeros(1, 3, 224, 224))
//
// # Supported Operators
//
//   - Arithmetic: Add, Sub, Mul, Div (NumPy broadcasting)
//   - Activation: Relu, LeakyRelu, PRelu, Sigmoid, Tanh, Clip
//   - Convolution: Conv (groups, pads, strides, dilations, auto_pad)
//   - Shape: Concat, DepthToSpace, Pad
//   - Resampling: Resize, Upsample (nearest)
//   - Other: Constant, Identity, Dropout
//
// Use [ListSupportedOps] to get the complete list of supported operators.
package onnx

import (
	internalonnx "github.com/born-ml/upscale/internal/onnx"
)

// Session is a compiled model ready for inference.
type Session = internalonnx.Session

// LoadOptions configures ONNX model loading behavior.
type LoadOptions = internalonnx.LoadOptions

// ErrCycle is returned for graphs whose nodes depend on each other.
var ErrCycle = internalonnx.ErrCycle

// DefaultLoadOptions returns the default options for loading ONNX models.
//
// Default configuration:
//   - Strict mode: enabled (fails on unsupported operators)
//   - Parallel kernels: one worker per CPU
func DefaultLoadOptions() LoadOptions {
	return internalonnx.DefaultLoadOptions()
}

// Load loads an ONNX model from a file path.
//
// Example:
//
//	sess, err := onnx.Load("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Inputs:", sess.InputNames(), sess.InputShape())
//	fmt.Println("Opset:", sess.OpsetVersion())
//
// For custom loading options, pass LoadOptions:
//
//	opts := onnx.DefaultLoadOptions()
//	opts.StrictMode = false // report unsupported ops at Run instead
//	sess, err := onnx.Load("model.onnx", opts)
func Load(path string, opts ...LoadOptions) (*Session, error) {
	return internalonnx.Load(path, opts...)
}

// LoadFromBytes loads an ONNX model from raw bytes.
//
// This is useful when the model is embedded in the binary or loaded
// from a network source.
func LoadFromBytes(data []byte, opts ...LoadOptions) (*Session, error) {
	return internalonnx.LoadFromBytes(data, opts...)
}

// ModelInfo contains metadata about an ONNX model without loading weights.
//
// Use [GetModelInfo] to quickly inspect a model file before loading.
type ModelInfo = internalonnx.ModelInfo

// GetModelInfo extracts metadata from an ONNX file without compiling it.
//
// Example:
//
//	info, err := onnx.GetModelInfo("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Producer: %s\n", info.ProducerName)
//	fmt.Printf("Inputs: %v %v\n", info.InputNames, info.InputShapes)
//	fmt.Printf("Operators: %v\n", info.OpCounts)
func GetModelInfo(path string) (*ModelInfo, error) {
	return internalonnx.GetModelInfo(path)
}

// ListSupportedOps returns every supported ONNX operator, sorted.
func ListSupportedOps() []string {
	return internalonnx.ListSupportedOps()
}
