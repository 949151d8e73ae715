// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float32 tensors exchanged with ONNX
// sessions.
//
// # Overview
//
// Tensors are row-major with a fixed [Shape]. Data is not copied on
// construction, so a tensor can wrap a caller-owned buffer and be reused
// between inference runs.
//
// # Basic Usage
//
//	import "github.com/born-ml/upscale/tensor"
//
//	func main() {
//	    x := tensor.Zeros(1, 3, 64, 64)
//	    x.Set(0.5, 0, 0, 10, 10)
//
//	    y, err := tensor.New(tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(y.At(1, 0)) // 3
//	}
package tensor
