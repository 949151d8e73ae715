// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"fmt"
	"testing"

	"github.com/born-ml/upscale/tensor"
)

func TestNewRejectsWrongLength(t *testing.T) {
	if _, err := tensor.New(tensor.Shape{2, 3}, make([]float32, 5)); err == nil {
		t.Fatal("expected error for 5 elements in a 2x3 tensor")
	}
}

func TestZerosShape(t *testing.T) {
	x := tensor.Zeros(1, 3, 4, 4)
	if got := x.Shape().NumElements(); got != 48 {
		t.Errorf("NumElements() = %d, want 48", got)
	}
	x.Set(2, 0, 2, 3, 1)
	if got := x.Data()[2*16+3*4+1]; got != 2 {
		t.Errorf("row-major offset holds %v, want 2", got)
	}
}

func ExampleBroadcast() {
	s, err := tensor.Broadcast(tensor.Shape{3, 1}, tensor.Shape{1, 4})
	fmt.Println(s, err)
	// Output: [3 4] <nil>
}
