// Package tensor provides the dense float32 tensor the ONNX runtime computes with.
//
// Data is stored row-major and contiguous. Integer tensors from a model
// (shapes, pads, axes) are converted to float32 on load; their values are
// small enough to be represented exactly.
package tensor

import (
	"fmt"
)

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	shape Shape
	data  []float32
}

// New wraps data as a tensor of the given shape. data is not copied.
func New(shape Shape, data []float32) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("tensor: shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &Tensor{shape: shape.Clone(), data: data}, nil
}

// Zeros allocates a zero-filled tensor.
func Zeros(shape ...int) *Tensor {
	s := Shape(shape).Clone()
	return &Tensor{shape: s, data: make([]float32, s.NumElements())}
}

// Empty returns a rank-1 tensor with no elements, the value ONNX uses for
// omitted optional inputs such as unused Resize scales.
func Empty() *Tensor {
	return &Tensor{shape: Shape{0}}
}

// Scalar returns a rank-0 tensor holding v.
func Scalar(v float32) *Tensor {
	return &Tensor{shape: Shape{}, data: []float32{v}}
}

// FromInt64 converts integer values to a float32 tensor.
func FromInt64(shape Shape, values []int64) (*Tensor, error) {
	data := make([]float32, len(values))
	for i, v := range values {
		data[i] = float32(v)
	}
	return New(shape, data)
}

// Shape returns the tensor dimensions. Callers must not modify it.
func (t *Tensor) Shape() Shape { return t.shape }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns the backing slice.
func (t *Tensor) Data() []float32 { return t.data }

// Int64s returns the elements converted to int64.
func (t *Tensor) Int64s() []int64 {
	out := make([]int64, len(t.data))
	for i, v := range t.data {
		out[i] = int64(v)
	}
	return out
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// Reshape returns a tensor sharing t's data with a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	s := Shape(shape)
	if s.NumElements() != len(t.data) {
		return nil, fmt.Errorf("tensor: cannot reshape %v to %v", t.shape, s)
	}
	return &Tensor{shape: s.Clone(), data: t.data}, nil
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d, tensor rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, s := range t.shape.Strides() {
		if idx[i] < 0 || idx[i] >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off += idx[i] * s
	}
	return off
}

// At returns the element at idx. It panics on a bad index.
func (t *Tensor) At(idx ...int) float32 {
	return t.data[t.offset(idx)]
}

// Set stores v at idx. It panics on a bad index.
func (t *Tensor) Set(v float32, idx ...int) {
	t.data[t.offset(idx)] = v
}

// String returns a short description for logs and errors.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", []int(t.shape))
}

// BroadcastTo materialises t with the given shape.
func (t *Tensor) BroadcastTo(shape Shape) (*Tensor, error) {
	if t.shape.Equal(shape) {
		return t, nil
	}
	if s, err := Broadcast(t.shape, shape); err != nil || !s.Equal(shape) {
		return nil, fmt.Errorf("tensor: cannot broadcast %v to %v", t.shape, shape)
	}
	out := Zeros(shape...)
	src := broadcastStrides(t.shape, shape)
	Walk(shape, func(i int, idx []int) {
		off := 0
		for d, s := range src {
			off += idx[d] * s
		}
		out.data[i] = t.data[off]
	})
	return out, nil
}

// Walk calls fn for every index of shape in row-major order. idx is reused
// between calls.
func Walk(shape Shape, fn func(i int, idx []int)) {
	n := shape.NumElements()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		fn(i, idx)
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
}
