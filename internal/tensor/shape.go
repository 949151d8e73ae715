package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Strides returns row-major strides: stride[i] is the product of all
// dimensions after i.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Broadcast returns the NumPy-style broadcast of a and b.
//
// Shapes are aligned from the right; a missing dimension counts as 1 and a
// dimension of 1 stretches to match the other side.
//
//	(3, 1) + (3, 5) → (3, 5)
//	(64, 1, 1) + (1, 64, 8, 8) → (1, 64, 8, 8)
//	(3, 4) + (3, 5) → error
func Broadcast(a, b Shape) (Shape, error) {
	n := max(len(a), len(b))
	out := make(Shape, n)
	for i := 0; i < n; i++ {
		ad, bd := 1, 1
		if j := len(a) - 1 - i; j >= 0 {
			ad = a[j]
		}
		if j := len(b) - 1 - i; j >= 0 {
			bd = b[j]
		}
		switch {
		case ad == bd, bd == 1:
			out[n-1-i] = ad
		case ad == 1:
			out[n-1-i] = bd
		default:
			return nil, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, n-1-i, ad, bd)
		}
	}
	return out, nil
}

// broadcastStrides returns strides for reading a tensor of shape s as if it
// had shape to. Stretched dimensions get stride 0.
func broadcastStrides(s, to Shape) []int {
	strides := make([]int, len(to))
	src := s.Strides()
	off := len(to) - len(s)
	for i := range s {
		if s[i] != 1 {
			strides[off+i] = src[i]
		}
	}
	return strides
}
