package upscaler

import (
	"errors"
	"fmt"
)

// Common errors returned by every backend.
var (
	ErrUnsquareImage      = errors.New("image width and height are not the same")
	ErrInvalidScaleFactor = errors.New("scale factor must be a finite number > 0 giving a resolution >= 1")
	ErrMalformedOutput    = errors.New("upscaled output does not match its declared dimensions")
)

// GPU backend errors.
var (
	ErrDeviceUnavailable = errors.New("no compatible graphics adapter or device")
	ErrShaderCompile     = errors.New("shader failed to compile")
	ErrBufferMap         = errors.New("staging buffer mapping failed")
	ErrReleased          = errors.New("backend resources have been released")
)

// Neural backend errors.
var (
	ErrIncompatibleModel  = errors.New("incompatible onnx model")
	ErrUnsquareModelIO    = errors.New("model io widths and heights are not the same")
	ErrResolutionMismatch = errors.New("image resolution does not match the model input")
)

// ShapeError describes which tensor of a model failed validation and why.
// It unwraps to the sentinel that classifies the failure.
type ShapeError struct {
	Tensor string  // "input" or "output"
	Name   string  // graph value name
	Dims   []int64 // dimensions as declared by the model, -1 for symbolic
	Kind   error   // ErrIncompatibleModel or ErrUnsquareModelIO
	Reason string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%v: %s %q %v: %s", e.Kind, e.Tensor, e.Name, e.Dims, e.Reason)
	}
	return fmt.Sprintf("%v: %s %v: %s", e.Kind, e.Tensor, e.Dims, e.Reason)
}

// Unwrap returns the classifying sentinel.
func (e *ShapeError) Unwrap() error {
	return e.Kind
}
