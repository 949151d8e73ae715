// Package neural implements the ONNX model upscaling backend.
//
// A model takes one [1,3,S,S] float image tensor and produces one
// [1,3,O,O] tensor. The scale factor is O/S and is fixed by the model.
package neural

import (
	"fmt"

	"github.com/born-ml/upscale/internal/logging"
	"github.com/born-ml/upscale/internal/onnx"
	"github.com/born-ml/upscale/internal/tensor"
	"github.com/born-ml/upscale/internal/upscaler"
)

// Backend upscales square images with an ONNX model on the CPU.
// It is not safe for concurrent use.
type Backend struct {
	session  *onnx.Session
	input    *tensor.Tensor
	image    *upscaler.Image
	upscaled *upscaler.Image
	inSide   int
	outSide  int
	opts     options
}

// Compile-time check that Backend implements upscaler.Upscaler.
var _ upscaler.Upscaler = (*Backend)(nil)

// New loads the ONNX model at modelPath and validates its input and output.
func New(modelPath string, opts ...Option) (*Backend, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	sess, err := onnx.Load(modelPath, o.load)
	if err != nil {
		return nil, fmt.Errorf("neural: %w", err)
	}
	logging.L().Info("onnx model loaded", "path", modelPath, "opset", sess.OpsetVersion())
	return newBackend(sess, o)
}

// NewFromSession wraps an already compiled session.
func NewFromSession(sess *onnx.Session, opts ...Option) (*Backend, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newBackend(sess, o)
}

func newBackend(sess *onnx.Session, o options) (*Backend, error) {
	if o.hi == o.lo {
		return nil, fmt.Errorf("neural: empty value range [%v, %v]", o.lo, o.hi)
	}
	inSide, outSide, err := ioSides(sess.Input(), sess.Output())
	if err != nil {
		return nil, fmt.Errorf("neural: %w", err)
	}
	b := &Backend{
		session:  sess,
		input:    tensor.Zeros(1, imageChannels, inSide, inSide),
		image:    upscaler.NewImage(inSide, inSide, upscaler.RGB),
		upscaled: upscaler.NewImage(outSide, outSide, upscaler.RGB),
		inSide:   inSide,
		outSide:  outSide,
		opts:     o,
	}
	logging.L().Debug("neural backend ready",
		"input", sess.InputNames(), "in", inSide, "out", outSide,
		"factor", b.Factor(), "order", o.order)
	return b, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "Neural (ONNX)"
}

// Session returns the compiled model.
func (b *Backend) Session() *onnx.Session {
	return b.session
}

// Load stores a copy of img for upcoming upscales. Its side must equal the
// model input side.
func (b *Backend) Load(img *upscaler.Image) error {
	if err := img.CheckSquare(); err != nil {
		return err
	}
	if img.Width != b.inSide {
		return fmt.Errorf("neural: %w: got %d, model takes %d",
			upscaler.ErrResolutionMismatch, img.Width, b.inSide)
	}
	b.image = img.Clone()
	return nil
}

// Upscale runs the model once on the loaded image.
func (b *Backend) Upscale() (*upscaler.Image, error) {
	pack(b.input, b.image, b.opts.order, b.opts.lo, b.opts.hi)
	out, err := b.session.Run(b.input)
	if err != nil {
		return nil, fmt.Errorf("neural: inference: %w", err)
	}
	return unpack(out, b.outSide, b.opts.order, b.opts.lo, b.opts.hi)
}

// UpscaleInPlace upscales into the backend's output slot.
func (b *Backend) UpscaleInPlace() (*upscaler.Image, error) {
	img, err := b.Upscale()
	if err != nil {
		return nil, err
	}
	b.upscaled = img
	return b.upscaled, nil
}

// UpscaleRepeat runs UpscaleInPlace n times.
func (b *Backend) UpscaleRepeat(n int) (*upscaler.Image, error) {
	return upscaler.Repeat(b, n, b.upscaled)
}

// Upscaled returns the most recent in-place result.
func (b *Backend) Upscaled() *upscaler.Image {
	return b.upscaled
}

// Factor returns outSide / inSide.
func (b *Backend) Factor() float32 {
	return float32(b.outSide) / float32(b.inSide)
}

// OriginalResolution returns the model input side.
func (b *Backend) OriginalResolution() int {
	return b.inSide
}

// UpscaledResolution returns the model output side.
func (b *Backend) UpscaledResolution() int {
	return b.outSide
}
