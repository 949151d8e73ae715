package neural

import (
	"fmt"

	"github.com/born-ml/upscale/internal/onnx"
)

// ChannelOrder is the order of color planes in the model's input and
// output tensors.
type ChannelOrder int

const (
	// BGR puts blue in plane 0, the convention of OpenCV-trained models.
	BGR ChannelOrder = iota
	// RGB puts red in plane 0.
	RGB
)

// String returns "bgr" or "rgb".
func (o ChannelOrder) String() string {
	switch o {
	case BGR:
		return "bgr"
	case RGB:
		return "rgb"
	default:
		return fmt.Sprintf("ChannelOrder(%d)", int(o))
	}
}

// ParseChannelOrder parses "bgr" or "rgb".
func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch s {
	case "bgr", "BGR", "":
		return BGR, nil
	case "rgb", "RGB":
		return RGB, nil
	}
	return 0, fmt.Errorf("neural: unknown channel order %q", s)
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	order  ChannelOrder
	lo, hi float32
	load   onnx.LoadOptions
}

func defaultOptions() options {
	return options{
		order: BGR,
		lo:    0,
		hi:    1,
		load:  onnx.DefaultLoadOptions(),
	}
}

// WithChannelOrder sets the plane order of the model tensors.
func WithChannelOrder(o ChannelOrder) Option {
	return func(opts *options) { opts.order = o }
}

// WithValueRange maps pixel value 0 to lo and 255 to hi in both directions.
// The default range is [0, 1].
func WithValueRange(lo, hi float32) Option {
	return func(opts *options) { opts.lo, opts.hi = lo, hi }
}

// WithLoadOptions replaces the ONNX load options used by New.
func WithLoadOptions(lo onnx.LoadOptions) Option {
	return func(opts *options) { opts.load = lo }
}
