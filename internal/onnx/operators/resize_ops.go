package operators

import (
	"fmt"

	"github.com/born-ml/upscale/internal/tensor"
	"github.com/chewxy/math32"
)

func (r *Registry) registerResizeOps() {
	r.Register("Resize", handleResize)
	r.Register("Upsample", handleUpsample)
}

// handleResize implements nearest-neighbour Resize.
// Inputs: X, roi (ignored), scales, sizes. Opset 10 passes scales second.
func handleResize(_ *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("resize", inputs, 1); err != nil {
		return nil, err
	}
	var scales, sizes *tensor.Tensor
	switch {
	case len(inputs) == 2:
		scales = inputs[1]
	default:
		scales, sizes = optionalInput(inputs, 2), optionalInput(inputs, 3)
	}
	r := resizer{
		coord:   GetAttrString(node, "coordinate_transformation_mode", "half_pixel"),
		nearest: GetAttrString(node, "nearest_mode", "round_prefer_floor"),
	}
	if mode := GetAttrString(node, "mode", "nearest"); mode != "nearest" {
		return nil, fmt.Errorf("resize: unsupported mode %q", mode)
	}
	out, err := r.run(inputs[0], scales, sizes)
	if err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}
	return one(out), nil
}

// handleUpsample is the pre-opset-10 form: scales as attribute (opset 7)
// or second input (opset 9), asymmetric coordinates, floor rounding.
func handleUpsample(_ *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("upsample", inputs, 1); err != nil {
		return nil, err
	}
	if mode := GetAttrString(node, "mode", "nearest"); mode != "nearest" {
		return nil, fmt.Errorf("upsample: unsupported mode %q", mode)
	}
	scales := optionalInput(inputs, 1)
	if scales == nil {
		attr := GetAttrFloats(node, "scales")
		if len(attr) == 0 {
			return nil, fmt.Errorf("upsample: no scales")
		}
		var err error
		if scales, err = tensor.New(tensor.Shape{len(attr)}, attr); err != nil {
			return nil, err
		}
	}
	r := resizer{coord: "asymmetric", nearest: "floor"}
	out, err := r.run(inputs[0], scales, nil)
	if err != nil {
		return nil, fmt.Errorf("upsample: %w", err)
	}
	return one(out), nil
}

type resizer struct {
	coord   string
	nearest string
}

func (r resizer) run(x, scales, sizes *tensor.Tensor) (*tensor.Tensor, error) {
	in := x.Shape()
	rank := len(in)
	shape := make(tensor.Shape, rank)
	scale := make([]float32, rank)

	switch {
	case sizes != nil && sizes.Len() > 0:
		if sizes.Len() != rank {
			return nil, fmt.Errorf("%d sizes for rank %d", sizes.Len(), rank)
		}
		for d, s := range sizes.Int64s() {
			shape[d] = int(s)
			scale[d] = float32(s) / float32(in[d])
		}
	case scales != nil && scales.Len() > 0:
		if scales.Len() != rank {
			return nil, fmt.Errorf("%d scales for rank %d", scales.Len(), rank)
		}
		for d, s := range scales.Data() {
			if s <= 0 {
				return nil, fmt.Errorf("scale %v on axis %d must be > 0", s, d)
			}
			scale[d] = s
			shape[d] = int(math32.Floor(float32(in[d]) * s))
		}
	default:
		return nil, fmt.Errorf("neither scales nor sizes given")
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	// Source index per output coordinate, per axis.
	maps := make([][]int, rank)
	for d := 0; d < rank; d++ {
		maps[d] = make([]int, shape[d])
		for o := range maps[d] {
			src, err := r.source(o, in[d], shape[d], scale[d])
			if err != nil {
				return nil, err
			}
			maps[d][o] = src
		}
	}

	out := tensor.Zeros(shape...)
	src, dst := x.Data(), out.Data()
	strides := in.Strides()
	tensor.Walk(shape, func(i int, idx []int) {
		off := 0
		for d, o := range idx {
			off += maps[d][o] * strides[d]
		}
		dst[i] = src[off]
	})
	return out, nil
}

// source maps an output coordinate to the nearest input coordinate.
func (r resizer) source(o, inLen, outLen int, scale float32) (int, error) {
	var x float32
	fo := float32(o)
	switch r.coord {
	case "half_pixel":
		x = (fo+0.5)/scale - 0.5
	case "pytorch_half_pixel":
		if outLen > 1 {
			x = (fo+0.5)/scale - 0.5
		}
	case "asymmetric":
		x = fo / scale
	case "tf_half_pixel_for_nn":
		x = (fo + 0.5) / scale
	case "align_corners":
		if outLen > 1 {
			x = fo * float32(inLen-1) / float32(outLen-1)
		}
	default:
		return 0, fmt.Errorf("unsupported coordinate_transformation_mode %q", r.coord)
	}

	var i float32
	switch r.nearest {
	case "round_prefer_floor":
		if x-math32.Floor(x) == 0.5 {
			i = math32.Floor(x)
		} else {
			i = math32.Round(x)
		}
	case "round_prefer_ceil":
		i = math32.Round(x)
	case "floor":
		i = math32.Floor(x)
	case "ceil":
		i = math32.Ceil(x)
	default:
		return 0, fmt.Errorf("unsupported nearest_mode %q", r.nearest)
	}
	return min(max(int(i), 0), inLen-1), nil
}
