package operators

import (
	"fmt"

	"github.com/born-ml/upscale/internal/tensor"
	"github.com/chewxy/math32"
)

func (r *Registry) registerActivations() {
	r.Register("Relu", unaryOp("relu", func(_ *Node) func(float32) float32 {
		return func(x float32) float32 { return math32.Max(x, 0) }
	}))
	r.Register("LeakyRelu", unaryOp("leakyRelu", func(node *Node) func(float32) float32 {
		alpha := GetAttrFloat(node, "alpha", 0.01)
		return func(x float32) float32 {
			if x < 0 {
				return alpha * x
			}
			return x
		}
	}))
	r.Register("Sigmoid", unaryOp("sigmoid", func(_ *Node) func(float32) float32 {
		return func(x float32) float32 { return 1 / (1 + math32.Exp(-x)) }
	}))
	r.Register("Tanh", unaryOp("tanh", func(_ *Node) func(float32) float32 {
		return math32.Tanh
	}))
	r.Register("PRelu", handlePRelu)
	r.Register("Clip", handleClip)
}

// unaryOp builds an element-wise handler. mk is called once per node to
// read attributes.
func unaryOp(name string, mk func(node *Node) func(float32) float32) OpHandler {
	return func(ctx *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if err := requireInputs(name, inputs, 1); err != nil {
			return nil, err
		}
		return one(mapTensor(ctx, inputs[0], mk(node))), nil
	}
}

func mapTensor(ctx *Context, x *tensor.Tensor, f func(float32) float32) *tensor.Tensor {
	out := tensor.Zeros(x.Shape()...)
	src, dst := x.Data(), out.Data()
	parallelRange(ctx, len(dst), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(src[i])
		}
	})
	return out
}

// handlePRelu computes x < 0 ? slope*x : x, with slope broadcast to x.
func handlePRelu(ctx *Context, _ *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("pRelu", inputs, 2); err != nil {
		return nil, err
	}
	x, slope := inputs[0], inputs[1]
	// Exported models often store the slope as [C] or [C,1,1] for NCHW input.
	if slope.Rank() == 1 && x.Rank() == 4 && slope.Len() == x.Shape()[1] && slope.Len() > 1 {
		var err error
		if slope, err = slope.Reshape(slope.Len(), 1, 1); err != nil {
			return nil, err
		}
	}
	out, err := broadcastApply(ctx, x, slope, func(v, s float32) float32 {
		if v < 0 {
			return s * v
		}
		return v
	})
	if err != nil {
		return nil, fmt.Errorf("pRelu: %w", err)
	}
	if !out.Shape().Equal(x.Shape()) {
		return nil, fmt.Errorf("pRelu: slope %v widens input %v", slope.Shape(), x.Shape())
	}
	return one(out), nil
}

// handleClip reads bounds from inputs (opset 11+) or attributes (older).
func handleClip(ctx *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("clip", inputs, 1); err != nil {
		return nil, err
	}
	lo := GetAttrFloat(node, "min", -math32.MaxFloat32)
	hi := GetAttrFloat(node, "max", math32.MaxFloat32)
	if t := optionalInput(inputs, 1); t != nil {
		lo = t.Data()[0]
	}
	if t := optionalInput(inputs, 2); t != nil {
		hi = t.Data()[0]
	}
	return one(mapTensor(ctx, inputs[0], func(x float32) float32 {
		return math32.Min(math32.Max(x, lo), hi)
	})), nil
}
