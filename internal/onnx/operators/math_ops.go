package operators

import (
	"fmt"

	"github.com/born-ml/upscale/internal/tensor"
)

func (r *Registry) registerMathOps() {
	r.Register("Add", binaryOp("add", func(a, b float32) float32 { return a + b }))
	r.Register("Sub", binaryOp("sub", func(a, b float32) float32 { return a - b }))
	r.Register("Mul", binaryOp("mul", func(a, b float32) float32 { return a * b }))
	r.Register("Div", binaryOp("div", func(a, b float32) float32 { return a / b }))
}

func binaryOp(name string, f func(a, b float32) float32) OpHandler {
	return func(ctx *Context, _ *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if err := requireInputs(name, inputs, 2); err != nil {
			return nil, err
		}
		out, err := broadcastApply(ctx, inputs[0], inputs[1], f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return one(out), nil
	}
}

// broadcastApply computes f(a, b) element-wise with NumPy broadcasting.
func broadcastApply(ctx *Context, a, b *tensor.Tensor, f func(a, b float32) float32) (*tensor.Tensor, error) {
	shape, err := tensor.Broadcast(a.Shape(), b.Shape())
	if err != nil {
		return nil, err
	}
	out := tensor.Zeros(shape...)
	dst := out.Data()

	switch {
	case a.Shape().Equal(shape) && b.Len() == 1:
		ad, bv := a.Data(), b.Data()[0]
		for i := range dst {
			dst[i] = f(ad[i], bv)
		}
	case b.Shape().Equal(shape) && a.Len() == 1:
		av, bd := a.Data()[0], b.Data()
		for i := range dst {
			dst[i] = f(av, bd[i])
		}
	default:
		if a, err = a.BroadcastTo(shape); err != nil {
			return nil, err
		}
		if b, err = b.BroadcastTo(shape); err != nil {
			return nil, err
		}
		ad, bd := a.Data(), b.Data()
		parallelRange(ctx, len(dst), 4096, func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = f(ad[i], bd[i])
			}
		})
	}
	return out, nil
}
