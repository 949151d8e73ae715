package operators

import (
	"fmt"

	"github.com/born-ml/upscale/internal/tensor"
)

func (r *Registry) registerShapeOps() {
	r.Register("Concat", handleConcat)
	r.Register("DepthToSpace", handleDepthToSpace)
	r.Register("Pad", handlePad)
}

func handleConcat(_ *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("concat", inputs, 1); err != nil {
		return nil, err
	}
	first := inputs[0].Shape()
	axis, err := normAxis(GetAttrInt(node, "axis", 0), len(first))
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}

	shape := first.Clone()
	shape[axis] = 0
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("concat: input %d is missing", i)
		}
		s := in.Shape()
		if len(s) != len(first) {
			return nil, fmt.Errorf("concat: input %d has rank %d, want %d", i, len(s), len(first))
		}
		for d := range s {
			if d != axis && s[d] != first[d] {
				return nil, fmt.Errorf("concat: input %d shape %v does not match %v off axis %d", i, s, first, axis)
			}
		}
		shape[axis] += s[axis]
	}

	// Copy contiguous blocks: outer index over dims before axis, each input
	// contributes s[axis]*inner elements per outer step.
	outer := tensor.Shape(first[:axis]).NumElements()
	inner := tensor.Shape(first[axis+1:]).NumElements()
	out := tensor.Zeros(shape...)
	dst := out.Data()
	pos := 0
	for o := 0; o < outer; o++ {
		for _, in := range inputs {
			block := in.Shape()[axis] * inner
			copy(dst[pos:pos+block], in.Data()[o*block:(o+1)*block])
			pos += block
		}
	}
	return one(out), nil
}

// handleDepthToSpace moves channel blocks into spatial blocks.
// DCR (default) orders the source channels depth-column-row, CRD
// column-row-depth as in PyTorch's PixelShuffle.
func handleDepthToSpace(_ *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("depthToSpace", inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	if x.Rank() != 4 {
		return nil, fmt.Errorf("depthToSpace: input must be rank 4, got %v", x.Shape())
	}
	bs := int(GetAttrInt(node, "blocksize", 0))
	if bs < 1 {
		return nil, fmt.Errorf("depthToSpace: blocksize must be >= 1, got %d", bs)
	}
	n, c, h, w := x.Shape()[0], x.Shape()[1], x.Shape()[2], x.Shape()[3]
	if c%(bs*bs) != 0 {
		return nil, fmt.Errorf("depthToSpace: %d channels not divisible by blocksize² %d", c, bs*bs)
	}
	oc := c / (bs * bs)
	crd := false
	switch mode := GetAttrString(node, "mode", "DCR"); mode {
	case "DCR":
	case "CRD":
		crd = true
	default:
		return nil, fmt.Errorf("depthToSpace: unsupported mode %q", mode)
	}

	out := tensor.Zeros(n, oc, h*bs, w*bs)
	src, dst := x.Data(), out.Data()
	ow := w * bs
	for b := 0; b < n; b++ {
		for ch := 0; ch < oc; ch++ {
			for i := 0; i < bs; i++ {
				for j := 0; j < bs; j++ {
					ic := (i*bs+j)*oc + ch
					if crd {
						ic = ch*bs*bs + i*bs + j
					}
					plane := src[(b*c+ic)*h*w:]
					base := (b*oc + ch) * h * bs * ow
					for y := 0; y < h; y++ {
						row := dst[base+(y*bs+i)*ow:]
						for xx := 0; xx < w; xx++ {
							row[xx*bs+j] = plane[y*w+xx]
						}
					}
				}
			}
		}
	}
	return one(out), nil
}

// handlePad supports constant, edge and reflect modes. Pads come from the
// second input (opset 11+) or the pads attribute (older opsets) as
// [x1_begin, x2_begin, ..., x1_end, x2_end, ...]. Negative pads crop.
func handlePad(_ *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("pad", inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	rank := x.Rank()

	pads := GetAttrInts(node, "pads")
	value := GetAttrFloat(node, "value", 0)
	if t := optionalInput(inputs, 1); t != nil {
		pads = t.Int64s()
	}
	if t := optionalInput(inputs, 2); t != nil && t.Len() > 0 {
		value = t.Data()[0]
	}
	if t := optionalInput(inputs, 3); t != nil {
		// axes input (opset 18): pads only cover the listed axes
		full := make([]int64, 2*rank)
		axes := t.Int64s()
		if len(pads) != 2*len(axes) {
			return nil, fmt.Errorf("pad: %d pads for %d axes", len(pads), len(axes))
		}
		for i, a := range axes {
			ax, err := normAxis(a, rank)
			if err != nil {
				return nil, fmt.Errorf("pad: %w", err)
			}
			full[ax], full[rank+ax] = pads[i], pads[len(axes)+i]
		}
		pads = full
	}
	if len(pads) != 2*rank {
		return nil, fmt.Errorf("pad: got %d pads for rank %d", len(pads), rank)
	}

	mode := GetAttrString(node, "mode", "constant")
	if mode != "constant" && mode != "edge" && mode != "reflect" {
		return nil, fmt.Errorf("pad: unsupported mode %q", mode)
	}

	in := x.Shape()
	shape := make(tensor.Shape, rank)
	for d := 0; d < rank; d++ {
		shape[d] = in[d] + int(pads[d]) + int(pads[rank+d])
		if shape[d] < 1 {
			return nil, fmt.Errorf("pad: dimension %d shrinks to %d", d, shape[d])
		}
		if mode == "reflect" && (int(pads[d]) >= in[d] || int(pads[rank+d]) >= in[d]) {
			return nil, fmt.Errorf("pad: reflect pad %d/%d too large for dimension %d of size %d",
				pads[d], pads[rank+d], d, in[d])
		}
	}

	out := tensor.Zeros(shape...)
	src, dst := x.Data(), out.Data()
	strides := in.Strides()
	tensor.Walk(shape, func(i int, idx []int) {
		off := 0
		for d := 0; d < rank; d++ {
			s := idx[d] - int(pads[d])
			if s < 0 || s >= in[d] {
				switch mode {
				case "constant":
					dst[i] = value
					return
				case "edge":
					s = min(max(s, 0), in[d]-1)
				case "reflect":
					if s < 0 {
						s = -s
					} else {
						s = 2*(in[d]-1) - s
					}
				}
			}
			off += s * strides[d]
		}
		dst[i] = src[off]
	})
	return one(out), nil
}
