package operators

import (
	"fmt"

	"github.com/born-ml/upscale/internal/parallel"
	"github.com/born-ml/upscale/internal/tensor"
)

func (r *Registry) registerConvOps() {
	r.Register("Conv", handleConv)
}

// convParams are the resolved attributes of a 2D convolution.
type convParams struct {
	group            int
	kh, kw           int
	strideH, strideW int
	dilH, dilW       int
	padT, padL       int
	padB, padR       int
}

func ints2(v []int64, def int) (int, int) {
	if len(v) >= 2 {
		return int(v[0]), int(v[1])
	}
	return def, def
}

func resolveConv(node *Node, inH, inW, kh, kw int) (convParams, error) {
	p := convParams{group: int(GetAttrInt(node, "group", 1)), kh: kh, kw: kw}
	if p.group < 1 {
		return p, fmt.Errorf("group must be >= 1, got %d", p.group)
	}
	if ks := GetAttrInts(node, "kernel_shape"); len(ks) >= 2 && (int(ks[0]) != kh || int(ks[1]) != kw) {
		return p, fmt.Errorf("kernel_shape %v does not match weights %dx%d", ks, kh, kw)
	}
	p.strideH, p.strideW = ints2(GetAttrInts(node, "strides"), 1)
	p.dilH, p.dilW = ints2(GetAttrInts(node, "dilations"), 1)
	if p.strideH < 1 || p.strideW < 1 || p.dilH < 1 || p.dilW < 1 {
		return p, fmt.Errorf("strides and dilations must be >= 1")
	}

	switch autoPad := GetAttrString(node, "auto_pad", "NOTSET"); autoPad {
	case "NOTSET":
		if pads := GetAttrInts(node, "pads"); len(pads) >= 4 {
			p.padT, p.padL, p.padB, p.padR = int(pads[0]), int(pads[1]), int(pads[2]), int(pads[3])
		}
	case "VALID":
	case "SAME_UPPER", "SAME_LOWER":
		sameUpper := autoPad == "SAME_UPPER"
		p.padT, p.padB = samePad(inH, p.strideH, (kh-1)*p.dilH+1, sameUpper)
		p.padL, p.padR = samePad(inW, p.strideW, (kw-1)*p.dilW+1, sameUpper)
	default:
		return p, fmt.Errorf("unsupported auto_pad %q", autoPad)
	}
	return p, nil
}

// samePad splits the padding that keeps out = ceil(in/stride). The odd
// element goes to the end for SAME_UPPER and to the start otherwise.
func samePad(in, stride, span int, upper bool) (begin, end int) {
	out := (in + stride - 1) / stride
	total := max(0, (out-1)*stride+span-in)
	if upper {
		return total / 2, total - total/2
	}
	return total - total/2, total / 2
}

func (p convParams) outSize(inH, inW int) (int, int) {
	spanH := (p.kh-1)*p.dilH + 1
	spanW := (p.kw-1)*p.dilW + 1
	oh := (inH+p.padT+p.padB-spanH)/p.strideH + 1
	ow := (inW+p.padL+p.padR-spanW)/p.strideW + 1
	return oh, ow
}

// handleConv computes a grouped 2D convolution over NCHW input.
// Inputs: X [N,C,H,W], W [M,C/group,kH,kW], optional B [M].
func handleConv(ctx *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("conv", inputs, 2); err != nil {
		return nil, err
	}
	x, w, bias := inputs[0], inputs[1], optionalInput(inputs, 2)
	if x.Rank() != 4 || w.Rank() != 4 {
		return nil, fmt.Errorf("conv: only 2D convolution is supported, got input %v weights %v", x.Shape(), w.Shape())
	}
	n, c, inH, inW := x.Shape()[0], x.Shape()[1], x.Shape()[2], x.Shape()[3]
	m, cg, kh, kw := w.Shape()[0], w.Shape()[1], w.Shape()[2], w.Shape()[3]

	p, err := resolveConv(node, inH, inW, kh, kw)
	if err != nil {
		return nil, fmt.Errorf("conv: %w", err)
	}
	if c != cg*p.group || m%p.group != 0 {
		return nil, fmt.Errorf("conv: input channels %d, weight channels %d and %d outputs do not fit group %d",
			c, cg, m, p.group)
	}
	if bias != nil && bias.Len() != m {
		return nil, fmt.Errorf("conv: bias has %d elements, want %d", bias.Len(), m)
	}
	oh, ow := p.outSize(inH, inW)
	if oh < 1 || ow < 1 {
		return nil, fmt.Errorf("conv: output %dx%d is empty", oh, ow)
	}

	out := tensor.Zeros(n, m, oh, ow)
	xd, wd, od := x.Data(), w.Data(), out.Data()
	mPerGroup := m / p.group
	plane := oh * ow

	cfg := parallel.Sequential()
	if ctx != nil {
		cfg = ctx.Parallel
		cfg.MinChunkSize = 1
	}
	parallel.ForGrid(n, m, func(b, oc int) {
		dst := od[(b*m+oc)*plane : (b*m+oc+1)*plane]
		if bias != nil {
			bv := bias.Data()[oc]
			for i := range dst {
				dst[i] = bv
			}
		}
		g := oc / mPerGroup
		for ic := 0; ic < cg; ic++ {
			src := xd[(b*c+g*cg+ic)*inH*inW:]
			for ky := 0; ky < kh; ky++ {
				for kx := 0; kx < kw; kx++ {
					wv := wd[((oc*cg+ic)*kh+ky)*kw+kx]
					if wv == 0 {
						continue
					}
					p.accumulate(dst, src, wv, ky, kx, inH, inW, oh, ow)
				}
			}
		}
	}, cfg)
	return one(out), nil
}

// accumulate adds wv * x[iy, ix] to every output position whose receptive
// field places kernel tap (ky, kx) inside the input.
func (p convParams) accumulate(dst, src []float32, wv float32, ky, kx, inH, inW, oh, ow int) {
	for oy := 0; oy < oh; oy++ {
		iy := oy*p.strideH - p.padT + ky*p.dilH
		if iy < 0 || iy >= inH {
			continue
		}
		row := src[iy*inW : (iy+1)*inW]
		out := dst[oy*ow : (oy+1)*ow]
		for ox := 0; ox < ow; ox++ {
			ix := ox*p.strideW - p.padL + kx*p.dilW
			if ix < 0 || ix >= inW {
				continue
			}
			out[ox] += wv * row[ix]
		}
	}
}
