package neural

import (
	"fmt"

	"github.com/born-ml/upscale/internal/onnx"
	"github.com/born-ml/upscale/internal/upscaler"
)

const (
	onnxFloat     = 1
	imageChannels = 3
	minSide       = 2
)

// ioSides validates the first input and output of a model as [1,3,S,S]
// float tensors and returns their sides.
func ioSides(in, out *onnx.ValueInfoProto) (inSide, outSide int, err error) {
	inDims, err := checkIO("input", in)
	if err != nil {
		return 0, 0, err
	}
	outDims, err := checkIO("output", out)
	if err != nil {
		return 0, 0, err
	}
	for _, io := range []struct {
		role string
		v    *onnx.ValueInfoProto
		dims []int64
	}{{"input", in, inDims}, {"output", out, outDims}} {
		if io.dims[2] != io.dims[3] {
			return 0, 0, &upscaler.ShapeError{
				Tensor: io.role, Name: io.v.Name, Dims: io.dims,
				Kind: upscaler.ErrUnsquareModelIO, Reason: "height and width differ",
			}
		}
	}
	return int(inDims[2]), int(outDims[2]), nil
}

func checkIO(role string, v *onnx.ValueInfoProto) ([]int64, error) {
	incompatible := func(dims []int64, format string, args ...any) error {
		e := &upscaler.ShapeError{
			Tensor: role, Dims: dims,
			Kind: upscaler.ErrIncompatibleModel, Reason: fmt.Sprintf(format, args...),
		}
		if v != nil {
			e.Name = v.Name
		}
		return e
	}

	if v == nil {
		return nil, incompatible(nil, "model has no %s", role)
	}
	if v.Type == nil || v.Type.TensorType == nil {
		return nil, incompatible(nil, "not a tensor")
	}
	if et := v.Type.TensorType.ElemType; et != onnxFloat {
		return nil, incompatible(nil, "element type %d, want float32", et)
	}
	dims := v.StaticDims()
	switch {
	case dims == nil:
		return nil, incompatible(nil, "no declared shape")
	case len(dims) != 4:
		return nil, incompatible(dims, "rank %d, want 4", len(dims))
	}
	for i, d := range dims {
		if d < 0 {
			return nil, incompatible(dims, "dimension %d is symbolic", i)
		}
	}
	switch {
	case dims[0] != 1:
		return nil, incompatible(dims, "batch %d, want 1", dims[0])
	case dims[1] != imageChannels:
		return nil, incompatible(dims, "%d channels, want %d", dims[1], imageChannels)
	case dims[2] < minSide || dims[3] < minSide:
		return nil, incompatible(dims, "spatial size below %d", minSide)
	}
	return dims, nil
}
