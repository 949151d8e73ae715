package onnx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/born-ml/upscale/internal/tensor"
)

// tensorFromProto converts an initializer or Constant value to a float32
// tensor. Integer types are converted element by element.
func tensorFromProto(p *TensorProto) (*tensor.Tensor, error) {
	shape := make(tensor.Shape, len(p.Dims))
	for i, d := range p.Dims {
		shape[i] = int(d)
	}
	n := shape.NumElements()

	var data []float32
	switch p.DataType {
	case TensorProtoFloat:
		switch {
		case len(p.RawData) > 0:
			if len(p.RawData) != 4*n {
				return nil, rawSizeError(p, 4*n)
			}
			data = make([]float32, n)
			for i := range data {
				data[i] = math.Float32frombits(binary.LittleEndian.Uint32(p.RawData[4*i:]))
			}
		default:
			data = append([]float32(nil), p.FloatData...)
		}
	case TensorProtoDouble:
		switch {
		case len(p.RawData) > 0:
			if len(p.RawData) != 8*n {
				return nil, rawSizeError(p, 8*n)
			}
			data = make([]float32, n)
			for i := range data {
				data[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(p.RawData[8*i:])))
			}
		default:
			data = make([]float32, len(p.DoubleData))
			for i, v := range p.DoubleData {
				data[i] = float32(v)
			}
		}
	case TensorProtoInt64:
		switch {
		case len(p.RawData) > 0:
			if len(p.RawData) != 8*n {
				return nil, rawSizeError(p, 8*n)
			}
			data = make([]float32, n)
			for i := range data {
				data[i] = float32(int64(binary.LittleEndian.Uint64(p.RawData[8*i:])))
			}
		default:
			data = make([]float32, len(p.Int64Data))
			for i, v := range p.Int64Data {
				data[i] = float32(v)
			}
		}
	case TensorProtoInt32:
		switch {
		case len(p.RawData) > 0:
			if len(p.RawData) != 4*n {
				return nil, rawSizeError(p, 4*n)
			}
			data = make([]float32, n)
			for i := range data {
				data[i] = float32(int32(binary.LittleEndian.Uint32(p.RawData[4*i:])))
			}
		default:
			data = make([]float32, len(p.Int32Data))
			for i, v := range p.Int32Data {
				data[i] = float32(v)
			}
		}
	default:
		return nil, fmt.Errorf("tensor %q: unsupported data type %d", p.Name, p.DataType)
	}

	// Empty tensors (e.g. unused Resize scales) have a zero dimension.
	if n == 0 && len(data) == 0 {
		return tensor.Empty(), nil
	}
	t, err := tensor.New(shape, data)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", p.Name, err)
	}
	return t, nil
}

func rawSizeError(p *TensorProto, want int) error {
	return fmt.Errorf("tensor %q: raw data has %d bytes, want %d", p.Name, len(p.RawData), want)
}
