package onnx

import (
	"errors"
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a known field carries an unexpected wire type.
var ErrWireType = errors.New("unexpected wire type")

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: model path is user input by design of the CLI
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes. Unknown fields are skipped.
func Parse(data []byte) (*ModelProto, error) {
	m := &ModelProto{}
	if err := decodeModel(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return m, nil
}

// fieldFunc decodes the value of one field from b and returns how many
// bytes it consumed, or 0 to have the field skipped.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func decodeMessage(b []byte, what string, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%s: tag: %w", what, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("%s field %d: %w", what, num, err)
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("%s field %d: %w", what, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func expect(typ, want protowire.Type) error {
	if typ != want {
		return fmt.Errorf("%w %d, want %d", ErrWireType, typ, want)
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte, dst *int64) (int, error) {
	if err := expect(typ, protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = int64(v)
	return n, nil
}

func consumeInt32(typ protowire.Type, b []byte, dst *int32) (int, error) {
	var v int64
	n, err := consumeVarint(typ, b, &v)
	*dst = int32(v)
	return n, err
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if err := expect(typ, protowire.BytesType); err != nil {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	v, n, err := consumeBytes(typ, b)
	*dst = string(v)
	return n, err
}

// consumeMessage decodes an embedded message with dec.
func consumeMessage(typ protowire.Type, b []byte, dec func([]byte) error) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	return n, dec(v)
}

// consumeVarints appends a repeated varint field, packed or not.
func consumeVarints(typ protowire.Type, b []byte, dst *[]int64) (int, error) {
	if typ == protowire.VarintType {
		var v int64
		n, err := consumeVarint(typ, b, &v)
		*dst = append(*dst, v)
		return n, err
	}
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeVarint(packed)
		if m < 0 {
			return 0, protowire.ParseError(m)
		}
		*dst = append(*dst, int64(v))
		packed = packed[m:]
	}
	return n, nil
}

// consumeFloats appends a repeated float field, packed or not.
func consumeFloats(typ protowire.Type, b []byte, dst *[]float32) (int, error) {
	if typ == protowire.Fixed32Type {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		*dst = append(*dst, math.Float32frombits(v))
		return n, nil
	}
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed32(packed)
		if m < 0 {
			return 0, protowire.ParseError(m)
		}
		*dst = append(*dst, math.Float32frombits(v))
		packed = packed[m:]
	}
	return n, nil
}

// consumeDoubles appends a repeated double field, packed or not.
func consumeDoubles(typ protowire.Type, b []byte, dst *[]float64) (int, error) {
	if typ == protowire.Fixed64Type {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		*dst = append(*dst, math.Float64frombits(v))
		return n, nil
	}
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed64(packed)
		if m < 0 {
			return 0, protowire.ParseError(m)
		}
		*dst = append(*dst, math.Float64frombits(v))
		packed = packed[m:]
	}
	return n, nil
}

func decodeModel(b []byte, m *ModelProto) error {
	return decodeMessage(b, "model", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, &m.IRVersion)
		case 2:
			return consumeString(typ, b, &m.ProducerName)
		case 3:
			return consumeString(typ, b, &m.ProducerVersion)
		case 4:
			return consumeString(typ, b, &m.Domain)
		case 5:
			return consumeVarint(typ, b, &m.ModelVersion)
		case 6:
			return consumeString(typ, b, &m.DocString)
		case 7:
			m.Graph = &GraphProto{}
			return consumeMessage(typ, b, func(v []byte) error { return decodeGraph(v, m.Graph) })
		case 8:
			var op OperatorSetID
			n, err := consumeMessage(typ, b, func(v []byte) error { return decodeOpset(v, &op) })
			m.OpsetImport = append(m.OpsetImport, op)
			return n, err
		case 14:
			var e StringStringEntry
			n, err := consumeMessage(typ, b, func(v []byte) error { return decodeEntry(v, &e) })
			m.MetadataProps = append(m.MetadataProps, e)
			return n, err
		}
		return 0, nil
	})
}

func decodeGraph(b []byte, g *GraphProto) error {
	return decodeMessage(b, "graph", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var node NodeProto
			n, err := consumeMessage(typ, b, func(v []byte) error { return decodeNode(v, &node) })
			g.Nodes = append(g.Nodes, node)
			return n, err
		case 2:
			return consumeString(typ, b, &g.Name)
		case 5:
			var t TensorProto
			n, err := consumeMessage(typ, b, func(v []byte) error { return decodeTensor(v, &t) })
			g.Initializers = append(g.Initializers, t)
			return n, err
		case 10:
			return consumeString(typ, b, &g.DocString)
		case 11:
			var vi ValueInfoProto
			n, err := consumeMessage(typ, b, func(v []byte) error { return decodeValueInfo(v, &vi) })
			g.Inputs = append(g.Inputs, vi)
			return n, err
		case 12:
			var vi ValueInfoProto
			n, err := consumeMessage(typ, b, func(v []byte) error { return decodeValueInfo(v, &vi) })
			g.Outputs = append(g.Outputs, vi)
			return n, err
		}
		return 0, nil
	})
}

func decodeNode(b []byte, node *NodeProto) error {
	return decodeMessage(b, "node", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var s string
			n, err := consumeString(typ, b, &s)
			node.Inputs = append(node.Inputs, s)
			return n, err
		case 2:
			var s string
			n, err := consumeString(typ, b, &s)
			node.Outputs = append(node.Outputs, s)
			return n, err
		case 3:
			return consumeString(typ, b, &node.Name)
		case 4:
			return consumeString(typ, b, &node.OpType)
		case 5:
			var a AttributeProto
			n, err := consumeMessage(typ, b, func(v []byte) error { return decodeAttribute(v, &a) })
			node.Attributes = append(node.Attributes, a)
			return n, err
		case 7:
			return consumeString(typ, b, &node.Domain)
		}
		return 0, nil
	})
}

func decodeTensor(b []byte, t *TensorProto) error {
	return decodeMessage(b, "tensor", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarints(typ, b, &t.Dims)
		case 2:
			return consumeInt32(typ, b, &t.DataType)
		case 4:
			return consumeFloats(typ, b, &t.FloatData)
		case 5:
			var vs []int64
			n, err := consumeVarints(typ, b, &vs)
			for _, v := range vs {
				t.Int32Data = append(t.Int32Data, int32(v))
			}
			return n, err
		case 7:
			return consumeVarints(typ, b, &t.Int64Data)
		case 8:
			return consumeString(typ, b, &t.Name)
		case 9:
			v, n, err := consumeBytes(typ, b)
			t.RawData = v
			return n, err
		case 10:
			return consumeDoubles(typ, b, &t.DoubleData)
		}
		return 0, nil
	})
}

func decodeValueInfo(b []byte, vi *ValueInfoProto) error {
	return decodeMessage(b, "value_info", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &vi.Name)
		case 2:
			vi.Type = &TypeProto{}
			return consumeMessage(typ, b, func(v []byte) error { return decodeType(v, vi.Type) })
		}
		return 0, nil
	})
}

func decodeType(b []byte, tp *TypeProto) error {
	return decodeMessage(b, "type", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		tp.TensorType = &TensorTypeProto{}
		return consumeMessage(typ, b, func(v []byte) error { return decodeTensorType(v, tp.TensorType) })
	})
}

func decodeTensorType(b []byte, tt *TensorTypeProto) error {
	return decodeMessage(b, "tensor_type", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt32(typ, b, &tt.ElemType)
		case 2:
			tt.Shape = &TensorShapeProto{}
			return consumeMessage(typ, b, func(v []byte) error { return decodeShape(v, tt.Shape) })
		}
		return 0, nil
	})
}

func decodeShape(b []byte, s *TensorShapeProto) error {
	return decodeMessage(b, "shape", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		var d DimensionProto
		n, err := consumeMessage(typ, b, func(v []byte) error { return decodeDim(v, &d) })
		s.Dims = append(s.Dims, d)
		return n, err
	})
}

func decodeDim(b []byte, d *DimensionProto) error {
	return decodeMessage(b, "dim", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			d.HasValue = true
			return consumeVarint(typ, b, &d.DimValue)
		case 2:
			return consumeString(typ, b, &d.DimParam)
		}
		return 0, nil
	})
}

func decodeAttribute(b []byte, a *AttributeProto) error {
	return decodeMessage(b, "attribute", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &a.Name)
		case 2:
			var fs []float32
			n, err := consumeFloats(typ, b, &fs)
			if len(fs) > 0 {
				a.F = fs[0]
			}
			return n, err
		case 3:
			return consumeVarint(typ, b, &a.I)
		case 4:
			v, n, err := consumeBytes(typ, b)
			a.S = v
			return n, err
		case 5:
			a.T = &TensorProto{}
			return consumeMessage(typ, b, func(v []byte) error { return decodeTensor(v, a.T) })
		case 7:
			return consumeFloats(typ, b, &a.Floats)
		case 8:
			return consumeVarints(typ, b, &a.Ints)
		case 9:
			v, n, err := consumeBytes(typ, b)
			a.Strings = append(a.Strings, v)
			return n, err
		case 20:
			return consumeInt32(typ, b, &a.Type)
		}
		return 0, nil
	})
}

func decodeOpset(b []byte, op *OperatorSetID) error {
	return decodeMessage(b, "opset_import", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &op.Domain)
		case 2:
			return consumeVarint(typ, b, &op.Version)
		}
		return 0, nil
	})
}

func decodeEntry(b []byte, e *StringStringEntry) error {
	return decodeMessage(b, "metadata", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &e.Key)
		case 2:
			return consumeString(typ, b, &e.Value)
		}
		return 0, nil
	})
}
