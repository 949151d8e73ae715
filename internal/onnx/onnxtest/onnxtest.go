// Package onnxtest builds ONNX model files in memory for tests.
package onnxtest

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ONNX enum values used by the builders.
const (
	typeFloat = 1
	typeInt64 = 7

	attrFloat  = 1
	attrInt    = 2
	attrString = 3
	attrTensor = 4
	attrFloats = 6
	attrInts   = 7
)

// Model is a minimal ONNX model description.
type Model struct {
	IRVersion int64
	Opset     int64
	Producer  string
	Graph     Graph
	Metadata  map[string]string
}

// Graph lists the nodes and values of a model.
type Graph struct {
	Name         string
	Nodes        []Node
	Inputs       []Value
	Outputs      []Value
	Initializers []Tensor
}

// Node is one operator invocation.
type Node struct {
	Name    string
	OpType  string
	Inputs  []string
	Outputs []string
	Attrs   []Attr
}

// Value is a float tensor graph input or output. Negative dims are written
// as symbolic dimensions; a nil Dims omits the shape.
type Value struct {
	Name string
	Dims []int64
}

// Tensor is an initializer or tensor attribute. Float tensors are written
// as raw data when Raw is set, otherwise as float_data.
type Tensor struct {
	Name   string
	Dims   []int64
	Floats []float32
	Int64s []int64
	Raw    bool
}

// Attr is a node attribute. Build it with the helper functions.
type Attr struct {
	name   string
	typ    int32
	f      float32
	i      int64
	s      string
	t      *Tensor
	floats []float32
	ints   []int64
}

// Int returns an INT attribute.
func Int(name string, v int64) Attr { return Attr{name: name, typ: attrInt, i: v} }

// Ints returns an INTS attribute.
func Ints(name string, v ...int64) Attr { return Attr{name: name, typ: attrInts, ints: v} }

// Float returns a FLOAT attribute.
func Float(name string, v float32) Attr { return Attr{name: name, typ: attrFloat, f: v} }

// Floats returns a FLOATS attribute.
func Floats(name string, v ...float32) Attr { return Attr{name: name, typ: attrFloats, floats: v} }

// String returns a STRING attribute.
func String(name, v string) Attr { return Attr{name: name, typ: attrString, s: v} }

// TensorAttr returns a TENSOR attribute.
func TensorAttr(name string, t Tensor) Attr { return Attr{name: name, typ: attrTensor, t: &t} }

// Marshal encodes the model in protobuf wire format.
func (m Model) Marshal() []byte {
	var b []byte
	ir := m.IRVersion
	if ir == 0 {
		ir = 8
	}
	b = appendVarintField(b, 1, uint64(ir))
	if m.Producer != "" {
		b = appendStringField(b, 2, m.Producer)
	}
	b = appendMessage(b, 7, m.Graph.marshal())

	opset := m.Opset
	if opset == 0 {
		opset = 17
	}
	var op []byte
	op = appendStringField(op, 1, "")
	op = appendVarintField(op, 2, uint64(opset))
	b = appendMessage(b, 8, op)

	for k, v := range m.Metadata {
		var e []byte
		e = appendStringField(e, 1, k)
		e = appendStringField(e, 2, v)
		b = appendMessage(b, 14, e)
	}
	return b
}

func (g Graph) marshal() []byte {
	var b []byte
	for _, n := range g.Nodes {
		b = appendMessage(b, 1, n.marshal())
	}
	if g.Name != "" {
		b = appendStringField(b, 2, g.Name)
	}
	for _, t := range g.Initializers {
		b = appendMessage(b, 5, t.marshal())
	}
	for _, v := range g.Inputs {
		b = appendMessage(b, 11, v.marshal())
	}
	for _, v := range g.Outputs {
		b = appendMessage(b, 12, v.marshal())
	}
	return b
}

func (n Node) marshal() []byte {
	var b []byte
	for _, in := range n.Inputs {
		b = appendStringField(b, 1, in)
	}
	for _, out := range n.Outputs {
		b = appendStringField(b, 2, out)
	}
	if n.Name != "" {
		b = appendStringField(b, 3, n.Name)
	}
	b = appendStringField(b, 4, n.OpType)
	for _, a := range n.Attrs {
		b = appendMessage(b, 5, a.marshal())
	}
	return b
}

func (a Attr) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, a.name)
	switch a.typ {
	case attrFloat:
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.f))
	case attrInt:
		b = appendVarintField(b, 3, uint64(a.i))
	case attrString:
		b = appendStringField(b, 4, a.s)
	case attrTensor:
		b = appendMessage(b, 5, a.t.marshal())
	case attrFloats:
		b = appendMessage(b, 7, packFloats(a.floats))
	case attrInts:
		b = appendMessage(b, 8, packVarints(a.ints))
	}
	b = appendVarintField(b, 20, uint64(a.typ))
	return b
}

func (t Tensor) marshal() []byte {
	var b []byte
	if len(t.Dims) > 0 {
		b = appendMessage(b, 1, packVarints(t.Dims))
	}
	if t.Int64s != nil {
		b = appendVarintField(b, 2, typeInt64)
	} else {
		b = appendVarintField(b, 2, typeFloat)
	}
	if t.Name != "" {
		b = appendStringField(b, 8, t.Name)
	}
	switch {
	case t.Int64s != nil:
		b = appendMessage(b, 7, packVarints(t.Int64s))
	case t.Raw:
		raw := make([]byte, 0, 4*len(t.Floats))
		for _, f := range t.Floats {
			raw = protowire.AppendFixed32(raw, math.Float32bits(f))
		}
		b = appendMessage(b, 9, raw)
	case len(t.Floats) > 0:
		b = appendMessage(b, 4, packFloats(t.Floats))
	}
	return b
}

func (v Value) marshal() []byte {
	var tensorType []byte
	tensorType = appendVarintField(tensorType, 1, typeFloat)
	if v.Dims != nil {
		var shape []byte
		for i, d := range v.Dims {
			var dim []byte
			if d < 0 {
				dim = appendStringField(dim, 2, symbolic(i))
			} else {
				dim = appendVarintField(dim, 1, uint64(d))
			}
			shape = appendMessage(shape, 1, dim)
		}
		tensorType = appendMessage(tensorType, 2, shape)
	}
	var typ []byte
	typ = appendMessage(typ, 1, tensorType)

	var b []byte
	b = appendStringField(b, 1, v.Name)
	b = appendMessage(b, 2, typ)
	return b
}

func symbolic(i int) string {
	return string(rune('N' + i))
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func packVarints(vs []int64) []byte {
	var b []byte
	for _, v := range vs {
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

func packFloats(vs []float32) []byte {
	var b []byte
	for _, v := range vs {
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}
	return b
}

// NearestUpscaler returns a model that enlarges a [1,3,side,side] image by
// an integer scale with a nearest-neighbour Resize.
func NearestUpscaler(side, scale int64) Model {
	out := side * scale
	return Model{
		Producer: "onnxtest",
		Graph: Graph{
			Name: "nearest",
			Nodes: []Node{{
				Name:    "resize",
				OpType:  "Resize",
				Inputs:  []string{"input", "", "scales"},
				Outputs: []string{"output"},
				Attrs: []Attr{
					String("mode", "nearest"),
					String("coordinate_transformation_mode", "asymmetric"),
					String("nearest_mode", "floor"),
				},
			}},
			Initializers: []Tensor{{
				Name:   "scales",
				Dims:   []int64{4},
				Floats: []float32{1, 1, float32(scale), float32(scale)},
			}},
			Inputs:  []Value{{Name: "input", Dims: []int64{1, 3, side, side}}},
			Outputs: []Value{{Name: "output", Dims: []int64{1, 3, out, out}}},
		},
	}
}

// PixelShuffleUpscaler returns a model that enlarges a [1,3,side,side]
// image by scale with a 1x1 convolution replicating each channel
// scale² times followed by DepthToSpace in CRD mode. The result equals
// nearest-neighbour upscaling.
func PixelShuffleUpscaler(side, scale int64) Model {
	r2 := scale * scale
	weights := make([]float32, 3*r2*3)
	for c := int64(0); c < 3; c++ {
		for k := int64(0); k < r2; k++ {
			oc := c*r2 + k
			weights[oc*3+c] = 1
		}
	}
	out := side * scale
	return Model{
		Producer: "onnxtest",
		Graph: Graph{
			Name: "pixel_shuffle",
			Nodes: []Node{
				{Name: "expand", OpType: "Conv", Inputs: []string{"input", "w"}, Outputs: []string{"features"},
					Attrs: []Attr{Ints("kernel_shape", 1, 1)}},
				{Name: "shuffle", OpType: "DepthToSpace", Inputs: []string{"features"}, Outputs: []string{"output"},
					Attrs: []Attr{Int("blocksize", scale), String("mode", "CRD")}},
			},
			Initializers: []Tensor{{Name: "w", Dims: []int64{3 * r2, 3, 1, 1}, Floats: weights, Raw: true}},
			Inputs:       []Value{{Name: "input", Dims: []int64{1, 3, side, side}}},
			Outputs:      []Value{{Name: "output", Dims: []int64{1, 3, out, out}}},
		},
	}
}
