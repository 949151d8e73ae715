package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/upscale/internal/onnx/onnxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestParseModel(t *testing.T) {
	m := onnxtest.NearestUpscaler(4, 2)
	m.Metadata = map[string]string{"license": "mit"}
	model, err := Parse(m.Marshal())
	require.NoError(t, err)

	assert.Equal(t, int64(8), model.IRVersion)
	assert.Equal(t, "onnxtest", model.ProducerName)
	require.Len(t, model.OpsetImport, 1)
	assert.Equal(t, int64(17), model.OpsetImport[0].Version)
	require.Len(t, model.MetadataProps, 1)
	assert.Equal(t, StringStringEntry{Key: "license", Value: "mit"}, model.MetadataProps[0])

	g := model.Graph
	require.NotNil(t, g)
	assert.Equal(t, "nearest", g.Name)
	require.Len(t, g.Nodes, 1)
	node := g.Nodes[0]
	assert.Equal(t, "Resize", node.OpType)
	assert.Equal(t, []string{"input", "", "scales"}, node.Inputs)
	assert.Equal(t, []string{"output"}, node.Outputs)
	require.Len(t, node.Attributes, 3)
	assert.Equal(t, "mode", node.Attributes[0].Name)
	assert.Equal(t, []byte("nearest"), node.Attributes[0].S)
	assert.Equal(t, int32(AttributeProtoString), node.Attributes[0].Type)

	require.Len(t, g.Initializers, 1)
	assert.Equal(t, []int64{4}, g.Initializers[0].Dims)
	assert.Equal(t, []float32{1, 1, 2, 2}, g.Initializers[0].FloatData)

	require.Len(t, g.Inputs, 1)
	assert.Equal(t, []int64{1, 3, 4, 4}, g.Inputs[0].StaticDims())
	assert.Equal(t, []int64{1, 3, 8, 8}, g.Outputs[0].StaticDims())
}

func TestParseAttributesAndRawData(t *testing.T) {
	m := onnxtest.PixelShuffleUpscaler(2, 2)
	m.Graph.Nodes[0].Attrs = append(m.Graph.Nodes[0].Attrs,
		onnxtest.Float("alpha", 0.25), onnxtest.Floats("scales", 1, 2), onnxtest.Int("group", 1))

	model, err := Parse(m.Marshal())
	require.NoError(t, err)

	conv := model.Graph.Nodes[0]
	byName := map[string]AttributeProto{}
	for _, a := range conv.Attributes {
		byName[a.Name] = a
	}
	assert.Equal(t, []int64{1, 1}, byName["kernel_shape"].Ints)
	assert.Equal(t, float32(0.25), byName["alpha"].F)
	assert.Equal(t, []float32{1, 2}, byName["scales"].Floats)
	assert.Equal(t, int64(1), byName["group"].I)

	w := model.Graph.Initializers[0]
	assert.Equal(t, []int64{12, 3, 1, 1}, w.Dims)
	assert.Len(t, w.RawData, 12*3*4)
	assert.Empty(t, w.FloatData)
}

func TestParseSymbolicDims(t *testing.T) {
	m := onnxtest.NearestUpscaler(4, 2)
	m.Graph.Inputs[0].Dims = []int64{-1, 3, -1, -1}
	m.Graph.Outputs[0].Dims = nil

	model, err := Parse(m.Marshal())
	require.NoError(t, err)
	in := model.Graph.Inputs[0]
	assert.Equal(t, []int64{-1, 3, -1, -1}, in.StaticDims())
	assert.Equal(t, "N", in.Type.TensorType.Shape.Dims[0].DimParam)
	assert.Nil(t, model.Graph.Outputs[0].StaticDims())
}

func TestParseSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future field")
	b = protowire.AppendTag(b, 98, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 7)
	b = append(b, onnxtest.NearestUpscaler(2, 2).Marshal()...)

	model, err := Parse(b)
	require.NoError(t, err)
	assert.NotNil(t, model.Graph)
}

func TestParseRejectsCorruptData(t *testing.T) {
	data := onnxtest.NearestUpscaler(2, 2).Marshal()
	_, err := Parse(data[:len(data)-3])
	assert.Error(t, err)

	var wrongType []byte
	wrongType = protowire.AppendTag(wrongType, 1, protowire.BytesType) // ir_version is a varint
	wrongType = protowire.AppendString(wrongType, "8")
	_, err = Parse(wrongType)
	assert.ErrorIs(t, err, ErrWireType)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, onnxtest.NearestUpscaler(2, 2).Marshal(), 0o600))

	model, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "onnxtest", model.ProducerName)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.onnx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
