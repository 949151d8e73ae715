package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/upscale/internal/onnx/onnxtest"
	"github.com/born-ml/upscale/internal/onnx/operators"
	"github.com/born-ml/upscale/internal/parallel"
	"github.com/born-ml/upscale/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput(t *testing.T, side int) *tensor.Tensor {
	t.Helper()
	data := make([]float32, 3*side*side)
	for i := range data {
		data[i] = float32(i)
	}
	x, err := tensor.New(tensor.Shape{1, 3, side, side}, data)
	require.NoError(t, err)
	return x
}

// nearestRef upscales a [1,3,s,s] tensor by block replication.
func nearestRef(x *tensor.Tensor, scale int) []float32 {
	s := x.Shape()[2]
	o := s * scale
	out := make([]float32, 3*o*o)
	for c := 0; c < 3; c++ {
		for y := 0; y < o; y++ {
			for xx := 0; xx < o; xx++ {
				out[(c*o+y)*o+xx] = x.At(0, c, y/scale, xx/scale)
			}
		}
	}
	return out
}

func TestSessionRunResize(t *testing.T) {
	sess, err := LoadFromBytes(onnxtest.NearestUpscaler(4, 2).Marshal())
	require.NoError(t, err)

	assert.Equal(t, []string{"input"}, sess.InputNames())
	assert.Equal(t, []string{"output"}, sess.OutputNames())
	assert.Equal(t, []int64{1, 3, 4, 4}, sess.InputShape())
	assert.Equal(t, []int64{1, 3, 8, 8}, sess.OutputShape())
	assert.Equal(t, int64(17), sess.OpsetVersion())
	assert.Equal(t, "onnxtest", sess.Metadata()["producer_name"])

	x := testInput(t, 4)
	out, err := sess.Run(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 8, 8}, out.Shape())
	assert.Equal(t, nearestRef(x, 2), out.Data())
}

func TestSessionRunPixelShuffle(t *testing.T) {
	for _, par := range []parallel.Config{parallel.Sequential(), parallel.DefaultConfig()} {
		opts := DefaultLoadOptions()
		opts.Parallel = par
		sess, err := LoadFromBytes(onnxtest.PixelShuffleUpscaler(5, 3).Marshal(), opts)
		require.NoError(t, err)

		x := testInput(t, 5)
		out, err := sess.Run(x)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{1, 3, 15, 15}, out.Shape())
		assert.Equal(t, nearestRef(x, 3), out.Data())
	}
}

func TestSessionRejectsWrongInput(t *testing.T) {
	sess, err := LoadFromBytes(onnxtest.NearestUpscaler(4, 2).Marshal())
	require.NoError(t, err)

	_, err = sess.Run(testInput(t, 5))
	assert.ErrorContains(t, err, "model declares")

	_, err = sess.RunNamed(map[string]*tensor.Tensor{"other": testInput(t, 4)})
	assert.ErrorContains(t, err, "missing input: input")
}

func TestStrictModeRejectsUnsupportedOps(t *testing.T) {
	m := onnxtest.NearestUpscaler(4, 2)
	m.Graph.Nodes = append(m.Graph.Nodes, onnxtest.Node{OpType: "Softmax", Inputs: []string{"output"}, Outputs: []string{"probs"}})
	data := m.Marshal()

	_, err := LoadFromBytes(data)
	assert.ErrorContains(t, err, "unsupported operators: [Softmax]")

	lenient := DefaultLoadOptions()
	lenient.StrictMode = false
	sess, err := LoadFromBytes(data, lenient)
	require.NoError(t, err)
	_, err = sess.Run(testInput(t, 4))
	assert.ErrorContains(t, err, "unsupported operator: Softmax")
}

func TestCustomOps(t *testing.T) {
	m := onnxtest.NearestUpscaler(2, 2)
	m.Graph.Nodes[0].OpType = "MyResize"

	opts := DefaultLoadOptions()
	called := false
	opts.CustomOps = map[string]operators.OpHandler{
		"MyResize": func(_ *operators.Context, _ *operators.Node, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
			called = true
			return []*tensor.Tensor{tensor.Zeros(1, 3, 4, 4)}, nil
		},
	}
	sess, err := LoadFromBytes(m.Marshal(), opts)
	require.NoError(t, err)
	_, err = sess.Run(testInput(t, 2))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestConstantNodeFeedsResize(t *testing.T) {
	m := onnxtest.NearestUpscaler(2, 2)
	m.Graph.Initializers = nil
	m.Graph.Nodes = append([]onnxtest.Node{{
		Name: "scales", OpType: "Constant", Outputs: []string{"scales"},
		Attrs: []onnxtest.Attr{onnxtest.TensorAttr("value", onnxtest.Tensor{Dims: []int64{4}, Floats: []float32{1, 1, 2, 2}, Raw: true})},
	}}, m.Graph.Nodes...)

	sess, err := LoadFromBytes(m.Marshal())
	require.NoError(t, err)
	x := testInput(t, 2)
	out, err := sess.Run(x)
	require.NoError(t, err)
	assert.Equal(t, nearestRef(x, 2), out.Data())
}

func TestTopologicalSort(t *testing.T) {
	nodes := []NodeProto{
		{Name: "C", Inputs: []string{"b_out"}, Outputs: []string{"c_out"}},
		{Name: "A", Inputs: []string{"input"}, Outputs: []string{"a_out"}},
		{Name: "D", Inputs: []string{"b_out"}, Outputs: []string{"d_out"}},
		{Name: "B", Inputs: []string{"a_out"}, Outputs: []string{"b_out"}},
	}
	order, err := topologicalSort(nodes)
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, idx := range order {
		pos[nodes[idx].Name] = i
	}
	assert.Less(t, pos["A"], pos["B"])
	assert.Less(t, pos["B"], pos["C"])
	assert.Less(t, pos["B"], pos["D"])

	cyclic := []NodeProto{
		{Name: "X", Inputs: []string{"y"}, Outputs: []string{"x"}},
		{Name: "Y", Inputs: []string{"x"}, Outputs: []string{"y"}},
	}
	_, err = topologicalSort(cyclic)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestGetModelInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shuffle.onnx")
	require.NoError(t, os.WriteFile(path, onnxtest.PixelShuffleUpscaler(8, 2).Marshal(), 0o600))

	info, err := GetModelInfo(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.IRVersion)
	assert.Equal(t, int64(17), info.OpsetVersion)
	assert.Equal(t, []string{"input"}, info.InputNames)
	assert.Equal(t, [][]int64{{1, 3, 8, 8}}, info.InputShapes)
	assert.Equal(t, [][]int64{{1, 3, 16, 16}}, info.OutputShapes)
	assert.Equal(t, map[string]int{"Conv": 1, "DepthToSpace": 1}, info.OpCounts)
	assert.Equal(t, 2, info.NodeCount)
	assert.Equal(t, 1, info.WeightCount)
}

func TestInitializerListedAsInput(t *testing.T) {
	m := onnxtest.PixelShuffleUpscaler(2, 2)
	m.Graph.Inputs = append(m.Graph.Inputs, onnxtest.Value{Name: "w", Dims: []int64{12, 3, 1, 1}})
	sess, err := LoadFromBytes(m.Marshal())
	require.NoError(t, err)
	assert.Equal(t, []string{"input"}, sess.InputNames())
}

func TestListSupportedOps(t *testing.T) {
	ops := ListSupportedOps()
	assert.Contains(t, ops, "Conv")
	assert.Contains(t, ops, "DepthToSpace")
	assert.Contains(t, ops, "Resize")
}
