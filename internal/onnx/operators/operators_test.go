package operators

import (
	"testing"

	"github.com/born-ml/upscale/internal/parallel"
	"github.com/born-ml/upscale/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTensor(t *testing.T, shape tensor.Shape, data ...float32) *tensor.Tensor {
	t.Helper()
	x, err := tensor.New(shape, data)
	require.NoError(t, err)
	return x
}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func run(t *testing.T, op string, node *Node, inputs ...*tensor.Tensor) *tensor.Tensor {
	t.Helper()
	if node == nil {
		node = &Node{}
	}
	node.OpType = op
	outs, err := NewRegistry().Execute(&Context{Parallel: parallel.Sequential()}, node, inputs)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	return outs[0]
}

func intsAttr(name string, v ...int64) Attribute { return Attribute{Name: name, Ints: v} }
func intAttr(name string, v int64) Attribute     { return Attribute{Name: name, I: v} }
func strAttr(name, v string) Attribute           { return Attribute{Name: name, S: []byte(v)} }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, op := range []string{
		"Add", "Sub", "Mul", "Div", "Relu", "LeakyRelu", "PRelu", "Sigmoid", "Tanh", "Clip",
		"Conv", "Concat", "DepthToSpace", "Pad", "Resize", "Upsample", "Identity", "Constant",
	} {
		_, ok := r.Get(op)
		assert.True(t, ok, op)
	}
	_, ok := r.Get("MatMul")
	assert.False(t, ok)

	ops := r.SupportedOps()
	assert.IsIncreasing(t, ops)

	_, err := r.Execute(DefaultContext(), &Node{OpType: "Softmax"}, nil)
	assert.ErrorContains(t, err, "unsupported operator: Softmax")
}

func TestAddBroadcastsChannelBias(t *testing.T) {
	x := mustTensor(t, tensor.Shape{1, 2, 2, 2}, seq(8)...)
	bias := mustTensor(t, tensor.Shape{2, 1, 1}, 10, 20)
	out := run(t, "Add", nil, x, bias)
	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, out.Shape())
	assert.Equal(t, []float32{10, 11, 12, 13, 24, 25, 26, 27}, out.Data())

	half := run(t, "Mul", nil, x, tensor.Scalar(0.5))
	assert.Equal(t, float32(3.5), half.Data()[7])

	_, err := NewRegistry().Execute(nil, &Node{OpType: "Sub"},
		[]*tensor.Tensor{x, mustTensor(t, tensor.Shape{3}, 1, 2, 3)})
	assert.Error(t, err)
}

func TestActivations(t *testing.T) {
	x := mustTensor(t, tensor.Shape{4}, -2, -0.5, 0, 3)

	assert.Equal(t, []float32{0, 0, 0, 3}, run(t, "Relu", nil, x).Data())
	assert.InDeltaSlice(t, []float32{-0.2, -0.05, 0, 3},
		run(t, "LeakyRelu", &Node{Attributes: []Attribute{{Name: "alpha", F: 0.1}}}, x).Data(), 1e-6)
	assert.InDelta(t, 0.5, run(t, "Sigmoid", nil, x).Data()[2], 1e-6)
	assert.InDelta(t, 0.995055, run(t, "Tanh", nil, x).Data()[3], 1e-5)

	clipped := run(t, "Clip", nil, x, tensor.Scalar(-1), tensor.Scalar(1))
	assert.Equal(t, []float32{-1, -0.5, 0, 1}, clipped.Data())

	old := run(t, "Clip", &Node{Attributes: []Attribute{{Name: "min", F: 0}}}, x)
	assert.Equal(t, []float32{0, 0, 0, 3}, old.Data())
}

func TestPReluPerChannelSlope(t *testing.T) {
	x := mustTensor(t, tensor.Shape{1, 2, 1, 2}, -1, 1, -1, 1)
	slope := mustTensor(t, tensor.Shape{2}, 0.25, 0.5)
	out := run(t, "PRelu", nil, x, slope)
	assert.Equal(t, []float32{-0.25, 1, -0.5, 1}, out.Data())
}

func TestConvIdentityKernelWithPadding(t *testing.T) {
	x := mustTensor(t, tensor.Shape{1, 1, 3, 3}, seq(9)...)
	w := mustTensor(t, tensor.Shape{1, 1, 3, 3}, 0, 0, 0, 0, 1, 0, 0, 0, 0)
	out := run(t, "Conv", &Node{Attributes: []Attribute{intsAttr("pads", 1, 1, 1, 1)}}, x, w)
	assert.Equal(t, tensor.Shape{1, 1, 3, 3}, out.Shape())
	assert.Equal(t, x.Data(), out.Data())
}

func TestConvSumKernel(t *testing.T) {
	x := mustTensor(t, tensor.Shape{1, 1, 3, 3}, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	w := mustTensor(t, tensor.Shape{1, 1, 3, 3}, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	b := mustTensor(t, tensor.Shape{1}, 100)

	same := run(t, "Conv", &Node{Attributes: []Attribute{strAttr("auto_pad", "SAME_UPPER")}}, x, w, b)
	assert.Equal(t, []float32{104, 106, 104, 106, 109, 106, 104, 106, 104}, same.Data())

	valid := run(t, "Conv", nil, x, w, b)
	assert.Equal(t, tensor.Shape{1, 1, 1, 1}, valid.Shape())
	assert.Equal(t, float32(109), valid.Data()[0])
}

func TestConvStrideAndGroups(t *testing.T) {
	// Two channels, depthwise 1x1 conv scaling each channel separately.
	x := mustTensor(t, tensor.Shape{1, 2, 2, 2}, seq(8)...)
	w := mustTensor(t, tensor.Shape{2, 1, 1, 1}, 2, -1)
	out := run(t, "Conv", &Node{Attributes: []Attribute{intAttr("group", 2)}}, x, w)
	assert.Equal(t, []float32{0, 2, 4, 6, -4, -5, -6, -7}, out.Data())

	x4 := mustTensor(t, tensor.Shape{1, 1, 4, 4}, seq(16)...)
	w1 := mustTensor(t, tensor.Shape{1, 1, 1, 1}, 1)
	strided := run(t, "Conv", &Node{Attributes: []Attribute{intsAttr("strides", 2, 2)}}, x4, w1)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, strided.Shape())
	assert.Equal(t, []float32{0, 2, 8, 10}, strided.Data())
}

func TestConvParallelMatchesSequential(t *testing.T) {
	x := mustTensor(t, tensor.Shape{1, 3, 8, 8}, seq(192)...)
	w := mustTensor(t, tensor.Shape{6, 3, 3, 3}, seq(162)...)
	node := &Node{OpType: "Conv", Attributes: []Attribute{intsAttr("pads", 1, 1, 1, 1)}}

	seqOut, err := NewRegistry().Execute(&Context{Parallel: parallel.Sequential()}, node, []*tensor.Tensor{x, w})
	require.NoError(t, err)
	parOut, err := NewRegistry().Execute(&Context{Parallel: parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}},
		node, []*tensor.Tensor{x, w})
	require.NoError(t, err)
	assert.Equal(t, seqOut[0].Data(), parOut[0].Data())
}

func TestConvRejectsBadChannels(t *testing.T) {
	x := mustTensor(t, tensor.Shape{1, 3, 2, 2}, seq(12)...)
	w := mustTensor(t, tensor.Shape{1, 2, 1, 1}, 1, 1)
	_, err := NewRegistry().Execute(nil, &Node{OpType: "Conv"}, []*tensor.Tensor{x, w})
	assert.Error(t, err)
}

func TestDepthToSpace(t *testing.T) {
	// 4 channels of 1x1 become one 2x2 plane.
	x := mustTensor(t, tensor.Shape{1, 4, 1, 1}, 0, 1, 2, 3)
	dcr := run(t, "DepthToSpace", &Node{Attributes: []Attribute{intAttr("blocksize", 2)}}, x)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, dcr.Shape())
	assert.Equal(t, []float32{0, 1, 2, 3}, dcr.Data())

	// With two output channels DCR interleaves them, CRD keeps them together.
	x8 := mustTensor(t, tensor.Shape{1, 8, 1, 1}, seq(8)...)
	dcr8 := run(t, "DepthToSpace", &Node{Attributes: []Attribute{intAttr("blocksize", 2)}}, x8)
	assert.Equal(t, []float32{0, 2, 4, 6, 1, 3, 5, 7}, dcr8.Data())

	crd8 := run(t, "DepthToSpace", &Node{Attributes: []Attribute{intAttr("blocksize", 2), strAttr("mode", "CRD")}}, x8)
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5, 6, 7}, crd8.Data())
}

func TestDepthToSpaceSpatialLayout(t *testing.T) {
	// Channel k holds value k at both pixels of a 1x2 map.
	x := mustTensor(t, tensor.Shape{1, 4, 1, 2}, 0, 0, 1, 1, 2, 2, 3, 3)
	out := run(t, "DepthToSpace", &Node{Attributes: []Attribute{intAttr("blocksize", 2)}}, x)
	assert.Equal(t, tensor.Shape{1, 1, 2, 4}, out.Shape())
	assert.Equal(t, []float32{0, 1, 0, 1, 2, 3, 2, 3}, out.Data())
}

func TestConcat(t *testing.T) {
	a := mustTensor(t, tensor.Shape{1, 1, 2}, 1, 2)
	b := mustTensor(t, tensor.Shape{1, 2, 2}, 3, 4, 5, 6)
	out := run(t, "Concat", &Node{Attributes: []Attribute{intAttr("axis", -2)}}, a, b)
	assert.Equal(t, tensor.Shape{1, 3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, out.Data())

	c := mustTensor(t, tensor.Shape{2, 1}, 1, 2)
	d := mustTensor(t, tensor.Shape{2, 1}, 3, 4)
	last := run(t, "Concat", &Node{Attributes: []Attribute{intAttr("axis", 1)}}, c, d)
	assert.Equal(t, []float32{1, 3, 2, 4}, last.Data())
}

func TestPad(t *testing.T) {
	x := mustTensor(t, tensor.Shape{1, 3}, 1, 2, 3)
	pads := mustTensor(t, tensor.Shape{4}, 0, 2, 0, 1)

	constant := run(t, "Pad", nil, x, pads, tensor.Scalar(9))
	assert.Equal(t, []float32{9, 9, 1, 2, 3, 9}, constant.Data())

	edge := run(t, "Pad", &Node{Attributes: []Attribute{strAttr("mode", "edge")}}, x, pads)
	assert.Equal(t, []float32{1, 1, 1, 2, 3, 3}, edge.Data())

	reflect := run(t, "Pad", &Node{Attributes: []Attribute{strAttr("mode", "reflect")}}, x, pads)
	assert.Equal(t, []float32{3, 2, 1, 2, 3, 2}, reflect.Data())

	legacy := run(t, "Pad", &Node{Attributes: []Attribute{intsAttr("pads", 0, 1, 0, 0)}}, x)
	assert.Equal(t, []float32{0, 1, 2, 3}, legacy.Data())

	crop := run(t, "Pad", nil, x, mustTensor(t, tensor.Shape{4}, 0, -1, 0, 0))
	assert.Equal(t, []float32{2, 3}, crop.Data())
}

func TestResizeNearestDoubles(t *testing.T) {
	x := mustTensor(t, tensor.Shape{1, 1, 2, 2}, 1, 2, 3, 4)
	want := []float32{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	scales := mustTensor(t, tensor.Shape{4}, 1, 1, 2, 2)

	halfPixel := run(t, "Resize", nil, x, nil, scales)
	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, halfPixel.Shape())
	assert.Equal(t, want, halfPixel.Data())

	asym := run(t, "Resize", &Node{Attributes: []Attribute{
		strAttr("coordinate_transformation_mode", "asymmetric"), strAttr("nearest_mode", "floor"),
	}}, x, nil, nil, mustTensor(t, tensor.Shape{4}, 1, 1, 4, 4))
	assert.Equal(t, want, asym.Data())

	opset10 := run(t, "Resize", nil, x, scales)
	assert.Equal(t, want, opset10.Data())

	upsample := run(t, "Upsample", &Node{Attributes: []Attribute{{Name: "scales", Floats: []float32{1, 1, 2, 2}}}}, x)
	assert.Equal(t, want, upsample.Data())

	_, err := NewRegistry().Execute(nil, &Node{OpType: "Resize", Attributes: []Attribute{strAttr("mode", "cubic")}},
		[]*tensor.Tensor{x, nil, scales})
	assert.ErrorContains(t, err, "unsupported mode")
}

func TestConstantAndIdentity(t *testing.T) {
	v := mustTensor(t, tensor.Shape{2}, 1, 2)
	assert.Same(t, v, run(t, "Constant", &Node{Attributes: []Attribute{{Name: "value", T: v}}}))
	assert.Equal(t, []float32{4}, run(t, "Constant", &Node{Attributes: []Attribute{{Name: "value_float", F: 4}}}).Data())
	assert.Equal(t, []float32{1, 2}, run(t, "Constant", &Node{Attributes: []Attribute{intsAttr("value_ints", 1, 2)}}).Data())
	assert.Same(t, v, run(t, "Identity", nil, v))

	_, err := NewRegistry().Execute(nil, &Node{OpType: "Constant"}, nil)
	assert.Error(t, err)
}
