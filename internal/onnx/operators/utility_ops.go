package operators

import (
	"fmt"

	"github.com/born-ml/upscale/internal/tensor"
)

func (r *Registry) registerUtilityOps() {
	r.Register("Identity", handleIdentity)
	r.Register("Dropout", handleIdentity) // inference: pass-through
	r.Register("Constant", handleConstant)
}

func handleIdentity(_ *Context, _ *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := requireInputs("identity", inputs, 1); err != nil {
		return nil, err
	}
	return one(inputs[0]), nil
}

func handleConstant(_ *Context, node *Node, _ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if t := GetAttrTensor(node, "value"); t != nil {
		return one(t), nil
	}
	switch {
	case HasAttr(node, "value_float"):
		return one(tensor.Scalar(GetAttrFloat(node, "value_float", 0))), nil
	case HasAttr(node, "value_floats"):
		v := GetAttrFloats(node, "value_floats")
		t, err := tensor.New(tensor.Shape{len(v)}, append([]float32(nil), v...))
		if err != nil {
			return nil, fmt.Errorf("constant: %w", err)
		}
		return one(t), nil
	case HasAttr(node, "value_int"):
		return one(tensor.Scalar(float32(GetAttrInt(node, "value_int", 0)))), nil
	case HasAttr(node, "value_ints"):
		v := GetAttrInts(node, "value_ints")
		t, err := tensor.FromInt64(tensor.Shape{len(v)}, v)
		if err != nil {
			return nil, fmt.Errorf("constant: %w", err)
		}
		return one(t), nil
	}
	return nil, fmt.Errorf("constant: node %q has no supported value attribute", node.Name)
}
