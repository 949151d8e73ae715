package operators

import "github.com/born-ml/upscale/internal/tensor"

// Node represents an ONNX operation node.
// It mirrors the fields of onnx.NodeProto that operators read, so that this
// package does not import its caller.
type Node struct {
	Name       string
	OpType     string
	Inputs     []string
	Outputs    []string
	Attributes []Attribute
	Domain     string
}

// Attribute represents a node attribute.
type Attribute struct {
	Name    string
	Type    int32
	F       float32
	I       int64
	S       []byte
	T       *tensor.Tensor
	Floats  []float32
	Ints    []int64
	Strings [][]byte
}

func (n *Node) attr(name string) *Attribute {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i]
		}
	}
	return nil
}

// HasAttr reports whether the node carries the named attribute.
func HasAttr(node *Node, name string) bool {
	return node.attr(name) != nil
}

// GetAttrInt returns an integer attribute or default value.
func GetAttrInt(node *Node, name string, defaultVal int64) int64 {
	if a := node.attr(name); a != nil {
		return a.I
	}
	return defaultVal
}

// GetAttrInts returns an integer array attribute.
func GetAttrInts(node *Node, name string) []int64 {
	if a := node.attr(name); a != nil {
		return a.Ints
	}
	return nil
}

// GetAttrFloat returns a float attribute or default value.
func GetAttrFloat(node *Node, name string, defaultVal float32) float32 {
	if a := node.attr(name); a != nil {
		return a.F
	}
	return defaultVal
}

// GetAttrFloats returns a float array attribute.
func GetAttrFloats(node *Node, name string) []float32 {
	if a := node.attr(name); a != nil {
		return a.Floats
	}
	return nil
}

// GetAttrString returns a string attribute or default value.
func GetAttrString(node *Node, name, defaultVal string) string {
	if a := node.attr(name); a != nil {
		return string(a.S)
	}
	return defaultVal
}

// GetAttrTensor returns a tensor attribute or nil.
func GetAttrTensor(node *Node, name string) *tensor.Tensor {
	if a := node.attr(name); a != nil {
		return a.T
	}
	return nil
}
