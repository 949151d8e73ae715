package onnx

import (
	"errors"
	"fmt"

	"github.com/born-ml/upscale/internal/onnx/operators"
	"github.com/born-ml/upscale/internal/tensor"
)

// ErrCycle is returned for graphs whose nodes depend on each other.
var ErrCycle = errors.New("graph contains a cycle")

// Session is a compiled ONNX graph ready for inference.
// Run may be called repeatedly; a Session is not safe for concurrent use.
type Session struct {
	proto        *ModelProto
	registry     *operators.Registry
	ctx          *operators.Context
	weights      map[string]*tensor.Tensor
	inputs       []*ValueInfoProto
	outputs      []*ValueInfoProto
	nodes        []compiledNode
	opsetVersion int64
}

type compiledNode struct {
	proto *NodeProto
	op    *operators.Node
}

// InputNames returns the names of the graph inputs that are not initializers.
func (s *Session) InputNames() []string {
	names := make([]string, len(s.inputs))
	for i, v := range s.inputs {
		names[i] = v.Name
	}
	return names
}

// OutputNames returns the graph output names.
func (s *Session) OutputNames() []string {
	names := make([]string, len(s.outputs))
	for i, v := range s.outputs {
		names[i] = v.Name
	}
	return names
}

// InputShape returns the declared dimensions of the first input, with -1
// for symbolic dimensions.
func (s *Session) InputShape() []int64 {
	if len(s.inputs) == 0 {
		return nil
	}
	return s.inputs[0].StaticDims()
}

// OutputShape returns the declared dimensions of the first output, with -1
// for symbolic dimensions.
func (s *Session) OutputShape() []int64 {
	if len(s.outputs) == 0 {
		return nil
	}
	return s.outputs[0].StaticDims()
}

// Input returns the value info of the first input, or nil.
func (s *Session) Input() *ValueInfoProto {
	if len(s.inputs) == 0 {
		return nil
	}
	return s.inputs[0]
}

// Output returns the value info of the first output, or nil.
func (s *Session) Output() *ValueInfoProto {
	if len(s.outputs) == 0 {
		return nil
	}
	return s.outputs[0]
}

// OpsetVersion returns the default-domain opset version.
func (s *Session) OpsetVersion() int64 {
	return s.opsetVersion
}

// Metadata returns model metadata as key-value pairs.
func (s *Session) Metadata() map[string]string {
	meta := make(map[string]string)
	for _, prop := range s.proto.MetadataProps {
		meta[prop.Key] = prop.Value
	}
	meta["producer_name"] = s.proto.ProducerName
	meta["producer_version"] = s.proto.ProducerVersion
	meta["domain"] = s.proto.Domain
	return meta
}

// Run feeds input to the single graph input and returns the first output.
func (s *Session) Run(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(s.inputs) != 1 {
		return nil, fmt.Errorf("model has %d inputs, use RunNamed", len(s.inputs))
	}
	outputs, err := s.RunNamed(map[string]*tensor.Tensor{s.inputs[0].Name: input})
	if err != nil {
		return nil, err
	}
	return outputs[s.outputs[0].Name], nil
}

// RunNamed runs inference with named inputs and returns every graph output
// by name.
func (s *Session) RunNamed(inputs map[string]*tensor.Tensor) (map[string]*tensor.Tensor, error) {
	values := make(map[string]*tensor.Tensor, len(s.weights)+len(inputs))
	for name, t := range s.weights {
		values[name] = t
	}
	for _, in := range s.inputs {
		t, ok := inputs[in.Name]
		if !ok || t == nil {
			return nil, fmt.Errorf("missing input: %s", in.Name)
		}
		if err := checkInputShape(in, t); err != nil {
			return nil, err
		}
		values[in.Name] = t
	}

	for i := range s.nodes {
		n := &s.nodes[i]
		args := make([]*tensor.Tensor, len(n.proto.Inputs))
		for j, name := range n.proto.Inputs {
			if name == "" {
				continue // optional input not provided
			}
			t, ok := values[name]
			if !ok {
				return nil, fmt.Errorf("node %s: missing input %s", n.proto.Name, name)
			}
			args[j] = t
		}
		outs, err := s.registry.Execute(s.ctx, n.op, args)
		if err != nil {
			return nil, fmt.Errorf("node %s (%s): %w", n.proto.Name, n.proto.OpType, err)
		}
		for j, name := range n.proto.Outputs {
			if j < len(outs) && name != "" {
				values[name] = outs[j]
			}
		}
	}

	result := make(map[string]*tensor.Tensor, len(s.outputs))
	for _, out := range s.outputs {
		t, ok := values[out.Name]
		if !ok {
			return nil, fmt.Errorf("missing output: %s", out.Name)
		}
		result[out.Name] = t
	}
	return result, nil
}

// checkInputShape compares static declared dimensions with the fed tensor.
func checkInputShape(vi *ValueInfoProto, t *tensor.Tensor) error {
	dims := vi.StaticDims()
	if dims == nil {
		return nil
	}
	shape := t.Shape()
	if len(dims) != len(shape) {
		return fmt.Errorf("input %s: rank %d, model declares %v", vi.Name, len(shape), dims)
	}
	for i, d := range dims {
		if d >= 0 && int(d) != shape[i] {
			return fmt.Errorf("input %s: shape %v, model declares %v", vi.Name, shape, dims)
		}
	}
	return nil
}

// compile loads initializers, resolves graph inputs and orders the nodes.
func (s *Session) compile() error {
	graph := s.proto.Graph
	if graph == nil {
		return fmt.Errorf("model has no graph")
	}

	s.weights = make(map[string]*tensor.Tensor, len(graph.Initializers))
	for i := range graph.Initializers {
		init := &graph.Initializers[i]
		t, err := tensorFromProto(init)
		if err != nil {
			return fmt.Errorf("failed to load initializer %s: %w", init.Name, err)
		}
		s.weights[init.Name] = t
	}

	// Older exporters list initializers as graph inputs too.
	for i := range graph.Inputs {
		if _, isWeight := s.weights[graph.Inputs[i].Name]; !isWeight {
			s.inputs = append(s.inputs, &graph.Inputs[i])
		}
	}
	for i := range graph.Outputs {
		s.outputs = append(s.outputs, &graph.Outputs[i])
	}
	if len(s.outputs) == 0 {
		return fmt.Errorf("graph has no outputs")
	}

	order, err := topologicalSort(graph.Nodes)
	if err != nil {
		return err
	}
	s.nodes = make([]compiledNode, len(order))
	for i, idx := range order {
		op, err := operatorNode(&graph.Nodes[idx])
		if err != nil {
			return err
		}
		s.nodes[i] = compiledNode{proto: &graph.Nodes[idx], op: op}
	}

	for _, opset := range s.proto.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			s.opsetVersion = opset.Version
			break
		}
	}
	return nil
}

// operatorNode converts a NodeProto, decoding tensor attributes once.
func operatorNode(p *NodeProto) (*operators.Node, error) {
	attrs := make([]operators.Attribute, len(p.Attributes))
	for i := range p.Attributes {
		a := &p.Attributes[i]
		attrs[i] = operators.Attribute{
			Name:    a.Name,
			Type:    a.Type,
			F:       a.F,
			I:       a.I,
			S:       a.S,
			Floats:  a.Floats,
			Ints:    a.Ints,
			Strings: a.Strings,
		}
		if a.T != nil {
			t, err := tensorFromProto(a.T)
			if err != nil {
				return nil, fmt.Errorf("node %s attribute %s: %w", p.Name, a.Name, err)
			}
			attrs[i].T = t
		}
	}
	return &operators.Node{
		Name:       p.Name,
		OpType:     p.OpType,
		Inputs:     p.Inputs,
		Outputs:    p.Outputs,
		Attributes: attrs,
		Domain:     p.Domain,
	}, nil
}

// topologicalSort returns node indices in execution order, keeping the
// file order among independent nodes.
func topologicalSort(nodes []NodeProto) ([]int, error) {
	producer := make(map[string]int)
	for i := range nodes {
		for _, out := range nodes[i].Outputs {
			producer[out] = i
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	mark := make([]int, len(nodes))
	order := make([]int, 0, len(nodes))

	var visit func(i int) error
	visit = func(i int) error {
		switch mark[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w at node %s (%s)", ErrCycle, nodes[i].Name, nodes[i].OpType)
		}
		mark[i] = visiting
		for _, in := range nodes[i].Inputs {
			if dep, ok := producer[in]; ok && dep != i {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		mark[i] = done
		order = append(order, i)
		return nil
	}

	for i := range nodes {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}
