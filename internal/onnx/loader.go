package onnx

import (
	"fmt"
	"sort"

	"github.com/born-ml/upscale/internal/logging"
	"github.com/born-ml/upscale/internal/onnx/operators"
	"github.com/born-ml/upscale/internal/parallel"
)

// LoadOptions configures model loading behavior.
type LoadOptions struct {
	// StrictMode fails on unsupported operators at load time instead of
	// at the first Run that reaches them.
	StrictMode bool

	// CustomOps adds or replaces operator handlers.
	CustomOps map[string]operators.OpHandler

	// Parallel controls how heavy kernels are split across goroutines.
	Parallel parallel.Config
}

// DefaultLoadOptions returns strict loading with all CPUs in use.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		StrictMode: true,
		Parallel:   parallel.DefaultConfig(),
	}
}

// Load parses an ONNX file and compiles it into a Session.
func Load(path string, opts ...LoadOptions) (*Session, error) {
	opt := DefaultLoadOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	proto, err := ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX file: %w", err)
	}
	return LoadFromProto(proto, opt)
}

// LoadFromBytes parses an in-memory ONNX model and compiles it.
func LoadFromBytes(data []byte, opts ...LoadOptions) (*Session, error) {
	opt := DefaultLoadOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	proto, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX data: %w", err)
	}
	return LoadFromProto(proto, opt)
}

// LoadFromProto compiles a parsed model.
func LoadFromProto(proto *ModelProto, opt LoadOptions) (*Session, error) {
	registry := operators.NewRegistry()
	for opType, handler := range opt.CustomOps {
		registry.Register(opType, handler)
	}

	if opt.StrictMode {
		if err := validateOperators(proto.Graph, registry); err != nil {
			return nil, err
		}
	}

	s := &Session{
		proto:    proto,
		registry: registry,
		ctx:      &operators.Context{Parallel: opt.Parallel},
	}
	if err := s.compile(); err != nil {
		return nil, fmt.Errorf("failed to compile model: %w", err)
	}
	logging.L().Debug("onnx session compiled",
		"nodes", len(s.nodes), "weights", len(s.weights), "opset", s.opsetVersion,
		"input", s.InputShape(), "output", s.OutputShape())
	return s, nil
}

// validateOperators checks that all operators are supported.
func validateOperators(graph *GraphProto, registry *operators.Registry) error {
	if graph == nil {
		return fmt.Errorf("model has no graph")
	}
	seen := make(map[string]bool)
	var unsupported []string
	for i := range graph.Nodes {
		op := graph.Nodes[i].OpType
		if _, ok := registry.Get(op); !ok && !seen[op] {
			seen[op] = true
			unsupported = append(unsupported, op)
		}
	}
	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return fmt.Errorf("unsupported operators: %v", unsupported)
	}
	return nil
}

// ModelInfo contains basic information about an ONNX model without
// compiling it.
type ModelInfo struct {
	IRVersion       int64
	OpsetVersion    int64
	ProducerName    string
	ProducerVersion string
	InputNames      []string
	OutputNames     []string
	InputShapes     [][]int64
	OutputShapes    [][]int64
	OpCounts        map[string]int
	NodeCount       int
	WeightCount     int
}

// GetModelInfo extracts basic info from an ONNX file.
func GetModelInfo(path string) (*ModelInfo, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return ModelInfoFromProto(proto), nil
}

// ModelInfoFromProto summarises a parsed model.
func ModelInfoFromProto(proto *ModelProto) *ModelInfo {
	info := &ModelInfo{
		IRVersion:       proto.IRVersion,
		ProducerName:    proto.ProducerName,
		ProducerVersion: proto.ProducerVersion,
		OpCounts:        make(map[string]int),
	}
	for _, opset := range proto.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			info.OpsetVersion = opset.Version
			break
		}
	}

	graph := proto.Graph
	if graph == nil {
		return info
	}
	weights := make(map[string]bool)
	for i := range graph.Initializers {
		weights[graph.Initializers[i].Name] = true
	}
	for i := range graph.Inputs {
		in := &graph.Inputs[i]
		if !weights[in.Name] {
			info.InputNames = append(info.InputNames, in.Name)
			info.InputShapes = append(info.InputShapes, in.StaticDims())
		}
	}
	for i := range graph.Outputs {
		info.OutputNames = append(info.OutputNames, graph.Outputs[i].Name)
		info.OutputShapes = append(info.OutputShapes, graph.Outputs[i].StaticDims())
	}
	for i := range graph.Nodes {
		info.OpCounts[graph.Nodes[i].OpType]++
	}
	info.NodeCount = len(graph.Nodes)
	info.WeightCount = len(graph.Initializers)
	return info
}

// ListSupportedOps returns all supported ONNX operators in sorted order.
func ListSupportedOps() []string {
	return operators.NewRegistry().SupportedOps()
}
