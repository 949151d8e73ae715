package operators

import (
	"fmt"
	"sort"

	"github.com/born-ml/upscale/internal/parallel"
	"github.com/born-ml/upscale/internal/tensor"
)

// OpHandler processes an ONNX node and returns output tensors.
// Optional inputs that the graph leaves empty are passed as nil.
type OpHandler func(ctx *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error)

// Context carries execution settings shared by all operators of a run.
type Context struct {
	Parallel parallel.Config
}

// DefaultContext parallelises heavy kernels across all CPUs.
func DefaultContext() *Context {
	return &Context{Parallel: parallel.DefaultConfig()}
}

// Registry maps ONNX operator types to handler functions.
type Registry struct {
	handlers map[string]OpHandler
}

// NewRegistry creates a new operator registry with all supported operators.
func NewRegistry() *Registry {
	r := &Registry{
		handlers: make(map[string]OpHandler),
	}
	r.registerMathOps()
	r.registerActivations()
	r.registerConvOps()
	r.registerShapeOps()
	r.registerResizeOps()
	r.registerUtilityOps()
	return r
}

// Register adds or replaces an operator handler.
func (r *Registry) Register(opType string, handler OpHandler) {
	r.handlers[opType] = handler
}

// Get returns the handler for an operator type.
func (r *Registry) Get(opType string) (OpHandler, bool) {
	h, ok := r.handlers[opType]
	return h, ok
}

// Execute runs an operator with the given inputs.
func (r *Registry) Execute(ctx *Context, node *Node, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	handler, ok := r.handlers[node.OpType]
	if !ok {
		return nil, fmt.Errorf("unsupported operator: %s", node.OpType)
	}
	return handler(ctx, node, inputs)
}

// SupportedOps returns the registered operator types in sorted order.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// requireInputs checks that inputs[0:n] are present.
func requireInputs(op string, inputs []*tensor.Tensor, n int) error {
	if len(inputs) < n {
		return fmt.Errorf("%s requires %d inputs, got %d", op, n, len(inputs))
	}
	for i := 0; i < n; i++ {
		if inputs[i] == nil {
			return fmt.Errorf("%s: input %d is missing", op, i)
		}
	}
	return nil
}

// optionalInput returns inputs[i] or nil.
func optionalInput(inputs []*tensor.Tensor, i int) *tensor.Tensor {
	if i < len(inputs) {
		return inputs[i]
	}
	return nil
}

func one(t *tensor.Tensor) []*tensor.Tensor {
	return []*tensor.Tensor{t}
}

// normAxis maps a possibly negative axis into [0, rank).
func normAxis(axis int64, rank int) (int, error) {
	a := int(axis)
	if a < 0 {
		a += rank
	}
	if a < 0 || a >= rank {
		return 0, fmt.Errorf("axis %d out of range for rank %d", axis, rank)
	}
	return a, nil
}

// parallelRange splits [0, n) across the context's workers, keeping at
// least minChunk items per goroutine. A nil context runs inline.
func parallelRange(ctx *Context, n, minChunk int, f func(start, end int)) {
	cfg := parallel.Sequential()
	if ctx != nil {
		cfg = ctx.Parallel
		cfg.MinChunkSize = max(cfg.MinChunkSize, minChunk)
	}
	parallel.Range(n, f, cfg)
}
