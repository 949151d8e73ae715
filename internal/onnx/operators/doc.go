// Package operators provides the ONNX operators used by super-resolution
// graphs: convolutions, element-wise arithmetic, activations and the
// pixel-rearranging ops that enlarge feature maps.
package operators
