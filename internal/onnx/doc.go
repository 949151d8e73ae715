// Package onnx loads ONNX models and runs them on the CPU.
//
// Model files are decoded with protowire into the plain structs in proto.go;
// only the messages and fields needed for inference are kept. A Session
// compiles the graph once (initializers, topological order, operator
// lookup) and can then be run any number of times.
//
//	sess, err := onnx.Load("esrgan.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := sess.Run(input)
//
// Only float32 computation is supported. Integer initializers (pads, axes,
// shapes) are converted to float32 on load.
package onnx
