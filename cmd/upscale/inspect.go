package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/born-ml/upscale/internal/backend/neural"
	"github.com/born-ml/upscale/internal/onnx"
)

func inspect(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: upscale inspect model.onnx")
	}
	path := args[0]
	info, err := onnx.GetModelInfo(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "model:    %s\n", path)
	fmt.Fprintf(stdout, "producer: %s %s\n", info.ProducerName, info.ProducerVersion)
	fmt.Fprintf(stdout, "ir:       %d, opset %d\n", info.IRVersion, info.OpsetVersion)
	for i, name := range info.InputNames {
		fmt.Fprintf(stdout, "input:    %s %v\n", name, info.InputShapes[i])
	}
	for i, name := range info.OutputNames {
		fmt.Fprintf(stdout, "output:   %s %v\n", name, info.OutputShapes[i])
	}
	fmt.Fprintf(stdout, "nodes:    %d, weights %d\n", info.NodeCount, info.WeightCount)

	ops := make([]string, 0, len(info.OpCounts))
	for op, n := range info.OpCounts {
		ops = append(ops, fmt.Sprintf("%s=%d", op, n))
	}
	sort.Strings(ops)
	fmt.Fprintf(stdout, "ops:      %s\n", strings.Join(ops, " "))

	b, err := neural.New(path)
	if err != nil {
		fmt.Fprintf(stdout, "upscaler: no (%v)\n", err)
		return nil
	}
	fmt.Fprintf(stdout, "upscaler: %d -> %d (x%g)\n", b.OriginalResolution(), b.UpscaledResolution(), b.Factor())
	return nil
}
