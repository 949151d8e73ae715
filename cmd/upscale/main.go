// Package main provides the upscale command line tool.
package main

import (
	"fmt"
	"io"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	os.Exit(dispatch(os.Args[1:], os.Stdout, os.Stderr))
}

func dispatch(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	var err error
	switch args[0] {
	case "run":
		err = run(args[1:], stdout, stderr)
	case "inspect":
		err = inspect(args[1:], stdout)
	case "version":
		fmt.Fprintf(stdout, "upscale %s\n", version)
	case "help", "-h", "-help", "--help":
		usage(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "upscale %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "upscale %s - square image upscaler\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run       Upscale an image and report timings (run -h for flags)")
	fmt.Fprintln(w, "  inspect   Describe an ONNX model and check it can upscale")
	fmt.Fprintln(w, "  version   Show version")
}
