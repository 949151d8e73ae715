package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/born-ml/upscale/internal/backend/cpu"
	"github.com/born-ml/upscale/internal/backend/neural"
	"github.com/born-ml/upscale/internal/backend/webgpu"
	"github.com/born-ml/upscale/internal/config"
	"github.com/born-ml/upscale/internal/imageio"
	"github.com/born-ml/upscale/internal/logging"
	"github.com/born-ml/upscale/internal/onnx"
	"github.com/born-ml/upscale/internal/parallel"
	"github.com/born-ml/upscale/internal/upscaler"
	"github.com/born-ml/upscale/shaders"
)

// runFlags holds command line values. Only flags that were set override
// the configuration.
type runFlags struct {
	config   string
	backend  string
	factor   float64
	filter   string
	shader   string
	model    string
	repeat   int
	logLevel string
	in       string
	out      string
}

func parseRunFlags(args []string, stderr io.Writer) (*runFlags, *flag.FlagSet, error) {
	f := &runFlags{}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "TOML configuration file")
	fs.StringVar(&f.backend, "backend", "", "backend: cpu, webgpu or neural")
	fs.Float64Var(&f.factor, "factor", 0, "scale factor (cpu, webgpu)")
	fs.StringVar(&f.filter, "filter", "", "cpu resampling filter")
	fs.StringVar(&f.shader, "shader", "", "webgpu fragment shader: file path or embedded name")
	fs.StringVar(&f.model, "model", "", "neural ONNX model path")
	fs.IntVar(&f.repeat, "repeat", 0, "number of upscales to time")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.in, "in", "", "input image (required)")
	fs.StringVar(&f.out, "out", "", "output image; format from extension")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if f.in == "" {
		return nil, nil, fmt.Errorf("-in is required")
	}
	return f, fs, nil
}

// resolveConfig loads the configuration file, if any, and applies the
// flags that were set on top of it.
func resolveConfig(f *runFlags, fs *flag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return cfg, err
		}
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			cfg.Backend = f.backend
		case "factor":
			cfg.Factor = float32(f.factor)
		case "filter":
			cfg.CPU.Filter = f.filter
		case "shader":
			cfg.WebGPU.Shader = f.shader
		case "model":
			cfg.Neural.Model = f.model
		case "repeat":
			cfg.Repeat = f.repeat
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})
	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func run(args []string, stdout, stderr io.Writer) error {
	f, fs, err := parseRunFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(f, fs)
	if err != nil {
		return err
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logging.Set(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	log := logging.L()

	img, format, err := imageio.Read(f.in)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.in, err)
	}
	log.Info("image loaded", "path", f.in, "format", format, "size", fmt.Sprintf("%dx%d", img.Width, img.Height))

	up, name, release, err := newUpscaler(cfg, img)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	out, err := up.UpscaleRepeat(cfg.Repeat)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintf(stdout, "backend:  %s\n", name)
	fmt.Fprintf(stdout, "scale:    %d -> %d (x%g)\n", up.OriginalResolution(), up.UpscaledResolution(), up.Factor())
	fmt.Fprintf(stdout, "repeat:   %d\n", cfg.Repeat)
	fmt.Fprintf(stdout, "total:    %v\n", elapsed.Round(time.Microsecond))
	fmt.Fprintf(stdout, "per call: %v\n", (elapsed / time.Duration(cfg.Repeat)).Round(time.Microsecond))

	if f.out != "" {
		if err := imageio.Write(f.out, out, &imageio.Options{JPEGQuality: cfg.Output.JPEGQuality}); err != nil {
			return fmt.Errorf("write %s: %w", f.out, err)
		}
		log.Info("image written", "path", f.out)
	}
	return nil
}

type namedUpscaler interface {
	upscaler.Upscaler
	Name() string
}

// newUpscaler builds the configured backend with img loaded.
func newUpscaler(cfg config.Config, img *upscaler.Image) (upscaler.Upscaler, string, func(), error) {
	nop := func() {}
	var (
		b   namedUpscaler
		err error
	)
	switch cfg.Backend {
	case config.BackendCPU:
		filter, _ := cpu.ParseFilter(cfg.CPU.Filter)
		var c *cpu.Backend
		if c, err = cpu.New(cfg.Factor, filter); err == nil {
			b, err = c, c.Load(img)
		}
	case config.BackendWebGPU:
		var g *webgpu.Backend
		if g, err = newWebGPU(cfg, img); err == nil {
			return g, g.Name() + " on " + g.AdapterName(), g.Release, nil
		}
	case config.BackendNeural:
		var n *neural.Backend
		if n, err = newNeural(cfg); err == nil {
			b, err = n, n.Load(img)
		}
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, "", nop, err
	}
	return b, b.Name(), nop, nil
}

func newWebGPU(cfg config.Config, img *upscaler.Image) (*webgpu.Backend, error) {
	src, err := shaders.Source(cfg.WebGPU.Shader)
	if err != nil {
		data, ferr := os.ReadFile(cfg.WebGPU.Shader)
		if ferr != nil {
			return nil, fmt.Errorf("shader %q is neither embedded nor readable: %w", cfg.WebGPU.Shader, ferr)
		}
		src = string(data)
	}
	power, _ := webgpu.ParsePowerPreference(cfg.WebGPU.Power)
	c := cfg.WebGPU.ClearColor
	return webgpu.NewFromSource(src, img, cfg.Factor,
		webgpu.WithPowerPreference(power),
		webgpu.WithClearColor(c[0], c[1], c[2], c[3]))
}

func newNeural(cfg config.Config) (*neural.Backend, error) {
	order, _ := neural.ParseChannelOrder(cfg.Neural.ChannelOrder)
	par := parallel.DefaultConfig()
	if w := cfg.Neural.Workers; w > 0 {
		par.NumWorkers = w
		par.Enabled = w > 1
	}
	load := onnx.DefaultLoadOptions()
	load.StrictMode = cfg.Neural.Strict
	load.Parallel = par
	r := cfg.Neural.ValueRange
	return neural.New(cfg.Neural.Model,
		neural.WithChannelOrder(order),
		neural.WithValueRange(r[0], r[1]),
		neural.WithLoadOptions(load))
}
