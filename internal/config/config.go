// Package config loads the TOML configuration of the upscale command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/born-ml/upscale/internal/backend/cpu"
	"github.com/born-ml/upscale/internal/backend/neural"
	"github.com/born-ml/upscale/internal/backend/webgpu"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// Backend names accepted in Config.Backend.
const (
	BackendCPU    = "cpu"
	BackendWebGPU = "webgpu"
	BackendNeural = "neural"
)

// Config is the full command configuration. Zero sections take defaults.
type Config struct {
	Backend  string  `toml:"backend"`
	Factor   float32 `toml:"factor"`
	Repeat   int     `toml:"repeat"`
	LogLevel string  `toml:"log_level"`
	Output   Output  `toml:"output"`
	CPU      CPU     `toml:"cpu"`
	WebGPU   WebGPU  `toml:"webgpu"`
	Neural   Neural  `toml:"neural"`
}

// Output controls how results are written.
type Output struct {
	JPEGQuality int `toml:"jpeg_quality"`
}

// CPU configures the filter backend.
type CPU struct {
	Filter string `toml:"filter"`
}

// WebGPU configures the GPU pipeline backend.
type WebGPU struct {
	// Shader is a WGSL file path or the name of an embedded shader.
	Shader     string     `toml:"shader"`
	Power      string     `toml:"power"`
	ClearColor [4]float64 `toml:"clear_color"`
}

// Neural configures the ONNX backend.
type Neural struct {
	Model        string     `toml:"model"`
	ChannelOrder string     `toml:"channel_order"`
	ValueRange   [2]float32 `toml:"value_range"`
	Strict       bool       `toml:"strict"`
	Workers      int        `toml:"workers"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Backend:  BackendCPU,
		Factor:   2,
		Repeat:   1,
		LogLevel: "info",
		Output:   Output{JPEGQuality: 90},
		CPU:      CPU{Filter: "nearest"},
		WebGPU: WebGPU{
			Shader:     "passthrough",
			Power:      "high-performance",
			ClearColor: [4]float64{0, 1, 0, 1},
		},
		Neural: Neural{
			ChannelOrder: "bgr",
			ValueRange:   [2]float32{0, 1},
			Strict:       true,
		},
	}
}

// Load reads the TOML file at path over the defaults. A leading ~ in path
// and in the shader and model paths is expanded to the home directory.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode strictly decodes TOML data into cfg, keeping fields the data
// does not set.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return err
	}
	return nil
}

// ExpandPaths expands a leading ~ in file paths.
func (c *Config) ExpandPaths() error {
	var err error
	if c.WebGPU.Shader, err = homedir.Expand(c.WebGPU.Shader); err != nil {
		return err
	}
	c.Neural.Model, err = homedir.Expand(c.Neural.Model)
	return err
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendCPU, BackendWebGPU, BackendNeural:
	default:
		errs = append(errs, fmt.Errorf("backend: unknown %q", c.Backend))
	}
	if c.Factor <= 0 && c.Backend != BackendNeural {
		errs = append(errs, fmt.Errorf("factor: must be > 0, got %v", c.Factor))
	}
	if c.Repeat < 1 {
		errs = append(errs, fmt.Errorf("repeat: must be >= 1, got %d", c.Repeat))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if q := c.Output.JPEGQuality; q < 1 || q > 100 {
		errs = append(errs, fmt.Errorf("output.jpeg_quality: must be in [1, 100], got %d", q))
	}
	if _, err := cpu.ParseFilter(c.CPU.Filter); err != nil {
		errs = append(errs, fmt.Errorf("cpu.filter: %w", err))
	}
	if c.WebGPU.Shader == "" {
		errs = append(errs, errors.New("webgpu.shader: empty"))
	}
	if _, err := webgpu.ParsePowerPreference(c.WebGPU.Power); err != nil {
		errs = append(errs, fmt.Errorf("webgpu.power: %w", err))
	}
	if _, err := neural.ParseChannelOrder(c.Neural.ChannelOrder); err != nil {
		errs = append(errs, fmt.Errorf("neural.channel_order: %w", err))
	}
	if r := c.Neural.ValueRange; r[0] == r[1] {
		errs = append(errs, fmt.Errorf("neural.value_range: empty range %v", r))
	}
	if c.Neural.Workers < 0 {
		errs = append(errs, fmt.Errorf("neural.workers: must be >= 0, got %d", c.Neural.Workers))
	}
	if c.Backend == BackendNeural && c.Neural.Model == "" {
		errs = append(errs, errors.New("neural.model: required by the neural backend"))
	}
	return errors.Join(errs...)
}
