// Package config loads run configurations for the command line tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/willbeason/deepzoom/pkg/event"
	"github.com/willbeason/deepzoom/pkg/precision"
)

var (
	ErrUnknownFormat = errors.New("unknown config format")
	ErrUnknownPreset = errors.New("unknown preset")
	ErrInvalidConfig = errors.New("invalid config")
)

// Params describes a region of the plane. Coordinates are kept as strings so
// that deep zooms keep every digit.
type Params struct {
	Name         string `toml:"name" yaml:"name"`
	CenterX      string `toml:"center_x" yaml:"center_x"`
	CenterY      string `toml:"center_y" yaml:"center_y"`
	Radius       string `toml:"radius" yaml:"radius"`
	Ratio        string `toml:"ratio" yaml:"ratio"`
	MaxIteration uint32 `toml:"max_iteration" yaml:"max_iteration"`
}

// IsZero reports whether no coordinate is set.
func (p Params) IsZero() bool {
	return p.CenterX == "" && p.CenterY == "" && p.Radius == ""
}

// Area parses the region. An empty ratio means square.
func (p Params) Area() (*precision.Area, error) {
	ratio := p.Ratio
	if ratio == "" {
		ratio = "1"
	}
	area, err := precision.ParseArea(p.CenterX, p.CenterY, p.Radius, ratio)
	if err != nil {
		return nil, fmt.Errorf("params %q: %w", p.Name, err)
	}
	return area, nil
}

// Duration wraps time.Duration for TOML and YAML parsing.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

type BatchConfig struct {
	Capacity int      `toml:"capacity" yaml:"capacity"`
	Interval Duration `toml:"interval" yaml:"interval"`
}

type FractalConfig struct {
	// Kind is mandelbrot, julia or julia-n.
	Kind string `toml:"kind" yaml:"kind"`
	// C is the Julia constant, or the offset added to c for mandelbrot.
	C [2]float64 `toml:"c" yaml:"c"`
	// Exponent of julia-n.
	Exponent float64 `toml:"exponent" yaml:"exponent"`
}

func (f FractalConfig) Complex() complex128 {
	return complex(f.C[0], f.C[1])
}

type ColorConfig struct {
	Gradient   string `toml:"gradient" yaml:"gradient"`
	Assignment string `toml:"assignment" yaml:"assignment"`
	Stripes    int    `toml:"stripes" yaml:"stripes"`
}

// Config is a complete run.
type Config struct {
	// Preset names a built-in region, or one from PresetFile, used when
	// Area is empty.
	Preset     string `toml:"preset" yaml:"preset"`
	PresetFile string `toml:"preset_file" yaml:"preset_file"`
	Area       Params `toml:"area" yaml:"area"`

	Width       uint32 `toml:"width" yaml:"width"`
	Height      uint32 `toml:"height" yaml:"height"`
	Supersample uint32 `toml:"supersample" yaml:"supersample"`

	Fractal   FractalConfig `toml:"fractal" yaml:"fractal"`
	Algorithm string        `toml:"algorithm" yaml:"algorithm"`
	Workers   int           `toml:"workers" yaml:"workers"`
	Batch     BatchConfig   `toml:"batch" yaml:"batch"`
	Poll      Duration      `toml:"poll" yaml:"poll"`
	Color     ColorConfig   `toml:"color" yaml:"color"`

	LogLevel string `toml:"log_level" yaml:"log_level"`
	Output   string `toml:"output" yaml:"output"`
}

// Default is the configuration used without a config file.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.resolve(); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads a TOML or YAML file, chosen by extension, and fills in
// defaults.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".yaml", ".yml":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve() error {
	if c.Area.IsZero() {
		params, err := c.lookupPreset()
		if err != nil {
			return err
		}
		if c.Area.MaxIteration != 0 {
			params.MaxIteration = c.Area.MaxIteration
		}
		c.Area = params
	}
	c.applyDefaults()
	return c.Validate()
}

func (c *Config) lookupPreset() (Params, error) {
	name := c.Preset
	if name == "" {
		name = DefaultPreset
	}
	if c.PresetFile == "" {
		return Preset(name)
	}

	presets, err := LoadPresets(c.PresetFile)
	if err != nil {
		return Params{}, err
	}
	return findPreset(presets, name)
}

// applyDefaults sets default values for missing configuration.
func (c *Config) applyDefaults() {
	if c.Area.Ratio == "" {
		c.Area.Ratio = "1"
	}
	if c.Area.MaxIteration == 0 {
		c.Area.MaxIteration = 200
	}

	if c.Width == 0 {
		c.Width = 800
	}
	if c.Height == 0 {
		c.Height = 600
	}
	if c.Supersample == 0 {
		c.Supersample = 1
	}

	if c.Fractal.Kind == "" {
		c.Fractal.Kind = "mandelbrot"
	}
	if c.Fractal.Exponent == 0 {
		c.Fractal.Exponent = 2
	}
	if c.Algorithm == "" {
		c.Algorithm = "shuffled"
	}
	if c.Batch.Capacity == 0 {
		c.Batch.Capacity = event.DefaultMaxCapacity
	}
	if c.Batch.Interval.Duration == 0 {
		c.Batch.Interval.Duration = event.DefaultMaxInterval
	}
	if c.Poll.Duration == 0 {
		c.Poll.Duration = 20 * time.Millisecond
	}

	if c.Color.Gradient == "" {
		c.Color.Gradient = "sunrise"
	}
	if c.Color.Assignment == "" {
		c.Color.Assignment = "linear"
	}
	if c.Color.Stripes == 0 {
		c.Color.Stripes = 256
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Output == "" {
		c.Output = "fractal.png"
	}
}

// Validate checks the values defaults cannot repair.
func (c *Config) Validate() error {
	if _, err := c.Area.Area(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: negative workers %d", ErrInvalidConfig, c.Workers)
	}
	if c.Batch.Capacity < 0 || c.Batch.Interval.Duration < 0 || c.Poll.Duration < 0 {
		return fmt.Errorf("%w: negative batching or polling", ErrInvalidConfig)
	}
	if c.Color.Stripes < 0 {
		return fmt.Errorf("%w: negative stripes %d", ErrInvalidConfig, c.Color.Stripes)
	}
	return nil
}
