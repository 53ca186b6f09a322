// Package cli holds the flags shared by the commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willbeason/deepzoom/pkg/config"
	"github.com/willbeason/deepzoom/pkg/logging"
)

// Flags override values of the configuration file.
type Flags struct {
	configPath string
	preset     string
	width      uint32
	height     uint32
	maxIter    uint32
	fractal    string
	algorithm  string
	workers    int
	gradient   string
	logLevel   string
}

// AddFlags registers the shared flags on cmd.
func AddFlags(cmd *cobra.Command) *Flags {
	f := &Flags{}
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "TOML or YAML run configuration")
	fs.StringVarP(&f.preset, "preset", "p", "", "built-in region, see the presets command")
	fs.Uint32Var(&f.width, "width", 0, "width in cells")
	fs.Uint32Var(&f.height, "height", 0, "height in cells")
	fs.Uint32VarP(&f.maxIter, "max-iteration", "i", 0, "iteration limit")
	fs.StringVar(&f.fractal, "fractal", "", "mandelbrot, julia or julia-n")
	fs.StringVar(&f.algorithm, "algorithm", "", "shuffled or linear")
	fs.IntVar(&f.workers, "workers", 0, "parallel workers of the shuffled algorithm, 0 for one per CPU")
	fs.StringVar(&f.gradient, "gradient", "", "color scheme")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	return f
}

// Load reads the configuration file, if any, and applies the flags set on
// cmd.
func (f *Flags) Load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("preset") {
		params, err := config.Preset(f.preset)
		if err != nil {
			return nil, err
		}
		cfg.Preset, cfg.Area = f.preset, params
	}
	if changed("width") {
		cfg.Width = f.width
	}
	if changed("height") {
		cfg.Height = f.height
	}
	if changed("max-iteration") {
		cfg.Area.MaxIteration = f.maxIter
	}
	if changed("fractal") {
		cfg.Fractal.Kind = f.fractal
	}
	if changed("algorithm") {
		cfg.Algorithm = f.algorithm
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("gradient") {
		cfg.Color.Gradient = f.gradient
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: empty raster %dx%d", config.ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if cfg.Area.MaxIteration == 0 {
		return nil, fmt.Errorf("%w: zero iteration limit", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogging installs a text logger on stderr.
func SetupLogging(level string) error {
	logger, err := logging.New(level, os.Stderr)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	return nil
}

// PresetsCmd lists the built-in regions.
func PresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in regions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for i, p := range config.Presets() {
				cmd.Printf("%-16s %s (radius %s, %d iterations)\n",
					config.PresetNames()[i], p.Name, p.Radius, p.MaxIteration)
			}
		},
	}
}
