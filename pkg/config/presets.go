package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultPreset = "full"

type preset struct {
	key    string
	params Params
}

var presets = []preset{
	{key: "full", params: Params{
		Name: "Full Mandelbrot Set", CenterX: "-0.675", CenterY: "0",
		Radius: "1.25", Ratio: "1", MaxIteration: 200,
	}},
	{key: "elephant-valley", params: Params{
		Name: "Mandelbrot Elephant Valley", CenterX: "-0.74728352972", CenterY: "0.10757720113",
		Radius: "0.00020306307", Ratio: "1", MaxIteration: 2000,
	}},
	{key: "spirals", params: Params{
		Name: "Mandelbrot Spirals", CenterX: "-0.726516262498", CenterY: "0.18783225",
		Radius: "0.00003", Ratio: "1", MaxIteration: 2000,
	}},
	{key: "seahorse-valley", params: Params{
		Name: "Mandelbrot Seahorse Valley", CenterX: "-0.74579999998", CenterY: "0.10975",
		Radius: "0.0005", Ratio: "1", MaxIteration: 2000,
	}},
	{key: "squared-spirals", params: Params{
		Name: "Mandelbrot Squared Spirals", CenterX: "-1.76622701902486844983", CenterY: "0.01182325403486396853",
		Radius: "1.749564E-13", Ratio: "1", MaxIteration: 20000,
	}},
	{key: "ring-of-fire", params: Params{
		Name: "Minibrot with Ring of Fire", CenterX: "-1.15266540088230347", CenterY: "0.30699874725259538",
		Radius: "6.2385403E-10", Ratio: "1", MaxIteration: 20000,
	}},
}

// PresetNames lists the keys accepted by Preset, from overview to detail.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.key
	}
	return names
}

// Presets returns the built-in regions.
func Presets() []Params {
	result := make([]Params, len(presets))
	for i, p := range presets {
		result[i] = p.params
	}
	return result
}

// Preset returns the built-in region with the given key or display name.
func Preset(name string) (Params, error) {
	for _, p := range presets {
		if strings.EqualFold(p.key, name) || strings.EqualFold(p.params.Name, name) {
			return p.params, nil
		}
	}
	return Params{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

type presetFile struct {
	Presets []Params `yaml:"presets"`
}

// LoadPresets reads a YAML list of regions:
//
//	presets:
//	  - name: Needle
//	    center_x: "-1.9999"
//	    center_y: "0"
//	    radius: "0.0001"
//	    max_iteration: 1000
func LoadPresets(path string) ([]Params, error) {
	content, err := os.ReadFile(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}

	var file presetFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	for i, p := range file.Presets {
		if _, err := p.Area(); err != nil {
			return nil, fmt.Errorf("preset %d: %w", i, err)
		}
	}
	return file.Presets, nil
}

func findPreset(list []Params, name string) (Params, error) {
	for _, p := range list {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Params{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}
