package biome

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/aristath/qfarm/internal/quantum"
	"gopkg.in/yaml.v3"
)

//go:embed default_biomes.yaml
var defaultBiomes []byte

// Definition is the static description a biome is built from.
type Definition struct {
	Name string `yaml:"name" json:"name"`
	// Plots is the number of positions that can be explored.
	Plots int `yaml:"plots" json:"plots"`
	// Axes is the starting vocabulary, one qubit per axis.
	Axes  []quantum.Axis `yaml:"axes" json:"axes"`
	Icons []quantum.Icon `yaml:"icons" json:"icons"`
}

type catalog struct {
	Biomes []Definition `yaml:"biomes"`
}

// IconSet returns the definition's icons indexed by label.
func (d Definition) IconSet() quantum.IconSet {
	return quantum.NewIconSet(d.Icons...)
}

// Validate checks the definition without building anything.
func (d Definition) Validate(maxQubits int) error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("biome name is required"))
	}
	if d.Plots <= 0 {
		errs = append(errs, fmt.Errorf("biome %q: plots must be positive", d.Name))
	}
	if len(d.Axes) == 0 {
		errs = append(errs, fmt.Errorf("biome %q: at least one axis is required", d.Name))
	}
	if maxQubits > 0 && len(d.Axes) > maxQubits {
		errs = append(errs, fmt.Errorf("biome %q: %d axes exceed the %d qubit limit", d.Name, len(d.Axes), maxQubits))
	}
	seen := make(map[string]bool)
	for _, a := range d.Axes {
		for _, label := range []string{a.North, a.South} {
			if label == "" {
				errs = append(errs, fmt.Errorf("biome %q: empty axis label", d.Name))
				continue
			}
			if seen[label] {
				errs = append(errs, fmt.Errorf("biome %q: duplicate label %q", d.Name, label))
			}
			seen[label] = true
		}
	}
	for _, ic := range d.Icons {
		if ic.Label == "" {
			errs = append(errs, fmt.Errorf("biome %q: icon without label", d.Name))
		}
	}
	return errors.Join(errs...)
}

// ParseDefinitions decodes a biome catalog. JSON input is accepted as a YAML subset.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse biome definitions: %w", err)
	}
	if len(c.Biomes) == 0 {
		return nil, errors.New("no biomes defined")
	}
	names := make(map[string]bool, len(c.Biomes))
	for _, d := range c.Biomes {
		if names[d.Name] {
			return nil, fmt.Errorf("duplicate biome %q", d.Name)
		}
		names[d.Name] = true
	}
	return c.Biomes, nil
}

// LoadDefinitions reads a catalog from path, or the built-in catalog when path is empty.
func LoadDefinitions(path string) ([]Definition, error) {
	if path == "" {
		return ParseDefinitions(defaultBiomes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read biome definitions: %w", err)
	}
	return ParseDefinitions(data)
}
