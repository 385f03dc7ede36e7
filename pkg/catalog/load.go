package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlCatalog is the on-disk catalog layout
type yamlCatalog struct {
	Version string  `yaml:"version"`
	Kinds   []Entry `yaml:"kinds"`
}

// Parse builds a registry from YAML bytes
func Parse(data []byte) (*Registry, error) {
	if len(data) == 0 {
		return nil, errors.New("empty catalog input")
	}

	var yc yamlCatalog
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if len(yc.Kinds) == 0 {
		return nil, errors.New("catalog defines no kinds")
	}

	r := NewRegistry()
	for i, e := range yc.Kinds {
		if err := r.Register(e); err != nil {
			return nil, fmt.Errorf("kinds[%d]: %w", i, err)
		}
	}
	return r, nil
}

// LoadFile builds a registry from a YAML file
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}
