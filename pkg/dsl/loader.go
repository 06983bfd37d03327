package dsl

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/conductor/pkg/domain"
)

// Load reads a YAML definition file from r. The document holds a
// `workflows` list; every entry must validate.
func Load(r io.Reader) ([]*domain.WorkflowDefinition, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}

	var file struct {
		Workflows []map[string]any `yaml:"workflows"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing definitions: %w", err)
	}

	defs := make([]*domain.WorkflowDefinition, 0, len(file.Workflows))
	for i, entry := range file.Workflows {
		def, err := FromMap(entry)
		if err != nil {
			return nil, fmt.Errorf("workflow %d: %w", i, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadFile reads a YAML definition file from disk.
func LoadFile(path string) ([]*domain.WorkflowDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}

// FromMap decodes a generic key/value document (decoded YAML or JSON)
// into a validated definition. Field names follow the yaml struct tags.
func FromMap(m map[string]any) (*domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "yaml",
		Result:  &def,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decoding definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
