// Package catalog provides the tool registry the pipeline editor resolves
// tools against: an in-memory Registry and a YAML catalog format to fill it.
//
// A catalog file lists tools with ordered port mappings and a
// category-specific config block:
//
//	tools:
//	  - name: fetch
//	    description: GET a URL
//	    category: networked
//	    inputs:
//	      url: string
//	    outputs:
//	      status: {type: number, description: HTTP status}
//	      body: string
//	    config:
//	      method: GET
//	      url: https://example.com/{url}
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/pipeline"
)

type catalogFile struct {
	Tools []toolEntry `yaml:"tools" validate:"dive"`
}

type toolEntry struct {
	Name        string    `yaml:"name" validate:"required,max=100"`
	Description string    `yaml:"description" validate:"max=1000"`
	Category    string    `yaml:"category" validate:"required,oneof=computational retrieval networked scripted"`
	Inputs      yaml.Node `yaml:"inputs"`
	Outputs     yaml.Node `yaml:"outputs"`
	Config      yaml.Node `yaml:"config"`
}

type portEntry struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

var validate = validator.New()

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) ([]pipeline.ToolDefinition, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("catalog: read file: %w", err)
	}
	return Parse(data)
}

// Load reads a catalog from r.
func Load(r io.Reader) ([]pipeline.ToolDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Unknown keys are rejected,
// tool names must be unique, and every definition must resolve to ports.
func Parse(data []byte) ([]pipeline.ToolDefinition, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	defs := make([]pipeline.ToolDefinition, 0, len(f.Tools))
	seen := make(map[string]struct{}, len(f.Tools))
	for _, entry := range f.Tools {
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate tool %q", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		def, err := entry.definition()
		if err != nil {
			return nil, fmt.Errorf("catalog: tool %q: %w", entry.Name, err)
		}
		if _, _, err := pipeline.ResolvePorts(def); err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

func (e toolEntry) definition() (*pipeline.ToolDefinition, error) {
	def := &pipeline.ToolDefinition{
		Name:        e.Name,
		Description: e.Description,
		Category:    pipeline.Category(e.Category),
	}

	var err error
	if def.InputSchema, err = decodePorts(&e.Inputs); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	if def.OutputSchema, err = decodePorts(&e.Outputs); err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}

	cfg, err := pipeline.NewToolConfig(def.Category)
	if err != nil {
		return nil, err
	}
	if !e.Config.IsZero() {
		if err := e.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	def.Config = cfg
	return def, nil
}

// decodePorts reads an ordered port mapping. Each value is either a bare
// type name or a {type, description} mapping.
func decodePorts(n *yaml.Node) ([]pipeline.SchemaField, error) {
	if n.IsZero() || n.Tag == "!!null" {
		return []pipeline.SchemaField{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of port names", n.Line)
	}

	fields := make([]pipeline.SchemaField, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		field := pipeline.SchemaField{Name: key.Value}
		switch val.Kind {
		case yaml.ScalarNode:
			field.Type = val.Value
		case yaml.MappingNode:
			var p portEntry
			if err := val.Decode(&p); err != nil {
				return nil, fmt.Errorf("port %q: %w", key.Value, err)
			}
			field.Type, field.Description = p.Type, p.Description
		default:
			return nil, fmt.Errorf("line %d: port %q must be a type name or a mapping", val.Line, key.Value)
		}
		fields = append(fields, field)
	}
	return fields, nil
}
