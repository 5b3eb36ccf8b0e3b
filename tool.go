package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
)

// Category governs how a tool's configuration is interpreted. The graph
// model itself only needs the resolved ports.
type Category string

const (
	Computational Category = "computational"
	Retrieval     Category = "retrieval"
	Networked     Category = "networked"
	Scripted      Category = "scripted"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Computational, Retrieval, Networked, Scripted:
		return true
	}
	return false
}

// SchemaField declares one port of a tool. Type is kept as written so that
// the resolver can default unknown types.
type SchemaField struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type,omitempty" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// ToolDefinition is a catalog entry. Schemas are ordered.
type ToolDefinition struct {
	Name         string
	Description  string
	Category     Category
	InputSchema  []SchemaField
	OutputSchema []SchemaField
	Config       ToolConfig
}

// ToolRegistry is the read-only catalog the editor resolves tools against.
// GetTool returns nil, nil when no tool has that name.
type ToolRegistry interface {
	ListTools(ctx context.Context) ([]ToolDefinition, error)
	GetTool(ctx context.Context, name string) (*ToolDefinition, error)
}

// ToolConfig is the category-specific configuration of a tool.
type ToolConfig interface {
	Category() Category
}

// ComputationalConfig configures tools evaluated in-process, such as the
// calculator.
type ComputationalConfig struct {
	Precision int `json:"precision,omitempty" yaml:"precision" validate:"min=0,max=32"`
}

// RetrievalConfig configures search and document lookup tools.
type RetrievalConfig struct {
	Index string `json:"index,omitempty" yaml:"index"`
	TopK  int    `json:"topK,omitempty" yaml:"top_k" validate:"min=0,max=100"`
}

// NetworkedConfig configures tools backed by an HTTP endpoint.
type NetworkedConfig struct {
	Method         string            `json:"method" yaml:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	URL            string            `json:"url" yaml:"url" validate:"required,url"`
	Headers        map[string]string `json:"headers,omitempty" yaml:"headers"`
	TimeoutSeconds int               `json:"timeoutSeconds,omitempty" yaml:"timeout_seconds" validate:"min=0,max=300"`
}

// ScriptedConfig configures tools whose body is user-supplied code.
type ScriptedConfig struct {
	Language   string `json:"language" yaml:"language" validate:"required,oneof=python javascript"`
	Entrypoint string `json:"entrypoint,omitempty" yaml:"entrypoint"`
	Source     string `json:"source" yaml:"source" validate:"required"`
}

func (ComputationalConfig) Category() Category { return Computational }
func (RetrievalConfig) Category() Category     { return Retrieval }
func (NetworkedConfig) Category() Category     { return Networked }
func (ScriptedConfig) Category() Category      { return Scripted }

// NewToolConfig returns a zero config value for the category, ready to be
// decoded into.
func NewToolConfig(c Category) (ToolConfig, error) {
	switch c {
	case Computational:
		return &ComputationalConfig{}, nil
	case Retrieval:
		return &RetrievalConfig{}, nil
	case Networked:
		return &NetworkedConfig{}, nil
	case Scripted:
		return &ScriptedConfig{}, nil
	}
	return nil, fmt.Errorf("pipeline: unknown tool category %q", c)
}

// DecodeToolConfig decodes a JSON config for the given category. Empty
// input yields the zero config.
func DecodeToolConfig(c Category, raw json.RawMessage) (ToolConfig, error) {
	cfg, err := NewToolConfig(c)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("pipeline: decode %s config: %w", c, err)
	}
	return cfg, nil
}
