package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/meikuraledutech/pipeline"
)

// Registry is an in-memory pipeline.ToolRegistry. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]pipeline.ToolDefinition
}

var _ pipeline.ToolRegistry = (*Registry)(nil)

// New creates a registry holding defs. Definitions that do not resolve to
// ports are rejected.
func New(defs ...pipeline.ToolDefinition) (*Registry, error) {
	r := &Registry{tools: make(map[string]pipeline.ToolDefinition, len(defs))}
	for i := range defs {
		if err := r.Register(&defs[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a tool definition.
func (r *Registry) Register(def *pipeline.ToolDefinition) error {
	if _, _, err := pipeline.ResolvePorts(def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = cloneDefinition(def)
	return nil
}

// Delete removes a tool. Nodes already placed from it keep their ports.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// ListTools returns every tool ordered by name.
func (r *Registry) ListTools(context.Context) ([]pipeline.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]pipeline.ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, cloneDefinition(&def))
	}
	slices.SortFunc(out, func(a, b pipeline.ToolDefinition) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// GetTool returns the named tool, or nil, nil if there is none.
func (r *Registry) GetTool(_ context.Context, name string) (*pipeline.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	if !ok {
		return nil, nil
	}
	c := cloneDefinition(&def)
	return &c, nil
}

func cloneDefinition(def *pipeline.ToolDefinition) pipeline.ToolDefinition {
	c := *def
	c.InputSchema = slices.Clone(def.InputSchema)
	c.OutputSchema = slices.Clone(def.OutputSchema)
	return c
}

// Builtins returns the tools every installation starts with.
func Builtins() []pipeline.ToolDefinition {
	return []pipeline.ToolDefinition{
		{
			Name:         "calculator",
			Description:  "Perform basic math operations",
			Category:     pipeline.Computational,
			InputSchema:  []pipeline.SchemaField{{Name: "expression", Type: "string"}},
			OutputSchema: []pipeline.SchemaField{{Name: "result", Type: "number"}},
			Config:       &pipeline.ComputationalConfig{},
		},
		{
			Name:         "search",
			Description:  "Search the web for information",
			Category:     pipeline.Retrieval,
			InputSchema:  []pipeline.SchemaField{{Name: "query", Type: "string"}},
			OutputSchema: []pipeline.SchemaField{{Name: "results", Type: "string"}},
			Config:       &pipeline.RetrievalConfig{TopK: 5},
		},
	}
}
