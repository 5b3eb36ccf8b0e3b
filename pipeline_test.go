package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry is a map-backed ToolRegistry for tests.
type fakeRegistry struct {
	tools map[string]ToolDefinition
	err   error
}

func newFakeRegistry(defs ...ToolDefinition) *fakeRegistry {
	r := &fakeRegistry{tools: make(map[string]ToolDefinition)}
	for _, d := range defs {
		r.tools[d.Name] = d
	}
	return r
}

func (r *fakeRegistry) ListTools(context.Context) ([]ToolDefinition, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]ToolDefinition, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeRegistry) GetTool(_ context.Context, name string) (*ToolDefinition, error) {
	if r.err != nil {
		return nil, r.err
	}
	d, ok := r.tools[name]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// testTools returns the tools most tests build graphs from.
func testTools() *fakeRegistry {
	return newFakeRegistry(
		ToolDefinition{
			Name:         "relay",
			Category:     Computational,
			InputSchema:  []SchemaField{{Name: "in", Type: "string"}},
			OutputSchema: []SchemaField{{Name: "out", Type: "string"}},
		},
		ToolDefinition{
			Name:         "counter",
			Category:     Computational,
			InputSchema:  []SchemaField{{Name: "in", Type: "number"}},
			OutputSchema: []SchemaField{{Name: "out", Type: "number"}},
		},
		ToolDefinition{
			Name:         "source",
			Category:     Retrieval,
			OutputSchema: []SchemaField{{Name: "out", Type: "string"}},
		},
		ToolDefinition{
			Name:         "sink",
			Category:     Networked,
			InputSchema:  []SchemaField{{Name: "in", Type: "string"}, {Name: "meta", Type: "object"}},
		},
	)
}

// sequentialIDs returns a generator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// chain builds nodes of the given tool connected out->in in order and
// returns their ids.
func chain(t *testing.T, ed *Editor, g *Graph, tool string, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		id, err := ed.AddNode(context.Background(), g, tool, Position{X: float64(i * 100)})
		require.NoError(t, err)
		ids[i] = id
	}
	for i := 0; i+1 < n; i++ {
		_, err := ed.AddConnection(g, Connection{SourceNodeID: ids[i], SourcePort: "out", TargetNodeID: ids[i+1], TargetPort: "in"})
		require.NoError(t, err)
	}
	return ids
}

func TestGraph_Accessors(t *testing.T) {
	ed := NewEditor(testTools(), WithIDGenerator(sequentialIDs("n")))
	g := NewGraph()
	ids := chain(t, ed, g, "relay", 2)

	n, ok := g.Node(ids[0])
	require.True(t, ok)
	n.Outputs[0].Name = "mutated"
	n.Position.X = 99

	again, _ := g.Node(ids[0])
	assert.Equal(t, "out", again.Outputs[0].Name, "ports are not shared with callers")
	assert.Equal(t, float64(0), again.Position.X)

	e, ok := g.IncomingEdge(ids[1], "in")
	require.True(t, ok)
	got, ok := g.Edge(e.ID)
	require.True(t, ok)
	assert.Equal(t, e, got)

	_, ok = g.Node("missing")
	assert.False(t, ok)
	_, ok = g.Edge("missing")
	assert.False(t, ok)
}

func TestAssemble_KeepsDuplicates(t *testing.T) {
	g := Assemble(
		[]Node{{ID: "a", ToolName: "x"}, {ID: "a", ToolName: "y"}},
		nil,
	)
	assert.Equal(t, 2, g.NodeCount())
	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "x", n.ToolName, "lookups resolve to the first occurrence")
}

func TestErrors_Unwrap(t *testing.T) {
	assert.True(t, errors.Is(&DefinitionError{Msg: "x"}, ErrDefinition))
	assert.True(t, errors.Is(&MalformedDocumentError{Field: "nodes"}, ErrMalformedDocument))
	assert.True(t, errors.Is(&CorruptPipelineError{}, ErrCorruptPipeline))

	inner := errors.New("boom")
	assert.True(t, errors.Is(&MalformedDocumentError{Err: inner}, inner))
}
