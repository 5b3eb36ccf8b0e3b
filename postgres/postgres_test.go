package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/pipeline"
)

// newTestStore connects to DATABASE_URL and recreates the schema.
// Tests are skipped when no database is configured.
func newTestStore(t *testing.T) *PGStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	t.Cleanup(func() { _ = s.DropSchema(context.Background()) })
	return s
}

func TestPGStore_DocumentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.GetDocument(ctx)
	require.NoError(t, err)
	assert.Nil(t, doc, "empty slot")

	want := &pipeline.Document{
		Nodes: []pipeline.DocumentNode{
			{ID: "b", ToolName: "search", Position: pipeline.Position{X: 10, Y: 20},
				Inputs:  []pipeline.DocumentPort{{Name: "query", DataType: pipeline.TypeString}},
				Outputs: []pipeline.DocumentPort{{Name: "results", DataType: pipeline.TypeObject}}},
			{ID: "a", ToolName: "summarize",
				Inputs:  []pipeline.DocumentPort{{Name: "docs", DataType: pipeline.TypeObject}},
				Outputs: []pipeline.DocumentPort{}},
		},
		Edges: []pipeline.DocumentEdge{
			{ID: "e1", SourceNodeID: "b", SourcePort: "results", TargetNodeID: "a", TargetPort: "docs"},
		},
	}
	require.NoError(t, s.PutDocument(ctx, want))

	got, err := s.GetDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	g, err := pipeline.LoadPipeline(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestPGStore_PutReplacesSlot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &pipeline.Document{
		Nodes: []pipeline.DocumentNode{{ID: "x", ToolName: "calculator", Inputs: []pipeline.DocumentPort{}, Outputs: []pipeline.DocumentPort{}}},
		Edges: []pipeline.DocumentEdge{},
	}
	require.NoError(t, s.PutDocument(ctx, first))

	empty := &pipeline.Document{Nodes: []pipeline.DocumentNode{}, Edges: []pipeline.DocumentEdge{}}
	require.NoError(t, s.PutDocument(ctx, empty))

	got, err := s.GetDocument(ctx)
	require.NoError(t, err)
	require.NotNil(t, got, "an empty pipeline is still a saved pipeline")
	assert.Empty(t, got.Nodes)

	require.NoError(t, s.DeleteDocument(ctx))
	got, err = s.GetDocument(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPGStore_Tools(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	def := &pipeline.ToolDefinition{
		Name:        "fetch",
		Description: "GET a URL",
		Category:    pipeline.Networked,
		InputSchema: []pipeline.SchemaField{{Name: "url", Type: "string"}},
		OutputSchema: []pipeline.SchemaField{
			{Name: "status", Type: "number"},
			{Name: "body", Type: "string"},
		},
		Config: &pipeline.NetworkedConfig{Method: "GET", URL: "https://example.com"},
	}
	require.NoError(t, s.UpsertTool(ctx, def))

	got, err := s.GetTool(ctx, "fetch")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, def.OutputSchema, got.OutputSchema)
	assert.Equal(t, def.Config, got.Config)

	missing, err := s.GetTool(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	tools, err := s.ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, tools, 1)

	require.NoError(t, s.DeleteTool(ctx, "fetch"))
	tools, err = s.ListTools(ctx)
	require.NoError(t, err)
	assert.Empty(t, tools)
}
