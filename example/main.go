package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/catalog"
	"github.com/meikuraledutech/pipeline/postgres"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Wire up the postgres implementation behind the Store interface.
	pg := postgres.New(pool)
	var store pipeline.Store = pg

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Register tools ────────────────────────────────────────────────
	tools := append(catalog.Builtins(), pipeline.ToolDefinition{
		Name:         "summarize",
		Description:  "Condense text to a short summary",
		Category:     pipeline.Scripted,
		InputSchema:  []pipeline.SchemaField{{Name: "text", Type: "string"}},
		OutputSchema: []pipeline.SchemaField{{Name: "summary", Type: "string"}},
		Config: &pipeline.ScriptedConfig{
			Language: "python",
			Source:   "def run(text): return text[:200]",
		},
	})
	for i := range tools {
		if err := pg.UpsertTool(ctx, &tools[i]); err != nil {
			log.Fatalf("upsert tool: %v", err)
		}
	}
	fmt.Printf("registered %d tools\n", len(tools))

	// ── Build a pipeline: search -> summarize ─────────────────────────
	ed := pipeline.NewEditor(pg)
	g := pipeline.NewGraph()

	search, err := ed.AddNode(ctx, g, "search", pipeline.Position{X: 0, Y: 0})
	if err != nil {
		log.Fatalf("add node: %v", err)
	}
	summarize, err := ed.AddNode(ctx, g, "summarize", pipeline.Position{X: 250, Y: 0})
	if err != nil {
		log.Fatalf("add node: %v", err)
	}
	calc, err := ed.AddNode(ctx, g, "calculator", pipeline.Position{X: 250, Y: 150})
	if err != nil {
		log.Fatalf("add node: %v", err)
	}

	edgeID, err := ed.AddConnection(g, pipeline.Connection{
		SourceNodeID: search, SourcePort: "results",
		TargetNodeID: summarize, TargetPort: "text",
	})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	fmt.Printf("connected search -> summarize: %s\n", edgeID)

	// ── Rejected gestures leave the graph untouched ───────────────────
	_, err = ed.AddConnection(g, pipeline.Connection{
		SourceNodeID: summarize, SourcePort: "summary",
		TargetNodeID: summarize, TargetPort: "text",
	})
	fmt.Printf("self loop rejected: %v\n", errors.Is(err, pipeline.ErrSelfLoop))

	_, err = ed.AddConnection(g, pipeline.Connection{
		SourceNodeID: calc, SourcePort: "result",
		TargetNodeID: summarize, TargetPort: "text",
	})
	fmt.Printf("number -> string rejected: %v\n", errors.Is(err, pipeline.ErrTypeMismatch))

	// ── Save and load ─────────────────────────────────────────────────
	if err := pipeline.SavePipeline(ctx, store, g); err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Println("pipeline saved")

	loaded, err := pipeline.LoadPipeline(ctx, store)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	doc, err := pipeline.Snapshot(loaded)
	if err != nil {
		log.Fatalf("snapshot: %v", err)
	}
	fmt.Println("\npipeline loaded:")
	printJSON(doc)

	// ── Removing a node drops its edges ───────────────────────────────
	ed.RemoveNode(g, summarize)
	fmt.Printf("\nafter removing summarize: %d nodes, %d edges\n", g.NodeCount(), g.EdgeCount())

	// ── Deleting a tool does not break the saved pipeline ─────────────
	if err := pg.DeleteTool(ctx, "summarize"); err != nil {
		log.Fatalf("delete tool: %v", err)
	}
	loaded, err = pipeline.LoadPipeline(ctx, store)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	violations, err := pipeline.ValidateTools(ctx, loaded, pg)
	if err != nil {
		log.Fatalf("validate: %v", err)
	}
	fmt.Printf("reloaded after tool deletion, %d advisory violation(s)\n", len(violations))
	for _, v := range violations {
		fmt.Println("  " + v.String())
	}

	// ── Clean up ──────────────────────────────────────────────────────
	if err := store.DeleteDocument(ctx); err != nil {
		log.Fatalf("delete: %v", err)
	}
	if _, err := pipeline.LoadPipeline(ctx, store); errors.Is(err, pipeline.ErrNoPipeline) {
		fmt.Println("\npipeline deleted")
	}
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
