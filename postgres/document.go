package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/pipeline"
)

// PutDocument replaces the current pipeline with doc in one transaction.
// Rows are numbered so that GetDocument returns nodes and edges in the
// order they were saved.
func (s *PGStore) PutDocument(ctx context.Context, doc *pipeline.Document) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: dropping the slot row cascades to its nodes and edges.
	if _, err := tx.Exec(ctx, `DELETE FROM pipeline_slots WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("pipeline: clear slot: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO pipeline_slots (slot) VALUES ($1)`, slot); err != nil {
		return fmt.Errorf("pipeline: insert slot: %w", err)
	}

	for i, n := range doc.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pipeline_nodes (id, slot, seq, tool_name, position, inputs, outputs) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.ID, slot, i, n.ToolName, n.Position, nonNilPorts(n.Inputs), nonNilPorts(n.Outputs),
		); err != nil {
			return fmt.Errorf("pipeline: insert node %s: %w", n.ID, err)
		}
	}

	for i, e := range doc.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pipeline_edges (id, slot, seq, source_node_id, source_port, target_node_id, target_port) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, slot, i, e.SourceNodeID, e.SourcePort, e.TargetNodeID, e.TargetPort,
		); err != nil {
			return fmt.Errorf("pipeline: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pipeline: commit: %w", err)
	}
	return nil
}

// GetDocument retrieves the current pipeline.
// Returns nil, nil if nothing has been saved yet.
func (s *PGStore) GetDocument(ctx context.Context) (*pipeline.Document, error) {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pipeline_slots WHERE slot = $1)`, slot,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("pipeline: query slot: %w", err)
	}
	if !exists {
		return nil, nil
	}

	doc := &pipeline.Document{
		Nodes: []pipeline.DocumentNode{},
		Edges: []pipeline.DocumentEdge{},
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, tool_name, position, inputs, outputs FROM pipeline_nodes WHERE slot = $1 ORDER BY seq`, slot)
	if err != nil {
		return nil, fmt.Errorf("pipeline: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n pipeline.DocumentNode
		if err := rows.Scan(&n.ID, &n.ToolName, &n.Position, &n.Inputs, &n.Outputs); err != nil {
			return nil, fmt.Errorf("pipeline: scan node: %w", err)
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows nodes: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, source_node_id, source_port, target_node_id, target_port FROM pipeline_edges WHERE slot = $1 ORDER BY seq`, slot)
	if err != nil {
		return nil, fmt.Errorf("pipeline: query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e pipeline.DocumentEdge
		if err := rows.Scan(&e.ID, &e.SourceNodeID, &e.SourcePort, &e.TargetNodeID, &e.TargetPort); err != nil {
			return nil, fmt.Errorf("pipeline: scan edge: %w", err)
		}
		doc.Edges = append(doc.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows edges: %w", err)
	}

	return doc, nil
}

// DeleteDocument empties the slot.
// No error if nothing was saved.
func (s *PGStore) DeleteDocument(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM pipeline_slots WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("pipeline: delete slot: %w", err)
	}
	return nil
}

func nonNilPorts(ports []pipeline.DocumentPort) []pipeline.DocumentPort {
	if ports == nil {
		return []pipeline.DocumentPort{}
	}
	return ports
}
