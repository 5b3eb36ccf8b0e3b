package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipeline_slots (
    slot     TEXT PRIMARY KEY,
    saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pipeline_nodes (
    id        TEXT PRIMARY KEY,
    slot      TEXT NOT NULL REFERENCES pipeline_slots(slot) ON DELETE CASCADE,
    seq       INTEGER NOT NULL,
    tool_name TEXT NOT NULL,
    position  JSONB NOT NULL DEFAULT '{"x":0,"y":0}',
    inputs    JSONB NOT NULL DEFAULT '[]',
    outputs   JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS pipeline_edges (
    id             TEXT PRIMARY KEY,
    slot           TEXT NOT NULL REFERENCES pipeline_slots(slot) ON DELETE CASCADE,
    seq            INTEGER NOT NULL,
    source_node_id TEXT NOT NULL REFERENCES pipeline_nodes(id) ON DELETE CASCADE,
    source_port    TEXT NOT NULL,
    target_node_id TEXT NOT NULL REFERENCES pipeline_nodes(id) ON DELETE CASCADE,
    target_port    TEXT NOT NULL,
    UNIQUE (target_node_id, target_port)
);

CREATE TABLE IF NOT EXISTS pipeline_tools (
    name          TEXT PRIMARY KEY,
    description   TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL,
    input_schema  JSONB NOT NULL DEFAULT '[]',
    output_schema JSONB NOT NULL DEFAULT '[]',
    config        JSONB NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_pipeline_nodes_slot ON pipeline_nodes(slot, seq);
CREATE INDEX IF NOT EXISTS idx_pipeline_edges_slot ON pipeline_edges(slot, seq);
`

// CreateSchema creates the pipeline and tool tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the pipeline and tool tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS pipeline_edges, pipeline_nodes, pipeline_slots, pipeline_tools CASCADE;`)
	return err
}
