package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/pipeline"
)

// UpsertTool inserts or replaces a tool definition.
func (s *PGStore) UpsertTool(ctx context.Context, def *pipeline.ToolDefinition) error {
	if def.Name == "" {
		return &pipeline.DefinitionError{Msg: "missing name"}
	}
	config := json.RawMessage(`{}`)
	if def.Config != nil {
		raw, err := json.Marshal(def.Config)
		if err != nil {
			return fmt.Errorf("pipeline: encode tool config: %w", err)
		}
		config = raw
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO pipeline_tools (name, description, category, input_schema, output_schema, config)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name) DO UPDATE SET
		     description = EXCLUDED.description,
		     category = EXCLUDED.category,
		     input_schema = EXCLUDED.input_schema,
		     output_schema = EXCLUDED.output_schema,
		     config = EXCLUDED.config`,
		def.Name, def.Description, string(def.Category), nonNilFields(def.InputSchema), nonNilFields(def.OutputSchema), config,
	)
	if err != nil {
		return fmt.Errorf("pipeline: upsert tool: %w", err)
	}
	return nil
}

// GetTool fetches a tool definition by name.
// Returns nil, nil if not found.
func (s *PGStore) GetTool(ctx context.Context, name string) (*pipeline.ToolDefinition, error) {
	row := s.db.QueryRow(ctx,
		`SELECT name, description, category, input_schema, output_schema, config FROM pipeline_tools WHERE name = $1`, name)

	def, err := scanTool(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pipeline: get tool: %w", err)
	}
	return def, nil
}

// ListTools returns every tool ordered by name.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListTools(ctx context.Context) ([]pipeline.ToolDefinition, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, description, category, input_schema, output_schema, config FROM pipeline_tools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list tools: %w", err)
	}
	defer rows.Close()

	tools := []pipeline.ToolDefinition{}
	for rows.Next() {
		def, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("pipeline: scan tool: %w", err)
		}
		tools = append(tools, *def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows tools: %w", err)
	}
	return tools, nil
}

// DeleteTool removes a tool definition. Saved pipelines that use the tool
// are unaffected since nodes carry their own ports.
// No error if the tool doesn't exist.
func (s *PGStore) DeleteTool(ctx context.Context, name string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM pipeline_tools WHERE name = $1`, name); err != nil {
		return fmt.Errorf("pipeline: delete tool: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTool(row scanner) (*pipeline.ToolDefinition, error) {
	var (
		def      pipeline.ToolDefinition
		category string
		config   []byte
	)
	if err := row.Scan(&def.Name, &def.Description, &category, &def.InputSchema, &def.OutputSchema, &config); err != nil {
		return nil, err
	}
	def.Category = pipeline.Category(category)
	cfg, err := pipeline.DecodeToolConfig(def.Category, config)
	if err != nil {
		return nil, err
	}
	def.Config = cfg
	return &def, nil
}

func nonNilFields(fields []pipeline.SchemaField) []pipeline.SchemaField {
	if fields == nil {
		return []pipeline.SchemaField{}
	}
	return fields
}
