package pipeline

import (
	"context"
	"fmt"
)

// Store persists the current pipeline. There is a single implicit slot:
// PutDocument overwrites it and GetDocument returns nil, nil while it is
// empty.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Current pipeline
	GetDocument(ctx context.Context) (*Document, error)
	PutDocument(ctx context.Context, doc *Document) error
	DeleteDocument(ctx context.Context) error
}

// SavePipeline validates g and writes it to the store's slot.
// Nothing is written when the graph is invalid.
func SavePipeline(ctx context.Context, s Store, g *Graph) error {
	doc, err := Snapshot(g)
	if err != nil {
		return err
	}
	if err := s.PutDocument(ctx, doc); err != nil {
		return fmt.Errorf("pipeline: save: %w", err)
	}
	return nil
}

// LoadPipeline restores the graph stored in the slot. It returns
// ErrNoPipeline when nothing has been saved yet.
func LoadPipeline(ctx context.Context, s Store) (*Graph, error) {
	doc, err := s.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load: %w", err)
	}
	if doc == nil {
		return nil, ErrNoPipeline
	}
	return Restore(doc)
}
