package main

import (
	"context"
	"errors"
	"sync"

	"github.com/meikuraledutech/pipeline"
)

// draft is the graph being edited over HTTP. Requests are serialised by mu
// so each gesture, including its checks, completes before the next starts.
type draft struct {
	mu      sync.Mutex
	graph   *pipeline.Graph
	store   pipeline.Store
	metrics *metrics
}

func newDraft(store pipeline.Store, m *metrics) *draft {
	return &draft{graph: pipeline.NewGraph(), store: store, metrics: m}
}

// with runs fn against the draft graph while holding the lock.
func (d *draft) with(fn func(g *pipeline.Graph) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := fn(d.graph)
	d.metrics.setDraftSize(d.graph.NodeCount(), d.graph.EdgeCount())
	return err
}

// reload replaces the draft with the saved pipeline, or with an empty
// graph when nothing has been saved. On any other error the draft is kept.
func (d *draft) reload(ctx context.Context) error {
	g, err := pipeline.LoadPipeline(ctx, d.store)
	d.metrics.recordPersistence("load", ignoreNoPipeline(err))
	switch {
	case errors.Is(err, pipeline.ErrNoPipeline):
		g = pipeline.NewGraph()
	case err != nil:
		return err
	}
	return d.with(func(*pipeline.Graph) error {
		d.graph = g
		return nil
	})
}

// save writes the draft to the store slot.
func (d *draft) save(ctx context.Context) error {
	err := d.with(func(g *pipeline.Graph) error {
		return pipeline.SavePipeline(ctx, d.store, g)
	})
	d.metrics.recordPersistence("save", err)
	return err
}

// document returns the draft in its wire form.
func (d *draft) document() (*pipeline.Document, error) {
	var doc *pipeline.Document
	err := d.with(func(g *pipeline.Graph) error {
		var err error
		doc, err = pipeline.Snapshot(g)
		return err
	})
	return doc, err
}

func ignoreNoPipeline(err error) error {
	if errors.Is(err, pipeline.ErrNoPipeline) {
		return nil
	}
	return err
}
