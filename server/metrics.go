package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics counts editing gestures and persistence calls and tracks the
// size of the draft.
type metrics struct {
	edits       *prometheus.CounterVec
	persistence *prometheus.CounterVec
	draftSize   *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		edits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_edits_total",
				Help: "Editing gestures applied to the draft, by operation and outcome.",
			},
			[]string{"op", "result"},
		),
		persistence: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_persistence_total",
				Help: "Pipeline loads and saves, by operation and outcome.",
			},
			[]string{"op", "result"},
		),
		draftSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipeline_draft_elements",
				Help: "Nodes and edges currently in the draft.",
			},
			[]string{"element"},
		),
	}
}

// recordEdit counts a gesture. Rejected gestures are labelled with the
// error kind reported to the client.
func (m *metrics) recordEdit(op string, err error) {
	m.edits.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *metrics) recordPersistence(op string, err error) {
	m.persistence.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *metrics) setDraftSize(nodes, edges int) {
	m.draftSize.WithLabelValues("nodes").Set(float64(nodes))
	m.draftSize.WithLabelValues("edges").Set(float64(edges))
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	_, kind := errorStatus(err)
	return kind
}
