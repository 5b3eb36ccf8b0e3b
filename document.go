package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Document is the storage and wire form of a graph.
type Document struct {
	Nodes []DocumentNode `json:"nodes" validate:"dive"`
	Edges []DocumentEdge `json:"edges" validate:"dive"`
}

// DocumentNode is a node as stored. Its port lists are authoritative on
// restore; nothing is re-derived from the tool registry.
type DocumentNode struct {
	ID       string         `json:"id" validate:"required"`
	ToolName string         `json:"toolName" validate:"required"`
	Position Position       `json:"position"`
	Inputs   []DocumentPort `json:"inputs" validate:"dive"`
	Outputs  []DocumentPort `json:"outputs" validate:"dive"`
}

// DocumentPort is a port as stored.
type DocumentPort struct {
	Name     string   `json:"name" validate:"required"`
	DataType DataType `json:"dataType" validate:"oneof=string number object"`
}

// DocumentEdge is an edge as stored.
type DocumentEdge struct {
	ID           string `json:"id" validate:"required"`
	SourceNodeID string `json:"sourceNodeId" validate:"required"`
	SourcePort   string `json:"sourcePort" validate:"required"`
	TargetNodeID string `json:"targetNodeId" validate:"required"`
	TargetPort   string `json:"targetPort" validate:"required"`
}

var documentValidator = newDocumentValidator()

func newDocumentValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their document names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Snapshot converts g into a Document. The graph is validated first and a
// *CorruptPipelineError is returned if it breaks any invariant, since a
// graph may have been assembled without going through an Editor.
// Nodes and edges keep insertion order.
func Snapshot(g *Graph) (*Document, error) {
	if violations := Validate(g); violations != nil {
		return nil, &CorruptPipelineError{Violations: violations}
	}

	doc := &Document{
		Nodes: make([]DocumentNode, 0, len(g.nodes)),
		Edges: make([]DocumentEdge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		doc.Nodes = append(doc.Nodes, DocumentNode{
			ID:       n.ID,
			ToolName: n.ToolName,
			Position: n.Position,
			Inputs:   documentPorts(n.Inputs),
			Outputs:  documentPorts(n.Outputs),
		})
	}
	for _, e := range g.edges {
		doc.Edges = append(doc.Edges, DocumentEdge(*e))
	}
	return doc, nil
}

// Save encodes g as JSON. Saving an unmodified graph twice yields
// identical bytes.
func Save(g *Graph) ([]byte, error) {
	doc, err := Snapshot(g)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode document: %w", err)
	}
	return data, nil
}

// Restore rebuilds a graph from a document. Required fields are checked
// first (*MalformedDocumentError), then the rebuilt graph is validated
// (*CorruptPipelineError). A graph is only returned when it is valid.
func Restore(doc *Document) (*Graph, error) {
	if doc == nil {
		return nil, &MalformedDocumentError{Msg: "document is empty"}
	}
	if err := documentValidator.Struct(doc); err != nil {
		return nil, malformedFromValidation(err)
	}

	nodes := make([]Node, 0, len(doc.Nodes))
	for i, dn := range doc.Nodes {
		inputs, err := restorePorts(Input, dn.Inputs)
		if err != nil {
			return nil, &MalformedDocumentError{Field: fmt.Sprintf("nodes[%d].inputs", i), Msg: err.Error()}
		}
		outputs, err := restorePorts(Output, dn.Outputs)
		if err != nil {
			return nil, &MalformedDocumentError{Field: fmt.Sprintf("nodes[%d].outputs", i), Msg: err.Error()}
		}
		nodes = append(nodes, Node{
			ID:       dn.ID,
			ToolName: dn.ToolName,
			Position: dn.Position,
			Inputs:   inputs,
			Outputs:  outputs,
		})
	}
	edges := make([]Edge, 0, len(doc.Edges))
	for _, de := range doc.Edges {
		edges = append(edges, Edge(de))
	}

	g := Assemble(nodes, edges)
	if violations := Validate(g); violations != nil {
		return nil, &CorruptPipelineError{Violations: violations}
	}
	return g, nil
}

// Load decodes a JSON document and restores it as in Restore.
// Unknown fields are ignored. Older documents are accepted: ports may
// carry "type" instead of "dataType" (unrecognised values become string),
// position, inputs and outputs may be absent, and documents saved in the
// flow-editor layout (source/target/sourceHandle/targetHandle edges and
// data.label/data.inputs/data.outputs nodes) are translated.
// A document missing "nodes" or "edges" is malformed.
func Load(data []byte) (*Graph, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Restore(doc)
}

// Decode parses a JSON document without validating the graph it holds.
func Decode(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &MalformedDocumentError{Msg: "document is empty"}
	}

	var w wireDocument
	if err := json.Unmarshal(trimmed, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &MalformedDocumentError{Field: typeErr.Field, Msg: "expected " + typeErr.Type.String() + ", got " + typeErr.Value}
		}
		return nil, &MalformedDocumentError{Err: err}
	}
	if w.Nodes == nil {
		return nil, &MalformedDocumentError{Field: "nodes", Msg: "missing"}
	}
	if w.Edges == nil {
		return nil, &MalformedDocumentError{Field: "edges", Msg: "missing"}
	}

	doc := &Document{
		Nodes: make([]DocumentNode, 0, len(*w.Nodes)),
		Edges: make([]DocumentEdge, 0, len(*w.Edges)),
	}
	for _, wn := range *w.Nodes {
		doc.Nodes = append(doc.Nodes, wn.document())
	}
	for _, we := range *w.Edges {
		doc.Edges = append(doc.Edges, we.document())
	}
	fillSolePorts(doc)
	return doc, nil
}

// fillSolePorts names the port of edges saved by the flow editor, whose
// nodes had a single unnamed handle per side, when the node has exactly
// one port in that direction.
func fillSolePorts(doc *Document) {
	nodes := make(map[string]*DocumentNode, len(doc.Nodes))
	for i := range doc.Nodes {
		if _, ok := nodes[doc.Nodes[i].ID]; !ok {
			nodes[doc.Nodes[i].ID] = &doc.Nodes[i]
		}
	}
	for i := range doc.Edges {
		e := &doc.Edges[i]
		if n, ok := nodes[e.SourceNodeID]; ok && e.SourcePort == "" && len(n.Outputs) == 1 {
			e.SourcePort = n.Outputs[0].Name
		}
		if n, ok := nodes[e.TargetNodeID]; ok && e.TargetPort == "" && len(n.Inputs) == 1 {
			e.TargetPort = n.Inputs[0].Name
		}
	}
}

func documentPorts(ports []Port) []DocumentPort {
	out := make([]DocumentPort, 0, len(ports))
	for _, p := range ports {
		out = append(out, DocumentPort{Name: p.Name, DataType: p.DataType})
	}
	return out
}

func restorePorts(dir Direction, ports []DocumentPort) ([]Port, error) {
	out := make([]Port, 0, len(ports))
	seen := make(map[string]struct{}, len(ports))
	for _, p := range ports {
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate port %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		out = append(out, Port{Name: p.Name, Direction: dir, DataType: p.DataType})
	}
	return out, nil
}

func malformedFromValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &MalformedDocumentError{Err: err}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Document.")
	switch fe.Tag() {
	case "required":
		return &MalformedDocumentError{Field: field, Msg: "missing"}
	case "oneof":
		return &MalformedDocumentError{Field: field, Msg: fmt.Sprintf("must be one of %s, got %q", fe.Param(), fe.Value())}
	}
	return &MalformedDocumentError{Field: field, Msg: "failed " + fe.Tag()}
}

// wire types accept every document layout Load understands.
type wireDocument struct {
	Nodes *[]wireNode `json:"nodes"`
	Edges *[]wireEdge `json:"edges"`
}

type wireNode struct {
	ID       string     `json:"id"`
	ToolName string     `json:"toolName"`
	Position *Position  `json:"position"`
	Inputs   []wirePort `json:"inputs"`
	Outputs  []wirePort `json:"outputs"`
	Data     *struct {
		Label   string     `json:"label"`
		Inputs  []wirePort `json:"inputs"`
		Outputs []wirePort `json:"outputs"`
	} `json:"data"`
}

type wirePort struct {
	Name     string  `json:"name"`
	DataType *string `json:"dataType"`
	Type     *string `json:"type"`
}

type wireEdge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"sourceNodeId"`
	SourcePort   string `json:"sourcePort"`
	TargetNodeID string `json:"targetNodeId"`
	TargetPort   string `json:"targetPort"`

	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}

func (w wireNode) document() DocumentNode {
	n := DocumentNode{ID: w.ID, ToolName: w.ToolName}
	if w.Position != nil {
		n.Position = *w.Position
	}
	inputs, outputs := w.Inputs, w.Outputs
	if w.Data != nil {
		if n.ToolName == "" {
			n.ToolName = w.Data.Label
		}
		if inputs == nil {
			inputs = w.Data.Inputs
		}
		if outputs == nil {
			outputs = w.Data.Outputs
		}
	}
	n.Inputs = wirePorts(inputs)
	n.Outputs = wirePorts(outputs)
	return n
}

func wirePorts(ports []wirePort) []DocumentPort {
	out := make([]DocumentPort, 0, len(ports))
	for _, p := range ports {
		out = append(out, DocumentPort{Name: p.Name, DataType: p.dataType()})
	}
	return out
}

// dataType keeps an explicit dataType verbatim, so that Restore rejects
// values it does not know, and defaults the legacy "type" key.
func (p wirePort) dataType() DataType {
	if p.DataType != nil {
		return DataType(*p.DataType)
	}
	if p.Type != nil {
		if dt, ok := ParseDataType(*p.Type); ok {
			return dt
		}
	}
	return TypeString
}

func (w wireEdge) document() DocumentEdge {
	return DocumentEdge{
		ID:           w.ID,
		SourceNodeID: firstNonEmpty(w.SourceNodeID, w.Source),
		SourcePort:   firstNonEmpty(w.SourcePort, w.SourceHandle),
		TargetNodeID: firstNonEmpty(w.TargetNodeID, w.Target),
		TargetPort:   firstNonEmpty(w.TargetPort, w.TargetHandle),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
