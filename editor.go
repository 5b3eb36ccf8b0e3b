package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Editor applies edit operations to a graph. Every operation checks its
// preconditions before touching the graph, so a failed call leaves the
// graph exactly as it was and a graph edited only through an Editor is
// always valid.
//
// The graph is passed to every call; one Editor can serve many graphs.
type Editor struct {
	tools ToolRegistry
	newID func() string
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithIDGenerator replaces the default UUID id allocator. The generator
// must never return an id it has returned before.
func WithIDGenerator(fn func() string) EditorOption {
	return func(e *Editor) { e.newID = fn }
}

// NewEditor creates an Editor resolving tools against the given registry.
func NewEditor(tools ToolRegistry, opts ...EditorOption) *Editor {
	e := &Editor{tools: tools, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Connection names the two endpoints of a requested edge.
type Connection struct {
	SourceNodeID string `json:"sourceNodeId"`
	SourcePort   string `json:"sourcePort"`
	TargetNodeID string `json:"targetNodeId"`
	TargetPort   string `json:"targetPort"`
}

// AddNode places a node for the named tool and returns its id.
// The tool's ports are resolved and copied into the node.
func (ed *Editor) AddNode(ctx context.Context, g *Graph, toolName string, pos Position) (string, error) {
	def, err := ed.tools.GetTool(ctx, toolName)
	if err != nil {
		return "", fmt.Errorf("pipeline: lookup tool %q: %w", toolName, err)
	}
	if def == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, toolName)
	}

	inputs, outputs, err := ResolvePorts(def)
	if err != nil {
		return "", err
	}

	id := ed.allocate(func(id string) bool { _, taken := g.nodeIndex[id]; return taken })
	g.insertNode(&Node{
		ID:       id,
		ToolName: def.Name,
		Position: pos,
		Inputs:   inputs,
		Outputs:  outputs,
	})
	return id, nil
}

// MoveNode updates a node's position, the only node field that may change
// after creation.
func (ed *Editor) MoveNode(g *Graph, nodeID string, pos Position) error {
	n, ok := g.nodeIndex[nodeID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	n.Position = pos
	return nil
}

// RemoveNode deletes a node together with every edge touching it.
// Removing an unknown id is a no-op.
func (ed *Editor) RemoveNode(g *Graph, nodeID string) {
	g.deleteNode(nodeID)
}

// RemoveNodes deletes several nodes as in RemoveNode.
func (ed *Editor) RemoveNodes(g *Graph, nodeIDs ...string) {
	for _, id := range nodeIDs {
		g.deleteNode(id)
	}
}

// AddConnection inserts an edge from an output port to an input port and
// returns its id.
//
// It fails with ErrInvalidEndpoint, ErrSelfLoop, ErrTypeMismatch,
// ErrPortOccupied or ErrCycleDetected, checked in that order.
func (ed *Editor) AddConnection(g *Graph, c Connection) (string, error) {
	src, ok := g.nodeIndex[c.SourceNodeID]
	if !ok {
		return "", fmt.Errorf("%w: source node %q does not exist", ErrInvalidEndpoint, c.SourceNodeID)
	}
	dst, ok := g.nodeIndex[c.TargetNodeID]
	if !ok {
		return "", fmt.Errorf("%w: target node %q does not exist", ErrInvalidEndpoint, c.TargetNodeID)
	}
	out, ok := src.Port(Output, c.SourcePort)
	if !ok {
		return "", fmt.Errorf("%w: node %q has no output port %q", ErrInvalidEndpoint, src.ID, c.SourcePort)
	}
	in, ok := dst.Port(Input, c.TargetPort)
	if !ok {
		return "", fmt.Errorf("%w: node %q has no input port %q", ErrInvalidEndpoint, dst.ID, c.TargetPort)
	}

	if src.ID == dst.ID {
		return "", fmt.Errorf("%w: %q", ErrSelfLoop, src.ID)
	}
	if out.DataType != in.DataType {
		return "", fmt.Errorf("%w: %s.%s is %s, %s.%s is %s", ErrTypeMismatch,
			src.ID, out.Name, out.DataType, dst.ID, in.Name, in.DataType)
	}
	if existing, taken := g.IncomingEdge(dst.ID, in.Name); taken {
		return "", fmt.Errorf("%w: %s.%s is fed by edge %q", ErrPortOccupied, dst.ID, in.Name, existing.ID)
	}
	// The new edge src->dst closes a cycle exactly when src is already
	// reachable from dst.
	if reachable(g.successors(), dst.ID, src.ID) {
		return "", fmt.Errorf("%w: %s already reaches %s", ErrCycleDetected, dst.ID, src.ID)
	}

	id := ed.allocate(func(id string) bool { _, taken := g.edgeIndex[id]; return taken })
	g.insertEdge(&Edge{
		ID:           id,
		SourceNodeID: src.ID,
		SourcePort:   out.Name,
		TargetNodeID: dst.ID,
		TargetPort:   in.Name,
	})
	return id, nil
}

// RemoveConnection deletes an edge. Removing an unknown id is a no-op.
func (ed *Editor) RemoveConnection(g *Graph, edgeID string) {
	g.deleteEdge(edgeID)
}

// RemoveConnections deletes several edges as in RemoveConnection.
func (ed *Editor) RemoveConnections(g *Graph, edgeIDs ...string) {
	for _, id := range edgeIDs {
		g.deleteEdge(id)
	}
}

// allocate draws ids until one is free in the graph. With the UUID
// generator the first draw always succeeds.
func (ed *Editor) allocate(taken func(string) bool) string {
	for {
		id := ed.newID()
		if !taken(id) {
			return id
		}
	}
}

// reachable reports whether to can be reached from from by following edges.
func reachable(adj map[string][]string, from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
