package pipeline

import "slices"

// DataType is the type of value carried by a port.
type DataType string

const (
	TypeString DataType = "string"
	TypeNumber DataType = "number"
	TypeObject DataType = "object"
)

// ParseDataType reports the DataType named by s.
func ParseDataType(s string) (DataType, bool) {
	switch DataType(s) {
	case TypeString, TypeNumber, TypeObject:
		return DataType(s), true
	}
	return "", false
}

// Direction tells whether a port consumes or produces data.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// Port is a named, typed attachment point on a node.
type Port struct {
	Name      string
	Direction Direction
	DataType  DataType
}

// Position is a presentational 2-D coordinate. It is carried through
// persistence but never validated.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a tool placed on the pipeline canvas.
// Inputs and Outputs are snapshotted from the tool definition when the node
// is created and are authoritative from then on.
type Node struct {
	ID       string
	ToolName string
	Position Position
	Inputs   []Port
	Outputs  []Port
}

// Port looks up a port by direction and name.
func (n *Node) Port(dir Direction, name string) (Port, bool) {
	ports := n.Inputs
	if dir == Output {
		ports = n.Outputs
	}
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

func (n *Node) clone() Node {
	c := *n
	c.Inputs = slices.Clone(n.Inputs)
	c.Outputs = slices.Clone(n.Outputs)
	return c
}

// Edge connects an output port of one node to an input port of another.
type Edge struct {
	ID           string
	SourceNodeID string
	SourcePort   string
	TargetNodeID string
	TargetPort   string
}

// Graph is an in-memory pipeline: nodes and edges in insertion order with
// id indexes for lookup.
//
// A Graph has a single owner and does no locking. Graphs built through an
// Editor always satisfy every invariant checked by Validate; graphs built
// with Assemble may not, and should be validated before use.
type Graph struct {
	nodes     []*Node
	edges     []*Edge
	nodeIndex map[string]*Node
	edgeIndex map[string]*Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[string]*Node),
		edgeIndex: make(map[string]*Edge),
	}
}

// Assemble builds a graph from node and edge lists without checking any
// invariant. It is the bulk-import path; duplicate ids are kept so that
// Validate can report them, and lookups resolve to the first occurrence.
func Assemble(nodes []Node, edges []Edge) *Graph {
	g := NewGraph()
	for i := range nodes {
		n := nodes[i].clone()
		g.nodes = append(g.nodes, &n)
		if _, ok := g.nodeIndex[n.ID]; !ok {
			g.nodeIndex[n.ID] = &n
		}
	}
	for i := range edges {
		e := edges[i]
		g.edges = append(g.edges, &e)
		if _, ok := g.edgeIndex[e.ID]; !ok {
			g.edgeIndex[e.ID] = &e
		}
	}
	return g
}

// Nodes returns a copy of the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.clone())
	}
	return out
}

// Edges returns a copy of the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (Edge, bool) {
	e, ok := g.edgeIndex[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// IncomingEdge returns the edge feeding the given input port, if any.
func (g *Graph) IncomingEdge(nodeID, port string) (Edge, bool) {
	for _, e := range g.edges {
		if e.TargetNodeID == nodeID && e.TargetPort == port {
			return *e, true
		}
	}
	return Edge{}, false
}

// successors builds the derived adjacency list, keyed by source node id.
func (g *Graph) successors() map[string][]string {
	adj := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		adj[e.SourceNodeID] = append(adj[e.SourceNodeID], e.TargetNodeID)
	}
	return adj
}

func (g *Graph) insertNode(n *Node) {
	g.nodes = append(g.nodes, n)
	g.nodeIndex[n.ID] = n
}

func (g *Graph) insertEdge(e *Edge) {
	g.edges = append(g.edges, e)
	g.edgeIndex[e.ID] = e
}

func (g *Graph) deleteEdge(id string) bool {
	if _, ok := g.edgeIndex[id]; !ok {
		return false
	}
	delete(g.edgeIndex, id)
	g.edges = slices.DeleteFunc(g.edges, func(e *Edge) bool { return e.ID == id })
	return true
}

func (g *Graph) deleteNode(id string) bool {
	if _, ok := g.nodeIndex[id]; !ok {
		return false
	}
	g.edges = slices.DeleteFunc(g.edges, func(e *Edge) bool {
		if e.SourceNodeID == id || e.TargetNodeID == id {
			delete(g.edgeIndex, e.ID)
			return true
		}
		return false
	})
	delete(g.nodeIndex, id)
	g.nodes = slices.DeleteFunc(g.nodes, func(n *Node) bool { return n.ID == id })
	return true
}
