package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// ViolationKind classifies a validation failure.
type ViolationKind string

const (
	DuplicateNodeID       ViolationKind = "DuplicateNodeId"
	DuplicateEdgeID       ViolationKind = "DuplicateEdgeId"
	DanglingEdgeEndpoint  ViolationKind = "DanglingEdgeEndpoint"
	PortDirectionMismatch ViolationKind = "PortDirectionMismatch"
	PortTypeMismatch      ViolationKind = "PortTypeMismatch"
	PortFanInViolation    ViolationKind = "PortFanInViolation"
	CycleDetected         ViolationKind = "CycleDetected"
	UnknownToolReference  ViolationKind = "UnknownToolReference"
)

// Violation is one invariant broken by a graph.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	NodeID  string        `json:"nodeId,omitempty"`
	EdgeID  string        `json:"edgeId,omitempty"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// Validate checks every structural and type invariant of g without
// modifying it. A nil result means the graph is valid; otherwise the
// violations are ordered as nodes, then edges in insertion order, then
// the cycle check.
func Validate(g *Graph) []Violation {
	var out []Violation
	add := func(kind ViolationKind, nodeID, edgeID, format string, args ...any) {
		out = append(out, Violation{Kind: kind, NodeID: nodeID, EdgeID: edgeID, Message: fmt.Sprintf(format, args...)})
	}

	seenNodes := make(map[string]struct{}, len(g.nodes))
	for _, n := range g.nodes {
		if _, dup := seenNodes[n.ID]; dup {
			add(DuplicateNodeID, n.ID, "", "node id %q is used more than once", n.ID)
		}
		seenNodes[n.ID] = struct{}{}
		if n.ToolName == "" {
			add(UnknownToolReference, n.ID, "", "node %q does not name a tool", n.ID)
		}
	}

	seenEdges := make(map[string]struct{}, len(g.edges))
	fedPorts := make(map[[2]string]string, len(g.edges))
	for _, e := range g.edges {
		if _, dup := seenEdges[e.ID]; dup {
			add(DuplicateEdgeID, "", e.ID, "edge id %q is used more than once", e.ID)
		}
		seenEdges[e.ID] = struct{}{}

		src, srcOK := g.nodeIndex[e.SourceNodeID]
		dst, dstOK := g.nodeIndex[e.TargetNodeID]
		if !srcOK || !dstOK {
			missing := e.SourceNodeID
			if srcOK {
				missing = e.TargetNodeID
			}
			add(DanglingEdgeEndpoint, missing, e.ID, "edge %q references missing node %q", e.ID, missing)
			continue
		}

		srcPort, outOK := src.Port(Output, e.SourcePort)
		if !outOK {
			add(PortDirectionMismatch, src.ID, e.ID, "edge %q: %q is not an output port of node %q", e.ID, e.SourcePort, src.ID)
		}
		dstPort, inOK := dst.Port(Input, e.TargetPort)
		if !inOK {
			add(PortDirectionMismatch, dst.ID, e.ID, "edge %q: %q is not an input port of node %q", e.ID, e.TargetPort, dst.ID)
		}
		if outOK && inOK && srcPort.DataType != dstPort.DataType {
			add(PortTypeMismatch, dst.ID, e.ID, "edge %q connects %s to %s", e.ID, srcPort.DataType, dstPort.DataType)
		}

		key := [2]string{dst.ID, e.TargetPort}
		if first, fed := fedPorts[key]; fed {
			add(PortFanInViolation, dst.ID, e.ID, "input %s.%s is fed by edges %q and %q", dst.ID, e.TargetPort, first, e.ID)
		} else {
			fedPorts[key] = e.ID
		}

		if src.ID == dst.ID {
			add(CycleDetected, src.ID, e.ID, "edge %q loops node %q onto itself", e.ID, src.ID)
		}
	}

	if cycle := findCycle(g); cycle != nil {
		add(CycleDetected, cycle[0], "", "cycle %s", strings.Join(cycle, " -> "))
	}
	return out
}

// findCycle runs a depth-first search from every node, in insertion order,
// and returns the first cycle found as a closed path of node ids. Self
// loops and edges with a missing endpoint are ignored; Validate reports
// those separately.
func findCycle(g *Graph) []string {
	adj := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		if e.SourceNodeID == e.TargetNodeID {
			continue
		}
		if _, ok := g.nodeIndex[e.SourceNodeID]; !ok {
			continue
		}
		if _, ok := g.nodeIndex[e.TargetNodeID]; !ok {
			continue
		}
		adj[e.SourceNodeID] = append(adj[e.SourceNodeID], e.TargetNodeID)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int, len(g.nodes))
	var path []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		state[id] = visiting
		path = append(path, id)
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				for i, p := range path {
					if p == next {
						cycle := append([]string{}, path[i:]...)
						return append(cycle, next)
					}
				}
			case unvisited:
				if c := dfs(next); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		state[id] = visited
		return nil
	}

	for _, n := range g.nodes {
		if state[n.ID] == unvisited {
			if c := dfs(n.ID); c != nil {
				return c
			}
		}
	}
	return nil
}

// ValidateTools runs Validate and additionally reports nodes whose tool is
// missing from the registry. It is advisory: loading and saving never
// consult the registry, so pipelines outlive the tools they were built from.
func ValidateTools(ctx context.Context, g *Graph, tools ToolRegistry) ([]Violation, error) {
	out := Validate(g)
	known := make(map[string]bool)
	for _, n := range g.nodes {
		if n.ToolName == "" {
			continue
		}
		ok, cached := known[n.ToolName]
		if !cached {
			def, err := tools.GetTool(ctx, n.ToolName)
			if err != nil {
				return nil, fmt.Errorf("pipeline: lookup tool %q: %w", n.ToolName, err)
			}
			ok = def != nil
			known[n.ToolName] = ok
		}
		if !ok {
			out = append(out, Violation{
				Kind:    UnknownToolReference,
				NodeID:  n.ID,
				Message: fmt.Sprintf("node %q uses tool %q which is not in the registry", n.ID, n.ToolName),
			})
		}
	}
	return out, nil
}
