package flow

import (
	"errors"
	"fmt"
)

// Edge connects an output entry of one node to an input entry of another.
type Edge struct {
	SourceNode  string
	SourceEntry string
	TargetNode  string
	TargetEntry string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.SourceNode, e.SourceEntry, e.TargetNode, e.TargetEntry)
}

// FlowState is a node graph. Nodes keep declaration order.
type FlowState struct {
	Nodes []*NodeData
	Edges []Edge
}

// NewFlow builds a flow from nodes and edges.
func NewFlow(nodes []*NodeData, edges ...Edge) *FlowState {
	return &FlowState{Nodes: nodes, Edges: edges}
}

// Node returns the node with the given id or nil.
func (f *FlowState) Node(id string) *NodeData {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// AddNode appends n and returns it.
func (f *FlowState) AddNode(n *NodeData) *NodeData {
	f.Nodes = append(f.Nodes, n)
	return n
}

// Connect appends an edge.
func (f *FlowState) Connect(sourceNode, sourceEntry, targetNode, targetEntry string) {
	f.Edges = append(f.Edges, Edge{
		SourceNode:  sourceNode,
		SourceEntry: sourceEntry,
		TargetNode:  targetNode,
		TargetEntry: targetEntry,
	})
}

// IncomingEdge returns the first declared edge feeding node.entry.
func (f *FlowState) IncomingEdge(node, entry string) (Edge, bool) {
	for _, e := range f.Edges {
		if e.TargetNode == node && e.TargetEntry == entry {
			return e, true
		}
	}
	return Edge{}, false
}

// Validate checks ids, edge endpoints, duplicate targets and cycles.
// All problems found are joined; each wraps ErrStructural.
func (f *FlowState) Validate() error {
	var errs []error

	ids := make(map[string]*NodeData, len(f.Nodes))
	for _, n := range f.Nodes {
		if _, dup := ids[n.ID]; dup {
			errs = append(errs, &StructuralError{Kind: KindDuplicateNode, Nodes: []string{n.ID}})
			continue
		}
		ids[n.ID] = n
	}

	targets := make(map[[2]string]bool, len(f.Edges))
	adjacency := make(map[string][]string, len(f.Nodes))
	for _, e := range f.Edges {
		src, dst := ids[e.SourceNode], ids[e.TargetNode]
		if src == nil || dst == nil {
			errs = append(errs, &StructuralError{Kind: KindDanglingEdge, Message: e.String()})
			continue
		}
		if src.Output(e.SourceEntry) == nil || dst.Input(e.TargetEntry) == nil {
			errs = append(errs, &StructuralError{Kind: KindUnknownEntry, Message: e.String()})
			continue
		}
		if e.SourceNode == e.TargetNode {
			errs = append(errs, &StructuralError{Kind: KindSelfLoop, Nodes: []string{e.SourceNode}, Message: e.String()})
			continue
		}
		key := [2]string{e.TargetNode, e.TargetEntry}
		if targets[key] {
			errs = append(errs, &StructuralError{
				Kind:    KindDuplicateEdge,
				Nodes:   []string{e.TargetNode},
				Message: fmt.Sprintf("entry %q has more than one incoming edge; the first one is used", e.TargetEntry),
			})
			continue
		}
		targets[key] = true
		adjacency[e.SourceNode] = append(adjacency[e.SourceNode], e.TargetNode)
	}

	if cycle := findCycle(f.Nodes, adjacency); cycle != nil {
		errs = append(errs, NewCycleError(cycle))
	}

	for _, n := range f.Nodes {
		for _, sub := range []*FlowState{n.Flow, n.Template} {
			if sub == nil {
				continue
			}
			if err := sub.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("sub-flow of %s: %w", n.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}

const (
	unvisited = iota
	onStack
	done
)

// findCycle runs a colouring DFS in declaration order and returns the first cycle path.
func findCycle(nodes []*NodeData, adjacency map[string][]string) []string {
	colour := make(map[string]int, len(nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colour[id] = onStack
		stack = append(stack, id)
		for _, next := range adjacency[id] {
			switch colour[next] {
			case onStack:
				for i, s := range stack {
					if s == next {
						return append(append([]string(nil), stack[i:]...), next)
					}
				}
			case unvisited:
				if c := visit(next); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		colour[id] = done
		return nil
	}

	for _, n := range nodes {
		if colour[n.ID] == unvisited {
			if c := visit(n.ID); c != nil {
				return c
			}
		}
	}
	return nil
}

// ResetEntries returns every entry in the flow, sub-flows included, to init.
func (f *FlowState) ResetEntries() {
	for _, n := range f.Nodes {
		n.Reset()
	}
}

// Clone deep-copies the flow structure.
func (f *FlowState) Clone() *FlowState {
	c := &FlowState{
		Nodes: make([]*NodeData, len(f.Nodes)),
		Edges: append([]Edge(nil), f.Edges...),
	}
	for i, n := range f.Nodes {
		c.Nodes[i] = n.Clone()
	}
	return c
}
