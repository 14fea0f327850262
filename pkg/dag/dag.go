package dag

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the stage number is negative.
	ErrInvalidNodeID = errors.New("node ID must not be negative")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same stage number already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a cycle is detected.
	// Cycles are detected using depth-first search with white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph,
// such as a stage's processor type or phase. Metadata maps are never nil
// after they pass through [DAG.AddNode] or [New].
type Metadata map[string]any

// Node is a stage in the plan.
type Node struct {
	ID   int      // Stage number
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge connects an input stage (From) to the stage reading it (To).
type Edge struct {
	From int
	To   int
}

// DAG is a directed acyclic graph of query stages.
//
// The zero value is not usable - use New to create a valid DAG instance.
type DAG struct {
	nodes    map[int]*Node
	order    []int // insertion order of node IDs
	edges    []Edge
	outgoing map[int][]int // stage -> consumers
	incoming map[int][]int // stage -> inputs
	meta     Metadata
}

// New creates an empty DAG with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[int]*Node),
		outgoing: make(map[int][]int),
		incoming: make(map[int][]int),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a stage to the graph.
// Returns ErrInvalidNodeID for a negative ID, or ErrDuplicateNodeID
// if the stage was already added.
func (d *DAG) AddNode(n Node) error {
	if n.ID < 0 {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	node := &n
	d.nodes[node.ID] = node
	d.order = append(d.order, node.ID)
	return nil
}

// AddEdge adds a directed edge between two existing stages.
// Returns ErrUnknownSourceNode if the From node doesn't exist, or
// ErrUnknownTargetNode if the To node doesn't exist. Adding the same edge
// twice is a no-op.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.outgoing[e.From], e.To) {
		return nil
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes in insertion order.
// The returned slice contains pointers to the actual node structs.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.order))
	for _, id := range d.order {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the stages that read the given stage's output.
// The returned slice should not be modified.
func (d *DAG) Children(id int) []int { return d.outgoing[id] }

// Parents returns the input stages of the given stage.
// The returned slice should not be modified.
func (d *DAG) Parents(id int) []int { return d.incoming[id] }

// OutDegree returns the number of consumers of the stage.
func (d *DAG) OutDegree(id int) int { return len(d.outgoing[id]) }

// InDegree returns the number of input stages of the stage.
func (d *DAG) InDegree(id int) int { return len(d.incoming[id]) }

// Node returns the node with the given ID and true, or nil and false if not found.
func (d *DAG) Node(id int) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Sources returns stages with no input stages, in insertion order.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, id := range d.order {
		if len(d.incoming[id]) == 0 {
			sources = append(sources, d.nodes[id])
		}
	}
	return sources
}

// Sinks returns stages no other stage reads from, in insertion order.
func (d *DAG) Sinks() []*Node {
	var sinks []*Node
	for _, id := range d.order {
		if len(d.outgoing[id]) == 0 {
			sinks = append(sinks, d.nodes[id])
		}
	}
	return sinks
}

// Validate returns ErrGraphHasCycle if the declared inputs form a cycle.
// Edge endpoints are checked eagerly by AddEdge, so a cycle is the only
// structural problem left to detect.
func (d *DAG) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[int]int, len(d.nodes))
	var hasCycle bool

	var dfs func(id int)
	dfs = func(id int) {
		color[id] = gray
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[id] = black
	}

	for _, id := range d.order {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// Depths assigns each stage the length of the longest input chain leading
// to it (sources are at depth 0), using Kahn's algorithm.
//
// Depths assumes the graph is acyclic. Stages on a cycle never reach zero
// in-degree and keep whatever depth their acyclic ancestors gave them.
func (d *DAG) Depths() map[int]int {
	inDegree := make(map[int]int, len(d.nodes))
	depths := make(map[int]int, len(d.nodes))
	queue := make([]int, 0, len(d.nodes))

	for _, id := range d.order {
		degree := len(d.incoming[id])
		inDegree[id] = degree
		depths[id] = 0
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, child := range d.outgoing[curr] {
			if depth := depths[curr] + 1; depth > depths[child] {
				depths[child] = depth
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	return depths
}

// Layers groups stage IDs by depth, each layer sorted ascending.
// The outer slice is indexed by depth.
func (d *DAG) Layers() [][]int {
	depths := d.Depths()
	if len(depths) == 0 {
		return nil
	}
	maxDepth := slices.Max(slices.Collect(maps.Values(depths)))
	layers := make([][]int, maxDepth+1)
	for _, id := range slices.Sorted(maps.Keys(depths)) {
		layers[depths[id]] = append(layers[depths[id]], id)
	}
	return layers
}
