package dag

import (
	"cmp"
	"slices"
)

type edgeIndex struct {
	from int
	to   int
}

func compareEdges(a, b edgeIndex) int {
	return cmp.Or(cmp.Compare(a.from, b.from), cmp.Compare(a.to, b.to))
}

// TaskGraph is an immutable, validated DAG of pipeline tasks.
//
// Nodes are kept in canonical order (definition hash, then name) so that
// everything derived from the graph is independent of the order in which
// source sets registered their tasks. It is safe for concurrent reads.
type TaskGraph struct {
	nodesByName map[string]*TaskNode
	nodes       []*TaskNode

	edges []edgeIndex

	// Adjacency by canonical index, each list ascending.
	outgoing [][]int
	incoming [][]int
	indeg    []int

	order []int
	depth []int

	hash GraphHash
}

// NewTaskGraph builds and validates a TaskGraph.
//
// It rejects an empty task list, empty or duplicate task names, edges with an
// unknown endpoint, self loops, duplicate edges and cycles.
func NewTaskGraph(tasks []Task, edges []Edge) (*TaskGraph, error) {
	if len(tasks) == 0 {
		return nil, invalidGraph("no tasks")
	}

	g := &TaskGraph{nodesByName: make(map[string]*TaskNode, len(tasks))}
	for _, t := range tasks {
		switch _, dup := g.nodesByName[t.Name]; {
		case t.Name == "":
			return nil, invalidGraph("task name is required")
		case dup:
			return nil, invalidGraph("duplicate task", t.Name)
		}
		node := &TaskNode{Name: t.Name, Task: t, DefinitionHash: computeTaskDefHash(t)}
		g.nodesByName[t.Name] = node
		g.nodes = append(g.nodes, node)
	}
	slices.SortFunc(g.nodes, func(a, b *TaskNode) int {
		return cmp.Or(cmp.Compare(a.DefinitionHash, b.DefinitionHash), cmp.Compare(a.Name, b.Name))
	})
	for i, n := range g.nodes {
		n.canonicalIndex = i
	}

	if err := g.indexEdges(edges); err != nil {
		return nil, err
	}

	g.order = g.topoOrder()
	if len(g.order) != len(g.nodes) {
		return nil, &GraphError{Kind: ErrCycleFound, Tasks: g.cycleWitness(g.order)}
	}
	g.depth = g.computeDepth()
	g.hash = g.computeGraphHash()
	return g, nil
}

func (g *TaskGraph) indexEdges(edges []Edge) error {
	g.edges = make([]edgeIndex, 0, len(edges))
	for _, e := range edges {
		from, ok := g.nodesByName[e.From]
		if !ok {
			return invalidGraph("edge starts at unknown task", e.From)
		}
		to, ok := g.nodesByName[e.To]
		if !ok {
			return invalidGraph("edge ends at unknown task", e.To)
		}
		if from == to {
			return invalidGraph("self loop", e.From)
		}
		g.edges = append(g.edges, edgeIndex{from: from.canonicalIndex, to: to.canonicalIndex})
	}

	slices.SortFunc(g.edges, compareEdges)
	for i := 1; i < len(g.edges); i++ {
		if g.edges[i] == g.edges[i-1] {
			e := g.edges[i]
			return invalidGraph("duplicate edge", g.nodes[e.from].Name, g.nodes[e.to].Name)
		}
	}

	n := len(g.nodes)
	g.outgoing = make([][]int, n)
	g.incoming = make([][]int, n)
	g.indeg = make([]int, n)
	// Edges are sorted by (from, to), so outgoing lists come out ascending.
	for _, e := range g.edges {
		g.outgoing[e.from] = append(g.outgoing[e.from], e.to)
		g.incoming[e.to] = append(g.incoming[e.to], e.from)
		g.indeg[e.to]++
	}
	for _, in := range g.incoming {
		slices.Sort(in)
	}
	return nil
}

// Hash returns the stable identity for this graph.
func (g *TaskGraph) Hash() GraphHash { return g.hash }

// Node returns a node by name.
func (g *TaskGraph) Node(name string) (*TaskNode, bool) {
	n, ok := g.nodesByName[name]
	return n, ok
}

// Nodes returns the nodes in canonical order.
func (g *TaskGraph) Nodes() []*TaskNode { return slices.Clone(g.nodes) }

// Edges returns the edges as (From, To) name pairs in canonical order.
func (g *TaskGraph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, Edge{From: g.nodes[e.from].Name, To: g.nodes[e.to].Name})
	}
	return out
}

// Depth returns the length of the longest path from any root to name.
func (g *TaskGraph) Depth(name string) (int, bool) {
	n, ok := g.nodesByName[name]
	if !ok {
		return 0, false
	}
	return g.depth[n.canonicalIndex], true
}

// Len returns the number of tasks.
func (g *TaskGraph) Len() int { return len(g.nodes) }

// Dependencies returns the names of the tasks name must run after, sorted.
func (g *TaskGraph) Dependencies(name string) []string {
	n, ok := g.nodesByName[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.incoming[n.canonicalIndex]))
	for _, p := range g.incoming[n.canonicalIndex] {
		out = append(out, g.nodes[p].Name)
	}
	slices.Sort(out)
	return out
}

// TopologicalOrder returns the deterministic topological order of task names.
func (g *TaskGraph) TopologicalOrder() []string {
	names := make([]string, 0, len(g.order))
	for _, idx := range g.order {
		names = append(names, g.nodes[idx].Name)
	}
	return names
}

func (g *TaskGraph) computeGraphHash() GraphHash {
	w := newFieldWriter()
	w.writeInt(len(g.nodes))
	for _, n := range g.nodes {
		w.writeString(string(n.DefinitionHash))
	}
	w.writeInt(len(g.edges))
	for _, e := range g.edges {
		w.writeInt(e.from)
		w.writeInt(e.to)
	}
	return GraphHash(w.sum())
}
