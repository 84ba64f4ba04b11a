package dag

import "slices"

// insertSorted adds v to the ascending slice s unless it is already present.
func insertSorted(s []int, v int) []int {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}

// topoOrder runs Kahn's algorithm, always taking the lowest canonical index
// among ready nodes. The result is shorter than the node count iff the graph
// has a cycle.
func (g *TaskGraph) topoOrder() []int {
	remaining := slices.Clone(g.indeg)
	var ready []int
	for i, d := range remaining {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.nodes))
	for len(ready) > 0 {
		u := ready[0]
		ready = ready[1:]
		order = append(order, u)
		for _, v := range g.outgoing[u] {
			remaining[v]--
			if remaining[v] == 0 {
				ready = insertSorted(ready, v)
			}
		}
	}
	return order
}

// cycleWitness returns one closed cycle among the nodes topoOrder left out.
//
// Each of those nodes keeps at least one predecessor that was left out too,
// so following the lowest such predecessor back from the lowest left-out node
// must eventually revisit a node.
func (g *TaskGraph) cycleWitness(ordered []int) []string {
	done := make([]bool, len(g.nodes))
	for _, i := range ordered {
		done[i] = true
	}
	u := slices.Index(done, false)
	if u < 0 {
		return nil
	}

	at := make(map[int]int)
	var walk []int
	for {
		if first, seen := at[u]; seen {
			loop := slices.Clone(walk[first:])
			slices.Reverse(loop)
			names := make([]string, 0, len(loop)+1)
			for _, i := range loop {
				names = append(names, g.nodes[i].Name)
			}
			return append(names, names[0])
		}
		at[u] = len(walk)
		walk = append(walk, u)

		next := -1
		for _, p := range g.incoming[u] {
			if !done[p] {
				next = p
				break
			}
		}
		if next < 0 {
			return nil
		}
		u = next
	}
}

// computeDepth assigns each node the length of the longest path reaching it.
func (g *TaskGraph) computeDepth() []int {
	depth := make([]int, len(g.nodes))
	for _, u := range g.order {
		for _, p := range g.incoming[u] {
			depth[u] = max(depth[u], depth[p]+1)
		}
	}
	return depth
}
