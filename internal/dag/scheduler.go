package dag

import (
	"cmp"
	"slices"
)

// GetReadyTasks returns the names of the tasks that may start now: PENDING
// tasks whose dependencies all COMPLETED. The list is ordered by depth, then
// name, so that every source set advances one stage at a time. It never
// mutates g or state.
func GetReadyTasks(g *TaskGraph, state ExecutionState) []string {
	if g == nil {
		return nil
	}

	var ready []*TaskNode
	for _, node := range g.nodes {
		if st, ok := state[node.Name]; ok && st == TaskPending && g.dependenciesMet(node, state) {
			ready = append(ready, node)
		}
	}
	slices.SortFunc(ready, func(a, b *TaskNode) int {
		return cmp.Or(
			cmp.Compare(g.depth[a.canonicalIndex], g.depth[b.canonicalIndex]),
			cmp.Compare(a.Name, b.Name),
		)
	})

	names := make([]string, len(ready))
	for i, n := range ready {
		names[i] = n.Name
	}
	return names
}

func (g *TaskGraph) dependenciesMet(node *TaskNode, state ExecutionState) bool {
	for _, p := range g.incoming[node.canonicalIndex] {
		if st, ok := state[g.nodes[p].Name]; !ok || !IsSuccessful(st) {
			return false
		}
	}
	return true
}
