package dag

import (
	"errors"
	"testing"
)

func TestNewTaskGraph_SourceSetPipeline(t *testing.T) {
	g := pipelineGraph(t, "main")

	pos := map[string]int{}
	for i, n := range g.TopologicalOrder() {
		pos[n] = i
	}
	if !(pos["copyExternalAvroResources"] < pos["generateAvroJava"] && pos["generateAvroJava"] < pos["deleteExternalJava"]) {
		t.Fatalf("expected copy < generate < delete, got %v", g.TopologicalOrder())
	}
	if pos["configureDeleteExternalJava"] > pos["deleteExternalJava"] {
		t.Fatalf("expected exclusions before prune, got %v", g.TopologicalOrder())
	}

	wantDepth := map[string]int{
		"copyExternalAvroResources":   0,
		"configureDeleteExternalJava": 0,
		"generateAvroJava":            1,
		"deleteExternalJava":          2,
	}
	for name, want := range wantDepth {
		if got, ok := g.Depth(name); !ok || got != want {
			t.Fatalf("depth of %s: got %d (%v), want %d", name, got, ok, want)
		}
	}
	if _, ok := g.Depth("generateTestAvroJava"); ok {
		t.Fatalf("expected unknown task to have no depth")
	}
	if len(g.Edges()) != 3 {
		t.Fatalf("expected 3 edges, got %v", g.Edges())
	}
	if g.Hash() == "" {
		t.Fatalf("expected non-empty graph hash")
	}
}

func TestNewTaskGraph_SourceSetsStayIndependent(t *testing.T) {
	g := pipelineGraph(t, "main", "test")

	if g.Len() != 8 {
		t.Fatalf("expected 8 tasks, got %d", g.Len())
	}
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		if from.Task.Group != to.Task.Group {
			t.Fatalf("edge %s -> %s crosses source sets", e.From, e.To)
		}
	}
	got := g.Dependencies("deleteTestExternalJava")
	if len(got) != 2 || got[0] != "configureDeleteTestExternalJava" || got[1] != "generateTestAvroJava" {
		t.Fatalf("unexpected dependencies: %v", got)
	}
}

func TestNewTaskGraph_RejectsInvalidDefinitions(t *testing.T) {
	tasks, edges := sourceSetTasks("main")
	tests := []struct {
		name  string
		tasks []Task
		edges []Edge
	}{
		{name: "no tasks"},
		{name: "empty name", tasks: []Task{{Name: ""}}},
		{name: "duplicate task", tasks: append(tasks[:1:1], tasks[0])},
		{name: "unknown from", tasks: tasks, edges: []Edge{{From: "copyTestExternalAvroResources", To: "generateAvroJava"}}},
		{name: "unknown to", tasks: tasks, edges: []Edge{{From: "generateAvroJava", To: "deleteTestExternalJava"}}},
		{name: "self loop", tasks: tasks, edges: []Edge{{From: "generateAvroJava", To: "generateAvroJava"}}},
		{name: "duplicate edge", tasks: tasks, edges: append(edges[:1:1], edges[0])},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTaskGraph(tt.tasks, tt.edges)
			if !errors.Is(err, ErrInvalidGraph) {
				t.Fatalf("expected invalid graph error, got %v", err)
			}
		})
	}
}

func TestNewTaskGraph_CycleWitnessIsClosedPath(t *testing.T) {
	tasks, edges := sourceSetTasks("main")
	edges = append(edges, Edge{From: "deleteExternalJava", To: "copyExternalAvroResources"})

	_, err := NewTaskGraph(tasks, edges)
	if !errors.Is(err, ErrCycleFound) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	var graphErr *GraphError
	if !errors.As(err, &graphErr) {
		t.Fatalf("expected *GraphError, got %T", err)
	}
	cycle := graphErr.Tasks
	if len(cycle) != 4 || cycle[0] != cycle[len(cycle)-1] {
		t.Fatalf("expected closed path over three tasks, got %v", cycle)
	}
	for _, name := range cycle {
		if name == "configureDeleteExternalJava" {
			t.Fatalf("task outside the cycle in witness: %v", cycle)
		}
	}

	// The witness does not depend on declaration order.
	reversed := make([]Edge, len(edges))
	for i, e := range edges {
		reversed[len(edges)-1-i] = e
	}
	_, err2 := NewTaskGraph(tasks, reversed)
	if err2 == nil || err2.Error() != err.Error() {
		t.Fatalf("expected identical cycle errors, got %v and %v", err, err2)
	}
}

func TestGraphHash_InvariantToInsertionOrder(t *testing.T) {
	tasks1 := []Task{
		{Name: "A", Inputs: []string{"b", "a"}, Outputs: []string{"build/a", "build/z"}, Group: "main"},
		{Name: "B", Inputs: []string{"x"}, Outputs: []string{"build/b"}},
		{Name: "C", Inputs: []string{"y"}, Outputs: []string{"build/c"}},
	}
	edges1 := []Edge{{From: "A", To: "B"}, {From: "A", To: "C"}}

	g1, err := NewTaskGraph(tasks1, edges1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same structure, different insertion orders.
	tasks2 := []Task{
		{Name: "C", Inputs: []string{"y"}, Outputs: []string{"build/c"}},
		{Name: "B", Inputs: []string{"x"}, Outputs: []string{"build/b"}},
		{Name: "A", Inputs: []string{"a", "b"}, Outputs: []string{"build/z", "build/a"}, Group: "main"},
	}
	edges2 := []Edge{{From: "A", To: "C"}, {From: "A", To: "B"}}

	g2, err := NewTaskGraph(tasks2, edges2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g1.Hash() != g2.Hash() {
		t.Fatalf("expected equal graph hashes, got %s vs %s", g1.Hash(), g2.Hash())
	}
}

func TestGraphHash_ChangesWithTaskGroup(t *testing.T) {
	build := func(group string) GraphHash {
		g, err := NewTaskGraph([]Task{
			{Name: "copyExternalAvroResources", Group: group},
			{Name: "generateAvroJava", Group: group},
		}, []Edge{{From: "copyExternalAvroResources", To: "generateAvroJava"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return g.Hash()
	}
	if build("main") == build("test") {
		t.Fatalf("expected group to take part in the graph hash")
	}
}

func TestDependencies_SortedNames(t *testing.T) {
	g, err := NewTaskGraph([]Task{
		{Name: "copyExternalAvroResources"},
		{Name: "configureDeleteExternalJava"},
		{Name: "generateAvroJava"},
		{Name: "deleteExternalJava"},
	}, []Edge{
		{From: "generateAvroJava", To: "deleteExternalJava"},
		{From: "configureDeleteExternalJava", To: "deleteExternalJava"},
		{From: "copyExternalAvroResources", To: "generateAvroJava"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := g.Dependencies("deleteExternalJava")
	want := []string{"configureDeleteExternalJava", "generateAvroJava"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("dependencies mismatch: got %v want %v", got, want)
	}
	if deps := g.Dependencies("copyExternalAvroResources"); len(deps) != 0 {
		t.Fatalf("expected no dependencies, got %v", deps)
	}
	if g.Len() != 4 {
		t.Fatalf("expected 4 tasks, got %d", g.Len())
	}
}
