package contextstore

import (
	"coordinator/internal/domain"
)

// AnalyzeDependencies returns reverse adjacency (key: a dependency task id,
// value: ids of tasks that depend on it), starting from each task's
// explicit Dependencies and, when inferImplicit is true, adding baseline
// keyword-pair inferred edges.
func AnalyzeDependencies(tasks []*domain.Task, inferImplicit bool) map[string][]string {
	out := make(map[string][]string)
	add := func(dependencyID, dependentID string) {
		for _, existing := range out[dependencyID] {
			if existing == dependentID {
				return
			}
		}
		out[dependencyID] = append(out[dependencyID], dependentID)
	}

	for _, t := range tasks {
		for _, depID := range t.Dependencies {
			add(depID, t.ID)
		}
	}

	if inferImplicit {
		for _, edge := range inferBaseline(tasks) {
			add(edge.DependencyTaskID, edge.DependentTaskID)
		}
	}
	return out
}

// SuggestTaskOrder returns tasks in topological order respecting both
// explicit and baseline-inferred dependencies, ties broken by priority
// (urgent > high > medium > low), then task id for determinism. Any
// residual cycle (baseline inference never calls cycle-breaking itself) is
// broken by dropping the edge that closed the first cycle found, repeated
// until the graph is acyclic.
func SuggestTaskOrder(tasks []*domain.Task) []*domain.Task {
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	g := domain.NewDependencyGraph(tasks)
	edges := explicitEdges(tasks)
	edges = append(edges, inferBaseline(tasks)...)
	g.SetEdges(edges)

	for g.HasCycle() {
		cycles := g.FindCycles()
		if len(cycles) == 0 {
			break
		}
		edges = dropOneEdge(edges, cycles[0])
		g.SetEdges(edges)
	}

	less := func(a, b string) bool {
		ta, tb := byID[a], byID[b]
		if ta.Priority.Rank() != tb.Priority.Rank() {
			return ta.Priority.Rank() > tb.Priority.Rank()
		}
		return a < b
	}

	order := g.TopologicalOrder(less)
	result := make([]*domain.Task, 0, len(order))
	for _, id := range order {
		result = append(result, byID[id])
	}
	return result
}

func explicitEdges(tasks []*domain.Task) []domain.InferredDependency {
	var out []domain.InferredDependency
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			out = append(out, domain.InferredDependency{
				DependentTaskID:  t.ID,
				DependencyTaskID: dep,
				Type:             domain.DepHard,
				Confidence:       1.0,
				Source:           "explicit",
				InferenceMethod:  domain.MethodPattern,
			})
		}
	}
	return out
}

// dropOneEdge removes the edge between the last two nodes of cycle (the
// back-edge that closed it), breaking the cycle deterministically.
func dropOneEdge(edges []domain.InferredDependency, cycle []string) []domain.InferredDependency {
	if len(cycle) < 2 {
		return edges
	}
	dependent, dependency := cycle[len(cycle)-2], cycle[len(cycle)-1]
	out := make([]domain.InferredDependency, 0, len(edges))
	dropped := false
	for _, e := range edges {
		if !dropped && e.DependentTaskID == dependent && e.DependencyTaskID == dependency {
			dropped = true
			continue
		}
		out = append(out, e)
	}
	return out
}
