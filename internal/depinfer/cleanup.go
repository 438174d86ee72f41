package depinfer

import "coordinator/internal/domain"

// breakCycles implements step 3: repeatedly find a cycle and
// delete its lowest-confidence edge until the graph is acyclic.
func breakCycles(tasks []*domain.Task, edges []domain.InferredDependency) []domain.InferredDependency {
	for {
		g := domain.NewDependencyGraph(tasks)
		g.SetEdges(edges)
		if !g.HasCycle() {
			return edges
		}
		cycles := g.FindCycles()
		if len(cycles) == 0 {
			return edges
		}
		edges = dropLowestConfidenceInCycle(edges, cycles[0])
	}
}

// dropLowestConfidenceInCycle removes the lowest-confidence edge whose
// endpoints both appear consecutively in cycle.
func dropLowestConfidenceInCycle(edges []domain.InferredDependency, cycle []string) []domain.InferredDependency {
	inCycle := make(map[[2]string]bool, len(cycle))
	for i := 0; i+1 < len(cycle); i++ {
		inCycle[[2]string{cycle[i], cycle[i+1]}] = true
	}

	worstIdx := -1
	worstConf := 2.0 // above the valid [0,1] range so any real edge replaces it
	for i, e := range edges {
		if inCycle[[2]string{e.DependentTaskID, e.DependencyTaskID}] && e.Confidence < worstConf {
			worstConf = e.Confidence
			worstIdx = i
		}
	}
	if worstIdx < 0 {
		// cycle edges not found in forward-edge form (cycle is reported
		// dependency-order from FindCycles, which walks forward
		// adjacency dependent->dependency already, so this should not
		// happen) — fall back to dropping the globally weakest edge.
		for i, e := range edges {
			if e.Confidence < worstConf {
				worstConf = e.Confidence
				worstIdx = i
			}
		}
	}
	if worstIdx < 0 {
		return edges
	}
	out := make([]domain.InferredDependency, 0, len(edges)-1)
	out = append(out, edges[:worstIdx]...)
	out = append(out, edges[worstIdx+1:]...)
	return out
}

// removeTransitiveEdges implements step 4: for edge A->C, if an
// intermediate path A->...->B->...->C exists and the direct edge is not
// hard, delete it. Requires an acyclic edge set.
func removeTransitiveEdges(tasks []*domain.Task, edges []domain.InferredDependency) []domain.InferredDependency {
	g := domain.NewDependencyGraph(tasks)
	g.SetEdges(edges)

	reachableExcluding := func(from, excludedVia string) map[string]bool {
		seen := map[string]bool{}
		var visit func(id string)
		visit = func(id string) {
			for _, next := range g.DependenciesOf(id) {
				if id == from && next == excludedVia {
					continue
				}
				if seen[next] {
					continue
				}
				seen[next] = true
				visit(next)
			}
		}
		visit(from)
		return seen
	}

	out := make([]domain.InferredDependency, 0, len(edges))
	for _, e := range edges {
		if e.Mandatory || e.Type == domain.DepHard {
			out = append(out, e)
			continue
		}
		reach := reachableExcluding(e.DependentTaskID, e.DependencyTaskID)
		if reach[e.DependencyTaskID] {
			continue // transitive: a path to the dependency exists without this edge
		}
		out = append(out, e)
	}
	return out
}
