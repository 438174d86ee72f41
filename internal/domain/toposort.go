package domain

import "sort"

// TopologicalOrder returns task ids in an order that respects forward
// dependency edges (a dependency always precedes its dependents), using
// less to break ties among tasks that are simultaneously ready. less(a,b)
// should report whether a should be scheduled before b when both are
// ready. Returns nil if the graph still contains a cycle — callers must
// resolve cycles before calling this.
func (g *DependencyGraph) TopologicalOrder(less func(a, b string) bool) []string {
	remaining := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		remaining[id] = len(g.forward[id])
	}

	var available []string
	for id, n := range remaining {
		if n == 0 {
			available = append(available, id)
		}
	}

	result := make([]string, 0, len(g.Nodes))
	for len(available) > 0 {
		sort.Slice(available, func(i, j int) bool { return less(available[i], available[j]) })
		next := available[0]
		available = available[1:]
		result = append(result, next)

		for _, dependent := range g.reverse[next] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				available = append(available, dependent)
			}
		}
	}

	if len(result) != len(g.Nodes) {
		return nil // cycle present
	}
	return result
}

// CriticalPath returns the longest weighted path through the graph using
// weight(id) as each node's duration. It returns the path (task ids, source-to-sink) and its
// total weight. Requires an acyclic graph.
func (g *DependencyGraph) CriticalPath(weight func(id string) float64) ([]string, float64) {
	order := g.TopologicalOrder(func(a, b string) bool { return a < b })
	if order == nil {
		return nil, 0
	}

	// longest[id] = longest path weight ending at id; parent[id] tracks
	// the predecessor achieving that longest path.
	longest := make(map[string]float64, len(order))
	parent := make(map[string]string, len(order))
	for _, id := range order {
		best := weight(id)
		bestParent := ""
		for _, dep := range g.forward[id] {
			candidate := longest[dep] + weight(id)
			if candidate > best {
				best = candidate
				bestParent = dep
			}
		}
		longest[id] = best
		if bestParent != "" {
			parent[id] = bestParent
		}
	}

	var end string
	var total float64
	for id, w := range longest {
		if w > total {
			total = w
			end = id
		}
	}
	if end == "" {
		return nil, 0
	}

	var path []string
	for cur := end; cur != ""; {
		path = append([]string{cur}, path...)
		next, ok := parent[cur]
		if !ok {
			break
		}
		cur = next
	}
	return path, total
}
