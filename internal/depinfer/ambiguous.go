package depinfer

import (
	"coordinator/internal/config"
	"coordinator/internal/domain"
	"coordinator/internal/textutil"
)

// Pair is an unordered candidate (task1, task2) the pattern pass left
// unresolved and the optional LLM refiner should adjudicate.
type Pair struct {
	Task1ID string
	Task2ID string
}

// edgeIndex indexes pattern edges by unordered pair for quick lookup
// during ambiguity detection.
type edgeIndex struct {
	forward map[[2]string]domain.InferredDependency
}

func newEdgeIndex(edges []domain.InferredDependency) edgeIndex {
	idx := edgeIndex{forward: make(map[[2]string]domain.InferredDependency, len(edges))}
	for _, e := range edges {
		idx.forward[[2]string{e.DependentTaskID, e.DependencyTaskID}] = e
	}
	return idx
}

func (idx edgeIndex) get(a, b string) (domain.InferredDependency, bool) {
	e, ok := idx.forward[[2]string{a, b}]
	return e, ok
}

// workflowGroup is a cluster of >= cfg.WorkflowGroupMinSize tasks sharing
// >= 2 meaningful keywords, per step 2 and the Open Question in
// (resolved at 4, the higher of the two source thresholds).
func workflowGroups(tasks []*domain.Task, minSize int) [][]string {
	keywords := make(map[string]map[string]bool, len(tasks))
	for _, t := range tasks {
		keywords[t.ID] = textutil.Keywords(t.Name + " " + t.Description)
	}

	adjacency := make(map[string]map[string]bool, len(tasks))
	for _, t := range tasks {
		adjacency[t.ID] = make(map[string]bool)
	}
	for i, a := range tasks {
		for j := i + 1; j < len(tasks); j++ {
			b := tasks[j]
			if textutil.SharedCount(keywords[a.ID], keywords[b.ID]) >= 2 {
				adjacency[a.ID][b.ID] = true
				adjacency[b.ID][a.ID] = true
			}
		}
	}

	visited := make(map[string]bool, len(tasks))
	var groups [][]string
	for _, t := range tasks {
		if visited[t.ID] {
			continue
		}
		var component []string
		queue := []string{t.ID}
		visited[t.ID] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			for neighbor := range adjacency[cur] {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
		if len(component) >= minSize {
			groups = append(groups, component)
		}
	}
	return groups
}

// findAmbiguousPairs implements step 2: pairs with no edge in
// either direction that might be related, pairs with a sub-threshold
// pattern edge, pairs with conflicting bidirectional edges, and pairs
// inside a workflow group.
func findAmbiguousPairs(tasks []*domain.Task, patternEdges []domain.InferredDependency, cfg config.DepInferConfig) []Pair {
	idx := newEdgeIndex(patternEdges)
	seen := make(map[[2]string]bool)
	var out []Pair

	add := func(a, b string) {
		key := [2]string{a, b}
		if a > b {
			key = [2]string{b, a}
		}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Pair{Task1ID: key[0], Task2ID: key[1]})
	}

	for i, a := range tasks {
		for j := i + 1; j < len(tasks); j++ {
			b := tasks[j]
			fwd, hasFwd := idx.get(a.ID, b.ID)
			rev, hasRev := idx.get(b.ID, a.ID)

			switch {
			case hasFwd && hasRev:
				add(a.ID, b.ID) // conflict: both directions asserted
			case hasFwd && fwd.Confidence < cfg.PatternConfidenceThreshold:
				add(a.ID, b.ID)
			case hasRev && rev.Confidence < cfg.PatternConfidenceThreshold:
				add(a.ID, b.ID)
			case !hasFwd && !hasRev:
				if mightBeRelated(a, b, cfg.MinSharedKeywords) {
					add(a.ID, b.ID)
				}
			}
		}
	}

	for _, group := range workflowGroups(tasks, cfg.WorkflowGroupMinSize) {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				add(group[i], group[j])
			}
		}
	}

	return out
}

// mightBeRelated is step 2's test for an unconnected pair:
// shared-keyword count at or above the configured minimum, or
// overlapping labels while the tasks are in different phases.
func mightBeRelated(a, b *domain.Task, minSharedKeywords int) bool {
	ka, kb := textutil.Keywords(a.Name+" "+a.Description), textutil.Keywords(b.Name+" "+b.Description)
	if textutil.SharedCount(ka, kb) >= minSharedKeywords {
		return true
	}
	if sharesLabel(a, b) && textutil.Phase(a.Name) != textutil.Phase(b.Name) {
		return true
	}
	return false
}

func sharesLabel(a, b *domain.Task) bool {
	set := make(map[string]bool, len(a.Labels))
	for _, l := range a.Labels {
		set[l] = true
	}
	for _, l := range b.Labels {
		if set[l] {
			return true
		}
	}
	return false
}
