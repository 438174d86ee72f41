package memory

import "sort"

// CascadeEffect is one task downstream of the delayed task.
type CascadeEffect struct {
	TaskID string
	Delay  float64
}

// CascadePrediction is predict_cascade_effects' result.
type CascadePrediction struct {
	AffectedTasks       []CascadeEffect
	TotalDelay          float64
	CriticalPathImpact  bool
	MitigationOptions   []string
}

// PredictCascadeEffects BFS-propagates a delay outward over the working
// tier's explicit dependency graph, decaying 0.8 per hop.
func (m *Memory) PredictCascadeEffects(taskID string, delayHours float64) CascadePrediction {
	m.mu.RLock()
	reverse := make(map[string][]string)
	for _, t := range m.allTasks {
		for _, dep := range t.Dependencies {
			reverse[dep] = append(reverse[dep], t.ID)
		}
	}
	m.mu.RUnlock()

	type queued struct {
		id    string
		delay float64
	}

	visited := map[string]bool{taskID: true}
	queue := []queued{{taskID, delayHours}}
	var affected []CascadeEffect
	totalDelay := delayHours

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		dependents := append([]string(nil), reverse[cur.id]...)
		sort.Strings(dependents)
		for _, depID := range dependents {
			if visited[depID] {
				continue
			}
			visited[depID] = true
			propagated := cur.delay * 0.8
			affected = append(affected, CascadeEffect{TaskID: depID, Delay: propagated})
			totalDelay += propagated
			queue = append(queue, queued{depID, propagated})
		}
	}

	critical := len(affected) > 3 || totalDelay > 24

	var mitigations []string
	if critical {
		mitigations = append(mitigations,
			"notify downstream task owners of the projected delay",
			"evaluate reassigning the delayed task to reduce cascade depth",
		)
	} else if len(affected) > 0 {
		mitigations = append(mitigations, "monitor downstream tasks for schedule drift")
	}

	return CascadePrediction{
		AffectedTasks:      affected,
		TotalDelay:         totalDelay,
		CriticalPathImpact: critical,
		MitigationOptions:  mitigations,
	}
}
