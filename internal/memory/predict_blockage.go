package memory

import (
	"sort"

	"coordinator/internal/domain"
)

// labelBlockageRisk is the fixed label -> base risk dictionary 
// defines for predict_blockage_probability.
var labelBlockageRisk = map[string]float64{
	"integration":  0.4,
	"deployment":   0.35,
	"migration":    0.5,
	"authentication": 0.45,
	"third-party":  0.55,
}

var blockagePreventiveMeasures = map[string]string{
	"integration_complexity":    "confirm external API contracts before work begins",
	"deployment_complexity":     "stage a rollback plan before deployment",
	"migration_complexity":      "run the migration against a staging copy first",
	"authentication_complexity": "verify credentials and token scopes ahead of time",
	"third-party_complexity":    "confirm third-party API contracts and rate limits",
	"multiple_dependencies":     "sequence and verify each dependency is complete before assignment",
}

// BlockagePrediction is predict_blockage_probability's result.
type BlockagePrediction struct {
	OverallRisk         float64
	RiskBreakdown        map[string]float64
	PreventiveMeasures   []string
	HistoricalBlockers   []string
}

// PredictBlockageProbability composes label-triggered, dependency-count,
// and agent-blocker-history risk into a single probability.
func (m *Memory) PredictBlockageProbability(agentID string, task *domain.Task) BlockagePrediction {
	profile, hasProfile := m.agentProfileSnapshot(agentID)
	breakdown := make(map[string]float64)

	for _, label := range task.Labels {
		if risk, ok := labelBlockageRisk[label]; ok {
			breakdown[label+"_complexity"] = risk
		}
	}

	if len(task.Dependencies) > 3 {
		breakdown["multiple_dependencies"] = 0.3 + 0.05*float64(len(task.Dependencies))
	}

	if hasProfile && profile.TotalTasks > 0 {
		for blocker, count := range profile.CommonBlockers {
			freq := float64(count) / float64(profile.TotalTasks)
			if freq > 0.1 {
				breakdown[blocker] = freq
			}
		}
	}

	var overall float64
	if len(breakdown) == 0 {
		overall = 0.3
		if hasProfile {
			overall = profile.BlockageRate()
			if overall == 0 {
				overall = 0.3
			}
		}
	} else {
		product := 1.0
		for _, r := range breakdown {
			product *= 1 - r
		}
		overall = 1 - product
		if overall > 0.95 {
			overall = 0.95
		}
	}

	similar := m.FindSimilarOutcomes(task, 20)
	blockerCounts := make(map[string]int)
	for _, o := range similar {
		for _, b := range o.Blockers {
			blockerCounts[b]++
		}
	}
	historical := topNByCount(blockerCounts, 5)

	var measures []string
	for key := range breakdown {
		if msg, ok := blockagePreventiveMeasures[key]; ok {
			measures = append(measures, msg)
		}
	}
	sort.Strings(measures)

	return BlockagePrediction{
		OverallRisk:        overall,
		RiskBreakdown:      breakdown,
		PreventiveMeasures: measures,
		HistoricalBlockers: historical,
	}
}

func topNByCount(counts map[string]int, n int) []string {
	type kv struct {
		key   string
		count int
	}
	list := make([]kv, 0, len(counts))
	for k, v := range counts {
		list = append(list, kv{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].key < list[j].key
	})
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.key
	}
	return out
}
