package memory

import "coordinator/internal/domain"

// Prediction is predict_task_outcome's base result.
type Prediction struct {
	SuccessProbability float64
	EstimatedDuration  float64
	BlockageRisk       float64
	RiskFactors        []string
}

// PredictTaskOutcome is the base predictor: success probability, expected
// duration, and blockage risk from an agent's profile and historical
// task patterns, with no recency weighting or confidence interval.
func (m *Memory) PredictTaskOutcome(agentID string, task *domain.Task) Prediction {
	pred := Prediction{
		SuccessProbability: 0.5,
		EstimatedDuration:  task.EstimatedHours,
		BlockageRisk:       0.3,
	}

	if profile, ok := m.agentProfileSnapshot(agentID); ok {
		pred.SuccessProbability = profile.SuccessRate()
		if len(task.Labels) > 0 {
			sum := 0.0
			for _, label := range task.Labels {
				rate, ok := profile.SkillSuccessRates[label]
				if !ok {
					rate = 0.5
				}
				sum += rate
			}
			pred.SuccessProbability = sum / float64(len(task.Labels))
		}
		pred.BlockageRisk = profile.BlockageRate()
		if profile.AverageEstimationAccuracy > 0 {
			pred.EstimatedDuration = task.EstimatedHours / profile.AverageEstimationAccuracy
		}
	}

	if pattern, ok := m.patternSnapshot(task.Labels); ok {
		pred.EstimatedDuration = pattern.MedianDuration()
		for blocker := range pattern.CommonBlockers {
			pred.RiskFactors = append(pred.RiskFactors, blocker)
		}
	}

	return pred
}
