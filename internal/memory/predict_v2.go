package memory

import (
	"math"
	"time"

	"coordinator/internal/domain"
)

// complexityBoostLabels and complexityDiscountLabels are the closed label
// sets uses to adjust complexity_factor.
var (
	complexityBoostLabels    = map[string]bool{"complex": true, "advanced": true, "expert": true, "difficult": true, "integration": true}
	complexityDiscountLabels = map[string]bool{"simple": true, "basic": true, "trivial": true, "easy": true, "minor": true}
)

// RiskFactor is one entry of an enhanced prediction's risk_analysis.
type RiskFactor struct {
	Type        string
	Severity    string // low | medium | high
	Description string
}

var mitigationSuggestions = map[string]string{
	"new_agent":         "pair with an experienced agent for the first iteration",
	"recurring_blocker":  "pre-stage mitigations for the agent's historically recurring blocker before assignment",
	"low_skill_match":    "consider assigning an agent with stronger track record in this skill area",
	"high_complexity":    "break the task into smaller subtasks before assignment",
	"unfamiliar_task":    "budget extra review time; no comparable historical outcome exists",
}

// EnhancedPrediction is predict_task_outcome_v2's result.
type EnhancedPrediction struct {
	Base                       Prediction
	Confidence                 float64
	ComplexityFactor           float64
	RecencyWeight              float64
	AdjustedSuccess            float64
	ConfidenceInterval         [2]float64
	EnhancedDuration           float64
	DurationConfidenceInterval [2]float64
	RiskFactors                []RiskFactor
	MitigationSuggestions      []string
}

// PredictTaskOutcomeV2 is the enhanced predictor: builds on
// PredictTaskOutcome with confidence weighting, a complexity factor, a
// recency weight over the agent's outcomes, and similar-outcome duration
// evidence.
func (m *Memory) PredictTaskOutcomeV2(agentID string, task *domain.Task) EnhancedPrediction {
	base := m.PredictTaskOutcome(agentID, task)
	profile, hasProfile := m.agentProfileSnapshot(agentID)
	agentOutcomes := m.agentOutcomes(agentID)
	similar := m.similarOutcomesAll(task)

	n := 0
	if hasProfile {
		n = profile.TotalTasks
	}
	confidence := sampleConfidence(n)

	complexity := complexityFactor(task, agentOutcomes)
	recency := recencyWeight(agentOutcomes, m.cfg.MemoryDecay)

	adjustedSuccess := base.SuccessProbability * recency
	if complexity > 1 {
		adjustedSuccess = base.SuccessProbability * (1 / complexity) * recency
	}
	adjustedSuccess = clamp(adjustedSuccess, 0.1, 0.95)

	ciHalf := 0.3 * (1 - confidence)
	ci := [2]float64{clamp(adjustedSuccess-ciHalf, 0, 1), clamp(adjustedSuccess+ciHalf, 0, 1)}

	enhancedDuration := enhancedDurationFor(task, profile, hasProfile, complexity, similar)
	durationCI := [2]float64{enhancedDuration * 0.8, enhancedDuration * 1.3}

	factors := riskFactors(task, profile, hasProfile, complexity, similar)
	suggestions := make([]string, 0, len(factors))
	for _, f := range factors {
		if s, ok := mitigationSuggestions[f.Type]; ok {
			suggestions = append(suggestions, s)
		}
	}

	return EnhancedPrediction{
		Base:                       base,
		Confidence:                 confidence,
		ComplexityFactor:           complexity,
		RecencyWeight:              recency,
		AdjustedSuccess:            adjustedSuccess,
		ConfidenceInterval:         ci,
		EnhancedDuration:           enhancedDuration,
		DurationConfidenceInterval: durationCI,
		RiskFactors:                factors,
		MitigationSuggestions:      suggestions,
	}
}

// sampleConfidence is logarithmic-growth confidence curve,
// plateauing at 0.95.
func sampleConfidence(n int) float64 {
	if n < 20 {
		return 0.1 + 0.7*math.Log(float64(n+1))/math.Log(21)
	}
	return math.Min(0.95, 0.8+0.15*float64(n-20)/20)
}

func complexityFactor(task *domain.Task, agentOutcomes []domain.TaskOutcome) float64 {
	var factor float64
	if len(agentOutcomes) == 0 {
		factor = task.EstimatedHours / 10
	} else {
		sum := 0.0
		for _, o := range agentOutcomes {
			sum += o.EstimatedHours
		}
		avg := sum / float64(len(agentOutcomes))
		if avg == 0 {
			factor = task.EstimatedHours / 10
		} else {
			factor = task.EstimatedHours / avg
		}
	}

	for _, label := range task.Labels {
		if complexityBoostLabels[label] {
			factor *= 1.2
			break
		}
	}
	for _, label := range task.Labels {
		if complexityDiscountLabels[label] {
			factor *= 0.8
			break
		}
	}
	return clamp(factor, 0.5, 3.0)
}

func recencyWeight(agentOutcomes []domain.TaskOutcome, decay float64) float64 {
	if len(agentOutcomes) == 0 {
		return 0.5
	}
	now := time.Now().UTC()
	sum := 0.0
	for _, o := range agentOutcomes {
		completed := now
		if o.CompletedAt != nil {
			completed = *o.CompletedAt
		}
		weeks := now.Sub(completed).Hours() / (24 * 7)
		if weeks < 0 {
			weeks = 0
		}
		sum += math.Pow(decay, weeks)
	}
	return sum / float64(len(agentOutcomes))
}

func enhancedDurationFor(task *domain.Task, profile domain.AgentProfile, hasProfile bool, complexity float64, similar []domain.TaskOutcome) float64 {
	var duration float64
	switch {
	case len(similar) > 0:
		sumActual, sumEstimated := 0.0, 0.0
		for _, o := range similar {
			sumActual += o.ActualHours
			sumEstimated += o.EstimatedHours
		}
		if sumEstimated == 0 {
			duration = task.EstimatedHours
		} else {
			adj := (sumActual / float64(len(similar))) / (sumEstimated / float64(len(similar)))
			duration = task.EstimatedHours * adj
		}
	case hasProfile && profile.AverageEstimationAccuracy > 0:
		duration = task.EstimatedHours / profile.AverageEstimationAccuracy
	default:
		duration = task.EstimatedHours * complexity
	}
	if duration < 0.5 {
		duration = 0.5
	}
	return duration
}

func riskFactors(task *domain.Task, profile domain.AgentProfile, hasProfile bool, complexity float64, similar []domain.TaskOutcome) []RiskFactor {
	var factors []RiskFactor

	if !hasProfile {
		factors = append(factors, RiskFactor{"new_agent", "medium", "agent has no prior task history"})
	}

	if hasProfile && profile.TotalTasks > 0 {
		for blocker, count := range profile.CommonBlockers {
			if count > 2 && float64(count)/float64(profile.TotalTasks) > 0.1 {
				factors = append(factors, RiskFactor{"recurring_blocker", "high", "blocker \"" + blocker + "\" recurs for this agent"})
			}
		}
	}

	if hasProfile {
		for _, label := range task.Labels {
			if rate, ok := profile.SkillSuccessRates[label]; ok && rate < 0.5 {
				factors = append(factors, RiskFactor{"low_skill_match", "medium", "agent's success rate for label \"" + label + "\" is below 0.5"})
				break
			}
		}
	}

	if complexity > 2.0 {
		factors = append(factors, RiskFactor{"high_complexity", "high", "task complexity factor exceeds 2.0"})
	}

	if len(similar) == 0 {
		factors = append(factors, RiskFactor{"unfamiliar_task", "low", "no comparable task exists in history"})
	}

	return factors
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// similarOutcomesAll returns every recorded outcome similar to task,
// irrespective of agent.
func (m *Memory) similarOutcomesAll(task *domain.Task) []domain.TaskOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.TaskOutcome
	for _, o := range m.outcomes {
		if isSimilar(task.Name, o.TaskName) {
			out = append(out, o)
		}
	}
	return out
}
