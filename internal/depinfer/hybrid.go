package depinfer

import (
	"context"
	"strings"

	"coordinator/internal/config"
	"coordinator/internal/depinfer/llmrefiner"
	"coordinator/internal/domain"
	"coordinator/internal/logging"
)

// Inferer is the hybrid dependency inferer: a deterministic pattern
// pass always runs; an optional LLM refiner adjudicates ambiguous pairs
// when configured.
type Inferer struct {
	cfg     config.DepInferConfig
	refiner llmrefiner.Refiner // nil disables AI inference regardless of cfg.EnableAIInference
	cache   *llmrefiner.Cache
}

// New builds an Inferer. refiner may be nil (pattern-only operation,
// "enable_ai_inference=false yields pattern-only operation",
// here forced by the absence of a refiner rather than only the flag).
func New(cfg config.DepInferConfig, refiner llmrefiner.Refiner) *Inferer {
	return &Inferer{
		cfg:     cfg,
		refiner: refiner,
		cache:   llmrefiner.NewCache(cfg.CacheTTL),
	}
}

// Infer runs the full hybrid pipeline and returns an acyclic,
// transitively-reduced DependencyGraph.
func (inf *Inferer) Infer(ctx context.Context, tasks []*domain.Task) *domain.DependencyGraph {
	patternEdges := matchPatterns(tasks)

	var combined []domain.InferredDependency
	if inf.cfg.EnableAIInference && inf.refiner != nil {
		combined = inf.combineWithAI(ctx, tasks, patternEdges)
	} else {
		combined = keepAboveThreshold(patternEdges, inf.cfg.PatternConfidenceThreshold)
	}

	combined = breakCycles(tasks, combined)
	combined = removeTransitiveEdges(tasks, combined)

	g := domain.NewDependencyGraph(tasks)
	g.SetEdges(combined)
	return g
}

// keepAboveThreshold is the pattern-only reduction: accept edges at or
// above the configured pattern confidence threshold. Mandatory edges are
// always kept regardless of confidence — the whole point of "mandatory"
// is that table already assigns them >= 0.90, well above any
// reasonable threshold, but a conservative preset could in principle push
// the threshold higher, and mandatory edges must still survive.
func keepAboveThreshold(edges []domain.InferredDependency, threshold float64) []domain.InferredDependency {
	out := make([]domain.InferredDependency, 0, len(edges))
	for _, e := range edges {
		if e.Mandatory || e.Confidence >= threshold {
			out = append(out, e)
		}
	}
	return out
}

// combineWithAI implements steps 2-4's combination logic.
func (inf *Inferer) combineWithAI(ctx context.Context, tasks []*domain.Task, patternEdges []domain.InferredDependency) []domain.InferredDependency {
	log := logging.Get(logging.CategoryDepInfer)

	ambiguous := findAmbiguousPairs(tasks, patternEdges, inf.cfg)
	if len(ambiguous) == 0 {
		return keepAboveThreshold(patternEdges, inf.cfg.PatternConfidenceThreshold)
	}

	batch := ambiguous
	if len(batch) > inf.cfg.MaxAIPairsPerBatch {
		log.Info("ambiguous pair count %d exceeds batch size %d, truncating", len(batch), inf.cfg.MaxAIPairsPerBatch)
		batch = batch[:inf.cfg.MaxAIPairsPerBatch]
	}

	pairIDs := make([][2]string, 0, len(batch))
	for _, p := range batch {
		pairIDs = append(pairIDs, [2]string{p.Task1ID, p.Task2ID})
	}

	cacheKey := llmrefiner.Key(pairIDs)
	verdicts, cached := inf.cache.Get(cacheKey)
	if !cached {
		v, err := inf.refiner.Refine(ctx, tasks, pairIDs)
		if err != nil {
			log.Warn("LLM refinement failed, falling back to pattern-only for this batch: %v", err)
			return keepAboveThreshold(patternEdges, inf.cfg.PatternConfidenceThreshold)
		}
		verdicts = v
		inf.cache.Put(cacheKey, verdicts)
	}

	aiEdges := verdictsToEdges(verdicts, inf.cfg.AIConfidenceThreshold)
	return combineEdgeSets(patternEdges, aiEdges, inf.cfg)
}

func verdictsToEdges(verdicts []llmrefiner.Verdict, threshold float64) []domain.InferredDependency {
	var out []domain.InferredDependency
	for _, v := range verdicts {
		if v.DependencyDirection == llmrefiner.DirectionNone {
			continue
		}
		if v.Confidence < threshold {
			continue
		}
		dependent, dependency := v.Task1ID, v.Task2ID
		if v.DependencyDirection == llmrefiner.Dir2to1 {
			dependent, dependency = v.Task2ID, v.Task1ID
		}
		depType := v.DependencyType
		if depType == "" {
			depType = domain.DepLogical
		}
		conf := v.Confidence
		out = append(out, domain.InferredDependency{
			DependentTaskID:  dependent,
			DependencyTaskID: dependency,
			Type:             depType,
			Confidence:       v.Confidence,
			Reasoning:        v.Reasoning,
			Source:           "llm",
			AIConfidence:     &conf,
			AIReasoning:      v.Reasoning,
			InferenceMethod:  domain.MethodAI,
		})
	}
	return out
}

// combineEdgeSets implements step 4's pairwise combination:
// edges present from both passes are merged with a confidence boost;
// pattern-only edges are kept at or above the pattern threshold;
// AI-only edges are kept at or above the AI threshold.
func combineEdgeSets(patternEdges, aiEdges []domain.InferredDependency, cfg config.DepInferConfig) []domain.InferredDependency {
	patternByPair := make(map[[2]string]domain.InferredDependency, len(patternEdges))
	for _, e := range patternEdges {
		patternByPair[[2]string{e.DependentTaskID, e.DependencyTaskID}] = e
	}
	aiByPair := make(map[[2]string]domain.InferredDependency, len(aiEdges))
	for _, e := range aiEdges {
		aiByPair[[2]string{e.DependentTaskID, e.DependencyTaskID}] = e
	}

	seen := make(map[[2]string]bool)
	var out []domain.InferredDependency

	for key, p := range patternByPair {
		seen[key] = true
		if a, ok := aiByPair[key]; ok {
			conf := min1((p.Confidence+a.Confidence)/2 + cfg.CombinedConfidenceBoost)
			out = append(out, domain.InferredDependency{
				DependentTaskID:   p.DependentTaskID,
				DependencyTaskID:  p.DependencyTaskID,
				Type:              p.Type,
				Confidence:        conf,
				Reasoning:         p.Reasoning + "; " + a.Reasoning,
				Source:            "pattern+ai",
				PatternConfidence: p.PatternConfidence,
				AIConfidence:      a.AIConfidence,
				AIReasoning:       a.AIReasoning,
				InferenceMethod:   domain.MethodBoth,
				Mandatory:         p.Mandatory,
			})
			continue
		}
		if p.Mandatory || p.Confidence >= cfg.PatternConfidenceThreshold {
			out = append(out, p)
		}
	}

	for key, a := range aiByPair {
		if seen[key] {
			continue
		}
		if a.Confidence >= cfg.AIConfidenceThreshold {
			out = append(out, a)
		}
	}
	return out
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// CriticalPath returns the longest weighted path through g using each
// task's EstimatedHours (fallback 1 when unset) as its node weight.
func CriticalPath(g *domain.DependencyGraph) ([]string, float64) {
	return g.CriticalPath(func(id string) float64 {
		t, ok := g.Nodes[id]
		if !ok || t.EstimatedHours <= 0 {
			return 1
		}
		return t.EstimatedHours
	})
}

// ValidationIssue is one finding from ValidateDependencies.
type ValidationIssue struct {
	Severity string // "issue" or "warning"
	Message  string
}

// ValidationSummary is the full report validate_dependencies
// produces.
type ValidationSummary struct {
	Issues     []ValidationIssue
	Warnings   []ValidationIssue
	NodeCount  int
	EdgeCount  int
	HasCycle   bool
	LongChains int
	Isolated   int
}

// ValidateDependencies checks g for cycles, missing-mandatory edges
// (deployment tasks lacking a test dependency), long dependency chains,
// and isolated tasks.
func ValidateDependencies(g *domain.DependencyGraph) ValidationSummary {
	summary := ValidationSummary{NodeCount: len(g.Nodes), EdgeCount: len(g.Edges)}

	if g.HasCycle() {
		summary.HasCycle = true
		summary.Issues = append(summary.Issues, ValidationIssue{"issue", "dependency graph contains a cycle"})
	}

	for id, task := range g.Nodes {
		if !isDeploymentTask(task) {
			continue
		}
		hasTestDep := false
		for _, depID := range g.DependenciesOf(id) {
			if dep, ok := g.Nodes[depID]; ok && isTestingTask(dep) {
				hasTestDep = true
				break
			}
		}
		if !hasTestDep {
			summary.Issues = append(summary.Issues, ValidationIssue{"issue", "deployment task " + id + " lacking test dependency"})
		}
	}

	for id := range g.Nodes {
		if len(g.DependenciesOf(id)) == 0 && len(g.DependentsOf(id)) == 0 {
			summary.Isolated++
			summary.Warnings = append(summary.Warnings, ValidationIssue{"warning", "task " + id + " is isolated"})
		}
	}

	order := g.TopologicalOrder(func(a, b string) bool { return a < b })
	if order != nil {
		depth := make(map[string]int, len(order))
		for _, id := range order {
			best := 0
			for _, dep := range g.DependenciesOf(id) {
				if depth[dep]+1 > best {
					best = depth[dep] + 1
				}
			}
			depth[id] = best
			if best >= 5 {
				summary.LongChains++
			}
		}
	}

	return summary
}

func isDeploymentTask(t *domain.Task) bool {
	return containsAnyWord(t.Name, "deploy", "release", "launch", "production")
}

func isTestingTask(t *domain.Task) bool {
	return containsAnyWord(t.Name, "test", "qa", "quality", "verify", "testing")
}

func containsAnyWord(name string, words ...string) bool {
	lower := strings.ToLower(name)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
