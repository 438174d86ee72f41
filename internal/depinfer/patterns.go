// Package depinfer implements the hybrid dependency inferer. A
// deterministic, regex-driven pattern pass (this file) proposes
// high-confidence edges; ambiguous.go identifies pairs the pattern pass
// could not resolve; llmrefiner optionally adjudicates those; hybrid.go
// combines both into a DependencyGraph and cleans it up.
//
// The phase-ordering, status, and temporal validity checks run in Go
// (incompatibleStatus, phaseViolation, temporalViolation). mangle_validate.go
// re-derives the phase and status checks as Datalog rules over a Mangle
// fact store as a cross-check; the temporal check has no Datalog form.
package depinfer

import (
	"regexp"
	"strings"
	"time"

	"coordinator/internal/domain"
	"coordinator/internal/textutil"
)

// Pattern is one row of weighted pattern table.
type Pattern struct {
	Name            string
	DependentRegex  *regexp.Regexp
	DependencyRegex *regexp.Regexp
	Confidence      float64
	Mandatory       bool
	// componentSpecific requires >=1 shared non-stopword between the two
	// task names.
	componentSpecific bool
}

func mustPattern(name, dependent, dependency string, confidence float64, mandatory, componentSpecific bool) Pattern {
	return Pattern{
		Name:              name,
		DependentRegex:    regexp.MustCompile(dependent),
		DependencyRegex:   regexp.MustCompile(dependency),
		Confidence:        confidence,
		Mandatory:         mandatory,
		componentSpecific: componentSpecific,
	}
}

// Patterns is weighted pattern table, in priority order
// (ties are broken by picking the highest-confidence match per pair, so
// order here only affects which pattern name is recorded when several
// match at the same confidence).
var Patterns = []Pattern{
	mustPattern("setup_blocks_all",
		`implement|build|create|develop|test|deploy`,
		`setup|init|configure|install|scaffold`,
		0.95, true, false),
	mustPattern("design_before_implementation",
		`implement|build|create|code|develop`,
		`design|architect|plan|wireframe|spec`,
		0.95, true, false),
	mustPattern("backend_before_frontend",
		`frontend|ui|client|interface`,
		`backend|api|server|endpoint|service`,
		0.85, false, true),
	mustPattern("implementation_before_testing",
		`test|qa|quality|verify|testing`,
		`implement|build|create|develop`,
		0.95, true, false),
	mustPattern("testing_before_deployment",
		`deploy|release|launch|production`,
		`test|qa|quality|verify|testing`,
		0.95, true, false),
	mustPattern("schema_before_models",
		`model|entity|orm`,
		`schema|database.*design`,
		0.85, false, true),
	mustPattern("auth_before_authz",
		`authorization|permission|role|access`,
		`authentication|login|signin`,
		0.90, true, false),
	mustPattern("basic_before_advanced",
		`advanced|complex|optimization|caching`,
		`basic|crud|create|read|update|delete`,
		0.75, false, true),
}

func normalize(t *domain.Task) string {
	return strings.ToLower(t.Name + " " + t.Description)
}

// incompatibleStatus reports whether dependency->dependent is a
// logically invalid edge because of status.
func incompatibleStatus(dependency, dependent *domain.Task) bool {
	return dependency.Status == domain.StatusDone && dependent.Status == domain.StatusTodo && dependent.AssignedTo == ""
}

// sharesNonStopWord reports whether two task names share at least one
// meaningful (non-stopword) word, required for component-specific rules.
func sharesNonStopWord(a, b *domain.Task) bool {
	return textutil.SharedCount(textutil.Keywords(a.Name), textutil.Keywords(b.Name)) >= 1
}

// phaseViolation reports whether the candidate ordering is invalid: the
// dependency's phase must be strictly less than the dependent's
// (design(1) < implementation(2) < testing(3) < deployment(4)).
func phaseViolation(dependent, dependency *domain.Task) bool {
	return textutil.Phase(dependency.Name) >= textutil.Phase(dependent.Name)
}

// temporalViolation reports whether the candidate dependency was created
// more than 7 days after the dependent; that gap is treated as evidence
// the edge direction is wrong.
func temporalViolation(dependent, dependency *domain.Task) bool {
	if dependent.CreatedAt.IsZero() || dependency.CreatedAt.IsZero() {
		return false
	}
	return dependency.CreatedAt.Sub(dependent.CreatedAt) > 7*24*time.Hour
}

// candidateEdge is an unresolved match before the highest-confidence
// per-pair reduction.
type candidateEdge struct {
	dependent  *domain.Task
	dependency *domain.Task
	pattern    Pattern
}

// matchPatterns runs the pattern-matching pass over every ordered pair
// of tasks, applying logical-validity checks, and keeps the
// highest-confidence match per (dependent, dependency) pair.
func matchPatterns(tasks []*domain.Task) []domain.InferredDependency {
	normalized := make(map[string]string, len(tasks))
	for _, t := range tasks {
		normalized[t.ID] = normalize(t)
	}

	best := make(map[[2]string]candidateEdge)
	for _, dependent := range tasks {
		for _, dependency := range tasks {
			if dependent.ID == dependency.ID {
				continue
			}
			dh, bh := normalized[dependent.ID], normalized[dependency.ID]

			for _, p := range Patterns {
				if !p.DependentRegex.MatchString(dh) || !p.DependencyRegex.MatchString(bh) {
					continue
				}
				if incompatibleStatus(dependency, dependent) {
					continue
				}
				if p.componentSpecific && !sharesNonStopWord(dependent, dependency) {
					continue
				}
				if phaseViolation(dependent, dependency) {
					continue
				}
				if temporalViolation(dependent, dependency) {
					continue
				}

				key := [2]string{dependent.ID, dependency.ID}
				if existing, ok := best[key]; !ok || p.Confidence > existing.pattern.Confidence {
					best[key] = candidateEdge{dependent: dependent, dependency: dependency, pattern: p}
				}
			}
		}
	}

	candidates := make([]candidateEdge, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	candidates = validateWithMangle(tasks, candidates)

	out := make([]domain.InferredDependency, 0, len(candidates))
	for _, c := range candidates {
		depType := domain.DepSoft
		if c.pattern.Mandatory {
			depType = domain.DepHard
		}
		conf := c.pattern.Confidence
		out = append(out, domain.InferredDependency{
			DependentTaskID:   c.dependent.ID,
			DependencyTaskID:  c.dependency.ID,
			Type:              depType,
			Confidence:        conf,
			Reasoning:         "pattern:" + c.pattern.Name,
			Source:            c.pattern.Name,
			PatternConfidence: &conf,
			InferenceMethod:   domain.MethodPattern,
			Mandatory:         c.pattern.Mandatory,
		})
	}
	return out
}
