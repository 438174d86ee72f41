package contextstore

import (
	"strings"

	"coordinator/internal/domain"
	"coordinator/internal/textutil"
)

// baselineConfidence is the "moderate confidence" the design assigns to every
// baseline keyword-pair match (§4.4 defers the exact number to §4.6's
// weighted table; none of those entries are this coarse, so this package
// picks its own floor — see DESIGN.md).
const baselineConfidence = 0.6

type baselineRule struct {
	dependentWords  []string
	dependencyWords []string
}

var baselineRules = []baselineRule{
	{[]string{"frontend", "ui", "client"}, []string{"backend", "api", "server"}},
	{[]string{"test", "spec"}, []string{"implement", "feature", "api"}},
	{[]string{"integration", "e2e"}, []string{"component", "service", "module"}},
	{[]string{"docs", "documentation"}, []string{"implement", "feature"}},
}

func haystack(t *domain.Task) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(t.Name))
	b.WriteByte(' ')
	for _, l := range t.Labels {
		b.WriteString(strings.ToLower(l))
		b.WriteByte(' ')
	}
	return b.String()
}

func containsWord(haystack string, words []string) bool {
	for _, w := range words {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}

// inferBaseline applies keyword-pair rules over every ordered
// pair of tasks, then layers in phase-ordering edges (design < implement <
// testing < deployment, the same classification §4.6 uses) for any pair
// the keyword rules left unconnected — the baseline engine's weakest
// signal, used only to break phase-order violations when nothing else
// says otherwise. Returns dependent->dependency edges.
func inferBaseline(tasks []*domain.Task) []domain.InferredDependency {
	connected := make(map[[2]string]bool)
	var out []domain.InferredDependency

	for _, a := range tasks {
		ah := haystack(a)
		for _, b := range tasks {
			if a.ID == b.ID {
				continue
			}
			bh := haystack(b)
			for _, rule := range baselineRules {
				if containsWord(ah, rule.dependentWords) && containsWord(bh, rule.dependencyWords) {
					out = append(out, domain.InferredDependency{
						DependentTaskID:  a.ID,
						DependencyTaskID: b.ID,
						Type:             domain.DepSoft,
						Confidence:       baselineConfidence,
						Reasoning:        "keyword pair match",
						Source:           "baseline",
						InferenceMethod:  domain.MethodPattern,
					})
					connected[[2]string{a.ID, b.ID}] = true
					connected[[2]string{b.ID, a.ID}] = true
					break
				}
			}
		}
	}

	for _, a := range tasks {
		for _, b := range tasks {
			if a.ID == b.ID || connected[[2]string{a.ID, b.ID}] {
				continue
			}
			pa, pb := textutil.Phase(a.Name), textutil.Phase(b.Name)
			if pa > pb {
				out = append(out, domain.InferredDependency{
					DependentTaskID:  a.ID,
					DependencyTaskID: b.ID,
					Type:             domain.DepSoft,
					Confidence:       baselineConfidence * 0.75,
					Reasoning:        "phase ordering",
					Source:           "baseline_phase",
					InferenceMethod:  domain.MethodPattern,
				})
			}
		}
	}
	return out
}
