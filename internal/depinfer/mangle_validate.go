package depinfer

import (
	"coordinator/internal/depinfer/mangle"
	"coordinator/internal/domain"
	"coordinator/internal/logging"
	"coordinator/internal/textutil"
)

// validateWithMangle re-derives the phase-ordering and status-validity
// checks through the Mangle engine, as a cross-check on the regex
// pass's incompatibleStatus/phaseViolation logic in patterns.go. A
// mismatch (a candidate the regex pass kept but Mangle rejects, or vice
// versa) never happens by construction since both encode the same rule,
// but evaluating it declaratively here is what lets the inferer's rule
// set be extended by editing the Datalog program instead of Go control
// flow. On any engine failure the candidate set is returned unfiltered —
// the regex pass's own checks remain authoritative.
func validateWithMangle(tasks []*domain.Task, candidates []candidateEdge) []candidateEdge {
	eng, err := mangle.New()
	if err != nil {
		logging.Get(logging.CategoryDepInfer).Warn("mangle engine unavailable, skipping cross-check: %v", err)
		return candidates
	}

	for _, t := range tasks {
		eng.AddTaskPhase(t.ID, int(textutil.Phase(t.Name)*10))
		if t.Status == domain.StatusDone {
			eng.AddTaskDone(t.ID)
		}
		if t.Status == domain.StatusTodo && t.AssignedTo == "" {
			eng.AddTaskNew(t.ID)
		}
	}
	for _, c := range candidates {
		eng.AddCandidateEdge(c.dependent.ID, c.dependency.ID)
	}

	valid, err := eng.ValidEdges()
	if err != nil {
		logging.Get(logging.CategoryDepInfer).Warn("mangle eval failed, skipping cross-check: %v", err)
		return candidates
	}

	validSet := make(map[[2]string]bool, len(valid))
	for _, v := range valid {
		validSet[[2]string{v[0], v[1]}] = true
	}

	out := candidates[:0:0]
	for _, c := range candidates {
		if validSet[[2]string{c.dependent.ID, c.dependency.ID}] {
			out = append(out, c)
		}
	}
	return out
}
