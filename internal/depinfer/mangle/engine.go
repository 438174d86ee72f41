// Package mangle wraps the google/mangle Datalog engine for the hybrid
// dependency inferer. Rather than indexing arbitrary code-graph facts,
// it carries exactly the facts the logical-validity checks need (task
// phase, status, creation time) plus the pattern pass's candidate
// edges, and evaluates a fixed rule set that derives which candidate
// edges survive phase-ordering and status validity — moving that
// reasoning out of imperative boolean chains and into Datalog.
package mangle

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// program is the fixed Datalog schema and rule set for dependency
// validity derivation. task_phase facts are keyed by an integer phase
// (design=1, implementation=2, testing=3, deployment=4, unknown=25 —
// scaled by 10 so the comparison builtins operate on integers) and
// task_done(Id) marks a completed task; candidate_edge(Dependent,
// Dependency) is asserted per pattern match. valid_edge derives the
// subset that does not violate phase ordering or the done/todo rule.
const program = `
Decl task_phase(Id, Phase)
  bound[(/string, /number)].
Decl task_done(Id)
  bound[(/string)].
Decl task_new(Id)
  bound[(/string)].
Decl candidate_edge(Dependent, Dependency)
  bound[(/string, /string)].

valid_edge(Dependent, Dependency) :-
  candidate_edge(Dependent, Dependency),
  task_phase(Dependent, PhaseA),
  task_phase(Dependency, PhaseB),
  :lt(PhaseB, PhaseA),
  !invalid_status(Dependent, Dependency).

invalid_status(Dependent, Dependency) :-
  task_done(Dependency),
  task_new(Dependent).
`

// Engine evaluates the fixed dependency-validity program against facts
// asserted per inference run. It is cheap to construct and scoped to a
// single matchPatterns call — the hybrid inferer builds a fresh Engine
// per DependencyGraph it produces.
type Engine struct {
	facts factstore.FactStore
	info  *analysis.ProgramInfo
}

// New parses the fixed program and returns an Engine with an empty fact
// store ready for AddFact calls.
func New() (*Engine, error) {
	unit, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		return nil, fmt.Errorf("depinfer/mangle: parse program: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("depinfer/mangle: analyze program: %w", err)
	}
	return &Engine{
		facts: factstore.NewSimpleInMemoryStore(),
		info:  info,
	}, nil
}

func atomString(s string) ast.BaseTerm { return ast.String(s) }
func atomNumber(n int) ast.BaseTerm    { return ast.Number(int64(n)) }

// AddTaskPhase asserts task_phase(id, phase*10) (scaled to an integer so
// the 2.5 unknown-phase midpoint used by textutil.Phase is representable).
func (e *Engine) AddTaskPhase(id string, phaseTenths int) {
	e.facts.Add(ast.NewAtom("task_phase", atomString(id), atomNumber(phaseTenths)))
}

// AddTaskDone asserts task_done(id).
func (e *Engine) AddTaskDone(id string) {
	e.facts.Add(ast.NewAtom("task_done", atomString(id)))
}

// AddTaskNew asserts task_new(id).
func (e *Engine) AddTaskNew(id string) {
	e.facts.Add(ast.NewAtom("task_new", atomString(id)))
}

// AddCandidateEdge asserts candidate_edge(dependent, dependency).
func (e *Engine) AddCandidateEdge(dependent, dependency string) {
	e.facts.Add(ast.NewAtom("candidate_edge", atomString(dependent), atomString(dependency)))
}

// ValidEdges evaluates the program and returns the (dependent,
// dependency) pairs that survive the valid_edge derivation.
func (e *Engine) ValidEdges() ([][2]string, error) {
	if err := mengine.EvalProgramNaive(e.info, e.facts); err != nil {
		return nil, fmt.Errorf("depinfer/mangle: eval: %w", err)
	}

	var out [][2]string
	query := ast.NewQuery(ast.PredicateSym{Symbol: "valid_edge", Arity: 2})
	if err := e.facts.GetFacts(query, func(a ast.Atom) error {
		if len(a.Args) != 2 {
			return nil
		}
		d1, ok1 := a.Args[0].(ast.Constant)
		d2, ok2 := a.Args[1].(ast.Constant)
		if !ok1 || !ok2 {
			return nil
		}
		out = append(out, [2]string{unquote(d1.String()), unquote(d2.String())})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("depinfer/mangle: read valid_edge: %w", err)
	}
	return out, nil
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}
