// Package policyhooks implements ScenarioSpec.policies[] — optional CEL
// policy hooks evaluated once per step against a read-only view of run
// metadata and tri-state outcomes. Programs are parsed once and cached by
// source, narrowed to this one input shape rather than a general-purpose
// CEL environment.
package policyhooks

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/decision-gate/core/pkg/model"
)

// Input is the read-only view a policy hook evaluates against. It never
// carries raw evidence values — only tri-state gate outcomes and run
// metadata — so a policy hook cannot reintroduce the trust-lane bypass the
// evidence pipeline exists to prevent.
type Input struct {
	RunID         string
	ScenarioID    string
	StageID       string
	TriggerID     string
	GateOutcomes  map[string]string // gate_id -> "true"|"false"|"unknown"
}

func (in Input) toCELMap() map[string]any {
	outcomes := make(map[string]any, len(in.GateOutcomes))
	for k, v := range in.GateOutcomes {
		outcomes[k] = v
	}
	return map[string]any{
		"run_id":      in.RunID,
		"scenario_id": in.ScenarioID,
		"stage_id":    in.StageID,
		"trigger_id":  in.TriggerID,
		"gates":       outcomes,
	}
}

// Evaluator compiles and caches CEL programs for policy expressions,
// mirroring governance.CELPolicyEvaluator's double-checked-locking cache.
type Evaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	prgCache map[string]cel.Program
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("run_id", cel.StringType),
		cel.Variable("scenario_id", cel.StringType),
		cel.Variable("stage_id", cel.StringType),
		cel.Variable("trigger_id", cel.StringType),
		cel.Variable("gates", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("policyhooks: failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env, prgCache: make(map[string]cel.Program)}, nil
}

// Outcome is the result of evaluating one PolicySpec.
type Outcome struct {
	PolicyID string
	Severity string
	Passed   bool
}

// Evaluate runs every policy in specs against in, once each. Evaluation
// errors are treated as a failing ("false") result — fail-closed, matching
// the evidence pipeline's posture rather than silently skipping the
// policy.
func (e *Evaluator) Evaluate(specs []model.PolicySpec, in Input) []Outcome {
	input := in.toCELMap()
	out := make([]Outcome, 0, len(specs))
	for _, spec := range specs {
		passed, err := e.evaluateExpr(spec.CELExpr, input)
		if err != nil {
			passed = false
		}
		out = append(out, Outcome{PolicyID: spec.PolicyID, Severity: spec.Severity, Passed: passed})
	}
	return out
}

// Summarize applies §9-style auxiliary-check semantics: advisory failures
// become warning tags, blocking failures force a hold. It returns the
// policy_tags for SafeSummary and whether any blocking policy failed.
func Summarize(outcomes []Outcome) (policyTags []string, blocked bool) {
	for _, o := range outcomes {
		if o.Passed {
			continue
		}
		policyTags = append(policyTags, o.PolicyID)
		if o.Severity == model.PolicySeverityBlocking {
			blocked = true
		}
	}
	return policyTags, blocked
}

func (e *Evaluator) evaluateExpr(expr string, input map[string]any) (bool, error) {
	e.mu.RLock()
	prg, hit := e.prgCache[expr]
	e.mu.RUnlock()

	if !hit {
		e.mu.Lock()
		if prg, hit = e.prgCache[expr]; !hit {
			ast, issues := e.env.Compile(expr)
			if issues != nil && issues.Err() != nil {
				e.mu.Unlock()
				return false, fmt.Errorf("policyhooks: compile %q: %w", expr, issues.Err())
			}
			p, err := e.env.Program(ast,
				cel.InterruptCheckFrequency(100),
				cel.CostLimit(10000),
			)
			if err != nil {
				e.mu.Unlock()
				return false, fmt.Errorf("policyhooks: program %q: %w", expr, err)
			}
			e.prgCache[expr] = p
			prg = p
		}
		e.mu.Unlock()
	}

	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("policyhooks: eval %q: %w", expr, err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policyhooks: expression %q did not evaluate to bool", expr)
	}
	return val, nil
}
