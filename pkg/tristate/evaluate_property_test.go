//go:build property
// +build property

package tristate_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/tristate"
)

func triFromBool(b bool) model.TriState {
	if b {
		return model.True
	}
	return model.False
}

// TestDeMorgan verifies De Morgan's laws hold over {true,false} leaf
// outcomes: Not(And(a,b)) == Or(Not(a),Not(b)) and the dual.
func TestDeMorgan(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Not(And(a,b)) == Or(Not(a),Not(b))", prop.ForAll(
		func(a, b bool) bool {
			leaves := map[string]model.TriState{"a": triFromBool(a), "b": triFromBool(b)}
			lhs, _ := tristate.Evaluate(model.Not(model.And(model.Condition("a"), model.Condition("b"))), leaves)
			rhs, _ := tristate.Evaluate(model.Or(model.Not(model.Condition("a")), model.Not(model.Condition("b"))), leaves)
			return lhs == rhs
		},
		gen.Bool(), gen.Bool(),
	))

	properties.Property("Not(Or(a,b)) == And(Not(a),Not(b))", prop.ForAll(
		func(a, b bool) bool {
			leaves := map[string]model.TriState{"a": triFromBool(a), "b": triFromBool(b)}
			lhs, _ := tristate.Evaluate(model.Not(model.Or(model.Condition("a"), model.Condition("b"))), leaves)
			rhs, _ := tristate.Evaluate(model.And(model.Not(model.Condition("a")), model.Not(model.Condition("b"))), leaves)
			return lhs == rhs
		},
		gen.Bool(), gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestDoubleNegation verifies Not(Not(x)) == x for every tri-state value,
// including unknown (the case a plain {true,false} test would miss).
func TestDoubleNegation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("Not(Not(x)) == x", prop.ForAll(
		func(choice int) bool {
			states := []model.TriState{model.True, model.False, model.Unknown}
			x := states[choice%3]
			leaves := map[string]model.TriState{"a": x}
			got, _ := tristate.Evaluate(model.Not(model.Not(model.Condition("a"))), leaves)
			return got == x
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

// TestRequireGroupQuorumBoundaries verifies the two exact boundary cases
// §8 names: RequireGroup{min:n, reqs:n×[true]} == true, and
// RequireGroup{min:n+1, reqs:n children} on all-false == false.
func TestRequireGroupQuorumBoundaries(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("RequireGroup{min:n, n true children} == true", prop.ForAll(
		func(n int) bool {
			reqs := make([]*model.Requirement, n)
			leaves := map[string]model.TriState{}
			for i := 0; i < n; i++ {
				id := idFor(i)
				reqs[i] = model.Condition(id)
				leaves[id] = model.True
			}
			got, _ := tristate.Evaluate(model.RequireGroup(n, reqs...), leaves)
			return got == model.True
		},
		gen.IntRange(1, 20),
	))

	properties.Property("RequireGroup{min:n+1, n false children} == false", prop.ForAll(
		func(n int) bool {
			reqs := make([]*model.Requirement, n)
			leaves := map[string]model.TriState{}
			for i := 0; i < n; i++ {
				id := idFor(i)
				reqs[i] = model.Condition(id)
				leaves[id] = model.False
			}
			got, _ := tristate.Evaluate(model.RequireGroup(n+1, reqs...), leaves)
			return got == model.False
		},
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

func idFor(i int) string {
	return string(rune('a' + i%26))
}
