package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/scenario"
)

func sampleSpec(scenarioID string, namespaceID model.NamespaceID) *model.ScenarioSpec {
	return &model.ScenarioSpec{
		ScenarioID:  scenarioID,
		NamespaceID: namespaceID,
		SpecVersion: "1.0.0",
		Conditions: []model.ConditionSpec{
			{ConditionID: "c1", Query: model.ConditionQuery{ProviderID: "p", CheckID: "check"}, Comparator: "equals", Expected: true},
		},
		Stages: []model.StageSpec{
			{
				StageID:   "s1",
				Gates:     []model.GateSpec{{GateID: "g1", Requirement: model.Condition("c1")}},
				AdvanceTo: model.Advance{Kind: model.AdvanceTerminal},
			},
		},
	}
}

func TestRegistry_DefineIsIdempotentOnIdenticalSpec(t *testing.T) {
	reg := scenario.NewRegistry(nil)
	h1, err := reg.Define(sampleSpec("s", 1))
	require.NoError(t, err)
	h2, err := reg.Define(sampleSpec("s", 1))
	require.NoError(t, err)
	require.Equal(t, h1, h2, "defining an identical spec twice must yield the same spec_hash")
}

func TestRegistry_ResolveReturnsCurrentHash(t *testing.T) {
	reg := scenario.NewRegistry(nil)
	hash, err := reg.Define(sampleSpec("s", 1))
	require.NoError(t, err)

	spec, gotHash, ok := reg.Resolve(1, "s")
	require.True(t, ok)
	require.Equal(t, hash, gotHash)
	require.Equal(t, "s", spec.ScenarioID)
}

func TestRegistry_ResolveIsScopedByNamespace(t *testing.T) {
	reg := scenario.NewRegistry(nil)
	_, err := reg.Define(sampleSpec("s", 1))
	require.NoError(t, err)

	_, _, ok := reg.Resolve(2, "s")
	require.False(t, ok, "a scenario_id defined in namespace 1 must not resolve in namespace 2")
}

func TestRegistry_RedefiningUnderSameScenarioIDKeepsOldHashResolvable(t *testing.T) {
	reg := scenario.NewRegistry(nil)
	spec1 := sampleSpec("s", 1)
	oldHash, err := reg.Define(spec1)
	require.NoError(t, err)

	spec2 := sampleSpec("s", 1)
	spec2.SpecVersion = "2.0.0"
	newHash, err := reg.Define(spec2)
	require.NoError(t, err)
	require.NotEqual(t, oldHash, newHash)

	_, currentHash, ok := reg.Resolve(1, "s")
	require.True(t, ok)
	require.Equal(t, newHash, currentHash, "scenario_id should now resolve to the newly defined version")

	oldSpec, ok := reg.ByHash(oldHash)
	require.True(t, ok, "a run pinned to the old spec_hash must still be able to resolve it")
	require.Equal(t, "1.0.0", oldSpec.SpecVersion)
}

func TestRegistry_DefineRejectsInvalidSpec(t *testing.T) {
	reg := scenario.NewRegistry(nil)
	_, err := reg.Define(&model.ScenarioSpec{ScenarioID: "", SpecVersion: "1.0.0"})
	require.Error(t, err)
	var gerr *model.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, model.CodeInvalidSpec, gerr.Code)
}

func TestRegistry_ByHashUnknownReturnsFalse(t *testing.T) {
	reg := scenario.NewRegistry(nil)
	_, ok := reg.ByHash("nonexistent")
	require.False(t, ok)
}
