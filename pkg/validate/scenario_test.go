package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/comparator"
	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/validate"
)

type stubRegistry struct {
	contracts map[string]*validate.ProviderCheckContract
}

func (s stubRegistry) Contract(providerID, checkID string) (*validate.ProviderCheckContract, bool) {
	c, ok := s.contracts[providerID+"/"+checkID]
	return c, ok
}

func boolContract() *validate.ProviderCheckContract {
	return &validate.ProviderCheckContract{
		ResultSchema:       map[string]any{"type": "boolean"},
		AllowedComparators: []comparator.Name{comparator.Equals, comparator.NotEquals},
	}
}

func minimalSpec() *model.ScenarioSpec {
	return &model.ScenarioSpec{
		ScenarioID:  "sc1",
		SpecVersion: "1.0.0",
		Conditions: []model.ConditionSpec{
			{ConditionID: "a", Query: model.ConditionQuery{ProviderID: "time", CheckID: "after"}, Comparator: "equals", Expected: true},
		},
		Stages: []model.StageSpec{
			{
				StageID:   "main",
				Gates:     []model.GateSpec{{GateID: "g1", Requirement: model.Condition("a")}},
				AdvanceTo: model.Advance{Kind: model.AdvanceTerminal},
			},
		},
	}
}

func TestValidateScenario_Valid(t *testing.T) {
	reg := stubRegistry{contracts: map[string]*validate.ProviderCheckContract{"time/after": boolContract()}}
	require.NoError(t, validate.ValidateScenario(minimalSpec(), reg))
}

func TestValidateScenario_UnknownConditionRefInRequirement(t *testing.T) {
	spec := minimalSpec()
	spec.Stages[0].Gates[0].Requirement = model.Condition("does-not-exist")
	reg := stubRegistry{contracts: map[string]*validate.ProviderCheckContract{"time/after": boolContract()}}
	err := validate.ValidateScenario(spec, reg)
	require.Error(t, err)
	var gerr *model.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, model.CodeUnknownConditionRef, gerr.Code)
}

func TestValidateScenario_BadSemver(t *testing.T) {
	spec := minimalSpec()
	spec.SpecVersion = "not-a-version"
	err := validate.ValidateScenario(spec, nil)
	require.Error(t, err)
}

func TestValidateScenario_DuplicateStageID(t *testing.T) {
	spec := minimalSpec()
	spec.Stages = append(spec.Stages, spec.Stages[0])
	err := validate.ValidateScenario(spec, nil)
	require.Error(t, err)
}

func TestValidateScenario_FixedAdvanceMustReferenceExistingStage(t *testing.T) {
	spec := minimalSpec()
	spec.Stages[0].AdvanceTo = model.Advance{Kind: model.AdvanceFixed, FixedStageID: "missing"}
	err := validate.ValidateScenario(spec, nil)
	require.Error(t, err)
}
