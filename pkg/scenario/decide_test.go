package scenario

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/model"
)

func branchSpec() (*model.ScenarioSpec, model.StageSpec) {
	stage := model.StageSpec{
		StageID: "s1",
		Gates: []model.GateSpec{
			{GateID: "g1", Requirement: model.Condition("c1")},
		},
		AdvanceTo: model.Advance{
			Kind: model.AdvanceBranch,
			Branches: []model.BranchRule{
				{GateID: "g1", Outcome: "true", NextStageID: "approved"},
				{GateID: "g1", Outcome: "false", NextStageID: "rejected"},
			},
			DefaultStageID: "manual_review",
		},
	}
	spec := &model.ScenarioSpec{
		ScenarioID: "s",
		Stages: []model.StageSpec{
			stage,
			{StageID: "approved", AdvanceTo: model.Advance{Kind: model.AdvanceTerminal}},
			{StageID: "rejected", AdvanceTo: model.Advance{Kind: model.AdvanceTerminal}},
			{StageID: "manual_review", AdvanceTo: model.Advance{Kind: model.AdvanceTerminal}},
		},
	}
	return spec, stage
}

func TestDecideOutcome_AllTrueAdvancesViaBranch(t *testing.T) {
	spec, stage := branchSpec()
	outcome := decideOutcome(spec, stage, map[string]model.TriState{"g1": model.True})
	require.Equal(t, model.OutcomeAdvance, outcome.Kind)
	require.Equal(t, "approved", outcome.To)
}

func TestDecideOutcome_FalseGateHoldsInsteadOfBranching(t *testing.T) {
	spec, stage := branchSpec()
	outcome := decideOutcome(spec, stage, map[string]model.TriState{"g1": model.False})
	require.Equal(t, model.OutcomeHold, outcome.Kind, "a false gate with no on_fail=fail holds rather than advancing")
}

func TestDecideAdvance_BranchFallsBackToDefault(t *testing.T) {
	spec, stage := branchSpec()
	// an outcome absent from both branch rules must fall back to default.
	outcome := decideAdvance(spec, stage, map[string]model.TriState{"g1": model.Unknown})
	require.Equal(t, model.OutcomeAdvance, outcome.Kind)
	require.Equal(t, "manual_review", outcome.To)
}

func TestDecideAdvance_BranchWithNoDefaultFails(t *testing.T) {
	spec, stage := branchSpec()
	stage.AdvanceTo.DefaultStageID = ""
	outcome := decideAdvance(spec, stage, map[string]model.TriState{"g1": model.Unknown})
	require.Equal(t, model.OutcomeFail, outcome.Kind)
	require.Equal(t, "no_branch_match", outcome.Reason)
}

func TestDecideAdvance_LinearAtLastStageCompletes(t *testing.T) {
	spec := &model.ScenarioSpec{
		Stages: []model.StageSpec{
			{StageID: "only", AdvanceTo: model.Advance{Kind: model.AdvanceLinear}},
		},
	}
	outcome := decideAdvance(spec, spec.Stages[0], nil)
	require.Equal(t, model.OutcomeComplete, outcome.Kind)
}

func TestDecideTimeout_HoldWhenOnTimeoutIsHold(t *testing.T) {
	stage := model.StageSpec{StageID: "s1", OnTimeout: model.OnTimeout{Kind: model.OnTimeoutHold}}
	outcome := decideTimeout(stage)
	require.Equal(t, model.OutcomeHold, outcome.Kind)
	require.Equal(t, "timeout", outcome.Summary.RetryHint)
}

func TestDedupedConditionIDs_CollapsesSharedConditionsAcrossGates(t *testing.T) {
	stage := model.StageSpec{
		Gates: []model.GateSpec{
			{GateID: "g1", Requirement: model.And(model.Condition("c1"), model.Condition("c2"))},
			{GateID: "g2", Requirement: model.Condition("c1")},
		},
	}
	ids := dedupedConditionIDs(stage)
	require.Equal(t, []string{"c1", "c2"}, ids)
}

func TestAppendPackets_AssignsSequentialSeq(t *testing.T) {
	stage := model.StageSpec{
		StageID:      "s1",
		EntryPackets: []map[string]any{{"a": 1}, {"b": 2}},
	}
	packets := appendPackets(nil, stage)
	require.Len(t, packets, 2)
	require.Equal(t, uint64(1), packets[0].Seq)
	require.Equal(t, uint64(2), packets[1].Seq)
}

func TestDispatchTargets_AcceptsJSONDecodedSlice(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, dispatchTargets(map[string]any{"dispatch_targets": []any{"a", "b"}}))
	require.Equal(t, []string{"a", "b"}, dispatchTargets(map[string]any{"dispatch_targets": []string{"a", "b"}}))
	require.Nil(t, dispatchTargets(nil))
}
