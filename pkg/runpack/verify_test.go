package runpack_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/runpack"
)

func runStateWithAnchor(anchor *model.EvidenceAnchor) []byte {
	run := model.RunState{
		RunID: "r1",
		GateEvals: []model.GateEval{
			{
				Seq:     1,
				StageID: "stage-1",
				GateID:  "gate-1",
				Outcome: model.True,
				Conditions: []model.ConditionEval{
					{
						ConditionID:    "cond-1",
						Query:          model.ConditionQuery{ProviderID: "kyc", CheckID: "identity"},
						Outcome:        model.True,
						EvidenceAnchor: anchor,
					},
				},
			},
		},
	}
	blob, err := json.Marshal(run)
	if err != nil {
		panic(err)
	}
	return blob
}

func runpackWithRunState(t *testing.T, runState []byte) *model.Runpack {
	t.Helper()
	rp, err := runpack.Build("r1", "deadbeef", []runpack.Artifact{
		{Path: "spec.json", Bytes: []byte(`{"scenario_id":"s1"}`)},
		{Path: "run_state.json", Bytes: runState},
	}, false)
	require.NoError(t, err)
	return rp
}

func TestVerify_AnchorPassesWhenRequiredFieldsPresent(t *testing.T) {
	anchor := &model.EvidenceAnchor{AnchorType: "identity_record", AnchorValue: `{"subject_id":"u-1"}`}
	rp := runpackWithRunState(t, runStateWithAnchor(anchor))

	policy := evidence.AnchorPolicy{RequiredFields: map[string][]string{"kyc/identity_record": {"subject_id"}}}
	result := runpack.Verify(rp, policy)
	require.True(t, result.OK, "issues: %+v", result.Issues)
}

func TestVerify_AnchorInvalidWhenRequiredFieldMissing(t *testing.T) {
	anchor := &model.EvidenceAnchor{AnchorType: "identity_record", AnchorValue: `{"subject_id":"u-1"}`}
	rp := runpackWithRunState(t, runStateWithAnchor(anchor))

	// Policy drift since export: a second required field was added.
	policy := evidence.AnchorPolicy{RequiredFields: map[string][]string{"kyc/identity_record": {"subject_id", "issued_at"}}}
	result := runpack.Verify(rp, policy)
	require.False(t, result.OK)

	var found bool
	for _, issue := range result.Issues {
		if issue.Code == model.CodeAnchorInvalid {
			found = true
		}
	}
	require.True(t, found, "expected anchor_invalid issue, got: %+v", result.Issues)
}

func TestVerify_AnchorSkippedWhenPolicyHasNoRequirement(t *testing.T) {
	anchor := &model.EvidenceAnchor{AnchorType: "identity_record", AnchorValue: `{"subject_id":"u-1"}`}
	rp := runpackWithRunState(t, runStateWithAnchor(anchor))

	result := runpack.Verify(rp, evidence.AnchorPolicy{})
	require.True(t, result.OK, "issues: %+v", result.Issues)
}

func TestVerify_NoAnchorInRunStateIsFine(t *testing.T) {
	rp := runpackWithRunState(t, runStateWithAnchor(nil))

	policy := evidence.AnchorPolicy{RequiredFields: map[string][]string{"kyc/identity_record": {"subject_id"}}}
	result := runpack.Verify(rp, policy)
	require.True(t, result.OK, "issues: %+v", result.Issues)
}
