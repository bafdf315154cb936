package scenario

import (
	"github.com/decision-gate/core/pkg/model"
)

// dispatchTargets extracts the optional "dispatch_targets" entry from a
// start_run run_config payload (§6). run_config arrives as a generic
// map[string]any (typically decoded from JSON), so a []string value
// surfaces as []interface{}; both shapes are accepted.
func dispatchTargets(runConfig map[string]any) []string {
	raw, ok := runConfig["dispatch_targets"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func findStage(spec *model.ScenarioSpec, stageID string) (model.StageSpec, bool) {
	for _, s := range spec.Stages {
		if s.StageID == stageID {
			return s, true
		}
	}
	return model.StageSpec{}, false
}

func conditionsByID(spec *model.ScenarioSpec) map[string]model.ConditionSpec {
	out := make(map[string]model.ConditionSpec, len(spec.Conditions))
	for _, c := range spec.Conditions {
		out[c.ConditionID] = c
	}
	return out
}

// dedupedConditionIDs collects the distinct condition_ids a stage's gates
// reference, in first-encounter order, so the evidence pipeline resolves
// each condition at most once per step (§4.6 step 3).
func dedupedConditionIDs(stage model.StageSpec) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, gate := range stage.Gates {
		if gate.Requirement == nil {
			continue
		}
		for _, id := range gate.Requirement.ConditionIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func appendPackets(packets []model.Packet, stage model.StageSpec) []model.Packet {
	for _, payload := range stage.EntryPackets {
		packets = append(packets, model.Packet{
			Seq:     uint64(len(packets) + 1),
			StageID: stage.StageID,
			Payload: payload,
		})
	}
	return packets
}

// decideOutcome implements §4.6 step 4's outcome-selection rules, given
// the current stage's gate outcomes. It does not consider timeouts or
// policy hooks — StepRun layers those on separately; Precheck applies
// neither.
func decideOutcome(spec *model.ScenarioSpec, stage model.StageSpec, gateOutcomes map[string]model.TriState) model.DecisionOutcome {
	allTrue, anyFalse := true, false
	var falseGates, unmetGates []string
	for _, gate := range stage.Gates {
		switch gateOutcomes[gate.GateID] {
		case model.True:
		case model.False:
			allTrue = false
			anyFalse = true
			falseGates = append(falseGates, gate.GateID)
			unmetGates = append(unmetGates, gate.GateID)
		default:
			allTrue = false
			unmetGates = append(unmetGates, gate.GateID)
		}
	}

	if allTrue {
		return decideAdvance(spec, stage, gateOutcomes)
	}

	if anyFalse {
		if stage.OnFail == "fail" {
			return model.DecisionOutcome{Kind: model.OutcomeFail, Reason: "gate_false"}
		}
		return model.DecisionOutcome{Kind: model.OutcomeHold, Summary: &model.SafeSummary{Status: "hold", UnmetGates: falseGates}}
	}

	return model.DecisionOutcome{Kind: model.OutcomeHold, Summary: &model.SafeSummary{Status: "hold", UnmetGates: unmetGates}}
}

// decideAdvance implements the all-gates-true branch of §4.6 step 4:
// resolve advance_to against the stage's declared policy.
func decideAdvance(spec *model.ScenarioSpec, stage model.StageSpec, gateOutcomes map[string]model.TriState) model.DecisionOutcome {
	switch stage.AdvanceTo.Kind {
	case model.AdvanceTerminal:
		return model.DecisionOutcome{Kind: model.OutcomeComplete, StageID: stage.StageID}

	case model.AdvanceLinear:
		idx := stageIndex(spec, stage.StageID)
		if idx < 0 || idx == len(spec.Stages)-1 {
			return model.DecisionOutcome{Kind: model.OutcomeComplete, StageID: stage.StageID}
		}
		return model.DecisionOutcome{Kind: model.OutcomeAdvance, From: stage.StageID, To: spec.Stages[idx+1].StageID}

	case model.AdvanceFixed:
		return model.DecisionOutcome{Kind: model.OutcomeAdvance, From: stage.StageID, To: stage.AdvanceTo.FixedStageID}

	case model.AdvanceBranch:
		for _, b := range stage.AdvanceTo.Branches {
			if gateOutcomes[b.GateID].String() == b.Outcome {
				return model.DecisionOutcome{Kind: model.OutcomeAdvance, From: stage.StageID, To: b.NextStageID}
			}
		}
		if stage.AdvanceTo.DefaultStageID != "" {
			return model.DecisionOutcome{Kind: model.OutcomeAdvance, From: stage.StageID, To: stage.AdvanceTo.DefaultStageID}
		}
		return model.DecisionOutcome{Kind: model.OutcomeFail, Reason: "no_branch_match"}

	default:
		return model.DecisionOutcome{Kind: model.OutcomeFail, Reason: "unknown_advance_kind"}
	}
}

// decideTimeout implements §4.6 step 4's `on_timeout` fallback, applied
// only when the gate-based outcome would otherwise have been a hold.
func decideTimeout(stage model.StageSpec) model.DecisionOutcome {
	switch stage.OnTimeout.Kind {
	case model.OnTimeoutFail:
		return model.DecisionOutcome{Kind: model.OutcomeFail, Reason: "timeout"}
	case model.OnTimeoutAdvance:
		return model.DecisionOutcome{Kind: model.OutcomeAdvance, From: stage.StageID, To: stage.OnTimeout.AdvanceToID}
	default:
		return model.DecisionOutcome{Kind: model.OutcomeHold, Summary: &model.SafeSummary{Status: "hold", RetryHint: "timeout"}}
	}
}

func stageIndex(spec *model.ScenarioSpec, stageID string) int {
	for i, s := range spec.Stages {
		if s.StageID == stageID {
			return i
		}
	}
	return -1
}
