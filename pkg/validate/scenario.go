package validate

import (
	"github.com/Masterminds/semver/v3"

	"github.com/decision-gate/core/pkg/comparator"
	"github.com/decision-gate/core/pkg/model"
)

// Registry resolves provider contracts by (provider_id, check_id); it is
// the read-mostly process-level registry §5 describes, passed in rather
// than held as a hidden singleton.
type Registry interface {
	Contract(providerID, checkID string) (*ProviderCheckContract, bool)
}

// NoopRegistry is a Registry with no registered contracts: every lookup
// misses, so ValidateScenario rejects every condition under it with
// unknown_condition_ref. A nil Registry, by contrast, skips the
// provider-contract checks.
type NoopRegistry struct{}

func (NoopRegistry) Contract(providerID, checkID string) (*ProviderCheckContract, bool) {
	return nil, false
}

// ValidateScenario enforces §3's structural invariants and §4.4's strict
// comparator/type compatibility rules. The structural checks always run;
// the provider-contract checks (known provider check, params, allowed
// comparators, result-type compatibility) run only when reg is non-nil.
func ValidateScenario(spec *model.ScenarioSpec, reg Registry) error {
	if spec.ScenarioID == "" {
		return model.NewError(model.CodeInvalidSpec, "scenario_id is required")
	}
	if _, err := semver.NewVersion(spec.SpecVersion); err != nil {
		return model.NewErrorf(model.CodeInvalidSpec, "spec_version %q is not valid semver: %v", spec.SpecVersion, err)
	}

	conditionIDs := make(map[string]struct{}, len(spec.Conditions))
	for _, c := range spec.Conditions {
		if _, dup := conditionIDs[c.ConditionID]; dup {
			return model.NewErrorf(model.CodeInvalidSpec, "duplicate condition_id %q", c.ConditionID)
		}
		conditionIDs[c.ConditionID] = struct{}{}

		if err := validateCondition(c, reg); err != nil {
			return err
		}
	}

	stageIDs := make(map[string]struct{}, len(spec.Stages))
	for _, s := range spec.Stages {
		if _, dup := stageIDs[s.StageID]; dup {
			return model.NewErrorf(model.CodeInvalidSpec, "duplicate stage_id %q", s.StageID)
		}
		stageIDs[s.StageID] = struct{}{}
	}

	for _, s := range spec.Stages {
		gateIDs := make(map[string]struct{}, len(s.Gates))
		for _, g := range s.Gates {
			if _, dup := gateIDs[g.GateID]; dup {
				return model.NewErrorf(model.CodeInvalidSpec, "duplicate gate_id %q in stage %q", g.GateID, s.StageID)
			}
			gateIDs[g.GateID] = struct{}{}
			if g.Requirement == nil {
				return model.NewErrorf(model.CodeInvalidSpec, "gate %q has no requirement", g.GateID)
			}
			if err := g.Requirement.Validate(conditionIDs); err != nil {
				return err
			}
		}
		if err := validateAdvance(s, stageIDs); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(c model.ConditionSpec, reg Registry) error {
	if c.ConditionID == "" {
		return model.NewError(model.CodeInvalidSpec, "condition_id is required")
	}
	cmp := comparator.Name(c.Comparator)
	if cmp != comparator.ExistsName && cmp != comparator.NotExistsName && c.Expected == nil {
		return model.NewErrorf(model.CodeInvalidSpec, "condition %q: expected is required for comparator %q", c.ConditionID, cmp)
	}

	if reg == nil {
		return nil
	}
	contract, ok := reg.Contract(c.Query.ProviderID, c.Query.CheckID)
	if !ok {
		return model.NewErrorf(model.CodeUnknownConditionRef, "condition %q references unknown provider check %s/%s",
			c.ConditionID, c.Query.ProviderID, c.Query.CheckID)
	}
	if err := contract.ValidateParams(c.Query.Params); err != nil {
		return err
	}
	if !contractComparatorAllowed(contract, cmp) {
		return model.NewErrorf(model.CodeComparatorIncompatible, "condition %q: comparator %q not in contract's allowed_comparators [%s]",
			c.ConditionID, cmp, fmtComparators(contract.AllowedComparators))
	}
	class := ClassifyResultSchema(contract.ResultSchema)
	ext := ExtensionFromSchema(contract.ResultSchema)
	if !ComparatorAllowed(class, cmp, ext) {
		return model.NewErrorf(model.CodeComparatorIncompatible, "condition %q: comparator %q incompatible with result type %q",
			c.ConditionID, cmp, class)
	}
	return nil
}

func validateAdvance(s model.StageSpec, stageIDs map[string]struct{}) error {
	switch s.AdvanceTo.Kind {
	case model.AdvanceTerminal, model.AdvanceLinear:
		return nil
	case model.AdvanceFixed:
		if _, ok := stageIDs[s.AdvanceTo.FixedStageID]; !ok {
			return model.NewErrorf(model.CodeInvalidSpec, "stage %q: advance_to fixed target %q does not exist", s.StageID, s.AdvanceTo.FixedStageID)
		}
		return nil
	case model.AdvanceBranch:
		for _, b := range s.AdvanceTo.Branches {
			if _, ok := stageIDs[b.NextStageID]; !ok {
				return model.NewErrorf(model.CodeInvalidSpec, "stage %q: branch target %q does not exist", s.StageID, b.NextStageID)
			}
		}
		if s.AdvanceTo.DefaultStageID != "" {
			if _, ok := stageIDs[s.AdvanceTo.DefaultStageID]; !ok {
				return model.NewErrorf(model.CodeInvalidSpec, "stage %q: branch default %q does not exist", s.StageID, s.AdvanceTo.DefaultStageID)
			}
		}
		return nil
	default:
		return model.NewErrorf(model.CodeInvalidSpec, "stage %q: unknown advance_to kind %q", s.StageID, s.AdvanceTo.Kind)
	}
}
