package validate

import (
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/decision-gate/core/pkg/model"
)

// PrecheckShape converts a precheck payload into asserted-lane evidence
// results keyed by condition_id, per §4.4's two accepted shapes:
//
//   - object payload: keys are condition_ids, each value is that
//     condition's asserted evidence value;
//   - non-object payload: accepted only when the targeted stage has
//     exactly one condition, which receives the whole payload as its
//     value.
//
// Every returned EvidenceResult has Lane set to asserted (§4.4).
func PrecheckShape(payload any, dataShapeSchema map[string]any, stageConditionIDs []string) (map[string]*model.EvidenceResult, error) {
	if dataShapeSchema != nil {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		r, err := mapReader(dataShapeSchema)
		if err != nil {
			return nil, model.NewErrorf(model.CodeInvalidSchema, "data shape schema: %v", err)
		}
		const url = "https://decision-gate.local/precheck-payload.schema.json"
		if err := compiler.AddResource(url, r); err != nil {
			return nil, model.NewErrorf(model.CodeInvalidSchema, "data shape schema: %v", err)
		}
		compiled, err := compiler.Compile(url)
		if err != nil {
			return nil, model.NewErrorf(model.CodeInvalidSchema, "data shape schema: %v", err)
		}
		if err := compiled.Validate(payload); err != nil {
			return nil, model.NewErrorf(model.CodePayloadInvalid, "precheck payload failed data shape validation: %v", err)
		}
	}

	out := make(map[string]*model.EvidenceResult)

	if obj, ok := payload.(map[string]any); ok {
		for condID, v := range obj {
			out[condID] = assertedResult(v)
		}
		return out, nil
	}

	if len(stageConditionIDs) != 1 {
		return nil, model.NewErrorf(model.CodePayloadInvalid,
			"non-object precheck payload requires exactly one condition on the targeted stage, got %d", len(stageConditionIDs))
	}
	out[stageConditionIDs[0]] = assertedResult(payload)
	return out, nil
}

func assertedResult(v any) *model.EvidenceResult {
	return &model.EvidenceResult{
		Value: &model.EvidenceValue{Kind: "json", Value: v},
		Lane:  model.LaneAsserted,
	}
}
