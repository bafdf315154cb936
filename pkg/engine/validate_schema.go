package engine

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/decision-gate/core/pkg/model"
)

// validateJSONSchema compiles schema to reject malformed DataShape
// documents at register_schema time rather than at first precheck use.
func validateJSONSchema(schema map[string]any) error {
	if schema == nil {
		return model.NewError(model.CodeInvalidSchema, "schema document is required")
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return model.NewErrorf(model.CodeInvalidSchema, "schema document is not serializable: %v", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	const url = "https://decision-gate.local/data-shape.schema.json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return model.NewErrorf(model.CodeInvalidSchema, "schema document: %v", err)
	}
	if _, err := compiler.Compile(url); err != nil {
		return model.NewErrorf(model.CodeInvalidSchema, "schema document: %v", err)
	}
	return nil
}
