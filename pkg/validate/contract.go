// Package validate implements the schema/contract validator of §4.4:
// provider contracts, ScenarioSpec well-formedness, the comparator/result-
// type compatibility matrix, and precheck payload-shape validation.
package validate

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/decision-gate/core/pkg/comparator"
	"github.com/decision-gate/core/pkg/model"
)

// Determinism classifies how a provider check's result varies across calls.
type Determinism string

const (
	Deterministic  Determinism = "deterministic"
	TimeDependent  Determinism = "time_dependent"
	External       Determinism = "external"
)

// ProviderCheckContract is what a provider declares for one check_id (§4.4).
type ProviderCheckContract struct {
	ParamsSchema       map[string]any
	ResultSchema       map[string]any
	AllowedComparators []comparator.Name
	AnchorTypes        []string
	ContentTypes       []string
	Determinism        Determinism

	compiledParams *jsonschema.Schema
	compiledResult *jsonschema.Schema
}

// ResultTypeClass is derived from a ProviderCheckContract's ResultSchema,
// used to check comparator compatibility at define time (§4.4).
type ResultTypeClass string

const (
	ClassBoolean   ResultTypeClass = "boolean"
	ClassNumber    ResultTypeClass = "number"
	ClassString    ResultTypeClass = "string"
	ClassDateTime  ResultTypeClass = "date_time" // string with date/date-time format
	ClassArray     ResultTypeClass = "array"
	ClassObject    ResultTypeClass = "object"
	ClassDynamic   ResultTypeClass = "dynamic"
)

// compatibility matrix from §4.4: comparators permitted for a given
// result-type class, independent of opt-in config flags (which gate
// lex_*/deep_* separately).
var compatibility = map[ResultTypeClass]map[comparator.Name]bool{
	ClassBoolean: set(comparator.Equals, comparator.NotEquals, comparator.InSet, comparator.ExistsName, comparator.NotExistsName),
	ClassNumber: set(comparator.Equals, comparator.NotEquals, comparator.InSet, comparator.ExistsName, comparator.NotExistsName,
		comparator.GreaterThan, comparator.GreaterThanEqual, comparator.LessThan, comparator.LessThanEqual),
	ClassString: set(comparator.Equals, comparator.NotEquals, comparator.InSet, comparator.ExistsName, comparator.NotExistsName,
		comparator.Contains, comparator.LexGreaterThan, comparator.LexGreaterEqual, comparator.LexLessThan, comparator.LexLessEqual),
	ClassDateTime: set(comparator.Equals, comparator.NotEquals, comparator.InSet, comparator.ExistsName, comparator.NotExistsName,
		comparator.Contains, comparator.GreaterThan, comparator.GreaterThanEqual, comparator.LessThan, comparator.LessThanEqual),
	ClassArray: set(comparator.Contains, comparator.ExistsName, comparator.NotExistsName, comparator.DeepEquals, comparator.DeepNotEquals),
	ClassObject: set(comparator.ExistsName, comparator.NotExistsName, comparator.DeepEquals, comparator.DeepNotEquals),
}

func set(names ...comparator.Name) map[comparator.Name]bool {
	m := make(map[comparator.Name]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// ComparatorAllowed reports whether comparator cmp is compatible with a
// result schema of the given class, subject to opt-in family flags for
// lex_*/deep_* and the schema's own x-decision-gate extension.
func ComparatorAllowed(class ResultTypeClass, cmp comparator.Name, ext SchemaExtension) bool {
	if class == ClassDynamic {
		return ext.allowsDynamic(cmp)
	}
	allowed, ok := compatibility[class]
	if !ok {
		return false
	}
	if !allowed[cmp] {
		return false
	}
	if isOptInFamily(cmp) {
		return ext.Allows(cmp)
	}
	return true
}

func isOptInFamily(cmp comparator.Name) bool {
	switch cmp {
	case comparator.LexGreaterThan, comparator.LexGreaterEqual, comparator.LexLessThan, comparator.LexLessEqual,
		comparator.DeepEquals, comparator.DeepNotEquals:
		return true
	default:
		return false
	}
}

// SchemaExtension is the parsed x-decision-gate extension object read off
// a result_schema (§4.3): which opt-in comparators the schema author
// declared allowed, and whether the schema opts fully out of static typing.
type SchemaExtension struct {
	AllowedComparators []comparator.Name
	DynamicType        bool
}

func (e SchemaExtension) Allows(cmp comparator.Name) bool {
	for _, c := range e.AllowedComparators {
		if c == cmp {
			return true
		}
	}
	return false
}

func (e SchemaExtension) allowsDynamic(cmp comparator.Name) bool {
	if e.DynamicType {
		return true
	}
	return e.Allows(cmp)
}

// ExtensionFromSchema extracts x-decision-gate.allowed_comparators and
// x-decision-gate.dynamic_type from a raw JSON Schema document.
func ExtensionFromSchema(schema map[string]any) SchemaExtension {
	raw, ok := schema["x-decision-gate"].(map[string]any)
	if !ok {
		return SchemaExtension{}
	}
	var ext SchemaExtension
	if dt, ok := raw["dynamic_type"].(bool); ok {
		ext.DynamicType = dt
	}
	if list, ok := raw["allowed_comparators"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				ext.AllowedComparators = append(ext.AllowedComparators, comparator.Name(s))
			}
		}
	}
	return ext
}

// ClassifyResultSchema derives a ResultTypeClass from a raw JSON Schema,
// following §4.4's enumerated mapping. An absent or ambiguous "type"
// (including explicit x-decision-gate.dynamic_type) classifies as dynamic.
func ClassifyResultSchema(schema map[string]any) ResultTypeClass {
	ext := ExtensionFromSchema(schema)
	if ext.DynamicType {
		return ClassDynamic
	}
	t, _ := schema["type"].(string)
	switch t {
	case "boolean":
		return ClassBoolean
	case "integer", "number":
		return ClassNumber
	case "string":
		if format, _ := schema["format"].(string); format == "date" || format == "date-time" {
			return ClassDateTime
		}
		return ClassString
	case "array":
		return ClassArray
	case "object":
		return ClassObject
	default:
		return ClassDynamic
	}
}

// CompileContract compiles a ProviderCheckContract's params/result schemas,
// grounded on pkg/firewall.PolicyFirewall's jsonschema.NewCompiler/Draft2020
// usage. schemaID namespaces the in-memory schema resource URL.
func CompileContract(schemaID string, c *ProviderCheckContract) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if c.ParamsSchema != nil {
		compiled, err := compileInline(compiler, schemaID+"#params", c.ParamsSchema)
		if err != nil {
			return model.NewErrorf(model.CodeInvalidSchema, "params_schema for %s: %v", schemaID, err)
		}
		c.compiledParams = compiled
	}
	if c.ResultSchema != nil {
		compiled, err := compileInline(jsonschema.NewCompiler(), schemaID+"#result", c.ResultSchema)
		if err != nil {
			return model.NewErrorf(model.CodeInvalidSchema, "result_schema for %s: %v", schemaID, err)
		}
		c.compiledResult = compiled
	}
	return nil
}

func compileInline(compiler *jsonschema.Compiler, url string, schema map[string]any) (*jsonschema.Schema, error) {
	r, err := mapReader(schema)
	if err != nil {
		return nil, err
	}
	if err := compiler.AddResource(url, r); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

func mapReader(schema map[string]any) (io.Reader, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// ValidateParams validates params against the contract's compiled
// params_schema, fail-closed per §4.4.
func (c *ProviderCheckContract) ValidateParams(params map[string]any) error {
	if c.compiledParams == nil {
		return nil
	}
	if err := c.compiledParams.Validate(params); err != nil {
		return model.NewErrorf(model.CodePayloadInvalid, "params failed schema validation: %v", err)
	}
	return nil
}

// ValidateResult validates a raw result value against the contract's
// compiled result_schema, used by providers/tests asserting contract
// conformance; the live evidence pipeline does not re-validate results
// against result_schema (§4.5 defines its own normalization pipeline).
func (c *ProviderCheckContract) ValidateResult(value any) error {
	if c.compiledResult == nil {
		return nil
	}
	if err := c.compiledResult.Validate(value); err != nil {
		return model.NewErrorf(model.CodeInvalidSchema, "result failed schema validation: %v", err)
	}
	return nil
}

func contractComparatorAllowed(c *ProviderCheckContract, cmp comparator.Name) bool {
	for _, allowed := range c.AllowedComparators {
		if allowed == cmp {
			return true
		}
	}
	return false
}

func fmtComparators(names []comparator.Name) string {
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = string(n)
	}
	return strings.Join(s, ", ")
}
