// Package comparator implements the tri-state comparator table of §4.3:
// given an EvidenceResult and a ConditionSpec, produce a TriState outcome
// under the pre-rules and per-comparator type-compatibility behaviors.
package comparator

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/decision-gate/core/pkg/model"
)

// Name identifies one of the comparators in the §4.3 table.
type Name string

const (
	Equals           Name = "equals"
	NotEquals        Name = "not_equals"
	GreaterThan      Name = "greater_than"
	GreaterThanEqual Name = "greater_than_equal"
	LessThan         Name = "less_than"
	LessThanEqual    Name = "less_than_equal"
	Contains         Name = "contains"
	InSet            Name = "in_set"
	DeepEquals       Name = "deep_equals"
	DeepNotEquals    Name = "deep_not_equals"
	LexGreaterThan   Name = "lex_greater_than"
	LexGreaterEqual  Name = "lex_greater_than_equal"
	LexLessThan      Name = "lex_less_than"
	LexLessEqual     Name = "lex_less_than_equal"
	ExistsName       Name = "exists"
	NotExistsName    Name = "not_exists"
)

// Options gates the opt-in comparator families (§4.3): lex_* and deep_*
// require both a config flag here AND the schema declaring the comparator
// in x-decision-gate.allowed_comparators (enforced by pkg/validate at
// define time, not re-checked here — by the time Evaluate runs, the
// definition-time gate has already passed).
type Options struct {
	AllowLexFamily  bool
	AllowDeepFamily bool
}

// Evaluate applies the pre-rules then the named comparator to result
// against spec.Expected, returning the tri-state outcome.
func Evaluate(name Name, result *model.EvidenceResult, expected any, opts Options) model.TriState {
	if name != ExistsName && name != NotExistsName {
		if result == nil || result.Error != nil || result.Value == nil {
			return model.Unknown
		}
		if expected == nil {
			return model.Unknown
		}
	}

	switch name {
	case ExistsName:
		return triFromBool(result != nil && result.Value != nil)
	case NotExistsName:
		return triFromBool(result == nil || result.Value == nil)
	case Equals:
		return equalsOutcome(result.Value.Value, expected, true)
	case NotEquals:
		return equalsOutcome(result.Value.Value, expected, false)
	case GreaterThan, GreaterThanEqual, LessThan, LessThanEqual:
		return ordering(name, result.Value.Value, expected)
	case Contains:
		return contains(result.Value.Value, expected)
	case InSet:
		return inSet(result.Value.Value, expected)
	case DeepEquals:
		if !opts.AllowDeepFamily {
			return model.Unknown
		}
		return triFromBool(deepEqual(result.Value.Value, expected))
	case DeepNotEquals:
		if !opts.AllowDeepFamily {
			return model.Unknown
		}
		return triFromBool(!deepEqual(result.Value.Value, expected))
	case LexGreaterThan, LexGreaterEqual, LexLessThan, LexLessEqual:
		if !opts.AllowLexFamily {
			return model.Unknown
		}
		return lexOrdering(name, result.Value.Value, expected)
	default:
		return model.Unknown
	}
}

func triFromBool(b bool) model.TriState {
	if b {
		return model.True
	}
	return model.False
}

// equalsOutcome implements equals/not_equals: a type mismatch returns
// false/true respectively, never unknown (§4.3's one deliberate deviation
// from the otherwise-unknown-on-mismatch table). Numbers compare by
// decimal equality (10 == 10.0); bytes require expected as an array of
// 0..255.
func equalsOutcome(actual, expected any, wantEqual bool) model.TriState {
	eq := jsonEqual(actual, expected)
	if wantEqual {
		return triFromBool(eq)
	}
	return triFromBool(!eq)
}

func jsonEqual(a, b any) bool {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return an == bn
	}
	if ab, ok := a.([]byte); ok {
		if bb, ok := bytesFromExpected(b); ok {
			return bytes.Equal(ab, bb)
		}
		return false
	}
	if aok != bok {
		return false
	}
	switch at := a.(type) {
	case string:
		bt, ok := b.(string)
		return ok && at == bt
	case bool:
		bt, ok := b.(bool)
		return ok && at == bt
	case nil:
		return b == nil
	default:
		return deepEqual(a, b)
	}
}

func bytesFromExpected(v any) ([]byte, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]byte, 0, len(arr))
	for _, e := range arr {
		n, ok := asNumber(e)
		if !ok || n < 0 || n > 255 {
			return nil, false
		}
		out = append(out, byte(n))
	}
	return out, true
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// ordering implements greater_than/>=/</<= over numbers OR RFC3339
// date-time/date strings on both sides; any other pairing is unknown.
func ordering(name Name, actual, expected any) model.TriState {
	if an, aok := asNumber(actual); aok {
		if bn, bok := asNumber(expected); bok {
			return orderResult(name, compareFloat(an, bn))
		}
		return model.Unknown
	}
	as, aok := actual.(string)
	bs, bok := expected.(string)
	if !aok || !bok {
		return model.Unknown
	}
	at, aerr := parseTemporal(as)
	bt, berr := parseTemporal(bs)
	if aerr != nil || berr != nil {
		return model.Unknown
	}
	return orderResult(name, compareTime(at, bt))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func orderResult(name Name, cmp int) model.TriState {
	switch name {
	case GreaterThan:
		return triFromBool(cmp > 0)
	case GreaterThanEqual:
		return triFromBool(cmp >= 0)
	case LessThan:
		return triFromBool(cmp < 0)
	case LessThanEqual:
		return triFromBool(cmp <= 0)
	default:
		return model.Unknown
	}
}

// parseTemporal accepts RFC3339 date-time or a bare YYYY-MM-DD date.
func parseTemporal(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("not a recognized RFC3339 date-time or date: %q", s)
}

func contains(actual, expected any) model.TriState {
	switch at := actual.(type) {
	case string:
		es, ok := expected.(string)
		if !ok {
			return model.Unknown
		}
		return triFromBool(indexOf(at, es) >= 0)
	case []any:
		wants, ok := expected.([]any)
		if !ok {
			wants = []any{expected}
		}
		for _, w := range wants {
			found := false
			for _, e := range at {
				if jsonEqual(e, w) {
					found = true
					break
				}
			}
			if !found {
				return model.False
			}
		}
		return model.True
	default:
		return model.Unknown
	}
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	if needle == "" {
		return 0
	}
	return -1
}

// inSet requires expected to be an array and actual to be scalar.
func inSet(actual, expected any) model.TriState {
	set, ok := expected.([]any)
	if !ok {
		return model.Unknown
	}
	switch actual.(type) {
	case string, float64, int, int64, bool, nil:
	default:
		return model.Unknown
	}
	for _, e := range set {
		if jsonEqual(actual, e) {
			return model.True
		}
	}
	return model.False
}

func deepEqual(a, b any) bool {
	switch at := a.(type) {
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		keys := make([]string, 0, len(at))
		for k := range at {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			bv, ok := bt[k]
			if !ok || !deepEqual(at[k], bv) {
				return false
			}
		}
		return true
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !deepEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	default:
		return jsonEqual(a, b)
	}
}

// lexOrdering implements the opt-in lex_* family: Unicode code point
// ordering over strings.
func lexOrdering(name Name, actual, expected any) model.TriState {
	as, aok := actual.(string)
	bs, bok := expected.(string)
	if !aok || !bok {
		return model.Unknown
	}
	cmp := 0
	switch {
	case as < bs:
		cmp = -1
	case as > bs:
		cmp = 1
	}
	switch name {
	case LexGreaterThan:
		return triFromBool(cmp > 0)
	case LexGreaterEqual:
		return triFromBool(cmp >= 0)
	case LexLessThan:
		return triFromBool(cmp < 0)
	case LexLessEqual:
		return triFromBool(cmp <= 0)
	default:
		return model.Unknown
	}
}
