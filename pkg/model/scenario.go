package model

// ScenarioSpec is immutable once registered (§3). Its spec_hash, computed at
// registration over its canonical JSON, is the identity runs pin to.
type ScenarioSpec struct {
	ScenarioID      string         `json:"scenario_id" yaml:"scenario_id"`
	NamespaceID     NamespaceID    `json:"namespace_id" yaml:"namespace_id"`
	SpecVersion     string         `json:"spec_version" yaml:"spec_version"`
	Stages          []StageSpec    `json:"stages" yaml:"stages"`
	Conditions      []ConditionSpec `json:"conditions" yaml:"conditions"`
	Policies        []PolicySpec   `json:"policies,omitempty" yaml:"policies,omitempty"`
	Schemas         []string       `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	DefaultTenantID TenantID       `json:"default_tenant_id" yaml:"default_tenant_id"`
}

// PolicySpec is an optional CEL policy hook: an auxiliary, scenario-scoped
// check over tri-state outcomes and run metadata, never over raw evidence
// values.
type PolicySpec struct {
	PolicyID string `json:"policy_id" yaml:"policy_id"`
	CELExpr  string `json:"cel_expr" yaml:"cel_expr"`
	Severity string `json:"severity" yaml:"severity"` // "advisory" | "blocking"
}

const (
	PolicySeverityAdvisory = "advisory"
	PolicySeverityBlocking = "blocking"
)

// TrustOverride raises the minimum acceptable evidence lane above the
// global configured floor; an override looser than the floor has no
// effect. The evidence pipeline applies a condition's override; an
// override set on a gate is carried in the spec but is not applied.
type TrustOverride struct {
	MinLane string `json:"min_lane,omitempty" yaml:"min_lane,omitempty"` // "verified" | "asserted"
}

// ConditionQuery names the provider check a condition dispatches to.
type ConditionQuery struct {
	ProviderID string         `json:"provider_id" yaml:"provider_id"`
	CheckID    string         `json:"check_id" yaml:"check_id"`
	Params     map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// ConditionSpec is a named leaf check (§3). Expected is required unless
// Comparator is exists/not_exists.
type ConditionSpec struct {
	ConditionID string          `json:"condition_id" yaml:"condition_id"`
	Query       ConditionQuery  `json:"query" yaml:"query"`
	Comparator  string          `json:"comparator" yaml:"comparator"`
	Expected    any             `json:"expected,omitempty" yaml:"expected,omitempty"`
	PolicyTags  []string        `json:"policy_tags,omitempty" yaml:"policy_tags,omitempty"`
	Trust       *TrustOverride  `json:"trust,omitempty" yaml:"trust,omitempty"`
}

// GateSpec is a named node whose outcome is decided by evaluating
// Requirement over condition outcomes (§3).
type GateSpec struct {
	GateID      string         `json:"gate_id" yaml:"gate_id"`
	Requirement *Requirement   `json:"requirement" yaml:"requirement"`
	Trust       *TrustOverride `json:"trust,omitempty" yaml:"trust,omitempty"`
}

// AdvanceKind tags a StageSpec's advance policy.
type AdvanceKind string

const (
	AdvanceTerminal AdvanceKind = "terminal"
	AdvanceLinear   AdvanceKind = "linear"
	AdvanceFixed    AdvanceKind = "fixed"
	AdvanceBranch   AdvanceKind = "branch"
)

// BranchRule is one arm of a branch advance policy: the first rule whose
// GateID/Outcome matches the step's gate evaluations is taken.
type BranchRule struct {
	GateID      string `json:"gate_id" yaml:"gate_id"`
	Outcome     string `json:"outcome" yaml:"outcome"` // "true" | "false" | "unknown"
	NextStageID string `json:"next_stage_id" yaml:"next_stage_id"`
}

// Advance describes a StageSpec.advance_to value: exactly one of the
// Kind-specific fields is meaningful, selected by Kind.
type Advance struct {
	Kind           AdvanceKind  `json:"kind" yaml:"kind"`
	FixedStageID   string       `json:"fixed_stage_id,omitempty" yaml:"fixed_stage_id,omitempty"`
	Branches       []BranchRule `json:"branches,omitempty" yaml:"branches,omitempty"`
	DefaultStageID string       `json:"default,omitempty" yaml:"default,omitempty"`
}

// OnTimeoutKind tags a StageSpec's on_timeout policy.
type OnTimeoutKind string

const (
	OnTimeoutFail    OnTimeoutKind = "fail"
	OnTimeoutHold    OnTimeoutKind = "hold"
	OnTimeoutAdvance OnTimeoutKind = "advance"
)

type OnTimeout struct {
	Kind        OnTimeoutKind `json:"kind" yaml:"kind"`
	AdvanceToID string        `json:"advance_to_id,omitempty" yaml:"advance_to_id,omitempty"`
}

// StageSpec is a named step holding gates, an entry-packet set, advance
// policy, and optional timeout (§3).
type StageSpec struct {
	StageID      string          `json:"stage_id" yaml:"stage_id"`
	EntryPackets []map[string]any `json:"entry_packets,omitempty" yaml:"entry_packets,omitempty"`
	Gates        []GateSpec      `json:"gates" yaml:"gates"`
	AdvanceTo    Advance         `json:"advance_to" yaml:"advance_to"`
	TimeoutMS    *int64          `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	OnTimeout    OnTimeout       `json:"on_timeout" yaml:"on_timeout"`
	// OnFail, when "fail", turns a false-gate outcome into a fail decision
	// instead of the default hold (§4.6 step 4).
	OnFail string `json:"on_fail,omitempty" yaml:"on_fail,omitempty"`
}
