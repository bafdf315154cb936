package ledger

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a ledger entry is not found.
var ErrNotFound = errors.New("not found")

// DecisionRecord is one appended entry in a run's decision ledger: the
// outcome of a single step_run/submit_run/precheck call, streamed as it
// happens rather than assembled only at export_runpack time.
type DecisionRecord struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	NamespaceID string         `json:"namespace_id"`
	RunID       string         `json:"run_id"`
	ScenarioID  string         `json:"scenario_id"`
	StageID     string         `json:"stage_id"`
	Operation   string         `json:"operation"` // "step_run" | "submit_run" | "precheck"
	Outcome     string         `json:"outcome"`   // "advance" | "complete" | "hold" | "fail"
	Hash        string         `json:"hash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	RecordedAt  time.Time      `json:"recorded_at"`
}
