package ledger

import "context"

// Ledger is a durable, append-only store of DecisionRecords, for operators
// who want a live audit feed rather than a post-hoc runpack export. The
// scenario runtime does not append to it; records arrive only through
// callers of Append.
type Ledger interface {
	// Append persists one DecisionRecord. ID is generated if empty.
	Append(ctx context.Context, rec DecisionRecord) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (DecisionRecord, error)

	// ListByRun retrieves every record appended for one run, in append order.
	ListByRun(ctx context.Context, tenantID, namespaceID, runID string) ([]DecisionRecord, error)
}
