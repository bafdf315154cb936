// Package evidence implements the evidence pipeline of §4.5: provider
// dispatch, hash normalization, anchor policy enforcement, signature
// verification, trust-lane enforcement, comparator evaluation, and
// gate_eval recording.
package evidence

import (
	"context"

	"github.com/decision-gate/core/pkg/model"
)

// Context carries the tenant/namespace/run/scenario/stage/trigger ids and
// trigger_time a provider needs to answer a query (§4.5 step 1). It is an
// immutable value passed into every dispatch — no hidden singletons (§9).
type Context struct {
	TenantID    model.TenantID
	NamespaceID model.NamespaceID
	RunID       string
	ScenarioID  string
	StageID     string
	TriggerID   string
	TriggerTime int64
}

// Provider is the single-method, single-shot, bounded, cancellable contract
// every evidence source implements (§9): "async/coroutines in providers ...
// modeled as a trait-style interface with a single method query(query,
// context) -> EvidenceResult". Whether a concrete Provider dispatches over
// stdio, HTTP, or an in-process function is its own business.
type Provider interface {
	Query(ctx context.Context, query model.EvidenceQuery, evidCtx Context) (*model.EvidenceResult, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, query model.EvidenceQuery, evidCtx Context) (*model.EvidenceResult, error)

func (f ProviderFunc) Query(ctx context.Context, query model.EvidenceQuery, evidCtx Context) (*model.EvidenceResult, error) {
	return f(ctx, query, evidCtx)
}

// Registry resolves a provider by id, the process-level, read-only-during-
// request-handling registry §5 describes.
type Registry interface {
	Provider(providerID string) (Provider, bool)
}
