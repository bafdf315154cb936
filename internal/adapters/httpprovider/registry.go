// Package httpprovider is an HTTP-backed evidence.Registry: it resolves a
// provider_id to a base URL from static configuration and dispatches
// evidence.Provider.Query as a JSON POST against that URL, the remote
// counterpart to an in-process ProviderFunc. The request/response shape
// follows a plain tool-call wire format: one JSON object in, one back.
package httpprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/model"
)

// Registry resolves provider_id to a base URL and dispatches queries over
// HTTP. Safe for concurrent use; the url map is set once at construction.
type Registry struct {
	urls   map[string]string
	client *http.Client
}

// New builds a Registry from a static provider_id -> base URL map.
func New(urls map[string]string, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Registry{urls: urls, client: &http.Client{Timeout: timeout}}
}

// Provider implements evidence.Registry.
func (r *Registry) Provider(providerID string) (evidence.Provider, bool) {
	base, ok := r.urls[providerID]
	if !ok {
		return nil, false
	}
	return evidence.ProviderFunc(func(ctx context.Context, query model.EvidenceQuery, evidCtx evidence.Context) (*model.EvidenceResult, error) {
		return r.dispatch(ctx, base, query, evidCtx)
	}), true
}

type wireRequest struct {
	Query   model.EvidenceQuery `json:"query"`
	RunID   string              `json:"run_id"`
	StageID string              `json:"stage_id"`
	Trigger string              `json:"trigger_id"`
	AtUnix  int64               `json:"trigger_time"`
}

func (r *Registry) dispatch(ctx context.Context, base string, query model.EvidenceQuery, evidCtx evidence.Context) (*model.EvidenceResult, error) {
	body, err := json.Marshal(wireRequest{
		Query:   query,
		RunID:   evidCtx.RunID,
		StageID: evidCtx.StageID,
		Trigger: evidCtx.TriggerID,
		AtUnix:  evidCtx.TriggerTime,
	})
	if err != nil {
		return nil, fmt.Errorf("httpprovider: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpprovider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpprovider: dispatch to %q: %w", base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpprovider: %q returned status %d", base, resp.StatusCode)
	}

	var result model.EvidenceResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("httpprovider: decode response from %q: %w", base, err)
	}
	return &result, nil
}
