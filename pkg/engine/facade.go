// Package engine is the top-level facade of §6: one entry point per
// operation (define_scenario, register_schema, start_run, step_run,
// submit_run, precheck, query_evidence, export_runpack, verify_runpack),
// wiring pkg/scenario, pkg/evidence, and pkg/runpack behind the error
// taxonomy and feedback policy §6/§7 describe. A transport (HTTP, gRPC,
// in-process) sits in front of this package; Facade itself holds no
// network concerns.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/runpack"
	"github.com/decision-gate/core/pkg/scenario"
)

// Facade is the process-level assembly of every component the §6 operation
// table needs. Construct one per process; every field is itself safe for
// concurrent use.
type Facade struct {
	Scenarios *scenario.Engine
	Schemas   *SchemaRegistry
	ACL       *SchemaACL
	Pipeline  *evidence.Pipeline
	Disclose  DisclosurePolicy

	hasher *canon.Hasher
}

func NewFacade(scenarios *scenario.Engine, schemas *SchemaRegistry, acl *SchemaACL, pipeline *evidence.Pipeline, disclose DisclosurePolicy) *Facade {
	return &Facade{
		Scenarios: scenarios,
		Schemas:   schemas,
		ACL:       acl,
		Pipeline:  pipeline,
		Disclose:  disclose,
		hasher:    canon.NewHasher(0),
	}
}

// DefineScenario implements `define_scenario`.
func (f *Facade) DefineScenario(spec *model.ScenarioSpec) (scenarioID, specHash string, err error) {
	specHash, err = f.Scenarios.Define(spec)
	if err != nil {
		return "", "", err
	}
	return spec.ScenarioID, specHash, nil
}

// RegisterSchema implements `register_schema`, including the one ACL check
// the core performs on the transport's behalf (§6).
func (f *Facade) RegisterSchema(bearerToken string, ds *model.DataShape) (schemaID, version, hash string, err error) {
	if err := f.ACL.Authorize(bearerToken); err != nil {
		return "", "", "", err
	}
	hash, err = f.Schemas.Register(ds)
	if err != nil {
		return "", "", "", err
	}
	return ds.SchemaID, ds.Version, hash, nil
}

// StartRun implements `start_run`.
func (f *Facade) StartRun(tenantID model.TenantID, namespaceID model.NamespaceID, runID, scenarioID string, runConfig map[string]any, startedAt int64, issueEntryPackets bool) (*model.RunState, error) {
	return f.Scenarios.StartRun(tenantID, namespaceID, runID, scenarioID, runConfig, startedAt, issueEntryPackets)
}

// StepRun implements `step_run` (next/trigger).
func (f *Facade) StepRun(ctx context.Context, req scenario.StepRequest) (*scenario.StepResult, error) {
	return f.Scenarios.StepRun(ctx, req)
}

// SubmitRun implements `submit_run`.
func (f *Facade) SubmitRun(tenantID model.TenantID, namespaceID model.NamespaceID, runID string, payload any, metadata map[string]any) (uint64, model.HashDigest, error) {
	return f.Scenarios.SubmitRun(tenantID, namespaceID, runID, payload, metadata)
}

// Precheck implements `precheck`. The caller resolves scenario_id to a spec
// (registered or inline) before calling; Facade does not itself hold a
// separate precheck-spec path, mirroring Engine.Precheck taking *spec
// directly rather than a scenario_id.
func (f *Facade) Precheck(spec *model.ScenarioSpec, stageID string, dataShapeSchema map[string]any, payload any) (*scenario.PrecheckResult, error) {
	return f.Scenarios.Precheck(spec, stageID, dataShapeSchema, payload)
}

// QueryEvidence implements `query_evidence`. disclose requests the raw
// evidence value; it is honored only when Disclose permits it for this
// provider, otherwise the value is redacted and, if the caller explicitly
// asked for it, disclosure_blocked is returned rather than silently
// substituting a redacted result.
func (f *Facade) QueryEvidence(ctx context.Context, evidCtx evidence.Context, query model.EvidenceQuery, trust *model.TrustOverride, disclose bool) (*model.EvidenceResult, error) {
	result := f.Pipeline.QueryEvidence(ctx, evidCtx, query, trust)
	if !disclose {
		return redactValue(result), nil
	}
	if !f.Disclose.Allows(query.ProviderID) {
		return nil, model.NewErrorf(model.CodeDisclosureBlocked, "disclosure policy denies raw evidence values for provider %q", query.ProviderID)
	}
	return result, nil
}

// ExportRunpack implements `export_runpack`: bundles the pinned
// ScenarioSpec and current RunState into a content-addressed runpack and
// returns its manifest. Callers that need the artifact bytes themselves
// (the HTTP transport streaming a bundle to an operator, for instance)
// use ExportRunpackBundle instead.
func (f *Facade) ExportRunpack(tenantID model.TenantID, namespaceID model.NamespaceID, runID, outputPrefix string) (*model.Manifest, error) {
	rp, err := f.buildRunpack(tenantID, namespaceID, runID, outputPrefix)
	if err != nil {
		return nil, err
	}
	return &rp.Manifest, nil
}

// ExportRunpackBundle is ExportRunpack's counterpart for callers that must
// persist or transmit the runpack itself, not just its manifest — the
// tenant/namespace/run identify the same export, but the artifact bytes
// (json:"-" on model.Runpack, so they never round-trip through plain
// JSON) come along for the ride.
func (f *Facade) ExportRunpackBundle(tenantID model.TenantID, namespaceID model.NamespaceID, runID, outputPrefix string) (*model.Runpack, error) {
	return f.buildRunpack(tenantID, namespaceID, runID, outputPrefix)
}

func (f *Facade) buildRunpack(tenantID model.TenantID, namespaceID model.NamespaceID, runID, outputPrefix string) (*model.Runpack, error) {
	run, exists, err := f.Scenarios.Runs.Load(tenantID, namespaceID, runID)
	if err != nil {
		return nil, model.NewErrorf(model.CodeRunStateCorrupt, "loading run: %v", err)
	}
	if !exists {
		return nil, model.NewErrorf(model.CodeUnknownRun, "run %q does not exist", runID)
	}
	spec, ok := f.Scenarios.Registry.ByHash(run.SpecHash)
	if !ok {
		return nil, model.NewErrorf(model.CodeRunStateCorrupt, "run %q is pinned to unresolvable spec_hash %q", runID, run.SpecHash)
	}

	specBytes, err := f.hasher.CanonicalBytes(spec)
	if err != nil {
		return nil, model.NewErrorf(model.CodePayloadTooLarge, "canonicalizing scenario spec: %v", err)
	}
	runBytes, err := f.hasher.CanonicalBytes(run)
	if err != nil {
		return nil, model.NewErrorf(model.CodePayloadTooLarge, "canonicalizing run state: %v", err)
	}

	prefix := strings.TrimSuffix(outputPrefix, "/")
	artifacts := []runpack.Artifact{
		{Path: joinPrefix(prefix, "spec.json"), Bytes: specBytes},
		{Path: joinPrefix(prefix, "run_state.json"), Bytes: runBytes},
	}

	return runpack.Build(runID, run.SpecHash, artifacts, true)
}

// VerifyRunpack implements `verify_runpack`, re-checking recorded evidence
// anchors against the facade's live trust policy so export-time-valid
// anchors that have since fallen out of policy are caught.
func (f *Facade) VerifyRunpack(rp *model.Runpack) runpack.VerifyResult {
	return runpack.Verify(rp, f.Pipeline.Trust.Anchors)
}

func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", prefix, name)
}

func redactValue(result *model.EvidenceResult) *model.EvidenceResult {
	if result == nil || result.Value == nil {
		return result
	}
	redacted := *result
	redacted.Value = nil
	return &redacted
}
