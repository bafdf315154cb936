// Package observability provides Decision Gate-specific instrumentation helpers.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Decision Gate semantic convention attributes.
var (
	// Run attributes
	AttrRunID       = attribute.Key("decisiongate.run.id")
	AttrScenarioID  = attribute.Key("decisiongate.scenario.id")
	AttrTenantID    = attribute.Key("decisiongate.tenant.id")
	AttrNamespaceID = attribute.Key("decisiongate.namespace.id")

	// Stage/transition attributes
	AttrStageID   = attribute.Key("decisiongate.stage.id")
	AttrTriggerID = attribute.Key("decisiongate.trigger.id")
	AttrRunStatus = attribute.Key("decisiongate.run.status")

	// Evidence pipeline attributes
	AttrProviderID   = attribute.Key("decisiongate.evidence.provider_id")
	AttrCheckID      = attribute.Key("decisiongate.evidence.check_id")
	AttrEvidenceHash = attribute.Key("decisiongate.evidence.hash")
	AttrTrustLane    = attribute.Key("decisiongate.evidence.trust_lane")

	// Gate evaluation attributes
	AttrGateID      = attribute.Key("decisiongate.gate.id")
	AttrGateOutcome = attribute.Key("decisiongate.gate.outcome")

	// Policy hook attributes
	AttrPolicyName     = attribute.Key("decisiongate.policy.name")
	AttrPolicySeverity = attribute.Key("decisiongate.policy.severity")
	AttrPolicyOutcome  = attribute.Key("decisiongate.policy.outcome")
)

// RunOperation creates attributes identifying a run across tenant/namespace/scenario.
func RunOperation(tenantID, namespaceID, scenarioID, runID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrTenantID.String(tenantID),
		AttrNamespaceID.String(namespaceID),
		AttrScenarioID.String(scenarioID),
		AttrRunID.String(runID),
	}
}

// StageOperation creates attributes for a single stage transition within a run.
func StageOperation(runID, stageID, triggerID, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRunID.String(runID),
		AttrStageID.String(stageID),
		AttrTriggerID.String(triggerID),
		AttrRunStatus.String(status),
	}
}

// EvidenceOperation creates attributes for an evidence pipeline dispatch.
func EvidenceOperation(providerID, checkID, hash, trustLane string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrProviderID.String(providerID),
		AttrCheckID.String(checkID),
		AttrEvidenceHash.String(hash),
		AttrTrustLane.String(trustLane),
	}
}

// GateOperation creates attributes for a recorded gate_eval outcome.
func GateOperation(runID, gateID, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRunID.String(runID),
		AttrGateID.String(gateID),
		AttrGateOutcome.String(outcome),
	}
}

// PolicyHookOperation creates attributes for a CEL policy hook evaluation.
func PolicyHookOperation(name, severity, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPolicyName.String(name),
		AttrPolicySeverity.String(severity),
		AttrPolicyOutcome.String(outcome),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus sets the span status based on error.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
