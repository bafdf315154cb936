package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/decision-gate/core/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "decision-gate", config.ServiceName)
	require.Equal(t, "1.0.0", config.ServiceVersion)
	require.Equal(t, "development", config.Environment)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.True(t, config.Enabled)
	require.False(t, config.Insecure)
}

func TestFromAppConfig_DisabledWithNoOTLPEndpoint(t *testing.T) {
	appCfg := &config.Config{OTLPEndpoint: "", DevPermissive: false}
	cfg := FromAppConfig(appCfg)
	require.False(t, cfg.Enabled)
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, 0.1, cfg.SampleRate)
	require.False(t, cfg.Insecure)
}

func TestFromAppConfig_EnabledAndDevPermissiveRelaxesSamplingAndTLS(t *testing.T) {
	appCfg := &config.Config{OTLPEndpoint: "collector:4317", DevPermissive: true}
	cfg := FromAppConfig(appCfg)
	require.True(t, cfg.Enabled)
	require.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.True(t, cfg.Insecure)
}

func TestFromAppConfig_NilAppConfigFallsBackToDefaults(t *testing.T) {
	cfg := FromAppConfig(nil)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestNewProviderWithTLS(t *testing.T) {
	// This tests that we can initialize with TLS paths
	// valid paths aren't strictly required for the init function to succeed
	// (connection happens later)
	config := &Config{
		Enabled:  true,
		Insecure: false, // TLS enabled
		CertFile: "/path/to/cert.pem",
		KeyFile:  "/path/to/key.pem",
		CAFile:   "/path/to/ca.pem",
	}

	// Use a short timeout as it might try to connect
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	p, err := New(ctx, config)
	// It might error on connection or resource creation depending on environment,
	// but mostly we want to ensure the code path for TLS setup is exercised without panic
	if err != nil {
		// If it fails, it should be due to connection ref used or similar, not panic
		t.Logf("Provider creation failed (expected in test env): %v", err)
	} else {
		require.NotNil(t, p)
	}
}

func TestNewProviderDisabled(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)
	require.NotNil(t, p)

	// Should not fail even when disabled
	tracer := p.Tracer()
	require.NotNil(t, tracer)

	meter := p.Meter()
	require.NotNil(t, meter)
}

func TestNewProviderDisabledWithDeadlineContext(t *testing.T) {
	// A disabled config under a context with a deadline still yields a
	// provider without error.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Use disabled config to avoid network issues in tests
	config := &Config{
		Enabled: false,
	}
	p, err := New(ctx, config)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestTrackOperation(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()
	attrs := []attribute.KeyValue{
		attribute.String("test.key", "test.value"),
	}

	newCtx, finish := p.TrackOperation(ctx, "test.operation", attrs...)
	require.NotNil(t, newCtx)

	// Simulate some work
	time.Sleep(1 * time.Millisecond)

	// Call finish without error
	finish(nil)
}

func TestTrackOperationWithError(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()
	_, finish := p.TrackOperation(ctx, "test.operation.error")

	// Call finish with error
	testErr := errors.New("test error")
	finish(testErr)

	// Should not panic
}

func TestRecordMetrics(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()

	// These should not panic when provider is disabled
	p.RecordRequest(ctx, attribute.String("test", "value"))
	p.RecordError(ctx, errors.New("test"), attribute.String("test", "value"))
	p.RecordDuration(ctx, 100*time.Millisecond, attribute.String("test", "value"))
}

func TestStartSpan(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx := context.Background()
	newCtx, span := p.StartSpan(ctx, "test.span")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	span.End()
}

func TestShutdown(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	p, err := New(context.Background(), config)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.Shutdown(ctx)
	require.NoError(t, err)
}

// Test Decision Gate semantic-convention helpers

func TestRunOperation(t *testing.T) {
	attrs := RunOperation("tenant-1", "ns-1", "onboarding", "run-123")
	require.Len(t, attrs, 4)
	require.Equal(t, "decisiongate.tenant.id", string(attrs[0].Key))
	require.Equal(t, "run-123", attrs[3].Value.AsString())
}

func TestStageOperation(t *testing.T) {
	attrs := StageOperation("run-123", "verify-kyc", "trigger-1", "PENDING")
	require.Len(t, attrs, 4)
	require.Equal(t, "decisiongate.stage.id", string(attrs[1].Key))
	require.Equal(t, "verify-kyc", attrs[1].Value.AsString())
}

func TestEvidenceOperation(t *testing.T) {
	attrs := EvidenceOperation("provider-x", "check-1", "sha256:abc", "high")
	require.Len(t, attrs, 4)
	require.Equal(t, "decisiongate.evidence.trust_lane", string(attrs[3].Key))
	require.Equal(t, "high", attrs[3].Value.AsString())
}

func TestGateOperation(t *testing.T) {
	attrs := GateOperation("run-123", "gate-1", "PASS")
	require.Len(t, attrs, 3)
	require.Equal(t, "decisiongate.gate.outcome", string(attrs[2].Key))
	require.Equal(t, "PASS", attrs[2].Value.AsString())
}

func TestPolicyHookOperation(t *testing.T) {
	attrs := PolicyHookOperation("no-weekend-renewals", "blocking", "HOLD")
	require.Len(t, attrs, 3)
	require.Equal(t, "decisiongate.policy.severity", string(attrs[1].Key))
	require.Equal(t, "blocking", attrs[1].Value.AsString())
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()
	span := SpanFromContext(ctx)
	require.NotNil(t, span) // Returns a no-op span if none
}

func TestAddSpanEvent(t *testing.T) {
	ctx := context.Background()
	// Should not panic
	AddSpanEvent(ctx, "test.event", attribute.String("key", "value"))
}

func TestSetSpanStatus(t *testing.T) {
	ctx := context.Background()
	// Should not panic
	SetSpanStatus(ctx, errors.New("test error"))
	SetSpanStatus(ctx, nil)
}
