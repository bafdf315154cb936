package evidence

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/comparator"
	"github.com/decision-gate/core/pkg/model"
)

// Pipeline is the central orchestrator of §4.5: per-condition provider
// dispatch, hash normalization, anchor/signature/trust enforcement,
// comparator evaluation, and gate_eval recording.
type Pipeline struct {
	Providers   Registry
	Trust       TrustPolicy
	Limiter     *DispatchLimiter
	Hasher      *canon.Hasher
	MaxBodyBytes int
	Logger      *slog.Logger
	ComparatorOptions comparator.Options
}

// Resolve evaluates every condition named in conditionIDs (already
// deduplicated by the caller across a step's gates) and returns their
// ConditionEval records plus tri-state outcomes, both reduced into stable
// condition_id order regardless of dispatch order (§4.6's "results are
// reduced in stable condition_id order").
func (p *Pipeline) Resolve(ctx context.Context, evidCtx Context, conditions map[string]model.ConditionSpec, conditionIDs []string) (map[string]model.TriState, []model.ConditionEval) {
	ids := append([]string(nil), conditionIDs...)
	sort.Strings(ids)

	outcomes := make(map[string]model.TriState, len(ids))
	evals := make([]model.ConditionEval, 0, len(ids))

	for _, id := range ids {
		spec, ok := conditions[id]
		if !ok {
			outcomes[id] = model.Unknown
			continue
		}
		outcome, ceval := p.resolveOne(ctx, evidCtx, spec)
		outcomes[id] = outcome
		evals = append(evals, ceval)
	}
	return outcomes, evals
}

func (p *Pipeline) resolveOne(ctx context.Context, evidCtx Context, spec model.ConditionSpec) (model.TriState, model.ConditionEval) {
	result := p.dispatch(ctx, evidCtx, spec)

	p.normalizeHash(result)
	enforceAnchor(p.Trust.Anchors, spec.Query.ProviderID, result)
	verifySignature(p.Trust.Signatures, spec.Query.ProviderID, result)
	min := p.Trust.effectiveMinLane(spec.Query.ProviderID, spec.Trust, nil)
	enforceTrustLane(min, result)

	outcome := comparator.Evaluate(comparator.Name(spec.Comparator), result, spec.Expected, p.ComparatorOptions)
	return outcome, conditionEvalFrom(spec, result, outcome)
}

// ResolveAsserted evaluates a single condition against a result that was
// never dispatched through a Provider — the precheck path (§4.6), where
// the caller's payload stands in for provider-sourced evidence. Anchor and
// signature enforcement are skipped: those checks authenticate a
// provider's transport, which precheck payloads never traverse. Trust-lane
// enforcement still applies, so an asserted precheck value is rejected
// exactly as it would be from a real provider.
func (p *Pipeline) ResolveAsserted(spec model.ConditionSpec, result *model.EvidenceResult) (model.TriState, model.ConditionEval) {
	p.normalizeHash(result)
	min := p.Trust.effectiveMinLane(spec.Query.ProviderID, spec.Trust, nil)
	enforceTrustLane(min, result)

	outcome := comparator.Evaluate(comparator.Name(spec.Comparator), result, spec.Expected, p.ComparatorOptions)
	return outcome, conditionEvalFrom(spec, result, outcome)
}

// QueryEvidence implements the §6 `query_evidence` operation: dispatch,
// hash normalization, anchor/signature/trust enforcement, but no
// comparator evaluation — the caller gets the EvidenceResult itself, not a
// tri-state outcome. Disclosure (whether result.Value survives in the
// response) is the caller's responsibility, not the pipeline's; this keeps
// the pipeline the single place trust/anchor/signature rules live while
// leaving the "is this caller allowed to see raw values" policy decision
// to pkg/engine, which owns the transport-facing surface.
func (p *Pipeline) QueryEvidence(ctx context.Context, evidCtx Context, query model.EvidenceQuery, trust *model.TrustOverride) *model.EvidenceResult {
	spec := model.ConditionSpec{Query: query, Trust: trust}
	result := p.dispatch(ctx, evidCtx, spec)

	p.normalizeHash(result)
	enforceAnchor(p.Trust.Anchors, query.ProviderID, result)
	verifySignature(p.Trust.Signatures, query.ProviderID, result)
	min := p.Trust.effectiveMinLane(query.ProviderID, trust, nil)
	enforceTrustLane(min, result)
	return result
}

func conditionEvalFrom(spec model.ConditionSpec, result *model.EvidenceResult, outcome model.TriState) model.ConditionEval {
	ceval := model.ConditionEval{
		ConditionID:    spec.ConditionID,
		Query:          spec.Query,
		Outcome:        outcome,
		ProviderError:  result.Error,
		EvidenceHash:   result.EvidenceHash,
		EvidenceRef:    result.EvidenceRef,
		EvidenceAnchor: result.EvidenceAnchor,
		ContentType:    result.ContentType,
		Lane:           result.Lane,
	}
	if result.Signature != nil {
		ceval.SignatureKeyID = result.Signature.KeyID
	}
	return ceval
}

// dispatch implements §4.5 step 1: call the provider, wrapping any
// transport/internal failure (not an EvidenceResult with error set) as
// provider_error, and enforcing rate limiting / circuit state.
func (p *Pipeline) dispatch(ctx context.Context, evidCtx Context, spec model.ConditionSpec) *model.EvidenceResult {
	if p.Limiter != nil && !p.Limiter.Allow(spec.Query.ProviderID, spec.Query.CheckID) {
		return &model.EvidenceResult{
			Lane:  model.LaneVerified,
			Error: &model.EvidenceError{Code: model.CodeProviderError, Message: "circuit_open", Details: map[string]any{"code": "circuit_open"}},
		}
	}

	provider, ok := p.Providers.Provider(spec.Query.ProviderID)
	if !ok {
		p.recordFailure(spec)
		return &model.EvidenceResult{
			Lane:  model.LaneVerified,
			Error: &model.EvidenceError{Code: model.CodeProviderError, Message: "unknown provider " + spec.Query.ProviderID},
		}
	}

	result, err := provider.Query(ctx, model.EvidenceQuery{ProviderID: spec.Query.ProviderID, CheckID: spec.Query.CheckID, Params: spec.Query.Params}, evidCtx)
	if err != nil {
		p.recordFailure(spec)
		code := model.CodeProviderError
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			msg = "timeout"
		}
		return &model.EvidenceResult{Lane: model.LaneVerified, Error: &model.EvidenceError{Code: code, Message: msg}}
	}
	if result == nil {
		p.recordFailure(spec)
		return &model.EvidenceResult{Lane: model.LaneVerified, Error: &model.EvidenceError{Code: model.CodeProviderError, Message: "provider returned nil result"}}
	}

	if p.MaxBodyBytes > 0 && result.Value != nil {
		if b, ok := result.Value.Value.([]byte); ok && len(b) > p.MaxBodyBytes {
			p.recordFailure(spec)
			return &model.EvidenceResult{Lane: result.Lane, Error: &model.EvidenceError{Code: model.CodeProviderError, Message: "response exceeds configured byte cap"}}
		}
	}

	p.recordSuccess(spec)
	return result
}

func (p *Pipeline) recordSuccess(spec model.ConditionSpec) {
	if p.Limiter != nil {
		p.Limiter.RecordSuccess(spec.Query.ProviderID, spec.Query.CheckID)
	}
}

func (p *Pipeline) recordFailure(spec model.ConditionSpec) {
	if p.Limiter != nil {
		p.Limiter.RecordFailure(spec.Query.ProviderID, spec.Query.CheckID)
	}
}

// normalizeHash implements §4.5 step 2: compute evidence_hash if absent,
// or verify it if present and reject on mismatch.
func (p *Pipeline) normalizeHash(result *model.EvidenceResult) {
	if result.Value == nil {
		return
	}
	hasher := p.Hasher
	if hasher == nil {
		hasher = canon.NewHasher(0)
	}

	var computed model.HashDigest
	if result.Value.Kind == "bytes" {
		b, _ := result.Value.Value.([]byte)
		computed = canon.HashBytes(b)
	} else {
		digest, err := hasher.Hash(result.Value.Value)
		if err != nil {
			voidWithError(result, model.CodeHashMismatch, "failed to canonicalize evidence value: "+err.Error())
			return
		}
		computed = model.HashDigest{Algorithm: digest.Algorithm, Value: digest.Value}
	}

	if result.EvidenceHash == nil {
		result.EvidenceHash = &computed
		return
	}
	if result.EvidenceHash.Algorithm != computed.Algorithm || result.EvidenceHash.Value != computed.Value {
		voidWithError(result, model.CodeHashMismatch, "evidence_hash does not match canonical hash of value")
	}
}
