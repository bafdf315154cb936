package evidence

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/model"
)

// AnchorPolicy declares, per (provider_id, anchor_type), the scalar fields
// evidence_anchor.anchor_value must carry (§4.5 step 3).
type AnchorPolicy struct {
	RequiredFields map[string][]string // key: providerID+"/"+anchorType
}

func (p AnchorPolicy) requiredFor(providerID, anchorType string) ([]string, bool) {
	if p.RequiredFields == nil {
		return nil, false
	}
	f, ok := p.RequiredFields[providerID+"/"+anchorType]
	return f, ok
}

// SignaturePolicy declares, per provider_id, the Ed25519 public keys
// accepted for signature verification (§4.5 step 4).
type SignaturePolicy struct {
	RequiredProviders map[string]bool               // providers that MUST carry a valid signature
	Keys              map[string]ed25519.PublicKey   // key_id -> public key
}

// TrustPolicy is the immutable, globally-configured trust context passed
// into every pipeline invocation (§9: "passed as an immutable context
// object into each operation; no hidden singletons").
type TrustPolicy struct {
	MinLane          model.Lane
	DevPermissive    bool
	ExemptProviders  map[string]bool
	Anchors          AnchorPolicy
	Signatures       SignaturePolicy
	Logger           *slog.Logger
}

// effectiveMinLane computes the strictest of (global, condition override,
// gate override) per §4.5 step 5, except dev-permissive mode globally
// lowers the floor to asserted unless the provider is exempt.
func (p TrustPolicy) effectiveMinLane(providerID string, conditionOverride, gateOverride *model.TrustOverride) model.Lane {
	min := p.MinLane
	if min == "" {
		min = model.LaneVerified
	}
	if stricter := overrideLane(conditionOverride); stricter != "" && laneRank(stricter) > laneRank(min) {
		min = stricter
	}
	if stricter := overrideLane(gateOverride); stricter != "" && laneRank(stricter) > laneRank(min) {
		min = stricter
	}

	if p.DevPermissive && !p.ExemptProviders[providerID] {
		if p.Logger != nil {
			p.Logger.Warn("dev-permissive trust mode active: minimum evidence lane lowered to asserted",
				"provider_id", providerID)
		}
		min = model.LaneAsserted
	}
	return min
}

func overrideLane(o *model.TrustOverride) model.Lane {
	if o == nil || o.MinLane == "" {
		return ""
	}
	return model.Lane(o.MinLane)
}

func laneRank(l model.Lane) int {
	if l == model.LaneVerified {
		return 1
	}
	return 0
}

// enforceAnchor implements §4.5 step 3: decode anchor_value as a JSON
// object, verify every required field exists and is a string/number
// scalar. Violation voids value and sets error.code = anchor_invalid.
func enforceAnchor(policy AnchorPolicy, providerID string, result *model.EvidenceResult) {
	if result.EvidenceAnchor == nil {
		return
	}
	if err := CheckAnchorFields(policy, providerID, result.EvidenceAnchor); err != nil {
		voidWithError(result, model.CodeAnchorInvalid, err.Error())
	}
}

// CheckAnchorFields holds the field-presence/type rules enforceAnchor
// applies against a live EvidenceResult, factored out so an offline
// consumer — pkg/runpack.Verify's re-check of anchors recorded in a
// bundled run state — can apply the identical rule without a live
// dispatch in hand. Returns nil when anchor is nil or the policy has no
// required fields for (providerID, anchor.AnchorType).
func CheckAnchorFields(policy AnchorPolicy, providerID string, anchor *model.EvidenceAnchor) error {
	if anchor == nil {
		return nil
	}
	required, ok := policy.requiredFor(providerID, anchor.AnchorType)
	if !ok || len(required) == 0 {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(anchor.AnchorValue), &obj); err != nil {
		return fmt.Errorf("anchor_value is not a JSON object: %w", err)
	}
	for _, field := range required {
		v, present := obj[field]
		if !present {
			return fmt.Errorf("anchor missing required field %q", field)
		}
		switch v.(type) {
		case string, float64:
		default:
			return fmt.Errorf("anchor field %q must be a string or number scalar", field)
		}
	}
	return nil
}

// verifySignature implements §4.5 step 4.
func verifySignature(policy SignaturePolicy, providerID string, result *model.EvidenceResult) {
	required := policy.RequiredProviders[providerID]
	if result.Signature == nil {
		if required {
			voidWithError(result, model.CodeProviderError, "signature required but absent")
		}
		return
	}
	if result.Signature.Scheme != "ed25519" {
		voidWithError(result, model.CodeProviderError, fmt.Sprintf("unsupported signature scheme %q", result.Signature.Scheme))
		return
	}
	pub, ok := policy.Keys[result.Signature.KeyID]
	if !ok {
		voidWithError(result, model.CodeProviderError, fmt.Sprintf("unknown signature key_id %q", result.Signature.KeyID))
		return
	}
	if result.EvidenceHash == nil {
		voidWithError(result, model.CodeProviderError, "cannot verify signature: evidence_hash is absent")
		return
	}
	hasher := canon.NewHasher(0)
	payload, err := hasher.CanonicalBytes(result.EvidenceHash)
	if err != nil {
		voidWithError(result, model.CodeProviderError, fmt.Sprintf("cannot canonicalize evidence_hash for signature check: %v", err))
		return
	}
	if !ed25519.Verify(pub, payload, result.Signature.SignatureBytes) {
		voidWithError(result, model.CodeProviderError, "ed25519 signature verification failed")
		return
	}
}

// enforceTrustLane implements §4.5 step 5.
func enforceTrustLane(min model.Lane, result *model.EvidenceResult) {
	if !result.Lane.Meets(min) {
		voidWithError(result, model.CodeTrustLane, fmt.Sprintf("evidence lane %q below required minimum %q", result.Lane, min))
	}
}

// voidWithError sets result.Error and clears Value, per the "violation ...
// voids value" language repeated through §4.5.
func voidWithError(result *model.EvidenceResult, code model.Code, message string) {
	result.Error = &model.EvidenceError{Code: code, Message: message}
	result.Value = nil
}
