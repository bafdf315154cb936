package model

// Lane is the trust lane of an EvidenceResult: provider-fetched (verified)
// or precheck-asserted (asserted).
type Lane string

const (
	LaneVerified Lane = "verified"
	LaneAsserted Lane = "asserted"
)

// rank gives LaneVerified a strictly higher rank than LaneAsserted so trust
// enforcement can compute "strictest configured floor" with ordinary
// integer comparison.
func (l Lane) rank() int {
	if l == LaneVerified {
		return 1
	}
	return 0
}

// Meets reports whether l satisfies a minimum lane floor.
func (l Lane) Meets(min Lane) bool {
	return l.rank() >= min.rank()
}

// HashDigest is the wire form of a content hash: {algorithm, value:hex}.
type HashDigest struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// EvidenceAnchor is a stable identifier for the external-world object an
// evidence result refers to. AnchorValue is always a JSON-encoded object
// string with scalar fields (§3).
type EvidenceAnchor struct {
	AnchorType  string `json:"anchor_type"`
	AnchorValue string `json:"anchor_value"`
}

// Signature carries an Ed25519 signature over canonical_bytes(evidence_hash).
// SignatureBytes is JSON-wire-compatible with an array of byte integers
// (§6); Go callers use it directly as []byte.
type Signature struct {
	Scheme         string `json:"scheme"`
	KeyID          string `json:"key_id"`
	SignatureBytes []byte `json:"signature"`
}

// EvidenceValue is the JSON-or-bytes payload a provider returned.
type EvidenceValue struct {
	Kind  string `json:"kind"` // "json" | "bytes"
	Value any    `json:"value"`
}

// EvidenceQuery names what a provider should answer, scoped by the
// enclosing run/stage/trigger context at dispatch time.
type EvidenceQuery struct {
	ProviderID string         `json:"provider_id"`
	CheckID    string         `json:"check_id"`
	Params     map[string]any `json:"params,omitempty"`
}

// EvidenceError is the provider-facing error shape nested in
// EvidenceResult.Error; it is distinct from GateError so provider adapters
// don't need to import the core error-construction helpers.
type EvidenceError struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// EvidenceResult is the unit of input to the comparator (§3). Exactly one
// of Value/Error is meaningful for a given lane — a result with Error set
// never carries a usable Value.
type EvidenceResult struct {
	Value          *EvidenceValue  `json:"value,omitempty"`
	Lane           Lane            `json:"lane"`
	Error          *EvidenceError  `json:"error,omitempty"`
	EvidenceHash   *HashDigest     `json:"evidence_hash,omitempty"`
	EvidenceRef    *EvidenceRef    `json:"evidence_ref,omitempty"`
	EvidenceAnchor *EvidenceAnchor `json:"evidence_anchor,omitempty"`
	Signature      *Signature      `json:"signature,omitempty"`
	ContentType    string          `json:"content_type,omitempty"`
}

type EvidenceRef struct {
	URI string `json:"uri"`
}

// DataShape is a schema registry record (§3), unique per
// (tenant_id, namespace_id, schema_id, version).
type DataShape struct {
	TenantID    TenantID       `json:"tenant_id"`
	NamespaceID NamespaceID    `json:"namespace_id"`
	SchemaID    string         `json:"schema_id"`
	Version     string         `json:"version"`
	Schema      map[string]any `json:"schema"`
	Description string         `json:"description,omitempty"`
	CreatedAt   int64          `json:"created_at"`
	Signing     *DataShapeSigning `json:"signing,omitempty"`
}

type DataShapeSigning struct {
	Required bool     `json:"required,omitempty"`
	KeyIDs   []string `json:"key_ids,omitempty"`
}
