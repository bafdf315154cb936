package model

// ArtifactEntry is one manifest row: a content-addressed file within a
// runpack (§3).
type ArtifactEntry struct {
	Path      string `json:"path"`
	Algorithm string `json:"algorithm"` // "sha256"
	Value     string `json:"value"`     // hex
	Size      int64  `json:"size"`
}

// Manifest lists every artifact in a runpack plus the manifest's own root
// hash. RootHash is the canonical-JSON hash of the manifest with RootHash
// itself set to the empty string (§3, §4.7) — never include it in the hash
// input.
type Manifest struct {
	RootHash      string          `json:"root_hash"`
	Artifacts     []ArtifactEntry `json:"artifacts"`
	SpecHash      string          `json:"spec_hash"`
	RunID         string          `json:"run_id"`
	InclusionRoot string          `json:"inclusion_root,omitempty"`
}

// Runpack is a built, in-memory bundle: the manifest plus the raw artifact
// bytes keyed by their manifest path.
type Runpack struct {
	Manifest  Manifest          `json:"manifest"`
	Artifacts map[string][]byte `json:"-"`
}
