// Package runpack builds and offline-verifies runpacks — the exportable,
// content-addressed artifact bundle described in §3/§4.7: a manifest of
// canonical sha256 hashes over the run's spec, state, and per-step records,
// plus the artifact bytes themselves. Verify is pure and network-free: it
// does not trust the server, a proxy, or any network service that produced
// the bundle, so an adversarial third party can audit a runpack with
// nothing but this package and the bundle on disk.
package runpack

import (
	"strings"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/merkle"
	"github.com/decision-gate/core/pkg/model"
)

// MaxArtifactPathBytes bounds a manifest entry's path length (§4.7).
const MaxArtifactPathBytes = 4096

// Artifact is one input artifact to Build: its manifest path and raw bytes.
// Callers are expected to have already canonicalized JSON artifacts via
// pkg/canon before calling Build — Build hashes exactly the bytes given.
type Artifact struct {
	Path  string
	Bytes []byte
}

// Build assembles a Runpack: validates every artifact path, computes each
// artifact's canonical sha256, builds the manifest, and computes root_hash
// over the manifest with root_hash itself held empty. withInclusionProof
// additionally populates manifest.InclusionRoot (the supplemented Merkle
// extension).
func Build(runID, specHash string, artifacts []Artifact, withInclusionProof bool) (*model.Runpack, error) {
	entries := make([]model.ArtifactEntry, 0, len(artifacts))
	blobs := make(map[string][]byte, len(artifacts))
	hashesByPath := make(map[string]string, len(artifacts))

	for _, a := range artifacts {
		if err := validatePath(a.Path); err != nil {
			return nil, err
		}
		digest := canon.HashBytes(a.Bytes)
		entries = append(entries, model.ArtifactEntry{
			Path:      a.Path,
			Algorithm: digest.Algorithm,
			Value:     digest.Value,
			Size:      int64(len(a.Bytes)),
		})
		blobs[a.Path] = a.Bytes
		hashesByPath[a.Path] = digest.Value
	}

	manifest := model.Manifest{
		Artifacts: entries,
		SpecHash:  specHash,
		RunID:     runID,
	}
	if withInclusionProof {
		manifest.InclusionRoot = merkle.Build(hashesByPath).Root
	}

	root, err := rootHash(manifest)
	if err != nil {
		return nil, err
	}
	manifest.RootHash = root

	return &model.Runpack{Manifest: manifest, Artifacts: blobs}, nil
}

// rootHash canonicalizes manifest with RootHash cleared and hashes it —
// the manifest must never hash its own root_hash field (§3, §4.7).
func rootHash(manifest model.Manifest) (string, error) {
	return rootHashCapped(manifest, 0)
}

// rootHashCapped is rootHash with an explicit canonical-size budget, used
// by Verify to enforce the "hard size cap" read limit (§4.7 step 1).
func rootHashCapped(manifest model.Manifest, maxBytes int) (string, error) {
	manifest.RootHash = ""
	digest, err := canon.NewHasher(maxBytes).Hash(manifest)
	if err != nil {
		return "", err
	}
	return digest.Value, nil
}

// validatePath rejects path traversal, absolute paths, and oversize paths
// (§4.7's artifact path safety requirement).
func validatePath(path string) error {
	if path == "" {
		return model.NewError(model.CodePathInvalid, "artifact path is empty")
	}
	if len(path) > MaxArtifactPathBytes {
		return model.NewErrorf(model.CodePathInvalid, "artifact path exceeds %d bytes", MaxArtifactPathBytes)
	}
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return model.NewErrorf(model.CodePathInvalid, "artifact path %q must not be absolute", path)
	}
	for _, segment := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if segment == ".." {
			return model.NewErrorf(model.CodePathInvalid, "artifact path %q must not contain '..'", path)
		}
	}
	return nil
}
