package runpack

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/merkle"
	"github.com/decision-gate/core/pkg/model"
)

// MaxManifestBytes caps the canonical manifest size read during Verify
// (§4.7 step 1: "hard size cap").
const MaxManifestBytes = 8 << 20 // 8 MiB

// VerifyIssue is one failure found while verifying a runpack; Path is set
// for artifact-scoped issues.
type VerifyIssue struct {
	Code    model.Code
	Path    string
	Message string
}

// VerifyResult is the §6 `verify_runpack` response shape: ok, or a list of
// issues. A runpack with zero issues is considered verified.
type VerifyResult struct {
	OK     bool
	Issues []VerifyIssue
}

// Verify offline-checks a built Runpack end to end (§4.7 steps 1-4):
// recompute root_hash, confirm every manifest artifact is present with a
// matching hash and size, re-run anchor-policy checks against the evidence
// anchors recorded in the bundled run state (to detect policy drift since
// export), and — if present — confirm inclusion_root reconstructs from the
// manifest's artifact hashes. It never reads from the network or any
// store; the caller supplies the Runpack already materialized from
// disk/object-storage, plus the anchors policy to re-check against.
func Verify(rp *model.Runpack, anchors evidence.AnchorPolicy) VerifyResult {
	var issues []VerifyIssue

	wantRoot, err := rootHashCapped(rp.Manifest, MaxManifestBytes)
	if err != nil {
		if _, ok := err.(*canon.ErrPayloadTooLarge); ok {
			issues = append(issues, VerifyIssue{Code: model.CodeSizeExceeded, Message: "manifest exceeds size cap"})
			return VerifyResult{Issues: issues}
		}
		issues = append(issues, VerifyIssue{Code: model.CodeRootHashMismatch, Message: fmt.Sprintf("cannot canonicalize manifest: %v", err)})
		return VerifyResult{Issues: issues}
	}
	if wantRoot != rp.Manifest.RootHash {
		issues = append(issues, VerifyIssue{Code: model.CodeRootHashMismatch, Message: "manifest root_hash does not match recomputed hash"})
	}

	hashesByPath := make(map[string]string, len(rp.Manifest.Artifacts))
	for _, entry := range rp.Manifest.Artifacts {
		hashesByPath[entry.Path] = entry.Value

		blob, present := rp.Artifacts[entry.Path]
		if !present {
			issues = append(issues, VerifyIssue{Code: model.CodeArtifactMissing, Path: entry.Path, Message: "artifact listed in manifest is absent from bundle"})
			continue
		}
		if int64(len(blob)) != entry.Size {
			issues = append(issues, VerifyIssue{Code: model.CodeSizeExceeded, Path: entry.Path, Message: "artifact size does not match manifest"})
			continue
		}
		digest := canon.HashBytes(blob)
		if digest.Algorithm != entry.Algorithm || digest.Value != entry.Value {
			issues = append(issues, VerifyIssue{Code: model.CodeArtifactHashMismatch, Path: entry.Path, Message: "artifact content hash does not match manifest"})
		}
	}

	if rp.Manifest.InclusionRoot != "" {
		tree := merkle.Build(hashesByPath)
		if tree.Root != rp.Manifest.InclusionRoot {
			issues = append(issues, VerifyIssue{Code: model.CodeRootHashMismatch, Message: "inclusion_root does not match recomputed Merkle root"})
		}
	}

	issues = append(issues, checkAnchors(rp, anchors)...)

	return VerifyResult{OK: len(issues) == 0, Issues: issues}
}

// checkAnchors re-runs §4.5 step 3's anchor field checks against every
// evidence_anchor recorded in the bundled run_state.json artifact, so a
// runpack built under one anchor policy is flagged anchor_invalid if the
// policy has since tightened (a required field added, a provider's anchor
// type newly constrained) — policy drift since export, not just bundle
// tampering.
func checkAnchors(rp *model.Runpack, anchors evidence.AnchorPolicy) []VerifyIssue {
	blob, path, ok := runStateArtifact(rp)
	if !ok {
		return nil
	}

	var run model.RunState
	if err := json.Unmarshal(blob, &run); err != nil {
		return []VerifyIssue{{Code: model.CodeRunStateCorrupt, Path: path, Message: fmt.Sprintf("run_state artifact is not valid JSON: %v", err)}}
	}

	var issues []VerifyIssue
	for _, ge := range run.GateEvals {
		for _, ce := range ge.Conditions {
			if ce.EvidenceAnchor == nil {
				continue
			}
			if err := evidence.CheckAnchorFields(anchors, ce.Query.ProviderID, ce.EvidenceAnchor); err != nil {
				issues = append(issues, VerifyIssue{
					Code:    model.CodeAnchorInvalid,
					Path:    fmt.Sprintf("%s#gate_evals[seq=%d].conditions[%s]", path, ge.Seq, ce.ConditionID),
					Message: err.Error(),
				})
			}
		}
	}
	return issues
}

// runStateArtifact finds the run_state.json artifact regardless of the
// output_prefix it was built under.
func runStateArtifact(rp *model.Runpack) (blob []byte, path string, ok bool) {
	for _, entry := range rp.Manifest.Artifacts {
		if strings.HasSuffix(entry.Path, "run_state.json") {
			if b, present := rp.Artifacts[entry.Path]; present {
				return b, entry.Path, true
			}
		}
	}
	return nil, "", false
}

// VerifyInclusion checks a single artifact's InclusionProof against a
// manifest's inclusion_root without requiring the rest of the bundle —
// the point of the supplemented Merkle extension.
func VerifyInclusion(manifest model.Manifest, proof merkle.InclusionProof) bool {
	if manifest.InclusionRoot == "" {
		return false
	}
	return merkle.VerifyInclusionProof(proof, manifest.InclusionRoot)
}
