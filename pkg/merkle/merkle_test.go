package merkle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/merkle"
)

func TestBuild_ThreeLeavesDuplicatesOddTail(t *testing.T) {
	hashes := map[string]string{
		"/a": "aa",
		"/b": "bb",
		"/c": "cc",
	}
	tree := merkle.Build(hashes)
	require.NotEmpty(t, tree.Root)
	require.Len(t, tree.Leaves, 3)
	require.Equal(t, "/a", tree.Leaves[0].Path, "leaves are ordered by path")
}

func TestProof_RoundTripsThroughVerify(t *testing.T) {
	hashes := map[string]string{
		"/a": "aa",
		"/b": "bb",
		"/c": "cc",
	}
	tree := merkle.Build(hashes)

	for path := range hashes {
		proof, ok := tree.Proof(path)
		require.True(t, ok)
		require.True(t, merkle.VerifyInclusionProof(proof, tree.Root))
	}
}

func TestProof_UnknownPathNotFound(t *testing.T) {
	tree := merkle.Build(map[string]string{"/a": "aa"})
	_, ok := tree.Proof("/missing")
	require.False(t, ok)
}

func TestVerifyInclusionProof_TamperedLeafFails(t *testing.T) {
	tree := merkle.Build(map[string]string{"/a": "aa", "/b": "bb"})
	proof, ok := tree.Proof("/a")
	require.True(t, ok)

	proof.LeafHash = "0000000000000000000000000000000000000000000000000000000000000000"
	require.False(t, merkle.VerifyInclusionProof(proof, tree.Root))
}

func TestVerifyInclusionProof_WrongExpectedRootFails(t *testing.T) {
	tree := merkle.Build(map[string]string{"/a": "aa"})
	proof, ok := tree.Proof("/a")
	require.True(t, ok)
	require.False(t, merkle.VerifyInclusionProof(proof, "not-the-root"))
}

func TestBuild_SingleLeafRootEqualsLeafHash(t *testing.T) {
	tree := merkle.Build(map[string]string{"/only": "x"})
	require.Equal(t, tree.Leaves[0].Hash, tree.Root)
	proof, ok := tree.Proof("/only")
	require.True(t, ok)
	require.Empty(t, proof.Path)
}
