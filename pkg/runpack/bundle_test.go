package runpack_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/runpack"
)

func TestWriteBundleThenReadBundle_RoundTrips(t *testing.T) {
	rp, err := runpack.Build("r1", "deadbeef", sampleArtifacts(), true)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "r1.runpack.tar.gz")
	require.NoError(t, runpack.WriteBundle(rp, path))

	readBack, err := runpack.ReadBundle(path)
	require.NoError(t, err)
	require.Equal(t, rp.Manifest, readBack.Manifest)
	require.Equal(t, rp.Artifacts, readBack.Artifacts)

	result := runpack.Verify(readBack, evidence.AnchorPolicy{})
	require.True(t, result.OK, "issues: %+v", result.Issues)
}

func TestWriteBundle_IsDeterministic(t *testing.T) {
	rp, err := runpack.Build("r1", "deadbeef", sampleArtifacts(), true)
	require.NoError(t, err)

	pathA := filepath.Join(t.TempDir(), "a.tar.gz")
	pathB := filepath.Join(t.TempDir(), "b.tar.gz")
	require.NoError(t, runpack.WriteBundle(rp, pathA))
	require.NoError(t, runpack.WriteBundle(rp, pathB))

	a, err := readFile(pathA)
	require.NoError(t, err)
	b, err := readFile(pathB)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestWriteBundleTo_MatchesWriteBundle(t *testing.T) {
	rp, err := runpack.Build("r1", "deadbeef", sampleArtifacts(), true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runpack.WriteBundleTo(&buf, rp))

	path := filepath.Join(t.TempDir(), "r1.tar.gz")
	require.NoError(t, runpack.WriteBundle(rp, path))
	fileBytes, err := readFile(path)
	require.NoError(t, err)

	require.Equal(t, fileBytes, buf.Bytes())
}

func TestReadBundle_MissingFileErrors(t *testing.T) {
	_, err := runpack.ReadBundle(filepath.Join(t.TempDir(), "does-not-exist.tar.gz"))
	require.Error(t, err)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
