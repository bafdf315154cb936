package runpack

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/decision-gate/core/pkg/model"
)

const manifestEntryName = "manifest.json"

// WriteBundle serializes rp as a deterministic tar.gz on disk: manifest.json
// first, then every artifact in sorted path order, fixed mtime/uid/gid so
// two builds of the same Runpack produce byte-identical bundles.
func WriteBundle(rp *model.Runpack, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("runpack: create bundle: %w", err)
	}
	defer func() { _ = f.Close() }()

	return WriteBundleTo(f, rp)
}

// WriteBundleTo writes the same deterministic tar.gz WriteBundle produces,
// to an arbitrary io.Writer — an HTTP response body, for instance, where
// there's no local file to create.
func WriteBundleTo(w io.Writer, rp *model.Runpack) error {
	gw := gzip.NewWriter(w)
	defer func() { _ = gw.Close() }()

	tw := tar.NewWriter(gw)
	defer func() { _ = tw.Close() }()

	manifestBytes, err := json.MarshalIndent(rp.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("runpack: marshal manifest: %w", err)
	}
	if err := writeEntry(tw, manifestEntryName, manifestBytes); err != nil {
		return err
	}

	paths := make([]string, 0, len(rp.Artifacts))
	for p := range rp.Artifacts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := writeEntry(tw, p, rp.Artifacts[p]); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Size:    int64(len(data)),
		Mode:    0o644,
		ModTime: time.Unix(0, 0),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("runpack: write header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("runpack: write data %s: %w", name, err)
	}
	return nil
}

// ReadBundle reads a tar.gz written by WriteBundle back into a model.Runpack,
// ready for Verify. It does not itself verify anything — callers pass the
// result to Verify for the actual hash/size/inclusion checks.
func ReadBundle(path string) (*model.Runpack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("runpack: open bundle: %w", err)
	}
	defer func() { _ = f.Close() }()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("runpack: gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	tr := tar.NewReader(gr)

	rp := &model.Runpack{Artifacts: make(map[string][]byte)}
	var haveManifest bool

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("runpack: tar read: %w", err)
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("runpack: read %s: %w", hdr.Name, err)
		}

		if hdr.Name == manifestEntryName {
			if err := json.Unmarshal(data, &rp.Manifest); err != nil {
				return nil, fmt.Errorf("runpack: decode manifest: %w", err)
			}
			haveManifest = true
			continue
		}
		rp.Artifacts[hdr.Name] = data
	}

	if !haveManifest {
		return nil, fmt.Errorf("runpack: %s not found in bundle", manifestEntryName)
	}
	return rp, nil
}
