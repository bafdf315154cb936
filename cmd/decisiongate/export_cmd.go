package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/decision-gate/core/pkg/model"
)

// runExportCmd calls a running server's export_runpack endpoint and saves
// the streamed tar.gz bundle to disk — the CLI counterpart to
// /v1/runs/export for operators who don't want to script curl. It does not
// talk to the store directly; the server process owns that access so
// there's one code path for export_runpack, not two.
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		addr        string
		tenantID    string
		namespaceID string
		runID       string
		out         string
	)
	cmd.StringVar(&addr, "addr", "http://localhost:8080", "Decision Gate server address")
	cmd.StringVar(&tenantID, "tenant", "", "tenant_id (REQUIRED)")
	cmd.StringVar(&namespaceID, "namespace", "", "namespace_id (REQUIRED)")
	cmd.StringVar(&runID, "run", "", "run_id (REQUIRED)")
	cmd.StringVar(&out, "out", "", "output path for the runpack tar.gz (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if tenantID == "" || namespaceID == "" || runID == "" || out == "" {
		fmt.Fprintln(stderr, "Error: --tenant, --namespace, --run, and --out are required")
		cmd.Usage()
		return 2
	}

	q := url.Values{"tenant_id": {tenantID}, "namespace_id": {namespaceID}, "run_id": {runID}}
	resp, err := http.Get(addr + "/v1/runs/export?" + q.Encode())
	if err != nil {
		fmt.Fprintf(stderr, "Error contacting server: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var gerr model.GateError
		_ = json.NewDecoder(resp.Body).Decode(&gerr)
		fmt.Fprintf(stderr, "Export failed: %s: %s\n", gerr.Code, gerr.Message)
		return 1
	}

	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating %s: %v\n", out, err)
		return 1
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, resp.Body); err != nil {
		fmt.Fprintf(stderr, "Error writing bundle: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Exported runpack for run %q to %s (root_hash %s)\n", runID, out, resp.Header.Get("X-Root-Hash"))
	return 0
}
