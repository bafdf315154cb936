package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/runpack"
)

// runVerifyCmd offline-verifies a runpack bundle with nothing but the file
// on disk — no network, no store, no trust in this process (grounded on
// pkg/runpack's "an adversarial third party can audit a runpack with
// nothing but this package and the bundle on disk").
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		bundlePath   string
		anchorPolicy string
		jsonOutput   bool
	)
	cmd.StringVar(&bundlePath, "runpack", "", "Path to a runpack tar.gz bundle (REQUIRED)")
	cmd.StringVar(&anchorPolicy, "anchor-policy", "", "Path to a JSON anchor policy file (optional; anchor checks are skipped if omitted)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if bundlePath == "" {
		fmt.Fprintln(stderr, "Error: --runpack is required")
		cmd.Usage()
		return 2
	}

	rp, err := runpack.ReadBundle(bundlePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading bundle: %v\n", err)
		return 2
	}

	var anchors evidence.AnchorPolicy
	if anchorPolicy != "" {
		raw, err := os.ReadFile(anchorPolicy)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading anchor policy: %v\n", err)
			return 2
		}
		if err := json.Unmarshal(raw, &anchors); err != nil {
			fmt.Fprintf(stderr, "Error parsing anchor policy: %v\n", err)
			return 2
		}
	}

	result := runpack.Verify(rp, anchors)

	if jsonOutput {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(stdout, string(out))
	} else if result.OK {
		fmt.Fprintf(stdout, "OK: runpack for run %q verified (root_hash %s)\n", rp.Manifest.RunID, rp.Manifest.RootHash)
	} else {
		for _, issue := range result.Issues {
			fmt.Fprintf(stdout, "FAILED [%s] %s: %s\n", issue.Code, issue.Path, issue.Message)
		}
	}

	if !result.OK {
		return 1
	}
	return 0
}

func runHealthCmd(out, errOut io.Writer) int {
	resp, err := http.Get("http://localhost:8081/health")
	if err != nil {
		fmt.Fprintf(errOut, "Health check failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(errOut, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}
	fmt.Fprintln(out, "OK")
	return 0
}
