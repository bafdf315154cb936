package main

import (
	"bytes"
	"testing"
)

func TestRun_HelpPrintsUsageAndExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"decisiongate", "help"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if stdout.Len() == 0 {
		t.Fatal("expected usage text on stdout")
	}
}

func TestRun_UnknownCommandExitsNonZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"decisiongate", "not-a-real-command"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected an error message on stderr")
	}
}

func TestRun_VerifyRequiresRunpackFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"decisiongate", "verify"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRun_ExportRequiresFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"decisiongate", "export"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRunVerifyCmd_MissingBundleFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runVerifyCmd([]string{"--runpack", "/does/not/exist.tar.gz"}, &stdout, &stderr)
	if code == 0 {
		t.Fatal("expected a nonzero exit code for a missing bundle")
	}
}
