package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunBadFlag(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"-nope"}, &stderr); code != 2 {
		t.Fatalf("exit code %d", code)
	}
}

func TestRunMissingConfig(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "missing.yaml")
	code := run([]string{"-config", path}, &stderr)
	if code != 1 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(stderr.String(), "load config") {
		t.Fatalf("stderr %q", stderr.String())
	}
}
