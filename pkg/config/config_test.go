package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Analysis.LookBack != 3 || c.Analysis.LookForward != 1 {
		t.Fatalf("window defaults: %+v", c.Analysis)
	}
	if c.Analysis.Start != "2000-01-01" || c.Analysis.End != "2025-01-01" {
		t.Fatalf("range defaults: %+v", c.Analysis)
	}
	if c.Source.Type != "csv" || c.Backend.Type != "none" {
		t.Fatalf("source/backend defaults: %s %s", c.Source.Type, c.Backend.Type)
	}
	if c.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown timeout default: %v", c.Server.ShutdownTimeout)
	}
	if c.NeedsClickHouse() {
		t.Fatalf("defaults should not need clickhouse")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
analysis:
  look_back: 5
  start: "2010-01-01"
source:
  type: clickhouse
clickhouse:
  host: ch.internal
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "test" || c.Analysis.LookBack != 5 || c.Analysis.LookForward != 1 {
		t.Fatalf("unexpected analysis %+v", c.Analysis)
	}
	if c.CH.Host != "ch.internal" || c.CH.Port != 9000 {
		t.Fatalf("unexpected clickhouse %+v", c.CH)
	}
	if !c.NeedsClickHouse() {
		t.Fatalf("clickhouse source should need clickhouse")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"backend":  "backend:\n  type: s3\n",
		"window":   "analysis:\n  look_forward: 100\n",
		"date":     "analysis:\n  start: 01/01/2000\n",
		"range":    "analysis:\n  start: \"2020-01-01\"\n  end: \"2019-01-01\"\n",
		"brokers":  "backend:\n  type: kafka\n",
		"consumer": "kafka:\n  consumer:\n    enabled: true\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadWithEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOOK_BACK", "7")
	t.Setenv("DATA_DIR", "/srv/bonds")

	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Backend.Type != "kafka" || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("env overrides not applied: %+v %+v", c.Backend, c.Kafka.Brokers)
	}
	if c.Analysis.LookBack != 7 || c.Source.DataDir != "/srv/bonds" {
		t.Fatalf("env overrides not applied: %+v %+v", c.Analysis, c.Source)
	}
}

func TestLoadWithEnvBadNumber(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "http")
	if _, err := LoadWithEnv(""); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SOURCE=clickhouse\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SOURCE") })

	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Source.Type != "clickhouse" {
		t.Fatalf(".env not applied: %s", c.Source.Type)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
