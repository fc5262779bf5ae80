package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/tlmdecode/internal/beacon"
	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/config"
	"github.com/danmuck/tlmdecode/internal/logging"
	"github.com/danmuck/tlmdecode/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func TestConfigTemplatePrintsServiceSections(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "template", "--kind", "service"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"[beacon]", "[server]", "[ingest]"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("template missing %s:\n%s", want, out.String())
		}
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	testlog.Start(t)
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"config", "validate", writeConfig(t, "[telemetry]\ntask_count = 31\n")})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestBeaconsCommandWritesOutputs(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	capture := filepath.Join(dir, "pass.bin")
	data := beacon.NewBuilder(beacon.DefaultContainerSize, beacon.Header{Seq: 1}).
		Message(catalog.CodeAOCSControlSysState, []byte{3, 0}).
		Message(catalog.CodeConOpsFlags, make([]byte, catalog.Beacon().Resolve(catalog.CodeConOpsFlags).Size())).
		Bytes()
	if err := os.WriteFile(capture, data, 0o600); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	outDir := filepath.Join(dir, "decoded")
	root := newRootCmd()
	root.SetArgs([]string{"beacons", "--out", outDir, "--format", "csv,jsonl", capture})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	for _, name := range []string{"AOCS_CNTRL_SYS_STATE.csv", "ConOpsFlags.csv", "beacon.jsonl"} {
		if _, err := os.Stat(filepath.Join(outDir, "beacon", name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	lines, err := os.ReadFile(filepath.Join(outDir, "beacon", "beacon.jsonl"))
	if err != nil {
		t.Fatalf("read jsonl: %v", err)
	}
	if n := bytes.Count(lines, []byte("\n")); n != 2 {
		t.Fatalf("jsonl lines=%d:\n%s", n, lines)
	}
}

func TestTallyCounts(t *testing.T) {
	tl := newTally()
	var out bytes.Buffer
	tl.print(&out)
	if !strings.Contains(out.String(), "messages: 0") || strings.Contains(out.String(), "signals:") {
		t.Fatalf("empty tally:\n%s", out.String())
	}
}

func TestLogLevelFlagBeatsEnvironment(t *testing.T) {
	t.Setenv(logging.EnvLogLevel, "error")
	overrides, err := logOverrides("debug")
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	cfg := logging.Resolve(config.Default().Logging(), overrides...)
	if cfg.Level != zerolog.DebugLevel {
		t.Fatalf("level=%v", cfg.Level)
	}
	if _, err := logOverrides("chatty"); err == nil {
		t.Fatalf("expected unknown level error")
	}
}
