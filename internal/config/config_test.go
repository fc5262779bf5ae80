package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tlmdecode.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadDecoderConfigDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadDecoderConfig(writeFile(t, "[output]\nformats = [\" JSONL \"]\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Beacon.ContainerSize != 77 || cfg.Telemetry.TaskCount != catalog.LegacyTasks || cfg.Output.Dir != "decoded" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !cfg.Output.Wants(FormatJSONL) || cfg.Output.Wants(FormatCSV) {
		t.Fatalf("formats=%v", cfg.Output.Formats)
	}
}

func TestLoadDecoderConfigRejectsInvalid(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"container": "[beacon]\ncontainer_size = 5\n",
		"tasks":     "[telemetry]\ntask_count = 31\n",
		"format":    "[output]\nformats = [\"xml\"]\n",
		"level":     "[log]\nlevel = \"loud\"\n",
	}
	for name, body := range cases {
		if _, err := LoadDecoderConfig(writeFile(t, body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := LoadDecoderConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestTemplatesLoadAndValidate(t *testing.T) {
	testlog.Start(t)
	for _, kind := range []string{"decoder", "service"} {
		path := filepath.Join(t.TempDir(), kind+".toml")
		if err := WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("%s: write: %v", kind, err)
		}
		if err := WriteTemplate(path, kind, false); err == nil {
			t.Fatalf("%s: expected overwrite guard", kind)
		}
		cfg, err := LoadDecoderConfig(path)
		if err != nil {
			t.Fatalf("%s: load: %v", kind, err)
		}
		if !cfg.Output.Wants(FormatCSV) || !cfg.Output.Wants(FormatJSONL) {
			t.Fatalf("%s: formats=%v", kind, cfg.Output.Formats)
		}
	}
	if _, err := Template("bogus"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestConvertBuildsDecoders(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	cfg.Beacon.ContainerSize = 64
	cfg.Telemetry.TaskCount = catalog.MaxTasks
	cfg.Log.Level = "warn"

	codec, err := cfg.BeaconCodec()
	if err != nil || codec.Size() != 64 {
		t.Fatalf("codec=%v err=%v", codec, err)
	}
	cat, err := cfg.TelemetryCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if got := cat.Resolve(catalog.CodeTaskStats).Size(); got != 2*catalog.MaxTasks {
		t.Fatalf("task stats size=%d", got)
	}
	if cfg.Logging().Level != zerolog.WarnLevel {
		t.Fatalf("log level=%v", cfg.Logging().Level)
	}
}
