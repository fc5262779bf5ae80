package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/tlmdecode/internal/config"
	"github.com/danmuck/tlmdecode/internal/server"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tlmdecode.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServiceConfigFromTemplate(t *testing.T) {
	tmpl, err := config.Template("service")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	cfg, err := loadServiceConfig(writeConfig(t, tmpl))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr != ":9300" {
		t.Fatalf("unexpected addr: %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CorsOrigins) != 1 || cfg.Server.CorsOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %+v", cfg.Server.CorsOrigins)
	}
	if cfg.Ingest.URL != "ws://127.0.0.1:6660" {
		t.Fatalf("unexpected ingest url: %q", cfg.Ingest.URL)
	}
	if cfg.Ingest.HandshakeTimeout != 10*time.Second {
		t.Fatalf("unexpected handshake timeout: %v", cfg.Ingest.HandshakeTimeout)
	}
	if cfg.Decoder.Beacon.ContainerSize != 77 || cfg.Decoder.Telemetry.TaskCount != 30 {
		t.Fatalf("unexpected decoder config: %+v", cfg.Decoder)
	}
}

func TestLoadServiceConfigKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := loadServiceConfig(writeConfig(t, "[telemetry]\ntask_count = 36\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Decoder.Telemetry.TaskCount != 36 {
		t.Fatalf("unexpected task count: %d", cfg.Decoder.Telemetry.TaskCount)
	}
	if cfg.Server.Addr != server.DefaultAddr || cfg.Server.MaxBodyBytes != server.DefaultMaxBodyBytes {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Ingest.URL != "" {
		t.Fatalf("unexpected ingest url: %q", cfg.Ingest.URL)
	}
}

func TestLoadServiceConfigRejectsBadValues(t *testing.T) {
	if _, err := loadServiceConfig(writeConfig(t, "[ingest]\nhandshake_timeout = \"soon\"\n")); err == nil {
		t.Fatalf("expected duration parse error")
	}
	if _, err := loadServiceConfig(writeConfig(t, "[server]\nmax_body_bytes = 0\n")); err == nil {
		t.Fatalf("expected max_body_bytes error")
	}
	if _, err := loadServiceConfig(writeConfig(t, "[beacon]\ncontainer_size = 3\n")); err == nil {
		t.Fatalf("expected container size error")
	}
}

func TestLoadServiceConfigEmptyPath(t *testing.T) {
	cfg, err := loadServiceConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Decoder.Beacon.ContainerSize != 77 {
		t.Fatalf("unexpected defaults: %+v", cfg.Decoder)
	}
}
