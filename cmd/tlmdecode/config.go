package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/tlmdecode/internal/config"
	"github.com/danmuck/tlmdecode/internal/ingest"
	"github.com/danmuck/tlmdecode/internal/server"
)

// serviceConfig is everything the long-running commands need.
type serviceConfig struct {
	Decoder config.DecoderConfig
	Server  server.Config
	Ingest  ingest.Config
}

type fileConfig struct {
	Server struct {
		Addr         string   `toml:"addr"`
		CorsOrigins  []string `toml:"cors_origins"`
		MaxBodyBytes int64    `toml:"max_body_bytes"`
	} `toml:"server"`
	Ingest struct {
		URL              string `toml:"url"`
		RequestID        int    `toml:"request_id"`
		HandshakeTimeout string `toml:"handshake_timeout"`
	} `toml:"ingest"`
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		Decoder: config.Default(),
		Server:  server.DefaultConfig(),
		Ingest:  ingest.Config{HandshakeTimeout: ingest.DefaultHandshakeTimeout},
	}
}

// loadServiceConfig reads the decoder sections and overlays the [server]
// and [ingest] keys that are present. An empty path yields the defaults.
func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := defaultServiceConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	dec, err := config.LoadDecoderConfig(path)
	if err != nil {
		return serviceConfig{}, err
	}
	cfg.Decoder = dec

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load service config: %w", err)
	}

	if meta.IsDefined("server", "addr") {
		if addr := strings.TrimSpace(raw.Server.Addr); addr != "" {
			cfg.Server.Addr = addr
		}
	}
	if meta.IsDefined("server", "cors_origins") {
		cfg.Server.CorsOrigins = normalizeOrigins(raw.Server.CorsOrigins)
	}
	if meta.IsDefined("server", "max_body_bytes") {
		if raw.Server.MaxBodyBytes <= 0 {
			return serviceConfig{}, fmt.Errorf("server.max_body_bytes must be positive")
		}
		cfg.Server.MaxBodyBytes = raw.Server.MaxBodyBytes
	}

	if meta.IsDefined("ingest", "url") {
		cfg.Ingest.URL = strings.TrimSpace(raw.Ingest.URL)
	}
	if meta.IsDefined("ingest", "request_id") {
		if raw.Ingest.RequestID < 0 {
			return serviceConfig{}, fmt.Errorf("ingest.request_id must not be negative")
		}
		cfg.Ingest.RequestID = raw.Ingest.RequestID
	}
	if meta.IsDefined("ingest", "handshake_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Ingest.HandshakeTimeout))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse ingest.handshake_timeout: %w", err)
		}
		cfg.Ingest.HandshakeTimeout = d
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
