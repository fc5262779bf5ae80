package config

import (
	"github.com/danmuck/tlmdecode/internal/beacon"
	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/logging"
)

// BeaconCodec builds the beacon codec over the beacon catalog.
func (c DecoderConfig) BeaconCodec() (*beacon.Codec, error) {
	return beacon.NewCodec(c.Beacon.ContainerSize, catalog.Beacon())
}

func (c DecoderConfig) TelemetryCatalog() (*catalog.Catalog, error) {
	return catalog.Telemetry(catalog.TelemetryOptions{TaskCount: c.Telemetry.TaskCount})
}

// Logging maps the [log] section onto a runtime logging profile.
func (c DecoderConfig) Logging() logging.Config {
	out := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(c.Log.Level); ok {
		out.Level = lvl
	}
	out.File = c.Log.File
	return out
}
