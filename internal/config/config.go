package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/danmuck/tlmdecode/internal/beacon"
	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/logging"
	"github.com/pelletier/go-toml/v2"
)

const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// DecoderConfig holds the decode settings. Service settings ([server] and
// [ingest]) live in the same file and are read by the CLI.
type DecoderConfig struct {
	Beacon    BeaconConfig    `toml:"beacon"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Output    OutputConfig    `toml:"output"`
	Log       LogConfig       `toml:"log"`
}

type BeaconConfig struct {
	ContainerSize int `toml:"container_size"`
}

type TelemetryConfig struct {
	TaskCount int `toml:"task_count"`
}

type OutputConfig struct {
	Dir     string   `toml:"dir"`
	Formats []string `toml:"formats"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

func Default() DecoderConfig {
	return DecoderConfig{
		Beacon:    BeaconConfig{ContainerSize: beacon.DefaultContainerSize},
		Telemetry: TelemetryConfig{TaskCount: catalog.LegacyTasks},
		Output:    OutputConfig{Dir: "decoded", Formats: []string{FormatCSV}},
		Log:       LogConfig{Level: "info"},
	}
}

func LoadDecoderConfig(path string) (DecoderConfig, error) {
	var cfg DecoderConfig
	if err := loadToml(path, &cfg); err != nil {
		return DecoderConfig{}, err
	}
	applyDefaults(&cfg)
	if err := ValidateDecoderConfig(cfg); err != nil {
		return DecoderConfig{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *DecoderConfig) {
	def := Default()
	if cfg.Beacon.ContainerSize == 0 {
		cfg.Beacon.ContainerSize = def.Beacon.ContainerSize
	}
	if cfg.Telemetry.TaskCount == 0 {
		cfg.Telemetry.TaskCount = def.Telemetry.TaskCount
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = def.Output.Dir
	}
	if len(cfg.Output.Formats) == 0 {
		cfg.Output.Formats = def.Output.Formats
	}
	for i, f := range cfg.Output.Formats {
		cfg.Output.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = def.Log.Level
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateDecoderConfig(cfg DecoderConfig) error {
	if err := ValidateBeaconConfig(cfg.Beacon); err != nil {
		return fmt.Errorf("beacon config invalid: %w", err)
	}
	if err := ValidateTelemetryConfig(cfg.Telemetry); err != nil {
		return fmt.Errorf("telemetry config invalid: %w", err)
	}
	if err := ValidateOutputConfig(cfg.Output); err != nil {
		return fmt.Errorf("output config invalid: %w", err)
	}
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("log config invalid: unknown level %q", cfg.Log.Level)
	}
	return nil
}

func ValidateBeaconConfig(cfg BeaconConfig) error {
	if cfg.ContainerSize < beacon.HeaderSize+beacon.SubHeaderSize {
		return fmt.Errorf("container_size must be at least %d", beacon.HeaderSize+beacon.SubHeaderSize)
	}
	if cfg.ContainerSize > 0xFFFF {
		return fmt.Errorf("container_size too large: %d", cfg.ContainerSize)
	}
	return nil
}

func ValidateTelemetryConfig(cfg TelemetryConfig) error {
	if cfg.TaskCount != catalog.LegacyTasks && cfg.TaskCount != catalog.MaxTasks {
		return fmt.Errorf("task_count must be %d or %d", catalog.LegacyTasks, catalog.MaxTasks)
	}
	return nil
}

func ValidateOutputConfig(cfg OutputConfig) error {
	if strings.TrimSpace(cfg.Dir) == "" {
		return fmt.Errorf("dir is required")
	}
	for _, f := range cfg.Formats {
		if !slices.Contains([]string{FormatCSV, FormatJSONL}, f) {
			return fmt.Errorf("unknown format %q", f)
		}
	}
	return nil
}

// Wants reports whether format is enabled.
func (c OutputConfig) Wants(format string) bool {
	return slices.Contains(c.Formats, format)
}
