package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogLevel     = "TLMDECODE_LOG_LEVEL"
	EnvLogTimestamp = "TLMDECODE_LOG_TIMESTAMP"
	EnvLogNoColor   = "TLMDECODE_LOG_NOCOLOR"
	EnvLogFile      = "TLMDECODE_LOG_FILE"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved logger setup.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	// File switches output to a size-rotated log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := DefaultConfig(profile)
		applyEnvOverrides(&cfg)
		Apply(cfg)
	})
}

// ConfigureWith applies cfg once per process. The environment sits above
// cfg and overrides, such as command line flags, sit above the environment.
func ConfigureWith(cfg Config, overrides ...func(*Config)) {
	configureOnce.Do(func() {
		Apply(Resolve(cfg, overrides...))
	})
}

// Resolve layers env overrides and then overrides onto cfg.
func Resolve(cfg Config, overrides ...func(*Config)) Config {
	applyEnvOverrides(&cfg)
	for _, override := range overrides {
		override(&cfg)
	}
	return cfg
}

// WithLevel is an override that forces the log level.
func WithLevel(lvl zerolog.Level) func(*Config) {
	return func(cfg *Config) {
		cfg.Level = lvl
	}
}

func DefaultConfig(profile Profile) Config {
	cfg := Config{MaxSizeMB: 50, MaxBackups: 5}
	switch profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

// Apply installs cfg as the global zerolog logger.
func Apply(cfg Config) {
	zerolog.SetGlobalLevel(cfg.Level)
	log.Logger = zerolog.New(Writer(cfg)).Level(cfg.Level)
	if cfg.Timestamp {
		log.Logger = log.Logger.With().Timestamp().Logger()
	}
}

// Writer returns the sink for cfg: a rotating file when File is set,
// otherwise a console writer on stderr.
func Writer(cfg Config) io.Writer {
	if strings.TrimSpace(cfg.File) != "" {
		return &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
	}
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		out.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	return out
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.File = v
	}
}

// ParseLevel maps a user-facing level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
