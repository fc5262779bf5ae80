package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/tlmdecode/internal/config"
	"github.com/danmuck/tlmdecode/internal/logging"
	"github.com/danmuck/tlmdecode/internal/observability"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	outDir     string
	formats    []string

	cfg serviceConfig
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tlmdecode: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "tlmdecode",
		Short:         "Decode satellite beacon captures and flash telemetry logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a tlmdecode TOML config")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, off); beats TLMDECODE_LOG_LEVEL and [log] level")
	flags.StringVarP(&opts.outDir, "out", "o", "", "output directory override")
	flags.StringSliceVar(&opts.formats, "format", nil, "output formats override (csv, jsonl)")

	root.AddCommand(
		newBeaconsCmd(opts),
		newTelemetryCmd(opts),
		newListenCmd(opts),
		newServeCmd(opts),
		newConfigCmd(),
	)
	return root
}

// load resolves the config file, applies flag overrides and installs the
// logger.
func (o *rootOptions) load() error {
	cfg, err := loadServiceConfig(o.configPath)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(o.outDir); v != "" {
		cfg.Decoder.Output.Dir = v
	}
	if len(o.formats) > 0 {
		cfg.Decoder.Output.Formats = make([]string, 0, len(o.formats))
		for _, f := range o.formats {
			cfg.Decoder.Output.Formats = append(cfg.Decoder.Output.Formats, strings.ToLower(strings.TrimSpace(f)))
		}
	}
	if err := config.ValidateDecoderConfig(cfg.Decoder); err != nil {
		return err
	}
	overrides, err := logOverrides(o.logLevel)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logging.ConfigureWith(cfg.Decoder.Logging(), overrides...)
	observability.InitLogger("tlmdecode")
	return nil
}

// logOverrides turns logging flags into overrides applied above the
// environment.
func logOverrides(level string) ([]func(*logging.Config), error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return nil, nil
	}
	lvl, ok := logging.ParseLevel(level)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return []func(*logging.Config){logging.WithLevel(lvl)}, nil
}
