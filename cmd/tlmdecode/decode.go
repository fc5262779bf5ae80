package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/tlmdecode/internal/assembler"
	"github.com/danmuck/tlmdecode/internal/datacache"
	"github.com/danmuck/tlmdecode/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newBeaconsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "beacons CAPTURE...",
		Short: "Decode raw beacon captures (concatenated fixed-size containers)",
		Long: `Decode raw beacon captures. Captures are read in order as one stream,
so a message split across the last container of one file and the first
container of the next is reassembled.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBeacons(ctx, opts, args)
		},
	}
}

func runBeacons(ctx context.Context, opts *rootOptions, paths []string) error {
	cfg := opts.cfg.Decoder
	codec, err := cfg.BeaconCodec()
	if err != nil {
		return err
	}
	out, err := openOutputs(cfg.Output, assembler.PipelineBeacon, codec.Catalog())
	if err != nil {
		return err
	}
	defer out.Close()

	a := assembler.NewBeaconAssembler(codec, datacache.NewExpander(codec.Catalog()), out.sink)
	for _, path := range paths {
		if err := decodeFile(ctx, path, assembler.PipelineBeacon, func(f *os.File) error {
			return a.Run(ctx, f)
		}); err != nil {
			return err
		}
	}
	if p, ok := a.Pending(); ok {
		log.Warn().Uint8("code", p.TypeCode).Int("missing", p.Missing()).Msg("tlmdecode.beacons capture ended mid-message")
	}
	out.tally.print(os.Stdout)
	return nil
}

func newTelemetryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "telemetry LOGFILE...",
		Short: "Decode flash telemetry log files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTelemetry(ctx, opts, args)
		},
	}
}

func runTelemetry(ctx context.Context, opts *rootOptions, paths []string) error {
	cfg := opts.cfg.Decoder
	cat, err := cfg.TelemetryCatalog()
	if err != nil {
		return err
	}
	out, err := openOutputs(cfg.Output, assembler.PipelineTelemetry, cat)
	if err != nil {
		return err
	}
	defer out.Close()

	exp := datacache.NewExpander(cat)
	for _, path := range paths {
		// Rolling counters restart with every log file.
		a := assembler.NewTelemetryAssembler(exp, out.sink)
		if err := decodeFile(ctx, path, assembler.PipelineTelemetry, func(f *os.File) error {
			sum, err := a.Run(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s: signature=%q version=%d complete=%t records=%d bad_crc=%d undecodable=%d gaps=%d\n",
				path, sum.Header.SignatureString(), sum.Header.Version, sum.Header.FileComplete,
				sum.Stats.Records, sum.Stats.ChecksumInvalid, sum.Stats.Undecodable, sum.Stats.Gaps)
			return nil
		}); err != nil {
			return err
		}
	}
	out.tally.print(os.Stdout)
	return nil
}

func decodeFile(ctx context.Context, path string, pipeline assembler.Pipeline, run func(*os.File) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	err = run(f)
	observability.RecordDecodeRun(string(pipeline), time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("pipeline", string(pipeline)).Str("file", path).Dur("took", time.Since(start)).Msg("tlmdecode decoded file")
	return ctx.Err()
}
