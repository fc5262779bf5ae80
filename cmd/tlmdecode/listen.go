package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/tlmdecode/internal/assembler"
	"github.com/danmuck/tlmdecode/internal/datacache"
	"github.com/danmuck/tlmdecode/internal/ingest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newListenCmd(opts *rootOptions) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Decode live beacons from a ground station websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v := strings.TrimSpace(url); v != "" {
				opts.cfg.Ingest.URL = v
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runListen(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "ground station websocket URL (overrides [ingest] url)")
	return cmd
}

func runListen(ctx context.Context, opts *rootOptions) error {
	src, err := ingest.NewSource(opts.cfg.Ingest)
	if err != nil {
		return err
	}
	codec, err := opts.cfg.Decoder.BeaconCodec()
	if err != nil {
		return err
	}
	out, err := openOutputs(opts.cfg.Decoder.Output, assembler.PipelineBeacon, codec.Catalog())
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan []byte, 16)
	listenErr := make(chan error, 1)
	go func() {
		defer close(frames)
		listenErr <- src.Listen(ctx, frames)
	}()

	a := assembler.NewBeaconAssembler(codec, datacache.NewExpander(codec.Catalog()), out.sink)
	consumeErr := a.Consume(ctx, frames)
	cancel()
	err = <-listenErr

	out.tally.print(os.Stdout)
	if consumeErr != nil && !errors.Is(consumeErr, context.Canceled) {
		return consumeErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Int("request_id", src.RequestID()).Msg("tlmdecode.listen stopped")
	return nil
}
