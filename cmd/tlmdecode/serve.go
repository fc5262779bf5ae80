package main

import (
	"github.com/danmuck/tlmdecode/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the decoders over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			s, err := server.Appear(cfg, opts.cfg.Decoder)
			if err != nil {
				return err
			}
			return s.Serve()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides [server] addr)")
	return cmd
}
