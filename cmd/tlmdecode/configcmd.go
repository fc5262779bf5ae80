package main

import (
	"fmt"

	"github.com/danmuck/tlmdecode/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or check tlmdecode config files",
		// Config commands work on their own files and skip root config loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	var kind string
	var force bool
	tmpl := &cobra.Command{
		Use:   "template [PATH]",
		Short: "Print a config template, or write it to PATH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				body, err := config.Template(kind)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			if err := config.WriteTemplate(args[0], kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config template to %s\n", kind, args[0])
			return nil
		},
	}
	tmpl.Flags().StringVar(&kind, "kind", "decoder", "template kind (decoder, service)")
	tmpl.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	validate := &cobra.Command{
		Use:   "validate PATH",
		Short: "Load and validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServiceConfig(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: container_size=%d task_count=%d formats=%v server=%s\n",
				cfg.Decoder.Beacon.ContainerSize, cfg.Decoder.Telemetry.TaskCount, cfg.Decoder.Output.Formats, cfg.Server.Addr)
			return nil
		},
	}

	cmd.AddCommand(tmpl, validate)
	return cmd
}
