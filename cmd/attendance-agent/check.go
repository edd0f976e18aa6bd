package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cidatech/attendance-agent/internal/config"
	"github.com/cidatech/attendance-agent/internal/device"
	"github.com/cidatech/attendance-agent/internal/sink"
	"github.com/cidatech/attendance-agent/internal/syncer"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the device login and the configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			capability, err := device.NewCapability()
			if err != nil {
				return err
			}
			identity, err := syncer.CheckDevice(capability, cfg)
			if err != nil {
				return err
			}

			store, err := sink.New(cfg)
			if err != nil {
				return err
			}
			defer closeSink(store)
			if err := syncer.CheckSink(cmd.Context(), store, identity); err != nil {
				return err
			}
			log.Info().Msg("all checks passed")
			return nil
		},
	}
}
