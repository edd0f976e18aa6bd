package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cidatech/attendance-agent/internal/config"
	"github.com/cidatech/attendance-agent/internal/device"
	"github.com/cidatech/attendance-agent/internal/sink"
	"github.com/cidatech/attendance-agent/internal/syncer"
)

func newSyncCmd() *cobra.Command {
	var fetchTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one incremental synchronization pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, store, err := buildRunner(fetchTimeout)
			if err != nil {
				return err
			}
			defer closeSink(store)
			return runner.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&fetchTimeout, "fetch-timeout", device.DefaultFetchTimeout, "deadline for the device event stream")
	return cmd
}

func newListenCmd() *cobra.Command {
	var (
		interval     time.Duration
		fetchTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run synchronization continuously on a fixed interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, store, err := buildRunner(fetchTimeout)
			if err != nil {
				return err
			}
			defer closeSink(store)
			err = runner.Listen(cmd.Context(), interval)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "time between synchronization passes")
	cmd.Flags().DurationVar(&fetchTimeout, "fetch-timeout", device.DefaultFetchTimeout, "deadline for the device event stream")
	return cmd
}

func buildRunner(fetchTimeout time.Duration) (*syncer.Runner, sink.Sink, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("config", cfg.Redacted()).Msg("configuration loaded")

	capability, err := device.NewCapability()
	if err != nil {
		return nil, nil, err
	}
	store, err := sink.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &syncer.Runner{
		Capability:   capability,
		Config:       cfg,
		Sink:         store,
		FetchTimeout: fetchTimeout,
	}, store, nil
}

func closeSink(store sink.Sink) {
	if err := store.Close(); err != nil {
		log.Warn().Err(err).Str("sink", store.Name()).Msg("sink close failed")
	}
}
