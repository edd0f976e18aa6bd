package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cidatech/attendance-agent/internal/env"
)

var rootCmd = &cobra.Command{
	Use:   "attendance-agent",
	Short: "Sync access-control attendance events to a database or HTTP endpoint",
	Long: `attendance-agent incrementally pulls attendance events from a network
access-control device and delivers them, without loss or duplication, to a
SQLite database or a bearer-authenticated HTTP endpoint. A scheduler invokes
"sync" repeatedly, or "listen" runs the loop in-process.`,
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.AddCommand(
		newSyncCmd(),
		newListenCmd(),
		newCheckCmd(),
		newVersionCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("attendance-agent command failed")
	}
}
