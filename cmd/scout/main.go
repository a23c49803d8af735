// Command scout runs the daily web-analytics anomaly engine: one-shot
// analysis runs, digest re-rendering, dataset verification and a
// long-lived schedule mode.
package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scoutwatch/scout/internal/pipeline"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:           "scout",
		Short:         "Daily anomaly detection for web analytics properties",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging()
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config YAML")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "trace|debug|info|warn|error")

	root.AddCommand(newRunCmd(), newRenderCmd(), newVerifyCmd(), newScheduleCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(pipeline.ExitCode(err))
	}
}

// setupLogging mirrors the usual split: pretty console output on a
// TTY, JSON lines when piped or running under a supervisor.
func setupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(flagLogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
}
