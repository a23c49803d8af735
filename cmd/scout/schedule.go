package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	scouthttp "github.com/scoutwatch/scout/internal/interfaces/http"
	"github.com/scoutwatch/scout/internal/pipeline"
	"github.com/scoutwatch/scout/internal/scheduler"
)

// newScheduleCmd runs the engine as a long-lived process: one analysis
// run per day plus health and metrics endpoints in between.
func newScheduleCmd() *cobra.Command {
	var (
		at     string
		listen string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run daily at a fixed UTC time, serving /health and /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			trigger, err := scheduler.ParseTimeOfDay(at)
			if err != nil {
				return &pipeline.RunError{Code: pipeline.ExitConfig, Err: err}
			}
			app, err := buildApp(false, "")
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := scouthttp.New(listen, app.metrics, log.Logger)
			go func() {
				if err := server.ListenAndServe(); err != nil {
					log.Error().Err(err).Msg("http server failed")
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				server.Shutdown(shutdownCtx)
			}()

			sched := scheduler.New(trigger, func(ctx context.Context) error {
				summary, err := app.orch.Run(ctx, pipeline.Options{})
				if summary != nil {
					server.SetLastRun(summary)
				}
				return err
			}, log.Logger)

			err = sched.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "06:00", "daily trigger time, UTC HH:MM")
	cmd.Flags().StringVar(&listen, "listen", ":9090", "address for health and metrics endpoints")
	return cmd
}
