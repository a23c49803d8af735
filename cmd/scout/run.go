package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scoutwatch/scout/internal/domain"
	"github.com/scoutwatch/scout/internal/pipeline"
)

type runFlags struct {
	referenceDate string
	properties    []string
	detectors     []string
	dryRun        bool
}

func addRunFlags(fs *pflag.FlagSet, f *runFlags) {
	fs.StringVar(&f.referenceDate, "reference-date", "", "pin the reference date (YYYY-MM-DD)")
	fs.StringSliceVar(&f.properties, "properties", nil, "restrict to these property ids")
	fs.StringSliceVar(&f.detectors, "detectors", nil, "restrict to these detectors (disaster|spam|record|trend)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "write artifacts but do not deliver or record history")
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one full analysis run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.referenceDate != "" {
				if _, err := domain.ParseDay(flags.referenceDate); err != nil {
					return &pipeline.RunError{Code: pipeline.ExitConfig, Err: err}
				}
			}
			app, err := buildApp(flags.dryRun, flags.referenceDate)
			if err != nil {
				return err
			}
			defer app.Close()

			kinds := make([]domain.DetectorKind, 0, len(flags.detectors))
			for _, d := range flags.detectors {
				kinds = append(kinds, domain.DetectorKind(d))
			}

			_, err = app.orch.Run(cmd.Context(), pipeline.Options{
				Properties: flags.properties,
				Detectors:  kinds,
				DryRun:     flags.dryRun,
			})
			return err
		},
	}
	addRunFlags(cmd.Flags(), &flags)
	return cmd
}
