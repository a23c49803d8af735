package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scoutwatch/scout/internal/blob"
	"github.com/scoutwatch/scout/internal/dataset"
	"github.com/scoutwatch/scout/internal/domain"
)

// newVerifyCmd validates a clean dataset without running detection, so
// a warehouse export can be checked before the morning run picks it up.
func newVerifyCmd() *cobra.Command {
	var (
		datasetPath string
		property    string
		date        string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Validate a clean dataset export",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data []byte
			var err error

			switch {
			case datasetPath != "":
				data, err = os.ReadFile(datasetPath)
				if err != nil {
					return err
				}
			case property != "" && date != "":
				day, perr := domain.ParseDay(date)
				if perr != nil {
					return perr
				}
				cfg, cerr := loadConfig()
				if cerr != nil {
					return cerr
				}
				store, serr := blob.NewFSStore(cfg.DataDir)
				if serr != nil {
					return serr
				}
				data, err = store.Get(cmd.Context(), dataset.DatasetKey(property, day))
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("need --dataset, or --property with --date")
			}

			if err := dataset.Validate(data); err != nil {
				return fmt.Errorf("dataset invalid: %w", err)
			}
			log.Info().Msg("dataset valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "validate a local dataset file")
	cmd.Flags().StringVar(&property, "property", "", "property id")
	cmd.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD)")
	return cmd
}
