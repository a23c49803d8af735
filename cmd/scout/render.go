package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scoutwatch/scout/internal/blob"
	"github.com/scoutwatch/scout/internal/digest"
	"github.com/scoutwatch/scout/internal/domain"
)

// newRenderCmd re-renders a digest.json, for tweaking the templates or
// resending an email without rerunning detection. The source is either
// a local file (--from) or the store (--date).
func newRenderCmd() *cobra.Command {
	var (
		from   string
		out    string
		date   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Re-render a digest from a file or the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data []byte
			switch {
			case from != "":
				var err error
				data, err = os.ReadFile(from)
				if err != nil {
					return err
				}
			case date != "":
				if _, err := domain.ParseDay(date); err != nil {
					return err
				}
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				store, err := blob.NewFSStore(cfg.DataDir)
				if err != nil {
					return err
				}
				key := path.Join(cfg.ResultsDir, date, "digest.json")
				data, err = store.Get(cmd.Context(), key)
				if err != nil {
					return fmt.Errorf("no digest for %s: %w", date, err)
				}
			default:
				return fmt.Errorf("need --from or --date")
			}

			var dgst domain.Digest
			if err := json.Unmarshal(data, &dgst); err != nil {
				return fmt.Errorf("digest: %w", err)
			}

			if format == "" {
				format = formatForOutput(out)
			}
			var rendered []byte
			switch format {
			case "html":
				var err error
				rendered, err = digest.RenderHTML(dgst)
				if err != nil {
					return err
				}
			case "text":
				rendered = digest.RenderText(dgst)
			default:
				return fmt.Errorf("unknown format %q, want html or text", format)
			}

			if out != "" {
				return os.WriteFile(out, rendered, 0o644)
			}
			_, err := os.Stdout.Write(rendered)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "render a digest.json file")
	cmd.Flags().StringVar(&out, "out", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&date, "date", "", "render the stored digest for this reference date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&format, "format", "", "html or text (default inferred from --out, else html)")
	return cmd
}

func formatForOutput(out string) string {
	if filepath.Ext(out) == ".txt" {
		return "text"
	}
	return "html"
}
