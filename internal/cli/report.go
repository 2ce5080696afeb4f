package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/app"
	"github.com/ibeckermayer/tweetscope/internal/report"
)

var reportOpts struct {
	window time.Duration
	dir    string
	html   bool
	open   bool
}

func init() {
	f := reportCmd.Flags()
	f.DurationVar(&reportOpts.window, "window", app.DefaultWindow, "Look-back window")
	f.StringVar(&reportOpts.dir, "out", "", "Output directory (default export.directory)")
	f.BoolVar(&reportOpts.html, "html", false, "Also write an HTML rendering")
	f.BoolVar(&reportOpts.open, "open", false, "Open the HTML report in the default browser (implies --html)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--window 24h] [--html] [--open]",
	Short: "Writes an intelligence report over the stored posts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.Report(cmd.Context(), reportOpts.window)
		if err != nil {
			return err
		}

		dir := reportOpts.dir
		if dir == "" {
			dir = cfg.Export.Directory
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}

		jsonPath := report.Path(dir, "json", r.GeneratedAt)
		if err := writeFile(jsonPath, r.WriteJSON); err != nil {
			return err
		}
		slog.Info("[report] Wrote report", "path", jsonPath)

		if reportOpts.html || reportOpts.open {
			htmlPath := report.Path(dir, "html", r.GeneratedAt)
			if err := writeFile(htmlPath, r.RenderHTML); err != nil {
				return err
			}
			slog.Info("[report] Wrote report", "path", htmlPath)

			if reportOpts.open {
				abs, err := filepath.Abs(htmlPath)
				if err != nil {
					return err
				}
				if err := browser.OpenFile(abs); err != nil {
					return fmt.Errorf("failed to open report: %w", err)
				}
			}
		}

		t := newTable()
		t.AppendHeader(table.Row{"Posts", "Accounts", "Engagement", "Alerts"})
		t.AppendRow(table.Row{r.Summary.TotalRecords, r.Summary.UniqueAccounts, r.Summary.TotalEngagement, len(r.Alerts)})
		t.Render()
		for _, alert := range r.Alerts {
			fmt.Println("! " + alert.Message)
		}
		return nil
	},
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
