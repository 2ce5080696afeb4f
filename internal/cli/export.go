package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/store"
)

var (
	exportFilter filterFlags
	exportFormat string
	exportOut    string
)

func init() {
	exportFilter.register(exportCmd, -1)
	exportCmd.Flags().StringVar(&exportFormat, "format", store.FormatJSON, "json or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Destination file (default a timestamped file in export.directory)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--format json|csv] [--out path]",
	Short: "Exports stored posts to JSON or CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := exportFilter.filter()
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := exportOut
		if out == "" {
			out = store.ExportPath(cfg.Export.Directory, exportFormat, time.Now())
		}
		n, err := a.Export(cmd.Context(), exportFormat, out, f)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d records to %s\n", n, out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.json|file.csv>...",
	Short: "Loads posts from exported files. Posts already stored are kept as they are.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var errs []error
		for _, path := range args {
			inserted, dupes, err := a.Store().Import(cmd.Context(), store.FormatFromPath(path), path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			fmt.Printf("%s: %d new, %d already stored\n", path, inserted, dupes)
		}
		return errors.Join(errs...)
	},
}
