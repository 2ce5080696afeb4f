package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/app"
	"github.com/ibeckermayer/tweetscope/internal/config"
	"github.com/ibeckermayer/tweetscope/internal/store"
)

var replayDryRun bool

func init() {
	replayCmd.Flags().BoolVarP(&replayDryRun, "dry-run", "n", false, "Only report how many records are new or already stored")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay [--dry-run] [batch.json]...",
	Short: "Normalizes and stores cached raw batches again (default the latest). Needs cache_raw.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		paths := args
		if len(paths) == 0 {
			dir, err := config.RawCacheDir()
			if err != nil {
				return err
			}
			latest, err := store.NewRawCache(dir).Latest()
			if errors.Is(err, store.ErrNoCachedBatch) {
				return fmt.Errorf("%w in %s; enable cache_raw and scrape first", err, dir)
			}
			if err != nil {
				return err
			}
			paths = []string{latest}
		}

		var sums []app.Summary
		for _, p := range paths {
			if replayDryRun {
				sums = append(sums, a.Preview(cmd.Context(), p))
			} else {
				sums = append(sums, a.Replay(cmd.Context(), p))
			}
		}
		printSummaries(sums)
		return app.FirstFailure(sums)
	},
}
