package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/store"
	"github.com/ibeckermayer/tweetscope/internal/types"
)

type filterFlags struct {
	author        string
	minEngagement int
	sentiment     string
	since         time.Duration
	limit         int
}

func (f *filterFlags) register(cmd *cobra.Command, defaultLimit int) {
	fs := cmd.Flags()
	fs.StringVar(&f.author, "author", "", "Only posts by this handle")
	fs.IntVar(&f.minEngagement, "min-engagement", 0, "Minimum likes + reshares")
	fs.StringVar(&f.sentiment, "sentiment", "", "positive, neutral or negative")
	fs.DurationVar(&f.since, "since", 0, "Only posts created within this duration, e.g. 24h")
	fs.IntVar(&f.limit, "limit", defaultLimit, "Maximum rows; negative means all")
}

func (f *filterFlags) filter() (types.Filter, error) {
	out := types.Filter{
		Author:        f.author,
		MinEngagement: f.minEngagement,
		Label:         types.SentimentLabel(f.sentiment),
		Limit:         f.limit,
	}
	if f.sentiment != "" && !out.Label.Valid() {
		return out, fmt.Errorf("unknown sentiment %q", f.sentiment)
	}
	if f.since > 0 {
		out.Since = time.Now().Add(-f.since)
	}
	return out, nil
}

var (
	queryFilter filterFlags
	queryJSON   bool
)

func init() {
	queryFilter.register(queryCmd, types.DefaultQueryLimit)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print records as JSON")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query [--author h] [--min-engagement n] [--sentiment label] [--since 24h] [--limit n]",
	Short: "Lists stored posts, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := queryFilter.filter()
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.Store().Query(cmd.Context(), f)
		if err != nil {
			return err
		}
		if queryJSON {
			return store.WriteJSON(os.Stdout, recs)
		}
		printRecords(recs)
		fmt.Printf("%d records\n", len(recs))
		return nil
	},
}
