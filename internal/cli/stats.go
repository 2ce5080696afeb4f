package cli

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows store-wide record counts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Store().Stats(cmd.Context())
		if err != nil {
			return err
		}

		last := "never"
		if !st.LastScrapeAt.IsZero() {
			last = st.LastScrapeAt.Local().Format(time.RFC1123)
		}

		t := newTable()
		t.AppendRow(table.Row{"Records", st.Total})
		t.AppendRow(table.Row{"From API", st.BySource[types.ProvenanceAPI]})
		t.AppendRow(table.Row{"From browser", st.BySource[types.ProvenanceBrowser]})
		for _, l := range []types.SentimentLabel{types.SentimentPositive, types.SentimentNeutral, types.SentimentNegative} {
			t.AppendRow(table.Row{"Sentiment " + string(l), st.BySentiment[l]})
		}
		t.AppendRow(table.Row{"Last scrape", last})
		t.Render()
		return nil
	},
}
