package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

var trendingWindow time.Duration

func init() {
	trendingCmd.Flags().DurationVar(&trendingWindow, "window", 24*time.Hour, "Look-back window")
	rootCmd.AddCommand(trendingCmd)
}

var trendingCmd = &cobra.Command{
	Use:   "trending [--window 24h]",
	Short: "Shows trending hashtags, active accounts and the sentiment breakdown.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tr, err := a.Store().Trending(cmd.Context(), trendingWindow)
		if err != nil {
			return err
		}

		fmt.Printf("Trending since %s\n", tr.Since.Local().Format(time.RFC1123))

		hashtags := newTable()
		hashtags.AppendHeader(table.Row{"Hashtag", "Mentions", "Engagement"})
		for _, h := range tr.Hashtags {
			hashtags.AppendRow(table.Row{"#" + h.Tag, h.Mentions, h.Engagement})
		}
		hashtags.Render()

		accounts := newTable()
		accounts.AppendHeader(table.Row{"Account", "Posts", "Engagement"})
		for _, acc := range tr.Accounts {
			accounts.AppendRow(table.Row{"@" + acc.Handle, acc.Posts, acc.Engagement})
		}
		accounts.Render()

		sentiment := newTable()
		sentiment.AppendHeader(table.Row{"Sentiment", "Posts"})
		for _, l := range []types.SentimentLabel{types.SentimentPositive, types.SentimentNeutral, types.SentimentNegative} {
			sentiment.AppendRow(table.Row{l, tr.Sentiment[l]})
		}
		sentiment.Render()
		return nil
	},
}
