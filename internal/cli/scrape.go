package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/app"
	"github.com/ibeckermayer/tweetscope/internal/types"
)

var scrapeOpts struct {
	accounts   []string
	keywords   []string
	categories []string
	max        int
	filter     []string
	noDisplay  bool
	cacheRaw   bool
}

func init() {
	f := scrapeCmd.Flags()
	f.StringSliceVarP(&scrapeOpts.accounts, "accounts", "a", nil, "Account handles to scrape")
	f.StringSliceVarP(&scrapeOpts.keywords, "keywords", "k", nil, "Keywords to search")
	f.StringSliceVarP(&scrapeOpts.categories, "categories", "c", nil, "Scrape the accounts of these configured categories")
	f.StringSliceVarP(&scrapeOpts.filter, "filter", "f", nil, "Keep only account posts mentioning one of these keywords")
	f.IntVarP(&scrapeOpts.max, "max", "m", 0, "Posts per account and per keyword (default from config)")
	f.BoolVar(&scrapeOpts.noDisplay, "no-display", false, "Do not print the stored posts afterwards")
	f.BoolVar(&scrapeOpts.cacheRaw, "cache-raw", false, "Keep the fetched raw batches for replay (overrides cache_raw)")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [-a acc1,acc2] [-k kw1,kw2] [-c category] [-f kw1,kw2] [-m 50]",
	Short: "Scrapes accounts and keywords once and stores the posts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scrapeOpts.cacheRaw {
			cfg.CacheRaw = true
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		accounts := scrapeOpts.accounts
		if len(scrapeOpts.categories) > 0 {
			handles, err := a.Accounts(scrapeOpts.categories)
			if err != nil {
				return err
			}
			accounts = append(accounts, handles...)
		}
		if len(accounts) == 0 && len(scrapeOpts.keywords) == 0 {
			return errors.New("nothing to scrape: pass --accounts, --keywords or --categories")
		}

		targets := app.Targets{
			Accounts:      accounts,
			Keywords:      scrapeOpts.keywords,
			MaxPerAccount: cfg.MaxTweetsPerAccount,
			MaxPerKeyword: cfg.MaxTweetsPerKeyword,
			AccountFilter: scrapeOpts.filter,
		}
		if scrapeOpts.max > 0 {
			targets.MaxPerAccount = scrapeOpts.max
			targets.MaxPerKeyword = scrapeOpts.max
		}

		start := time.Now()
		sums := a.ScrapeTargets(cmd.Context(), targets)
		printSummaries(sums)
		fmt.Printf("Finished in %s\n", time.Since(start).Round(time.Millisecond))

		if !scrapeOpts.noDisplay {
			recs, err := a.Store().Query(cmd.Context(), types.Filter{Limit: 20})
			if err != nil {
				return err
			}
			printRecords(recs)
		}

		return app.FirstFailure(sums)
	},
}

func printSummaries(sums []app.Summary) {
	t := newTable()
	t.AppendHeader(table.Row{"Target", "Source", "State", "Fetched", "New", "Duplicates", "Skipped", "Filtered", "Error"})
	for _, s := range sums {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		t.AppendRow(table.Row{s.Target, s.Provenance, s.State, s.Fetched, s.Inserted, s.Duplicates, s.Skipped, s.Filtered, errText})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 9, WidthMax: 60}})
	t.Render()
}

func printRecords(recs []types.Record) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Author", "Created", "Likes", "Reshares", "Sentiment", "Content"})
	for _, r := range recs {
		t.AppendRow(table.Row{
			r.ID,
			"@" + r.AuthorHandle,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Likes,
			r.Reshares,
			fmt.Sprintf("%s %+.2f", r.SentimentLabel, r.SentimentScore),
			r.Content,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 7, WidthMax: 70}})
	t.Render()
}
