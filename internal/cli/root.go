// Package cli holds the tweetscope commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/app"
	"github.com/ibeckermayer/tweetscope/internal/config"
	"github.com/ibeckermayer/tweetscope/internal/logging"
)

var (
	configPath string
	envFile    string
	dbPath     string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "tweetscope",
	Short:         "tweetscope collects posts from X accounts and keywords and tracks their engagement and sentiment.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(logLevel)

		c, err := config.Resolve(configPath, envFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			c.DatabasePath = dbPath
		}
		if logLevel == "" {
			logging.Setup(c.LogLevel)
		}
		cfg = c
		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "Config file (default is the user config dir)")
	f.StringVar(&envFile, "env-file", ".env", "Env file loaded before environment overrides")
	f.StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides database_path)")
	f.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")
}

// ExecuteContext runs the root command and exits non-zero on error
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openApp() (*app.App, error) {
	return app.New(cfg, app.Deps{})
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
