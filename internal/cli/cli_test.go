package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/tweetscope/internal/config"
	"github.com/ibeckermayer/tweetscope/internal/types"
)

func TestFilterFlags(t *testing.T) {
	f := filterFlags{author: "alice", minEngagement: 10, sentiment: "negative", since: time.Hour, limit: 5}
	got, err := f.filter()
	require.NoError(t, err)
	require.Equal(t, "alice", got.Author)
	require.Equal(t, types.SentimentNegative, got.Label)
	require.WithinDuration(t, time.Now().Add(-time.Hour), got.Since, 5*time.Second)
	require.Equal(t, 5, got.Limit)

	_, err = (&filterFlags{sentiment: "ecstatic"}).filter()
	require.Error(t, err)

	got, err = (&filterFlags{}).filter()
	require.NoError(t, err)
	require.True(t, got.Since.IsZero())
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Cleanup(func() { configPath, configForce = "", false })

	rootCmd.SetArgs([]string{"config", "init", "--config", path})
	require.NoError(t, rootCmd.Execute())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, config.Default().DatabasePath, cfg.DatabasePath)

	rootCmd.SetArgs([]string{"config", "init", "--config", path})
	require.ErrorContains(t, rootCmd.Execute(), "already exists")

	rootCmd.SetArgs([]string{"config", "init", "--config", path, "--force"})
	require.NoError(t, rootCmd.Execute())
}

func TestScrapeNeedsTargets(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { configPath, dbPath = "", "" })

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Default().SaveTo(path))

	rootCmd.SetArgs([]string{"scrape", "--config", path, "--env-file", "", "-d", filepath.Join(dir, "t.db")})
	require.ErrorContains(t, rootCmd.Execute(), "nothing to scrape")
}

func TestMonitorScheduleFlag(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { configPath, dbPath, monitorOpts.schedule = "", "", "" })

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Default().SaveTo(path))

	rootCmd.SetArgs([]string{"monitor", "--config", path, "--env-file", "", "-d", filepath.Join(dir, "t.db"), "--schedule", "whenever"})
	require.ErrorContains(t, rootCmd.Execute(), "whenever")
}

func TestReplayDryRunMissingBatch(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { configPath, dbPath, replayDryRun = "", "", false })

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Default().SaveTo(path))

	missing := filepath.Join(dir, "missing.json")
	rootCmd.SetArgs([]string{"replay", "--config", path, "--env-file", "", "-d", filepath.Join(dir, "t.db"), "--dry-run", missing})
	require.ErrorContains(t, rootCmd.Execute(), missing)
}
