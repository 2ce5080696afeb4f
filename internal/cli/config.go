package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tweetscope/internal/config"
	"github.com/ibeckermayer/tweetscope/internal/logging"
)

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configPathCmd, configOpenCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manages the config file.",
	// The config file may not exist yet
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(logLevel)
		return nil
	},
}

func targetConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.ConfigPath()
}

var configInitCmd = &cobra.Command{
	Use:   "init [--force]",
	Short: "Writes the default config file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := targetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists, pass --force to overwrite", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := config.Default().SaveTo(path); err != nil {
			return err
		}
		fmt.Println("Created default config at:", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Prints the config file path.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := targetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configOpenCmd = &cobra.Command{
	Use:       "open [config|cache]",
	Short:     "Opens the config file, creating it first if needed, or the cache directory.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"config", "cache"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && args[0] == "cache" {
			dir, err := config.CacheDir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			fmt.Println("Opening cache:", dir)
			return browser.OpenFile(dir)
		}

		path, err := targetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := config.Default().SaveTo(path); err != nil {
				return err
			}
		}
		fmt.Println("Opening config:", path)
		return browser.OpenFile(path)
	},
}
