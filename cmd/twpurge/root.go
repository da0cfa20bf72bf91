package main

import (
	"errors"

	"github.com/aatumaykin/twpurge/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
	debug      bool
	colorMode  string
)

var errMissingCutoff = errors.New("missing cutoff date, expected YYYY-MM-DD")

// rootCmd represents the base command. A bare date argument runs a purge.
var rootCmd = &cobra.Command{
	Use:   "twpurge [YYYY-MM-DD]",
	Short: "twpurge - resumable purge of old tweets",
	Long: `twpurge deletes every tweet older than a cutoff date.

The operator confirms the last tweet to delete, tweets below it are collected
into a checkpoint file and deleted in parallel. Popular tweets are reviewed
one by one and kept ones go to a whitelist. An interrupted run resumes from
the checkpoint.`,
	Args: cobra.MatchAll(cobra.MaximumNArgs(1), validateCutoffArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errMissingCutoff
		}
		return runPurge(cmd, args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file with TWD_* variables")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "", "terminal colors: auto, always or never")

	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(inactiveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
