package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/aatumaykin/twpurge/internal/config"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect twpurge configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration",
	Long:  `Load the configuration, apply environment fallbacks and report every problem.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			configPath = args[0]
		}
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		colors, err := prompt.ColorsEnabled(cfg.Output.Color)
		if err != nil {
			colors = false
		}
		printer := prompt.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), colors)

		errs := cfg.Validate()
		if len(errs) > 0 {
			printer.Error("Configuration %s has %d problem(s):", configPath, len(errs))
			for _, e := range errs {
				printer.Error("  - %v", e)
			}
			return fmt.Errorf("%w: %d problem(s)", config.ErrConfigInvalid, len(errs))
		}

		printer.Success("Configuration is valid")
		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg.Redacted())
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
