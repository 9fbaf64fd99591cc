// Package commands implements the comparison CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-cli/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "comparison",
	Short: "Regulatory document comparison - chunk, analyse and synthesise",
	Long: `Compare regulatory and management-system documents against a base prompt.

The document text is split with the best-scoring chunking strategy, every
chunk is analysed by the configured generation backend, and the analyses are
synthesised into one report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
