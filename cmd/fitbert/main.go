// Command fitbert ranks fill-in-the-blank options from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/fitbert/pkg/logger"
)

// configPath overrides FITBERT_CONFIG when set.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "fitbert",
	Short: "Rank candidate fillers for a masked sentence",
	Long: `fitbert scores candidate strings for the ***mask*** placeholder in a
sentence with a masked language model and prints JSON.

Available subcommands:
  rank     - Rank options, best first, with scores
  fitb     - Print the sentence filled with the best option
  guess    - Print the model's top token for the mask
  multi    - Report which pathway a set of options takes
  loadtest - Drive a running server with generated jobs`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if configPath != "" {
			return os.Setenv("FITBERT_CONFIG", configPath)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.AddCommand(rankCmd, fitbCmd, guessCmd, multiCmd, loadtestCmd)
}

func main() {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
