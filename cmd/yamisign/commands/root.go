package commands

import (
	"context"
	"fmt"
	"os"
	"yamisign/lib/telemetry"

	"github.com/spf13/cobra"
)

var configPath *string
var verbose *bool

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file to read, json5 or yaml.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging.")
}

var rootCmd = &cobra.Command{
	Use:   "yamisign",
	Short: "yamisign keeps forum sessions and signs them in every day.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
	SilenceUsage: true,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
