package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// errReported is returned by commands that already printed their failure.
var errReported = errors.New("failure already reported")

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "palantir-agent",
	Short:   "Aggregates APM action timings into histograms",
	Version: version,
	Long: `palantir-agent receives APM action records from instrumented
applications over UDP or TCP, aggregates their timings into exponential
bucket histograms and periodically pushes them to a VictoriaMetrics
compatible import endpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		_ = cmd.Help()
	},
}

// Execute runs the root command and prints the returned error, if any.
// This is called by main.Main().
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext is Execute with a parent context for the commands.
func ExecuteContext(ctx context.Context) error {
	err := RootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	// Add subcommands to root command
	RootCmd.AddCommand(agentCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(sendCmd)
}
