package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okorienev/palantir-agent/internal/config"
	"github.com/okorienev/palantir-agent/internal/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file without starting the agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		noColor, _ := cmd.Flags().GetBool("no-color")

		formatter := output.NewFormatter(noColor)

		cfg, err := config.LoadConfig(path)
		if err != nil {
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatError(path, err))
			return errReported
		}

		fmt.Fprint(cmd.OutOrStdout(), formatter.FormatConfig(path, cfg))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringP("config", "c", "palantir.yaml", "Path to the configuration file")
	validateCmd.Flags().Bool("no-color", false, "Disable colored output")
}
