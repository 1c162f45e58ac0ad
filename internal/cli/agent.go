package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okorienev/palantir-agent/internal/agent"
	"github.com/okorienev/palantir-agent/internal/config"
	"github.com/okorienev/palantir-agent/internal/logging"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the aggregation agent",
	Long: `Run the agent until it receives SIGINT or SIGTERM, or until the
aggregation pipeline fails. Extra labels are read from PALANTIR_EXTRA_LABEL_*
environment variables at startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")

		cfg, err := config.LoadConfig(path)
		if err != nil {
			return err
		}

		if err := logging.Configure(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		}); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := agent.Open(ctx, cfg, os.Environ())
		if err != nil {
			return err
		}
		return a.Run(ctx)
	},
}

func init() {
	agentCmd.Flags().StringP("config", "c", "palantir.yaml", "Path to the configuration file")
}
