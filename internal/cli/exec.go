package cli

import (
	"github.com/spf13/cobra"

	"oracle-relay-keeper/internal/app"
)

var (
	execOracle   string
	execUser     string
	execCurrency string
	execDryRun   bool
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run a single oracle update and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExecOptions{
			Oracle:      execOracle,
			UserAddress: execUser,
			Currency:    execCurrency,
			DryRun:      execDryRun,
		}
		return getApp().Exec(cmd.Context(), opts)
	},
}

func init() {
	execCmd.Flags().StringVar(&execOracle, "oracle", "", "Oracle contract address (defaults to config)")
	execCmd.Flags().StringVar(&execUser, "user", "", "Address the sponsored call executes on behalf of (defaults to config)")
	execCmd.Flags().StringVar(&execCurrency, "currency", "", "CoinGecko currency id (defaults to config)")
	execCmd.Flags().BoolVar(&execDryRun, "dry-run", false, "Build the relay request without submitting or recording it")
}
