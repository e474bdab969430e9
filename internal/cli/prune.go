package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"oracle-relay-keeper/internal/app"
)

var (
	pruneBefore    string
	pruneOlderThan time.Duration
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old execution history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (pruneBefore == "") == (pruneOlderThan == 0) {
			return fmt.Errorf("exactly one of --before or --older-than must be provided")
		}

		before := time.Now().UTC().Add(-pruneOlderThan)
		if pruneBefore != "" {
			parsed, err := time.Parse(time.RFC3339, pruneBefore)
			if err != nil {
				return fmt.Errorf("invalid --before value: %w", err)
			}
			before = parsed
		}

		return getApp().Prune(cmd.Context(), app.PruneOptions{Before: before})
	},
}

func init() {
	pruneCmd.Flags().StringVar(&pruneBefore, "before", "", "Delete executions started before this timestamp (RFC3339)")
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "Delete executions older than this duration (e.g. 720h)")
}
