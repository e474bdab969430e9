package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"oracle-relay-keeper/internal/relay"
)

// Status prints the relay's view of a submitted task.
func (a *App) Status(ctx context.Context, taskID string) error {
	status, err := a.newGelato().TaskStatus(ctx, taskID)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Task\t%s\n", status.TaskID)
	fmt.Fprintf(writer, "Chain\t%d\n", status.ChainID)
	fmt.Fprintf(writer, "State\t%s\n", status.TaskState)
	if status.CreationDate != nil {
		fmt.Fprintf(writer, "Created\t%s\n", status.CreationDate.UTC().Format(time.RFC3339))
	}
	if status.ExecutionDate != nil {
		fmt.Fprintf(writer, "Executed\t%s\n", status.ExecutionDate.UTC().Format(time.RFC3339))
	}
	if status.TransactionHash != "" {
		fmt.Fprintf(writer, "Tx\t%s\n", status.TransactionHash)
	}
	if status.BlockNumber != 0 {
		fmt.Fprintf(writer, "Block\t%d\n", status.BlockNumber)
	}
	if status.LastCheckMessage != "" {
		fmt.Fprintf(writer, "Last check\t%s\n", sanitizeInline(status.LastCheckMessage))
	}
	fmt.Fprintf(writer, "Link\t%s\n", relay.StatusURL(taskID))
	return writer.Flush()
}
