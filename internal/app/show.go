package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints recent executions.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show executions")
	}
	if closeStore != nil {
		defer closeStore()
	}

	executions, err := store.ListRecentExecutions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(executions) == 0 {
		fmt.Fprintln(os.Stdout, "no executions found")
		return nil
	}

	total, err := store.CountExecutions(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Started (UTC)\tCurrency\tUSD\tPrice\tLast Updated\tStale\tCanExec\tTask\tMessage")

	for _, exec := range executions {
		lastUpdated := ""
		if exec.LastUpdated != nil {
			lastUpdated = time.Unix(*exec.LastUpdated, 0).UTC().Format(time.RFC3339)
		}
		taskID := ""
		if exec.TaskID != nil {
			taskID = *exec.TaskID
		}
		msg := ""
		if exec.Message != nil {
			msg = sanitizeInline(*exec.Message)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%t\t%t\t%s\t%s\n",
			exec.StartedAt.UTC().Format(time.RFC3339),
			exec.Currency,
			formatDecimal(exec.PriceUSD, 2),
			formatDecimal(exec.Price, 0),
			lastUpdated,
			exec.Stale,
			exec.CanExec,
			taskID,
			msg,
		)
	}

	writer.Flush()
	fmt.Fprintf(os.Stdout, "%d of %d executions\n", len(executions), total)
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func formatDecimal(d *decimal.Decimal, places int32) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(places)
}
