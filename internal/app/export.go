package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"oracle-relay-keeper/internal/storage"
)

// Export renders execution history as CSV and/or a PNG price chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-30 * 24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	executions, err := store.ListExecutionsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(executions) == 0 {
		a.Logger.Info().Msg("no executions found for export window")
		return nil
	}

	downsampled := downsampleExecutions(executions, opts.MaxPoints)
	a.Logger.Info().Int("total", len(executions)).Int("exported", len(downsampled)).Msg("exporting executions")

	if opts.CSVPath != "" {
		if err := writeExecutionsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePricesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleExecutions(executions []storage.Execution, max int) []storage.Execution {
	if max <= 0 || len(executions) <= max {
		return executions
	}
	if max == 1 {
		return executions[len(executions)-1:]
	}

	result := make([]storage.Execution, 0, max)
	step := float64(len(executions)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(executions) {
			idx = len(executions) - 1
		}
		result = append(result, executions[idx])
	}
	return result
}

func writeExecutionsCSV(path string, executions []storage.Execution) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"started_at", "chain_id", "oracle", "currency", "last_updated", "next_update", "stale", "price_usd", "price", "task_id", "can_exec", "message"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, exec := range executions {
		record := []string{
			exec.StartedAt.UTC().Format(time.RFC3339),
			optionalInt(exec.ChainID),
			exec.Oracle,
			exec.Currency,
			optionalInt(exec.LastUpdated),
			optionalInt(exec.NextUpdate),
			strconv.FormatBool(exec.Stale),
			optionalDecimal(exec.PriceUSD),
			optionalDecimal(exec.Price),
			optionalString(exec.TaskID),
			strconv.FormatBool(exec.CanExec),
			optionalString(exec.Message),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// writePricesPNG charts the quoted USD price of every execution that got far enough to fetch one.
func writePricesPNG(path string, executions []storage.Execution) error {
	x := make([]time.Time, 0, len(executions))
	usd := make([]float64, 0, len(executions))
	for _, exec := range executions {
		if exec.PriceUSD == nil {
			continue
		}
		x = append(x, exec.StartedAt)
		usd = append(usd, exec.PriceUSD.InexactFloat64())
	}
	if len(x) < 2 {
		return errors.New("need at least two priced executions to render a chart")
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (USD)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Quoted USD",
				XValues: x,
				YValues: usd,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalDecimal(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.String()
}
