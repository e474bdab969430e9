package app

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-relay-keeper/internal/storage"
)

func pricedExecutions(n int) []storage.Execution {
	out := make([]storage.Execution, n)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		usd := decimal.NewFromFloat(2500.5 + float64(i))
		price := usd.Floor()
		task := "0xtask"
		out[i] = storage.Execution{
			StartedAt: start.Add(time.Duration(i) * time.Hour),
			Oracle:    "0xoracle",
			Currency:  "ethereum",
			PriceUSD:  &usd,
			Price:     &price,
			TaskID:    &task,
			CanExec:   true,
		}
	}
	return out
}

func TestDownsampleExecutions(t *testing.T) {
	execs := pricedExecutions(10)

	assert.Len(t, downsampleExecutions(execs, 0), 10)
	assert.Len(t, downsampleExecutions(execs, 20), 10)

	sampled := downsampleExecutions(execs, 4)
	require.Len(t, sampled, 4)
	assert.Equal(t, execs[0].StartedAt, sampled[0].StartedAt)
	assert.Equal(t, execs[9].StartedAt, sampled[3].StartedAt)

	assert.Equal(t, execs[9].StartedAt, downsampleExecutions(execs, 1)[0].StartedAt)
}

func TestWriteExecutionsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "executions.csv")
	execs := pricedExecutions(2)
	msg := "Rpc call failed"
	execs = append(execs, storage.Execution{StartedAt: time.Now(), Oracle: "0xoracle", Currency: "ethereum", Message: &msg})

	require.NoError(t, writeExecutionsCSV(path, execs))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "price", records[0][8])
	assert.Equal(t, "2500", records[1][8])
	assert.Equal(t, "", records[3][8])
	assert.Equal(t, "Rpc call failed", records[3][11])
}

func TestWritePricesPNG(t *testing.T) {
	dir := t.TempDir()

	require.Error(t, writePricesPNG(filepath.Join(dir, "one.png"), pricedExecutions(1)))

	path := filepath.Join(dir, "prices.png")
	require.NoError(t, writePricesPNG(path, pricedExecutions(5)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
