package relay

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
)

// DryRun logs the request instead of submitting it.
type DryRun struct {
	logger zerolog.Logger
}

// NewDryRun constructs a relayer that never reaches the network.
func NewDryRun(logger zerolog.Logger) *DryRun {
	return &DryRun{logger: logger.With().Str("component", "dry_run_relay").Logger()}
}

// SponsoredCall returns a task id derived from the request contents.
func (d *DryRun) SponsoredCall(ctx context.Context, req UpdateRequest, apiKey string) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	taskID := "dry-run-" + crypto.Keccak256Hash(payload).Hex()

	d.logger.Warn().
		RawJSON("request", payload).
		Str("task_id", taskID).
		Msg("dry run: sponsored call not submitted")
	return taskID, nil
}

var _ Relayer = (*DryRun)(nil)
