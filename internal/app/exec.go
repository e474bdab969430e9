package app

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"oracle-relay-keeper/internal/service"
	"oracle-relay-keeper/internal/storage"
)

// Exec performs one invocation and prints its result as JSON.
// Dry runs never submit to the relay and are not recorded.
func (a *App) Exec(ctx context.Context, opts ExecOptions) error {
	cfg := *a.Config
	if opts.Oracle != "" {
		cfg.Oracle.Address = opts.Oracle
	}
	if opts.UserAddress != "" {
		cfg.Oracle.UserAddress = opts.UserAddress
	}
	if opts.Currency != "" {
		cfg.Oracle.Currency = opts.Currency
	}
	// a single invocation is already serialised by the caller
	cfg.Scheduler.AdvisoryLockKey = 0

	var execStore storage.ExecutionStore
	if opts.DryRun {
		cfg.Alerting.Enabled = false
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store != nil {
			execStore = store
			defer closeStore()
		}
	}

	wf, closeWorkflow := a.newWorkflow(opts.DryRun)
	defer closeWorkflow()

	svc := service.New(&cfg, nil, wf, execStore, a.newNotifier(), a.Logger)

	res, err := svc.ProcessTick(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
