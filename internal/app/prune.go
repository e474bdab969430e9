package app

import (
	"context"
	"errors"
)

// Prune deletes execution history started before opts.Before.
func (a *App) Prune(ctx context.Context, opts PruneOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; nothing to prune")
	}
	if closeStore != nil {
		defer closeStore()
	}

	deleted, err := store.DeleteExecutionsBefore(ctx, opts.Before.UTC())
	if err != nil {
		return err
	}
	a.Logger.Info().Int64("deleted", deleted).Time("before", opts.Before).Msg("execution history pruned")
	return nil
}
