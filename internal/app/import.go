package app

import (
	"context"
	"errors"
	"fmt"

	"merchant-verdict/internal/product"
)

// Import loads every JSON snapshot under a directory into the store and,
// optionally, analyses and stores a report for each.
func (a *App) Import(ctx context.Context, opts ImportOptions) error {
	dir := opts.Dir
	if dir == "" {
		dir = a.Config.Source.Dir
	}

	store, closeStore, err := a.requireStore(ctx, "import snapshots")
	if err != nil {
		return err
	}
	defer closeStore()

	snapshots, failures := a.fileSource().LoadDir(ctx, dir)
	if err := ctx.Err(); err != nil {
		return err
	}

	saved := make([]*product.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if _, err := store.SaveSnapshot(ctx, snap); err != nil {
			a.Logger.Error().Err(err).Str("asin", snap.ASIN()).Msg("failed to store snapshot")
			failures = append(failures, err)
			continue
		}
		saved = append(saved, snap)
	}

	analyzed := 0
	if opts.Analyze && len(saved) > 0 {
		svc, err := a.newService(store, nil, nil)
		if err != nil {
			return err
		}
		reports, failed, err := svc.Analyze(ctx, saved, true)
		if err != nil {
			return err
		}
		analyzed = len(reports)
		if failed > 0 {
			failures = append(failures, fmt.Errorf("%d snapshots failed analysis", failed))
		}
	}

	fmt.Fprintf(a.Out, "imported %d snapshots from %s (%d analysed, %d problems)\n", len(saved), dir, analyzed, len(failures))
	if len(saved) == 0 && len(failures) > 0 {
		return errors.Join(failures...)
	}
	return nil
}
