package app

import (
	"context"
	"errors"
	"fmt"
)

// Reanalyze replays the current policy over stored snapshots captured in
// [opts.From, opts.To) and stores fresh reports.
func (a *App) Reanalyze(ctx context.Context, opts ReanalyzeOptions) error {
	from, to := opts.From.UTC(), opts.To.UTC()
	if !from.Before(to) {
		return errors.New("reanalyze window is empty; check --from/--to")
	}

	store, closeStore, err := a.requireStore(ctx, "reanalyze")
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := a.newService(store, nil, nil)
	if err != nil {
		return err
	}
	summary, err := svc.ReanalyzeBetween(ctx, from, to)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("analyzed", summary.Analyzed).
		Int("failed", summary.Failed).
		Int("go", summary.GoVerdicts).
		Msg("reanalysis complete")
	fmt.Fprintf(a.Out, "reanalysed %d snapshots (%d go, %d failed)\n", summary.Analyzed, summary.GoVerdicts, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d snapshots failed analysis; check logs", summary.Failed)
	}
	return nil
}
