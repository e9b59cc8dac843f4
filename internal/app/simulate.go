package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"merchant-verdict/internal/alerting"
)

// SimulateAlert analyses snapshot files and pushes the notifications they would
// trigger through the configured channel, bypassing cooldowns and the store.
func (a *App) SimulateAlert(ctx context.Context, files []string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}
	if len(files) == 0 {
		return errors.New("provide at least one snapshot file")
	}

	engine, finder, err := a.newEngine()
	if err != nil {
		return err
	}

	src := a.fileSource()
	bucket := time.Now().UTC()
	sent := 0
	for _, path := range files {
		snapshots, err := src.LoadFile(path)
		if err != nil {
			return err
		}
		for _, snap := range snapshots {
			report, err := engine.Analyze(ctx, snap)
			if err != nil {
				return err
			}
			if err := notifier.Notify(ctx, alerting.Notification{Kind: alerting.KindVerdict, Bucket: bucket, Report: report}); err != nil {
				return err
			}
			sent++
		}
		if len(snapshots) > 1 {
			result, err := finder.Find(snapshots)
			if err != nil {
				return err
			}
			if result.Opportunity != nil {
				note := alerting.Notification{Kind: alerting.KindArbitrage, Bucket: bucket, Arbitrage: result.Opportunity}
				if err := notifier.Notify(ctx, note); err != nil {
					return err
				}
				sent++
			}
		}
	}
	fmt.Fprintf(a.Out, "sent %d notifications\n", sent)
	return nil
}
