package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"merchant-verdict/internal/alerting"
	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/config"
	"merchant-verdict/internal/metrics"
	"merchant-verdict/internal/product"
	"merchant-verdict/internal/scheduler"
	"merchant-verdict/internal/storage"
)

// Deps are the collaborators of a Service. Stores, notifier and metrics may be nil.
type Deps struct {
	Engine    analysis.Analyzer
	Finder    *analysis.ArbitrageFinder
	Scheduler *scheduler.Scheduler
	Snapshots storage.SnapshotStore
	Reports   storage.ReportStore
	Alerts    storage.AlertStore
	Locker    storage.AdvisoryLocker
	Notifier  alerting.Notifier
	Metrics   *metrics.Metrics
}

// Summary reports what one sweep did.
type Summary struct {
	Bucket        time.Time
	Skipped       bool
	Analyzed      int
	Failed        int
	GoVerdicts    int
	CrossMarket   int
	Opportunities int
	Alerts        int
}

// Service orchestrates analysis sweeps, persistence, and alerting.
type Service struct {
	deps   Deps
	logger zerolog.Logger

	workers   int
	maxItems  int
	lockKey   int64
	alertsOn  bool
	notifyGo  bool
	minMargin decimal.Decimal
	cooldown  *expirable.LRU[string, time.Time]
}

// New constructs the sweep service.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) (*Service, error) {
	if deps.Engine == nil {
		return nil, errors.New("service: analysis engine is required")
	}
	if deps.Finder == nil {
		return nil, errors.New("service: arbitrage finder is required")
	}

	svc := &Service{
		deps:      deps,
		logger:    logger.With().Str("component", "service").Logger(),
		workers:   cfg.Sweep.Workers,
		maxItems:  cfg.Sweep.MaxItems,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
		alertsOn:  cfg.Alerting.Enabled && deps.Notifier != nil,
		notifyGo:  cfg.Alerting.NotifyGo,
		minMargin: decimal.NewFromFloat(cfg.Alerting.MinArbMarginPct),
	}
	if svc.workers <= 0 {
		svc.workers = 1
	}
	if svc.alertsOn && cfg.Alerting.Cooldown > 0 {
		size := cfg.Alerting.CacheSize
		if size <= 0 {
			size = 1024
		}
		svc.cooldown = expirable.NewLRU[string, time.Time](size, nil, cfg.Alerting.Cooldown)
	}
	return svc, nil
}

// Run begins the scheduled sweep loop.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.deps.Scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket runs one sweep; it satisfies scheduler.SweepFunc.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	_, err := s.Sweep(ctx, bucket)
	return err
}

// Sweep analyses every latest stored snapshot, runs cross-market analysis for
// items listed in more than one marketplace, and dispatches alerts. It is a
// no-op when another process holds the sweep lock.
func (s *Service) Sweep(ctx context.Context, bucket time.Time) (Summary, error) {
	summary := Summary{Bucket: bucket}
	if s.deps.Snapshots == nil {
		return summary, storage.ErrNotConfigured
	}

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return summary, err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip sweep because advisory lock held elsewhere")
		summary.Skipped = true
		return summary, nil
	}
	if unlock != nil {
		defer unlock()
	}

	started := time.Now()
	stored, err := s.deps.Snapshots.ListLatestSnapshots(ctx, s.maxItems)
	if err != nil {
		return summary, fmt.Errorf("list latest snapshots: %w", err)
	}
	snapshots := make([]*product.Snapshot, 0, len(stored))
	for _, st := range stored {
		snapshots = append(snapshots, st.Snapshot)
	}

	reports, failed, err := s.analyzeAll(ctx, snapshots, true)
	if err != nil {
		return summary, err
	}
	summary.Analyzed = len(reports)
	summary.Failed = failed

	for _, r := range reports {
		if r.Verdict.Overall != analysis.DecisionGo {
			continue
		}
		summary.GoVerdicts++
		if s.notifyGo && s.dispatch(ctx, alerting.Notification{Kind: alerting.KindVerdict, Bucket: bucket, Report: r}) {
			summary.Alerts++
		}
	}

	for _, group := range groupByASIN(snapshots) {
		if len(group) < 2 {
			continue
		}
		summary.CrossMarket++
		result, err := s.deps.Finder.Find(group)
		if err != nil {
			s.logger.Warn().Err(err).Str("asin", group[0].ASIN()).Msg("cross-market analysis failed")
			continue
		}
		s.deps.Metrics.IncArbitrage(string(result.Outcome))
		if result.Opportunity == nil {
			continue
		}
		summary.Opportunities++
		if result.Opportunity.ProfitMarginPct.LessThan(s.minMargin) {
			continue
		}
		if s.dispatch(ctx, alerting.Notification{Kind: alerting.KindArbitrage, Bucket: bucket, Arbitrage: result.Opportunity}) {
			summary.Alerts++
		}
	}

	s.deps.Metrics.ObserveSweep(time.Since(started), summary.Analyzed)
	s.logger.Info().
		Time("bucket", bucket).
		Int("analyzed", summary.Analyzed).
		Int("failed", summary.Failed).
		Int("go", summary.GoVerdicts).
		Int("opportunities", summary.Opportunities).
		Int("alerts", summary.Alerts).
		Dur("took", time.Since(started)).
		Msg("sweep complete")
	return summary, nil
}

// Analyze runs the engine over snapshots with the configured parallelism and,
// when save is set and a report store exists, persists every report. Reports
// come back in input order; failed snapshots are logged and counted.
func (s *Service) Analyze(ctx context.Context, snapshots []*product.Snapshot, save bool) ([]*analysis.Report, int, error) {
	return s.analyzeAll(ctx, snapshots, save)
}

// ReanalyzeBetween replays the engine over every snapshot captured in [from, to)
// and stores the resulting reports. No alerts are sent.
func (s *Service) ReanalyzeBetween(ctx context.Context, from, to time.Time) (Summary, error) {
	summary := Summary{Bucket: from}
	if s.deps.Snapshots == nil {
		return summary, storage.ErrNotConfigured
	}
	if !to.After(from) {
		return summary, fmt.Errorf("reanalyze: end %s must be after start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	stored, err := s.deps.Snapshots.ListSnapshotsBetween(ctx, from, to)
	if err != nil {
		return summary, fmt.Errorf("list snapshots between: %w", err)
	}
	snapshots := make([]*product.Snapshot, 0, len(stored))
	for _, st := range stored {
		snapshots = append(snapshots, st.Snapshot)
	}
	reports, failed, err := s.analyzeAll(ctx, snapshots, true)
	if err != nil {
		return summary, err
	}
	summary.Analyzed = len(reports)
	summary.Failed = failed
	for _, r := range reports {
		if r.Verdict.Overall == analysis.DecisionGo {
			summary.GoVerdicts++
		}
	}
	return summary, nil
}

func (s *Service) analyzeAll(ctx context.Context, snapshots []*product.Snapshot, save bool) ([]*analysis.Report, int, error) {
	results := make([]*analysis.Report, len(snapshots))
	var (
		mu     sync.Mutex
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, snap := range snapshots {
		g.Go(func() error {
			report, err := s.deps.Engine.Analyze(gctx, snap)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.deps.Metrics.IncAnalysis(false)
				s.logger.Warn().Err(err).Str("asin", asinOf(snap)).Msg("analysis failed")
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			s.deps.Metrics.IncAnalysis(true)
			s.countVerdicts(report)

			if save && s.deps.Reports != nil {
				if err := s.deps.Reports.SaveReport(gctx, report); err != nil {
					s.logger.Error().Err(err).Str("asin", report.ASIN).Msg("failed to persist report")
				}
			}
			results[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failed, err
	}

	reports := make([]*analysis.Report, 0, len(results))
	for _, r := range results {
		if r != nil {
			reports = append(reports, r)
		}
	}
	return reports, failed, nil
}

func (s *Service) countVerdicts(r *analysis.Report) {
	s.deps.Metrics.IncVerdict(string(analysis.StrategyArbitrage), string(r.Verdict.Arbitrage))
	s.deps.Metrics.IncVerdict(string(analysis.StrategyDropshipping), string(r.Verdict.Dropshipping))
	s.deps.Metrics.IncVerdict(string(analysis.StrategyPrivateLabel), string(r.Verdict.PrivateLabel))
	s.deps.Metrics.IncVerdict("overall", string(r.Verdict.Overall))
}

// dispatch sends note unless its key is cooling down. It reports whether the
// notifier accepted the message.
func (s *Service) dispatch(ctx context.Context, note alerting.Notification) bool {
	if !s.alertsOn {
		return false
	}
	key := note.Key()
	if s.cooldown != nil && s.cooldown.Contains(key) {
		s.deps.Metrics.IncAlert(string(note.Kind), "suppressed")
		s.logger.Debug().Str("key", key).Msg("alert suppressed by cooldown")
		return false
	}

	if err := s.deps.Notifier.Notify(ctx, note); err != nil {
		s.deps.Metrics.IncAlert(string(note.Kind), "failed")
		s.logger.Error().Err(err).Str("key", key).Msg("failed to dispatch alert")
		return false
	}
	s.deps.Metrics.IncAlert(string(note.Kind), "sent")
	if s.cooldown != nil {
		s.cooldown.Add(key, time.Now().UTC())
	}

	if s.deps.Alerts != nil {
		message, err := alerting.Render(note)
		if err != nil {
			message = key
		}
		record := storage.AlertRecord{
			Kind:      string(note.Kind),
			DedupeKey: key,
			ASIN:      note.ASIN(),
			Message:   message,
		}
		if _, err := s.deps.Alerts.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("failed to persist alert record")
		}
	}
	return true
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.deps.Locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.deps.Locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

// groupByASIN buckets snapshots per item, ordered by ASIN.
func groupByASIN(snapshots []*product.Snapshot) [][]*product.Snapshot {
	byASIN := make(map[string][]*product.Snapshot)
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		byASIN[snap.ASIN()] = append(byASIN[snap.ASIN()], snap)
	}
	keys := make([]string, 0, len(byASIN))
	for k := range byASIN {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([][]*product.Snapshot, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, byASIN[k])
	}
	return groups
}

func asinOf(s *product.Snapshot) string {
	if s == nil {
		return ""
	}
	return s.ASIN()
}
