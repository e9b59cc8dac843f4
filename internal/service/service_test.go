package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"merchant-verdict/internal/alerting"
	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/config"
	"merchant-verdict/internal/product"
	"merchant-verdict/internal/storage"
)

type fakeSnapshots struct {
	latest  []storage.StoredSnapshot
	between []storage.StoredSnapshot
	calls   int
}

func (f *fakeSnapshots) SaveSnapshot(context.Context, *product.Snapshot) (int64, error) {
	return 0, nil
}

func (f *fakeSnapshots) LatestSnapshot(context.Context, string, string) (storage.StoredSnapshot, error) {
	return storage.StoredSnapshot{}, storage.ErrNotFound
}

func (f *fakeSnapshots) LatestSnapshotsForASIN(context.Context, string) ([]storage.StoredSnapshot, error) {
	return nil, nil
}

func (f *fakeSnapshots) ListLatestSnapshots(context.Context, int) ([]storage.StoredSnapshot, error) {
	f.calls++
	return f.latest, nil
}

func (f *fakeSnapshots) ListSnapshotsBetween(context.Context, time.Time, time.Time) ([]storage.StoredSnapshot, error) {
	return f.between, nil
}

type fakeReports struct {
	mu    sync.Mutex
	saved []*analysis.Report
}

func (f *fakeReports) SaveReport(_ context.Context, r *analysis.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeReports) ListRecentReports(context.Context, int) ([]storage.ReportRecord, error) {
	return nil, nil
}

func (f *fakeReports) ListReportsForASIN(context.Context, string, int) ([]storage.ReportRecord, error) {
	return nil, nil
}

func (f *fakeReports) ListReportsBetween(context.Context, time.Time, time.Time) ([]storage.ReportRecord, error) {
	return nil, nil
}

type fakeAlerts struct {
	records []storage.AlertRecord
}

func (f *fakeAlerts) InsertAlert(_ context.Context, a storage.AlertRecord) (storage.AlertRecord, error) {
	f.records = append(f.records, a)
	return a, nil
}

func (f *fakeAlerts) ListRecentAlerts(context.Context, int) ([]storage.AlertRecord, error) {
	return f.records, nil
}

func (f *fakeAlerts) DeleteAlertsBefore(context.Context, time.Time) error { return nil }

type fakeNotifier struct {
	notes []alerting.Notification
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, n alerting.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, n)
	return nil
}

type fakeLocker struct {
	acquired bool
	unlocked bool
}

func (f *fakeLocker) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	if !f.acquired {
		return nil, false, nil
	}
	return func() { f.unlocked = true }, true, nil
}

func listing(asin, market, currency, price string) storage.StoredSnapshot {
	s := &product.Snapshot{Marketplace: market}
	s.Identification = product.Identity{ASIN: asin, Title: "Insulated Bottle"}
	s.Pricing.BuyBoxPrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	s.Pricing.ReferralFeeEstimate = decimal.NewNullDecimal(decimal.RequireFromString("4.50"))
	s.Pricing.Currency = currency
	return storage.StoredSnapshot{ASIN: asin, Marketplace: market, Snapshot: s}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Sweep.Workers = 2
	cfg.Sweep.MaxItems = 100
	cfg.Scheduler.AdvisoryLockKey = 42
	cfg.Alerting.Enabled = true
	cfg.Alerting.NotifyGo = true
	cfg.Alerting.MinArbMarginPct = 20
	cfg.Alerting.Cooldown = time.Hour
	cfg.Alerting.CacheSize = 16
	return cfg
}

type harness struct {
	svc       *Service
	snapshots *fakeSnapshots
	reports   *fakeReports
	alerts    *fakeAlerts
	notifier  *fakeNotifier
	locker    *fakeLocker
}

func newHarness(t *testing.T, cfg *config.Config, latest ...storage.StoredSnapshot) *harness {
	t.Helper()
	policy := analysis.DefaultPolicy()
	engine, err := analysis.NewEngine(policy, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		snapshots: &fakeSnapshots{latest: latest, between: latest},
		reports:   &fakeReports{},
		alerts:    &fakeAlerts{},
		notifier:  &fakeNotifier{},
		locker:    &fakeLocker{acquired: true},
	}
	h.svc, err = New(cfg, Deps{
		Engine:    engine,
		Finder:    analysis.NewArbitrageFinder(policy, zerolog.Nop()),
		Snapshots: h.snapshots,
		Reports:   h.reports,
		Alerts:    h.alerts,
		Locker:    h.locker,
		Notifier:  h.notifier,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestSweepAnalyzesStoresAndAlerts(t *testing.T) {
	risky := listing("B000RISKY1", "us", "USD", "29.99")
	risky.Snapshot.Risk.IPInfringementRisk = "high"

	h := newHarness(t, testConfig(),
		listing("B000TEST01", "us", "USD", "29.99"),
		listing("B000TEST01", "uk", "GBP", "12.00"),
		risky,
	)

	bucket := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	summary, err := h.svc.Sweep(context.Background(), bucket)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if summary.Analyzed != 3 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(h.reports.saved) != 3 {
		t.Fatalf("saved reports = %d", len(h.reports.saved))
	}
	if summary.GoVerdicts != 1 || summary.CrossMarket != 1 || summary.Opportunities != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Alerts != 2 || len(h.notifier.notes) != 2 || len(h.alerts.records) != 2 {
		t.Fatalf("alerts = %d notes = %d records = %d", summary.Alerts, len(h.notifier.notes), len(h.alerts.records))
	}

	verdict, arb := h.notifier.notes[0], h.notifier.notes[1]
	if verdict.Kind != alerting.KindVerdict || verdict.Report.ASIN != "B000TEST01" || verdict.Report.Marketplace != "us" {
		t.Fatalf("verdict note = %+v", verdict)
	}
	if arb.Kind != alerting.KindArbitrage || arb.Arbitrage.BuyMarketplace != "uk" || arb.Arbitrage.SellMarketplace != "us" {
		t.Fatalf("arbitrage note = %+v", arb.Arbitrage)
	}
	if h.alerts.records[1].DedupeKey != "arbitrage:B000TEST01:uk:us" {
		t.Fatalf("record key = %s", h.alerts.records[1].DedupeKey)
	}
	if !h.locker.unlocked {
		t.Fatal("advisory lock not released")
	}

	// identical state inside the cooldown window sends nothing new
	again, err := h.svc.Sweep(context.Background(), bucket.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if again.Alerts != 0 || len(h.notifier.notes) != 2 {
		t.Fatalf("cooldown ignored: %+v", again)
	}
}

func TestSweepMarginThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.NotifyGo = false
	cfg.Alerting.MinArbMarginPct = 99

	h := newHarness(t, cfg,
		listing("B000TEST01", "us", "USD", "29.99"),
		listing("B000TEST01", "uk", "GBP", "12.00"),
	)
	summary, err := h.svc.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Opportunities != 1 || summary.Alerts != 0 || len(h.notifier.notes) != 0 {
		t.Fatalf("summary = %+v notes = %d", summary, len(h.notifier.notes))
	}
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	h := newHarness(t, testConfig(), listing("B000TEST01", "us", "USD", "29.99"))
	h.locker.acquired = false

	summary, err := h.svc.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Skipped || h.snapshots.calls != 0 {
		t.Fatalf("sweep ran without the lock: %+v", summary)
	}
}

func TestSweepNotifierFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, testConfig(), listing("B000TEST01", "us", "USD", "29.99"))
	h.notifier.err = errors.New("telegram down")

	summary, err := h.svc.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if summary.GoVerdicts != 1 || summary.Alerts != 0 || len(h.alerts.records) != 0 {
		t.Fatalf("summary = %+v records = %d", summary, len(h.alerts.records))
	}
}

func TestAnalyzeKeepsInputOrderAndCountsFailures(t *testing.T) {
	h := newHarness(t, testConfig())
	first := listing("B000AAAAA1", "us", "USD", "10.00").Snapshot
	second := listing("B000BBBBB2", "us", "USD", "50.00").Snapshot

	reports, failed, err := h.svc.Analyze(context.Background(), []*product.Snapshot{first, nil, second}, false)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 || len(reports) != 2 {
		t.Fatalf("failed = %d reports = %d", failed, len(reports))
	}
	if reports[0].ASIN != "B000AAAAA1" || reports[1].ASIN != "B000BBBBB2" {
		t.Fatalf("order = %s, %s", reports[0].ASIN, reports[1].ASIN)
	}
	if len(h.reports.saved) != 0 {
		t.Fatal("reports saved without save flag")
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := h.svc.Analyze(ctx, []*product.Snapshot{listing("B000TEST01", "us", "USD", "29.99").Snapshot}, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReanalyzeBetween(t *testing.T) {
	h := newHarness(t, testConfig(),
		listing("B000TEST01", "us", "USD", "29.99"),
		listing("B000TEST01", "uk", "GBP", "12.00"),
	)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	summary, err := h.svc.ReanalyzeBetween(context.Background(), from, from.AddDate(0, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Analyzed != 2 || len(h.reports.saved) != 2 || len(h.notifier.notes) != 0 {
		t.Fatalf("summary = %+v saved = %d notes = %d", summary, len(h.reports.saved), len(h.notifier.notes))
	}
	if _, err := h.svc.ReanalyzeBetween(context.Background(), from, from); err == nil {
		t.Fatal("empty window must fail")
	}
}

func TestNewRequiresEngine(t *testing.T) {
	if _, err := New(testConfig(), Deps{}, zerolog.Nop()); err == nil {
		t.Fatal("missing engine must fail")
	}
}
