package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/product"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("storage: not found")
)

const (
	upsertSnapshotSQL = `INSERT INTO snapshots (
        asin,
        marketplace,
        captured_on,
        captured_at,
        data_quality,
        payload
    ) VALUES (
        $1,$2,($3::timestamptz AT TIME ZONE 'UTC')::date,$3,$4,$5
    )
    ON CONFLICT (asin, marketplace, captured_on) DO UPDATE
    SET
        captured_at  = EXCLUDED.captured_at,
        data_quality = EXCLUDED.data_quality,
        payload      = EXCLUDED.payload
    RETURNING id;`

	latestSnapshotSQL = `SELECT id, asin, marketplace, captured_at, payload
    FROM snapshots
    WHERE asin = $1 AND marketplace = $2
    ORDER BY captured_at DESC
    LIMIT 1;`

	latestSnapshotsForASINSQL = `SELECT DISTINCT ON (marketplace)
        id, asin, marketplace, captured_at, payload
    FROM snapshots
    WHERE asin = $1
    ORDER BY marketplace, captured_at DESC;`

	listLatestSnapshotsSQL = `SELECT id, asin, marketplace, captured_at, payload
    FROM (
        SELECT DISTINCT ON (asin, marketplace)
            id, asin, marketplace, captured_at, payload
        FROM snapshots
        ORDER BY asin, marketplace, captured_at DESC
    ) latest
    ORDER BY asin, marketplace
    LIMIT $1;`

	listSnapshotsBetweenSQL = `SELECT id, asin, marketplace, captured_at, payload
    FROM snapshots
    WHERE captured_at >= $1
      AND captured_at < $2
    ORDER BY captured_at, asin, marketplace;`

	insertReportSQL = `INSERT INTO reports (
        id,
        asin,
        marketplace,
        overall_verdict,
        recommended_model,
        net_profit,
        roi_pct,
        margin_pct,
        pl_score,
        risk_score,
        data_quality,
        engine_version,
        analyzed_at,
        payload
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
    )
    ON CONFLICT (id) DO NOTHING;`

	reportColumns = `id,
        asin,
        marketplace,
        overall_verdict,
        recommended_model,
        net_profit,
        roi_pct,
        margin_pct,
        pl_score,
        risk_score,
        data_quality,
        engine_version,
        analyzed_at,
        payload`

	listRecentReportsSQL = `SELECT ` + reportColumns + `
    FROM reports
    ORDER BY analyzed_at DESC
    LIMIT $1;`

	listReportsForASINSQL = `SELECT ` + reportColumns + `
    FROM reports
    WHERE asin = $1
    ORDER BY analyzed_at DESC
    LIMIT $2;`

	listReportsBetweenSQL = `SELECT ` + reportColumns + `
    FROM reports
    WHERE analyzed_at >= $1
      AND analyzed_at < $2
    ORDER BY analyzed_at;`

	statsSQL = `SELECT
        (SELECT COUNT(*) FROM snapshots),
        (SELECT COUNT(DISTINCT asin) FROM snapshots),
        (SELECT COUNT(DISTINCT marketplace) FROM snapshots),
        (SELECT COUNT(*) FROM reports),
        (SELECT COUNT(*) FROM alerts),
        (SELECT MAX(analyzed_at) FROM reports);`

	verdictCountsSQL = `SELECT overall_verdict, COUNT(*)
    FROM reports
    GROUP BY overall_verdict;`

	insertAlertSQL = `INSERT INTO alerts (
        kind,
        dedupe_key,
        asin,
        message
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, kind, dedupe_key, asin, message, created_at;`

	listRecentAlertsSQL = `SELECT id, kind, dedupe_key, asin, message, created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore persists dated product snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *product.Snapshot) (int64, error)
	LatestSnapshot(ctx context.Context, asin, marketplace string) (StoredSnapshot, error)
	LatestSnapshotsForASIN(ctx context.Context, asin string) ([]StoredSnapshot, error)
	ListLatestSnapshots(ctx context.Context, limit int) ([]StoredSnapshot, error)
	ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]StoredSnapshot, error)
}

// ReportStore persists analysis reports.
type ReportStore interface {
	SaveReport(ctx context.Context, r *analysis.Report) error
	ListRecentReports(ctx context.Context, limit int) ([]ReportRecord, error)
	ListReportsForASIN(ctx context.Context, asin string, limit int) ([]ReportRecord, error)
	ListReportsBetween(ctx context.Context, from, to time.Time) ([]ReportRecord, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// closing the session drops the lock; the pool discards closed conns
			_ = conn.Conn().Close(ctxUnlock)
		}
		conn.Release()
	}
	return unlock, true, nil
}

// SaveSnapshot upserts the snapshot for its (asin, marketplace, UTC day) slot.
// A zero CapturedAt is stamped with the current time.
func (s *Store) SaveSnapshot(ctx context.Context, snap *product.Snapshot) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if err := snap.Validate(); err != nil {
		return 0, err
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}

	var quality interface{}
	if snap.DataQualityScore.Valid {
		quality = decimal.NewFromFloat(snap.DataQualityScore.Value).String()
	}

	var id int64
	if err := pool.QueryRow(ctx, upsertSnapshotSQL,
		snap.ASIN(),
		snap.Marketplace,
		snap.CapturedAt,
		quality,
		payload,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("save snapshot %s: %w", snap.ASIN(), err)
	}
	return id, nil
}

// LatestSnapshot returns the most recent snapshot of asin in one marketplace.
func (s *Store) LatestSnapshot(ctx context.Context, asin, marketplace string) (StoredSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return StoredSnapshot{}, err
	}
	rows, err := pool.Query(ctx, latestSnapshotSQL, strings.ToUpper(asin), product.NormalizeMarketplace(marketplace))
	if err != nil {
		return StoredSnapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	snapshots, err := collectSnapshots(rows)
	if err != nil {
		return StoredSnapshot{}, err
	}
	if len(snapshots) == 0 {
		return StoredSnapshot{}, fmt.Errorf("%w: snapshot %s/%s", ErrNotFound, marketplace, asin)
	}
	return snapshots[0], nil
}

// LatestSnapshotsForASIN returns the newest snapshot of asin per marketplace.
func (s *Store) LatestSnapshotsForASIN(ctx context.Context, asin string) ([]StoredSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, latestSnapshotsForASINSQL, strings.ToUpper(asin))
	if err != nil {
		return nil, fmt.Errorf("latest snapshots for %s: %w", asin, err)
	}
	return collectSnapshots(rows)
}

// ListLatestSnapshots returns the newest snapshot of every (asin, marketplace) pair.
func (s *Store) ListLatestSnapshots(ctx context.Context, limit int) ([]StoredSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, listLatestSnapshotsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list latest snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

// ListSnapshotsBetween lists snapshots captured within [from, to).
func (s *Store) ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]StoredSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, listSnapshotsBetweenSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("list snapshots between: %w", err)
	}
	return collectSnapshots(rows)
}

// SaveReport persists a report. Saving the same report twice is a no-op.
func (s *Store) SaveReport(ctx context.Context, r *analysis.Report) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if r == nil {
		return errors.New("save report: nil report")
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	rec := RecordFromReport(r)
	var recommended interface{}
	if rec.RecommendedModel != nil {
		recommended = string(*rec.RecommendedModel)
	}

	if _, err := pool.Exec(ctx, insertReportSQL,
		rec.ID,
		rec.ASIN,
		rec.Marketplace,
		string(rec.Overall),
		recommended,
		rec.NetProfit.String(),
		rec.ROIPct.String(),
		rec.MarginPct.String(),
		rec.PLScore,
		rec.RiskScore,
		rec.DataQuality.String(),
		rec.EngineVersion,
		rec.AnalyzedAt,
		payload,
	); err != nil {
		return fmt.Errorf("save report %s: %w", rec.ASIN, err)
	}
	return nil
}

// ListRecentReports lists the most recent reports.
func (s *Store) ListRecentReports(ctx context.Context, limit int) ([]ReportRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, listRecentReportsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent reports: %w", err)
	}
	return collectReports(rows)
}

// ListReportsForASIN lists reports of one item, newest first.
func (s *Store) ListReportsForASIN(ctx context.Context, asin string, limit int) ([]ReportRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, listReportsForASINSQL, strings.ToUpper(asin), limit)
	if err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", asin, err)
	}
	return collectReports(rows)
}

// ListReportsBetween lists reports analysed within [from, to), oldest first.
func (s *Store) ListReportsBetween(ctx context.Context, from, to time.Time) ([]ReportRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, listReportsBetweenSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("list reports between: %w", err)
	}
	return collectReports(rows)
}

// Stats summarises table contents.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	pool, err := s.getPool()
	if err != nil {
		return Stats{}, err
	}

	var (
		st   Stats
		last *time.Time
	)
	if err := pool.QueryRow(ctx, statsSQL).Scan(
		&st.Snapshots,
		&st.Items,
		&st.Marketplaces,
		&st.Reports,
		&st.Alerts,
		&last,
	); err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	st.LastAnalyzedAt = last

	rows, err := pool.Query(ctx, verdictCountsSQL)
	if err != nil {
		return Stats{}, fmt.Errorf("verdict counts: %w", err)
	}
	defer rows.Close()

	st.ByVerdict = make(map[analysis.Decision]int64)
	for rows.Next() {
		var (
			verdict string
			count   int64
		)
		if err := rows.Scan(&verdict, &count); err != nil {
			return Stats{}, err
		}
		st.ByVerdict[analysis.Decision(verdict)] = count
	}
	if rows.Err() != nil {
		return Stats{}, rows.Err()
	}
	return st, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	var rec AlertRecord
	if err := pool.QueryRow(ctx, insertAlertSQL,
		alert.Kind,
		alert.DedupeKey,
		alert.ASIN,
		alert.Message,
	).Scan(
		&rec.ID,
		&rec.Kind,
		&rec.DedupeKey,
		&rec.ASIN,
		&rec.Message,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", err)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRecentAlertsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Kind,
			&rec.DedupeKey,
			&rec.ASIN,
			&rec.Message,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); err != nil {
		return fmt.Errorf("delete alerts before: %w", err)
	}
	return nil
}

func collectSnapshots(rows pgx.Rows) ([]StoredSnapshot, error) {
	defer rows.Close()

	snapshots := make([]StoredSnapshot, 0)
	for rows.Next() {
		var (
			stored  StoredSnapshot
			payload []byte
		)
		if err := rows.Scan(
			&stored.ID,
			&stored.ASIN,
			&stored.Marketplace,
			&stored.CapturedAt,
			&payload,
		); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot(payload)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", stored.ID, err)
		}
		snap.Marketplace = stored.Marketplace
		snap.CapturedAt = stored.CapturedAt
		stored.Snapshot = snap
		snapshots = append(snapshots, stored)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

func decodeSnapshot(payload []byte) (*product.Snapshot, error) {
	var snap product.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func collectReports(rows pgx.Rows) ([]ReportRecord, error) {
	defer rows.Close()

	records := make([]ReportRecord, 0)
	for rows.Next() {
		var (
			rec         ReportRecord
			overall     string
			recommended *string
			netStr      string
			roiStr      string
			marginStr   string
			qualityStr  string
			payload     []byte
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.ASIN,
			&rec.Marketplace,
			&overall,
			&recommended,
			&netStr,
			&roiStr,
			&marginStr,
			&rec.PLScore,
			&rec.RiskScore,
			&qualityStr,
			&rec.EngineVersion,
			&rec.AnalyzedAt,
			&payload,
		); err != nil {
			return nil, err
		}

		rec.Overall = analysis.Decision(overall)
		if recommended != nil {
			model := analysis.Strategy(*recommended)
			rec.RecommendedModel = &model
		}

		var err error
		if rec.NetProfit, err = decimal.NewFromString(netStr); err != nil {
			return nil, fmt.Errorf("parse net profit: %w", err)
		}
		if rec.ROIPct, err = decimal.NewFromString(roiStr); err != nil {
			return nil, fmt.Errorf("parse roi: %w", err)
		}
		if rec.MarginPct, err = decimal.NewFromString(marginStr); err != nil {
			return nil, fmt.Errorf("parse margin: %w", err)
		}
		if rec.DataQuality, err = decimal.NewFromString(qualityStr); err != nil {
			return nil, fmt.Errorf("parse data quality: %w", err)
		}

		var report analysis.Report
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", rec.ID, err)
		}
		rec.Report = &report

		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}
