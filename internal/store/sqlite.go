package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// SQLiteStore implements HistoryStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the history database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, dbError("open database", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store, err := NewSQLiteStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStoreWithDB wraps an existing handle and ensures the schema.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		return nil, dbError("initialize schema", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per screening run
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		as_of DATETIME NOT NULL,
		spot_price REAL NOT NULL,
		max_days INTEGER NOT NULL,
		params TEXT NOT NULL,
		expirations INTEGER NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		candidates INTEGER NOT NULL,
		selected INTEGER NOT NULL,
		has_earnings INTEGER DEFAULT 0,
		duration_ns INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	-- Selected condors of a run, in rank order
	CREATE TABLE IF NOT EXISTS scan_condors (
		scan_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		expiration TEXT NOT NULL,
		call_sell REAL NOT NULL,
		call_buy REAL NOT NULL,
		put_sell REAL NOT NULL,
		put_buy REAL NOT NULL,
		net_credit REAL NOT NULL,
		max_profit REAL NOT NULL,
		max_loss REAL NOT NULL,
		zone_lower REAL NOT NULL,
		zone_upper REAL NOT NULL,
		probability REAL NOT NULL,
		risk_reward REAL NOT NULL,
		days_to_expiration INTEGER NOT NULL,
		spot_price REAL NOT NULL,
		PRIMARY KEY (scan_id, rank),
		FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_scans_symbol ON scans(symbol, as_of);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// dbError tags err with ErrDatabaseError while keeping the driver error in the chain.
func dbError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, errors.ErrDatabaseError, err)
}

// SaveScan stores a run and its condors atomically. An empty ID is
// replaced with a new UUID.
func (s *SQLiteStore) SaveScan(ctx context.Context, rec *ScanRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	hasEarnings := 0
	if rec.HasEarnings {
		hasEarnings = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, symbol, as_of, spot_price, max_days, params, expirations, skipped, candidates, selected, has_earnings, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Symbol, rec.AsOf.UTC(), rec.SpotPrice, rec.MaxDays, string(params), rec.Expirations, rec.Skipped,
		rec.Candidates, rec.Selected, hasEarnings, rec.Duration.Nanoseconds(), rec.CreatedAt)
	if err != nil {
		return dbError("insert scan", err)
	}

	for i, ic := range rec.Condors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_condors (scan_id, rank, expiration, call_sell, call_buy, put_sell, put_buy, net_credit, max_profit, max_loss, zone_lower, zone_upper, probability, risk_reward, days_to_expiration, spot_price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, i+1, ic.Expiration.Format(models.DateLayout),
			ic.CallSpread.Sell, ic.CallSpread.Buy, ic.PutSpread.Sell, ic.PutSpread.Buy,
			ic.NetCredit, ic.MaxProfit, ic.MaxLoss, ic.ProfitZone.Lower, ic.ProfitZone.Upper,
			ic.ProbabilityOfProfit, ic.RiskReward, ic.DaysToExpiration, ic.SpotPrice)
		if err != nil {
			return dbError("insert condor", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return dbError("commit transaction", err)
	}
	return nil
}

const scanColumns = "id, symbol, as_of, spot_price, max_days, params, expirations, skipped, candidates, selected, has_earnings, duration_ns, created_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (ScanRecord, error) {
	var rec ScanRecord
	var params string
	var hasEarnings int
	var durationNs int64

	err := row.Scan(&rec.ID, &rec.Symbol, &rec.AsOf, &rec.SpotPrice, &rec.MaxDays, &params, &rec.Expirations,
		&rec.Skipped, &rec.Candidates, &rec.Selected, &hasEarnings, &durationNs, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
		return rec, fmt.Errorf("failed to decode params of scan %s: %w", rec.ID, err)
	}
	rec.HasEarnings = hasEarnings == 1
	rec.Duration = time.Duration(durationNs)
	return rec, nil
}

// ListScans returns run summaries, newest first. Condors are not loaded.
func (s *SQLiteStore) ListScans(ctx context.Context, filter ScanFilter) ([]ScanRecord, error) {
	query := "SELECT " + scanColumns + " FROM scans WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += " AND as_of >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY as_of DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("query scans", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, dbError("scan row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate scans", err)
	}
	return records, nil
}

// GetScan loads one run with its condors in rank order.
func (s *SQLiteStore) GetScan(ctx context.Context, id string) (*ScanRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+scanColumns+" FROM scans WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewDataError("scan", id, "no such scan", errors.ErrDataNotFound)
	}
	if err != nil {
		return nil, dbError("get scan", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT expiration, call_sell, call_buy, put_sell, put_buy, net_credit, max_profit, max_loss,
		       zone_lower, zone_upper, probability, risk_reward, days_to_expiration, spot_price
		FROM scan_condors
		WHERE scan_id = ?
		ORDER BY rank ASC
	`, id)
	if err != nil {
		return nil, dbError("query condors", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ic models.IronCondor
		var expiration string
		if err := rows.Scan(&expiration, &ic.CallSpread.Sell, &ic.CallSpread.Buy, &ic.PutSpread.Sell, &ic.PutSpread.Buy,
			&ic.NetCredit, &ic.MaxProfit, &ic.MaxLoss, &ic.ProfitZone.Lower, &ic.ProfitZone.Upper,
			&ic.ProbabilityOfProfit, &ic.RiskReward, &ic.DaysToExpiration, &ic.SpotPrice); err != nil {
			return nil, dbError("scan condor", err)
		}
		if ic.Expiration, err = utils.ParseDate(expiration); err != nil {
			return nil, errors.NewDataError("scan", id, "bad expiration "+expiration, err)
		}
		rec.Condors = append(rec.Condors, ic)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate condors", err)
	}
	return &rec, nil
}

// DeleteScansBefore removes runs evaluated before the cutoff and returns
// how many were removed.
func (s *SQLiteStore) DeleteScansBefore(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, dbError("begin transaction", err)
	}
	defer tx.Rollback()

	cutoff := before.UTC()
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM scan_condors WHERE scan_id IN (SELECT id FROM scans WHERE as_of < ?)
	`, cutoff); err != nil {
		return 0, dbError("delete condors", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM scans WHERE as_of < ?", cutoff)
	if err != nil {
		return 0, dbError("delete scans", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError("count deleted scans", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, dbError("commit transaction", err)
	}
	return n, nil
}
