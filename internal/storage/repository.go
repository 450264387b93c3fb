package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertLogSQL = `INSERT INTO alert_log (
        received_at,
        alert_name,
        scan_name,
        triggered_at,
        symbols,
        message,
        success,
        error,
        analysis
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id, created_at;`

	listRecentAlertLogsSQL = `SELECT
        id,
        received_at,
        alert_name,
        scan_name,
        triggered_at,
        symbols,
        message,
        success,
        error,
        analysis,
        created_at
    FROM alert_log
    ORDER BY received_at DESC
    LIMIT $1;`

	listSymbolReturnsSQL = `SELECT
        received_at,
        (analysis #>> ARRAY[$1,'returns','one_day'])::float8,
        (analysis #>> ARRAY[$1,'returns','three_day'])::float8,
        (analysis #>> ARRAY[$1,'returns','one_week'])::float8
    FROM alert_log
    WHERE analysis ? $1
      AND received_at >= $2
      AND received_at < $3
    ORDER BY received_at;`

	deleteAlertLogsBeforeSQL = `DELETE FROM alert_log WHERE received_at < $1;`

	countAlertLogsSQL = `SELECT COUNT(*) FROM alert_log;`
)

// AlertLogStore persists processed alerts for auditing and export.
type AlertLogStore interface {
	InsertAlertLog(ctx context.Context, record AlertLog) (AlertLog, error)
}

// Store wraps the PostgreSQL pool with typed queries.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store around an initialised pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertAlertLog appends one processed alert to the history.
func (s *Store) InsertAlertLog(ctx context.Context, record AlertLog) (AlertLog, error) {
	if s.pool == nil {
		return AlertLog{}, ErrNotConfigured
	}

	row := s.pool.QueryRow(ctx, insertAlertLogSQL,
		record.ReceivedAt,
		record.AlertName,
		record.ScanName,
		record.TriggeredAt,
		record.Symbols,
		record.Message,
		record.Success,
		record.Error,
		record.Analysis,
	)

	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return AlertLog{}, fmt.Errorf("insert alert log: %w", err)
	}
	return record, nil
}

// ListRecentAlertLogs returns the newest entries first.
func (s *Store) ListRecentAlertLogs(ctx context.Context, limit int) ([]AlertLog, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, listRecentAlertLogsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list alert logs: %w", err)
	}
	defer rows.Close()

	var logs []AlertLog
	for rows.Next() {
		var record AlertLog
		if err := rows.Scan(
			&record.ID,
			&record.ReceivedAt,
			&record.AlertName,
			&record.ScanName,
			&record.TriggeredAt,
			&record.Symbols,
			&record.Message,
			&record.Success,
			&record.Error,
			&record.Analysis,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert log: %w", err)
		}
		logs = append(logs, record)
	}
	return logs, rows.Err()
}

// ListSymbolReturns extracts the stored return history for one symbol
// within [from, to).
func (s *Store) ListSymbolReturns(ctx context.Context, symbol string, from, to time.Time) ([]SymbolReturnPoint, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := s.pool.Query(ctx, listSymbolReturnsSQL, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("list symbol returns: %w", err)
	}
	defer rows.Close()

	var points []SymbolReturnPoint
	for rows.Next() {
		var point SymbolReturnPoint
		if err := rows.Scan(&point.At, &point.OneDay, &point.ThreeDay, &point.OneWeek); err != nil {
			return nil, fmt.Errorf("scan symbol return: %w", err)
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

// DeleteAlertLogsBefore purges history older than cutoff and reports how
// many rows were removed.
func (s *Store) DeleteAlertLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.pool == nil {
		return 0, ErrNotConfigured
	}

	tag, err := s.pool.Exec(ctx, deleteAlertLogsBeforeSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete alert logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountAlertLogs returns the total number of stored alerts.
func (s *Store) CountAlertLogs(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, ErrNotConfigured
	}

	var count int64
	if err := s.pool.QueryRow(ctx, countAlertLogsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count alert logs: %w", err)
	}
	return count, nil
}

var _ AlertLogStore = (*Store)(nil)
