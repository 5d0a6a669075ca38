package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createDecisionsSQL = `CREATE TABLE IF NOT EXISTS decisions (
        id          BIGSERIAL PRIMARY KEY,
        run_id      UUID        NOT NULL,
        mode        TEXT        NOT NULL,
        hour_ts     TIMESTAMPTZ NOT NULL,
        channel     INTEGER     NOT NULL,
        identifier  TEXT        NOT NULL,
        state       TEXT        NOT NULL,
        reason      TEXT        NOT NULL,
        message     TEXT        NOT NULL,
        price_c_kwh NUMERIC,
        lower_limit INTEGER     NOT NULL,
        upper_limit INTEGER     NOT NULL,
        rank_n      INTEGER     NOT NULL,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (run_id, channel, hour_ts)
    );
    CREATE INDEX IF NOT EXISTS decisions_channel_created_idx ON decisions (channel, created_at DESC);`

	insertDecisionSQL = `INSERT INTO decisions (
        run_id,
        mode,
        hour_ts,
        channel,
        identifier,
        state,
        reason,
        message,
        price_c_kwh,
        lower_limit,
        upper_limit,
        rank_n
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
    )
    ON CONFLICT (run_id, channel, hour_ts) DO UPDATE
    SET state   = EXCLUDED.state,
        reason  = EXCLUDED.reason,
        message = EXCLUDED.message;`

	decisionColumns = `id,
        run_id::text,
        mode,
        hour_ts,
        channel,
        identifier,
        state,
        reason,
        message,
        price_c_kwh::text,
        lower_limit,
        upper_limit,
        rank_n,
        created_at`

	listRecentDecisionsSQL = `SELECT ` + decisionColumns + `
    FROM decisions
    ORDER BY created_at DESC, channel
    LIMIT $1;`

	latestDecisionsSQL = `SELECT DISTINCT ON (channel) ` + decisionColumns + `
    FROM decisions
    WHERE mode = $1
    ORDER BY channel, created_at DESC;`

	deleteDecisionsBeforeSQL = `DELETE FROM decisions WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// DecisionStore defines operations for decision persistence.
type DecisionStore interface {
	InsertDecisions(ctx context.Context, records []DecisionRecord) error
	ListRecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error)
	LatestDecisions(ctx context.Context, mode string) ([]DecisionRecord, error)
	DeleteDecisionsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store persists decisions in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ DecisionStore  = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the decisions table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createDecisionsSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
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
		// Releasing the connection ends the session, which drops the lock anyway.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertDecisions persists one run's decisions in a single batch.
func (s *Store) InsertDecisions(ctx context.Context, records []DecisionRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		var priceArg interface{}
		if rec.Price != nil {
			priceArg = rec.Price.String()
		}
		batch.Queue(insertDecisionSQL,
			rec.RunID,
			rec.Mode,
			rec.HourTS,
			rec.Channel,
			rec.Identifier,
			rec.State,
			rec.Reason,
			rec.Message,
			priceArg,
			rec.Lower,
			rec.Upper,
			rec.RankN,
		)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert decisions: %w", err)
	}
	return nil
}

// ListRecentDecisions lists the most recent decisions, newest first.
func (s *Store) ListRecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDecisionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent decisions: %w", queryErr)
	}
	return collectDecisions(rows)
}

// LatestDecisions returns the newest decision per channel for mode.
func (s *Store) LatestDecisions(ctx context.Context, mode string) ([]DecisionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestDecisionsSQL, mode)
	if queryErr != nil {
		return nil, fmt.Errorf("latest decisions: %w", queryErr)
	}
	return collectDecisions(rows)
}

// DeleteDecisionsBefore prunes history and reports the removed row count.
func (s *Store) DeleteDecisionsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, deleteDecisionsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete decisions before: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

func collectDecisions(rows pgx.Rows) ([]DecisionRecord, error) {
	defer rows.Close()

	records := make([]DecisionRecord, 0)
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanDecision(rows pgx.Rows) (DecisionRecord, error) {
	var (
		rec      DecisionRecord
		priceStr sql.NullString
	)
	if err := rows.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Mode,
		&rec.HourTS,
		&rec.Channel,
		&rec.Identifier,
		&rec.State,
		&rec.Reason,
		&rec.Message,
		&priceStr,
		&rec.Lower,
		&rec.Upper,
		&rec.RankN,
		&rec.CreatedAt,
	); err != nil {
		return DecisionRecord{}, err
	}

	if priceStr.Valid {
		p, err := decimal.NewFromString(priceStr.String)
		if err != nil {
			return DecisionRecord{}, fmt.Errorf("parse price: %w", err)
		}
		rec.Price = &p
	}
	return rec, nil
}
