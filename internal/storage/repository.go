package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
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
	executionColumns = `
        id,
        started_at,
        duration_ms,
        chain_id::TEXT,
        oracle,
        user_address,
        currency,
        last_updated,
        next_update,
        stale,
        price_usd::TEXT,
        price::TEXT,
        call_data,
        task_id,
        can_exec,
        message,
        created_at`

	insertExecutionSQL = `INSERT INTO executions (
        started_at,
        duration_ms,
        chain_id,
        oracle,
        user_address,
        currency,
        last_updated,
        next_update,
        stale,
        price_usd,
        price,
        call_data,
        task_id,
        can_exec,
        message
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10::NUMERIC,$11::NUMERIC,$12,$13,$14,$15
    )
    RETURNING id, created_at;`

	listExecutionsBetweenSQL = `SELECT` + executionColumns + `
    FROM executions
    WHERE started_at >= $1
      AND started_at < $2
    ORDER BY started_at;`

	listRecentExecutionsSQL = `SELECT` + executionColumns + `
    FROM executions
    ORDER BY started_at DESC
    LIMIT $1;`

	countExecutionsSQL = `SELECT COUNT(*) FROM executions;`

	deleteExecutionsBeforeSQL = `DELETE FROM executions WHERE started_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ExecutionStore defines operations for invocation history.
type ExecutionStore interface {
	InsertExecution(ctx context.Context, exec Execution) (Execution, error)
	ListExecutionsBetween(ctx context.Context, from, to time.Time) ([]Execution, error)
	ListRecentExecutions(ctx context.Context, limit int) ([]Execution, error)
	CountExecutions(ctx context.Context) (int64, error)
	DeleteExecutionsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store provides access to execution history.
type Store struct {
	pool *pgxpool.Pool
}

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
		// best effort; the lock is dropped with the session anyway
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

// InsertExecution persists an invocation record.
func (s *Store) InsertExecution(ctx context.Context, exec Execution) (Execution, error) {
	pool, err := s.getPool()
	if err != nil {
		return Execution{}, err
	}

	row := pool.QueryRow(ctx, insertExecutionSQL,
		exec.StartedAt,
		exec.Duration.Milliseconds(),
		nullableInt(exec.ChainID),
		exec.Oracle,
		exec.UserAddress,
		exec.Currency,
		nullableInt(exec.LastUpdated),
		nullableInt(exec.NextUpdate),
		exec.Stale,
		nullableDecimal(exec.PriceUSD),
		nullableDecimal(exec.Price),
		exec.CallData,
		nullableString(exec.TaskID),
		exec.CanExec,
		nullableString(exec.Message),
	)
	if scanErr := row.Scan(&exec.ID, &exec.CreatedAt); scanErr != nil {
		return Execution{}, fmt.Errorf("insert execution: %w", scanErr)
	}
	return exec, nil
}

// ListExecutionsBetween lists executions started within a time window.
func (s *Store) ListExecutionsBetween(ctx context.Context, from, to time.Time) ([]Execution, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listExecutionsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list executions between: %w", queryErr)
	}
	defer rows.Close()

	return collectExecutions(rows, 0)
}

// ListRecentExecutions lists the most recent executions, newest first.
func (s *Store) ListRecentExecutions(ctx context.Context, limit int) ([]Execution, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentExecutionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent executions: %w", queryErr)
	}
	defer rows.Close()

	return collectExecutions(rows, limit)
}

// CountExecutions counts stored executions.
func (s *Store) CountExecutions(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countExecutionsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count executions: %w", scanErr)
	}
	return count, nil
}

// DeleteExecutionsBefore prunes history older than olderThan.
func (s *Store) DeleteExecutionsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, deleteExecutionsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete executions before: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

func collectExecutions(rows pgx.Rows, capacity int) ([]Execution, error) {
	executions := make([]Execution, 0, capacity)
	for rows.Next() {
		exec, scanErr := scanExecution(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		executions = append(executions, exec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return executions, nil
}

func scanExecution(rows pgx.Rows) (Execution, error) {
	var (
		exec        Execution
		durationMS  int64
		chainID     sql.NullString
		lastUpdated sql.NullInt64
		nextUpdate  sql.NullInt64
		priceUSD    sql.NullString
		price       sql.NullString
		taskID      sql.NullString
		message     sql.NullString
	)

	if err := rows.Scan(
		&exec.ID,
		&exec.StartedAt,
		&durationMS,
		&chainID,
		&exec.Oracle,
		&exec.UserAddress,
		&exec.Currency,
		&lastUpdated,
		&nextUpdate,
		&exec.Stale,
		&priceUSD,
		&price,
		&exec.CallData,
		&taskID,
		&exec.CanExec,
		&message,
		&exec.CreatedAt,
	); err != nil {
		return Execution{}, err
	}

	exec.Duration = time.Duration(durationMS) * time.Millisecond

	if chainID.Valid {
		v, err := strconv.ParseInt(chainID.String, 10, 64)
		if err != nil {
			return Execution{}, fmt.Errorf("parse chain id: %w", err)
		}
		exec.ChainID = &v
	}
	if lastUpdated.Valid {
		v := lastUpdated.Int64
		exec.LastUpdated = &v
	}
	if nextUpdate.Valid {
		v := nextUpdate.Int64
		exec.NextUpdate = &v
	}

	var err error
	if exec.PriceUSD, err = parseNullDecimal(priceUSD); err != nil {
		return Execution{}, fmt.Errorf("parse price usd: %w", err)
	}
	if exec.Price, err = parseNullDecimal(price); err != nil {
		return Execution{}, fmt.Errorf("parse price: %w", err)
	}
	if taskID.Valid {
		v := taskID.String
		exec.TaskID = &v
	}
	if message.Valid {
		v := message.String
		exec.Message = &v
	}

	return exec, nil
}

func parseNullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullableInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDecimal(v *decimal.Decimal) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

var (
	_ ExecutionStore = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
