package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// PostgresStore keeps records in the idempotency_records table so that
// several instances share one token space.
type PostgresStore struct {
	db    *sql.DB
	clock clockwork.Clock
	ttl   time.Duration
}

func NewPostgresStore(db *sql.DB, clock clockwork.Clock, ttl time.Duration) *PostgresStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{db: db, clock: clock, ttl: ttl}
}

func (s *PostgresStore) cutoff() time.Time {
	return s.clock.Now().Add(-s.ttl)
}

func (s *PostgresStore) Get(ctx context.Context, token string) (*Record, bool, error) {
	query := `
		SELECT token, status_code, content_type, body, created_at
		FROM idempotency_records
		WHERE token = $1 AND created_at > $2`

	var rec Record
	err := s.db.QueryRowContext(ctx, query, token, s.cutoff()).
		Scan(&rec.Token, &rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	return &rec, true, nil
}

// PutIfAbsent inserts rec, or replaces an expired row that has not been swept yet.
func (s *PostgresStore) PutIfAbsent(ctx context.Context, rec Record) (*Record, bool, error) {
	rec.CreatedAt = s.clock.Now()
	query := `
		INSERT INTO idempotency_records (token, status_code, content_type, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE
		SET status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at
		WHERE idempotency_records.created_at <= $6`

	result, err := s.db.ExecContext(ctx, query, rec.Token, rec.StatusCode, rec.ContentType, rec.Body, rec.CreatedAt, s.cutoff())
	if err != nil {
		return nil, false, fmt.Errorf("failed to store idempotency record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected > 0 {
		return &rec, true, nil
	}

	existing, ok, err := s.Get(ctx, rec.Token)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, fmt.Errorf("idempotency record %q vanished after conflict", rec.Token)
	}
	return existing, false, nil
}

func (s *PostgresStore) Sweep(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_records WHERE created_at <= $1`, s.cutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep idempotency records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(n), nil
}
