package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Insert claims (key, route). The primary key makes this the single arbiter
// between concurrent first attempts.
func (r *IdempotencyRepo) Insert(ctx context.Context, rec *domain.IdempotencyRecord) error {
	query := `INSERT INTO idempotency_records (key, route, owner_id, request_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		rec.Key, rec.Route, rec.OwnerID, rec.RequestHash, rec.Status, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

// Get fetches an idempotency record by key and route.
func (r *IdempotencyRepo) Get(ctx context.Context, key, route string) (*domain.IdempotencyRecord, error) {
	query := `SELECT key, route, owner_id, request_hash, status, result, error, created_at, updated_at
		FROM idempotency_records WHERE key = $1 AND route = $2`

	rec := &domain.IdempotencyRecord{}
	err := r.pool.QueryRow(ctx, query, key, route).Scan(
		&rec.Key, &rec.Route, &rec.OwnerID, &rec.RequestHash, &rec.Status,
		&rec.Result, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return rec, nil
}

// Complete stores the final result.
func (r *IdempotencyRepo) Complete(ctx context.Context, key, route string, result []byte) error {
	query := `UPDATE idempotency_records SET status = $1, result = $2, error = NULL, updated_at = $3
		WHERE key = $4 AND route = $5`

	if _, err := r.pool.Exec(ctx, query, domain.IdempotencyCompleted, result, time.Now().UTC(), key, route); err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	return nil
}

// Fail marks the attempt failed so a retry with the same payload may reclaim it.
func (r *IdempotencyRepo) Fail(ctx context.Context, key, route string, reason string, result []byte) error {
	query := `UPDATE idempotency_records SET status = $1, result = $2, error = $3, updated_at = $4
		WHERE key = $5 AND route = $6`

	if _, err := r.pool.Exec(ctx, query, domain.IdempotencyFailed, result, reason, time.Now().UTC(), key, route); err != nil {
		return fmt.Errorf("fail idempotency record: %w", err)
	}
	return nil
}

// Reclaim moves a failed record back to processing. The status predicate
// lets only one concurrent retry win.
func (r *IdempotencyRepo) Reclaim(ctx context.Context, key, route, requestHash string) (bool, error) {
	query := `UPDATE idempotency_records SET status = $1, result = NULL, error = NULL, updated_at = $2
		WHERE key = $3 AND route = $4 AND request_hash = $5 AND status = $6`

	tag, err := r.pool.Exec(ctx, query,
		domain.IdempotencyProcessing, time.Now().UTC(), key, route, requestHash, domain.IdempotencyFailed,
	)
	if err != nil {
		return false, fmt.Errorf("reclaim idempotency record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReclaimStale takes over a processing record whose lease ran out.
func (r *IdempotencyRepo) ReclaimStale(ctx context.Context, key, route, requestHash string, staleBefore time.Time) (bool, error) {
	query := `UPDATE idempotency_records SET updated_at = $1
		WHERE key = $2 AND route = $3 AND request_hash = $4 AND status = $5 AND updated_at < $6`

	tag, err := r.pool.Exec(ctx, query,
		time.Now().UTC(), key, route, requestHash, domain.IdempotencyProcessing, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("reclaim stale idempotency record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
