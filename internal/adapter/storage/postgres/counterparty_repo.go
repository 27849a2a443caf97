package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CounterpartyRepo implements ports.CounterpartyRepository.
type CounterpartyRepo struct {
	pool Pool
}

// NewCounterpartyRepo creates a new CounterpartyRepo.
func NewCounterpartyRepo(pool Pool) *CounterpartyRepo {
	return &CounterpartyRepo{pool: pool}
}

// Exists reports whether owner has completed a transfer to counterparty before.
func (r *CounterpartyRepo) Exists(ctx context.Context, ownerID, counterpartyID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM counterparties WHERE owner_id = $1 AND counterparty_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, ownerID, counterpartyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check counterparty: %w", err)
	}
	return exists, nil
}

// Record bumps the pair's transfer count, creating it on first sight.
func (r *CounterpartyRepo) Record(ctx context.Context, ownerID, counterpartyID uuid.UUID, at time.Time) error {
	query := `INSERT INTO counterparties (owner_id, counterparty_id, transfer_count, first_seen_at, last_seen_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (owner_id, counterparty_id) DO UPDATE
		SET transfer_count = counterparties.transfer_count + 1, last_seen_at = EXCLUDED.last_seen_at`

	if _, err := r.pool.Exec(ctx, query, ownerID, counterpartyID, at); err != nil {
		return fmt.Errorf("record counterparty: %w", err)
	}
	return nil
}
