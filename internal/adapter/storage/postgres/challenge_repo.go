package postgres

import (
	"context"
	"errors"
	"fmt"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChallengeRepo implements ports.ChallengeRepository.
type ChallengeRepo struct {
	pool Pool
}

// NewChallengeRepo creates a new ChallengeRepo.
func NewChallengeRepo(pool Pool) *ChallengeRepo {
	return &ChallengeRepo{pool: pool}
}

// Create inserts a pending challenge.
func (r *ChallengeRepo) Create(ctx context.Context, c *domain.Challenge) error {
	query := `INSERT INTO challenges (id, owner_id, purpose, code_hash, encrypted_payload, binding,
		status, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.OwnerID, c.Purpose, c.CodeHash, c.EncryptedPayload, c.Binding,
		c.Status, c.Attempts, c.ExpiresAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

// GetByIDForUpdate locks the challenge row so two consumers cannot both win.
func (r *ChallengeRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Challenge, error) {
	query := `SELECT id, owner_id, purpose, code_hash, encrypted_payload, binding,
		status, attempts, expires_at, created_at, consumed_at
		FROM challenges WHERE id = $1 FOR UPDATE`

	c := &domain.Challenge{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.OwnerID, &c.Purpose, &c.CodeHash, &c.EncryptedPayload, &c.Binding,
		&c.Status, &c.Attempts, &c.ExpiresAt, &c.CreatedAt, &c.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan challenge: %w", err)
	}
	return c, nil
}

// Update persists status, attempts and consumption time.
func (r *ChallengeRepo) Update(ctx context.Context, tx pgx.Tx, c *domain.Challenge) error {
	query := `UPDATE challenges SET status = $1, attempts = $2, consumed_at = $3 WHERE id = $4`

	tag, err := tx.Exec(ctx, query, c.Status, c.Attempts, c.ConsumedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("challenge not found: %s", c.ID)
	}
	return nil
}
