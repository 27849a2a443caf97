package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transferColumns = `id, sender_owner_id, recipient_owner_id, from_account_id, to_account_id,
		amount, currency, converted_amount, to_currency, rate, fee, status, idempotency_key,
		risk_event_id, created_at, resolved_at`

// TransferRepo implements ports.TransferRepository.
type TransferRepo struct {
	pool Pool
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool Pool) *TransferRepo {
	return &TransferRepo{pool: pool}
}

// Create inserts a new transfer within a database transaction. The
// (sender_owner_id, idempotency_key) constraint turns a lost race into domain.ErrDuplicate.
func (r *TransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	query := `INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.SenderOwnerID, t.RecipientOwnerID, t.FromAccountID, t.ToAccountID,
		t.Amount, t.Currency, t.ConvertedAmount, t.ToCurrency, t.Rate, t.Fee, t.Status,
		t.IdempotencyKey, t.RiskEventID, t.CreatedAt, t.ResolvedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID fetches a transfer by UUID.
func (r *TransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	return scanTransfer(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey fetches the transfer a sender created under a client key.
func (r *TransferRepo) GetByIdempotencyKey(ctx context.Context, senderOwnerID uuid.UUID, key string) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE sender_owner_id = $1 AND idempotency_key = $2`
	return scanTransfer(r.pool.QueryRow(ctx, query, senderOwnerID, key))
}

// GetByIDForUpdate locks the transfer row for hold resolution.
func (r *TransferRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`
	return scanTransfer(tx.QueryRow(ctx, query, id))
}

// UpdateStatus moves a transfer to a terminal status within a database transaction.
func (r *TransferRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransferStatus, resolvedAt time.Time) error {
	query := `UPDATE transfers SET status = $1, resolved_at = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, status, resolvedAt, id)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transfer not found: %s", id)
	}
	return nil
}

// CountCompletedSince counts the sender's completed transfers created at or after since.
func (r *TransferRepo) CountCompletedSince(ctx context.Context, senderOwnerID uuid.UUID, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM transfers WHERE sender_owner_id = $1 AND status = 'completed' AND created_at >= $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, senderOwnerID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count completed transfers: %w", err)
	}
	return count, nil
}

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	t := &domain.Transfer{}
	err := row.Scan(
		&t.ID, &t.SenderOwnerID, &t.RecipientOwnerID, &t.FromAccountID, &t.ToAccountID,
		&t.Amount, &t.Currency, &t.ConvertedAmount, &t.ToCurrency, &t.Rate, &t.Fee, &t.Status,
		&t.IdempotencyKey, &t.RiskEventID, &t.CreatedAt, &t.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transfer: %w", err)
	}
	return t, nil
}
