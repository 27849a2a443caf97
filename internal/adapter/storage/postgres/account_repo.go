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

const accountColumns = `id, owner_id, currency, role, is_primary, status, frozen_reason, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.OwnerID, a.Currency, a.Role, a.IsPrimary, a.Status,
		a.FrozenReason, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by UUID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByOwnerAndCurrency fetches the owner's account in the given currency.
func (r *AccountRepo) GetByOwnerAndCurrency(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 AND currency = $2`
	return scanAccount(r.pool.QueryRow(ctx, query, ownerID, currency))
}

// GetPrimary fetches the owner's primary account.
func (r *AccountRepo) GetPrimary(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 AND is_primary`
	return scanAccount(r.pool.QueryRow(ctx, query, ownerID))
}

// GetByIDForUpdate fetches an account with a row-level lock (SELECT ... FOR UPDATE).
// Must be called within a transaction. Every balance re-check happens under this lock.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

// SetStatusByOwner freezes or unfreezes every account of an owner.
func (r *AccountRepo) SetStatusByOwner(ctx context.Context, ownerID uuid.UUID, status domain.AccountStatus, reason *string) (int64, error) {
	query := `UPDATE accounts SET status = $1, frozen_reason = $2, updated_at = $3 WHERE owner_id = $4`

	tag, err := r.pool.Exec(ctx, query, status, reason, time.Now().UTC(), ownerID)
	if err != nil {
		return 0, fmt.Errorf("update account status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.Currency, &a.Role, &a.IsPrimary, &a.Status,
		&a.FrozenReason, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
