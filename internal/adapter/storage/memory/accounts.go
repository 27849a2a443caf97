package memory

import (
	"context"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	s *Store
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(s *Store) *AccountRepo {
	return &AccountRepo{s: s}
}

func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.ID == a.ID ||
			(existing.OwnerID == a.OwnerID && existing.Currency == a.Currency) ||
			(existing.OwnerID == a.OwnerID && existing.IsPrimary && a.IsPrimary) {
			return domain.ErrDuplicate
		}
	}
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(func(a domain.Account) bool { return a.ID == id }), nil
}

func (r *AccountRepo) GetByOwnerAndCurrency(_ context.Context, ownerID uuid.UUID, currency string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(func(a domain.Account) bool { return a.OwnerID == ownerID && a.Currency == currency }), nil
}

func (r *AccountRepo) GetPrimary(_ context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(func(a domain.Account) bool { return a.OwnerID == ownerID && a.IsPrimary }), nil
}

// GetByIDForUpdate needs no row lock: the caller already holds the writer slot.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	if _, err := r.s.own(dbTx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepo) SetStatusByOwner(_ context.Context, ownerID uuid.UUID, status domain.AccountStatus, reason *string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for id, a := range r.s.accounts {
		if a.OwnerID != ownerID {
			continue
		}
		a.Status = status
		a.FrozenReason = reason
		a.UpdatedAt = now
		r.s.accounts[id] = a
		n++
	}
	return n, nil
}

// find must be called with the read lock held.
func (r *AccountRepo) find(match func(domain.Account) bool) *domain.Account {
	for _, a := range r.s.accounts {
		if match(a) {
			found := a
			return &found
		}
	}
	return nil
}
