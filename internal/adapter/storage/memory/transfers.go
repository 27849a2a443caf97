package memory

import (
	"context"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransferRepo implements ports.TransferRepository.
type TransferRepo struct {
	s *Store
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(s *Store) *TransferRepo {
	return &TransferRepo{s: s}
}

func transferKey(sender uuid.UUID, key string) string {
	return sender.String() + ":" + key
}

func (r *TransferRepo) Create(_ context.Context, dbTx pgx.Tx, t *domain.Transfer) error {
	owned, err := r.s.own(dbTx)
	if err != nil {
		return err
	}
	key := transferKey(t.SenderOwnerID, t.IdempotencyKey)

	r.s.mu.RLock()
	_, committed := r.s.transferKeys[key]
	_, exists := r.s.transfers[t.ID]
	r.s.mu.RUnlock()
	_, claimed := owned.keys[key]
	if committed || claimed || exists {
		return domain.ErrDuplicate
	}

	if owned.keys == nil {
		owned.keys = make(map[string]struct{})
	}
	owned.keys[key] = struct{}{}

	row := *t
	return r.s.write(dbTx, func() {
		r.s.transfers[row.ID] = row
		r.s.transferKeys[key] = row.ID
	})
}

func (r *TransferRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transfers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *TransferRepo) GetByIdempotencyKey(ctx context.Context, senderOwnerID uuid.UUID, key string) (*domain.Transfer, error) {
	r.s.mu.RLock()
	id, ok := r.s.transferKeys[transferKey(senderOwnerID, key)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *TransferRepo) GetByIDForUpdate(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) (*domain.Transfer, error) {
	if _, err := r.s.own(dbTx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *TransferRepo) UpdateStatus(_ context.Context, dbTx pgx.Tx, id uuid.UUID, status domain.TransferStatus, resolvedAt time.Time) error {
	r.s.mu.RLock()
	_, ok := r.s.transfers[id]
	r.s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transfer not found: %s", id)
	}

	return r.s.write(dbTx, func() {
		t := r.s.transfers[id]
		t.Status = status
		at := resolvedAt
		t.ResolvedAt = &at
		r.s.transfers[id] = t
	})
}

func (r *TransferRepo) CountCompletedSince(_ context.Context, senderOwnerID uuid.UUID, since time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, t := range r.s.transfers {
		if t.SenderOwnerID == senderOwnerID && t.Status == domain.TransferStatusCompleted && !t.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
