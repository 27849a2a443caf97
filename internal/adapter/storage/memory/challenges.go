package memory

import (
	"context"
	"fmt"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChallengeRepo implements ports.ChallengeRepository.
type ChallengeRepo struct {
	s *Store
}

// NewChallengeRepo creates a new ChallengeRepo.
func NewChallengeRepo(s *Store) *ChallengeRepo {
	return &ChallengeRepo{s: s}
}

func (r *ChallengeRepo) Create(_ context.Context, c *domain.Challenge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.challenges[c.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.challenges[c.ID] = *c
	return nil
}

func (r *ChallengeRepo) GetByIDForUpdate(_ context.Context, dbTx pgx.Tx, id uuid.UUID) (*domain.Challenge, error) {
	if _, err := r.s.own(dbTx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.challenges[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ChallengeRepo) Update(_ context.Context, dbTx pgx.Tx, c *domain.Challenge) error {
	r.s.mu.RLock()
	_, ok := r.s.challenges[c.ID]
	r.s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("challenge not found: %s", c.ID)
	}

	row := *c
	return r.s.write(dbTx, func() {
		r.s.challenges[row.ID] = row
	})
}
