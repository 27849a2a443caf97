package memory

import (
	"context"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// RiskRepo implements ports.RiskRepository.
type RiskRepo struct {
	s *Store
}

// NewRiskRepo creates a new RiskRepo.
func NewRiskRepo(s *Store) *RiskRepo {
	return &RiskRepo{s: s}
}

func (r *RiskRepo) CreateEvent(_ context.Context, e *domain.RiskEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ev := *e
	ev.Reasons = append([]string(nil), e.Reasons...)
	r.s.riskEvents[e.ID] = ev
	return nil
}

func (r *RiskRepo) CreateFlag(_ context.Context, f *domain.RiskFlag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.riskFlags = append(r.s.riskFlags, *f)
	return nil
}

func (r *RiskRepo) CountOpenFlags(_ context.Context, ownerID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, f := range r.s.riskFlags {
		if f.OwnerID == ownerID && !f.Resolved {
			n++
		}
	}
	return n, nil
}

// Events returns the owner's risk events.
func (r *RiskRepo) Events(ownerID uuid.UUID) []domain.RiskEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.RiskEvent
	for _, e := range r.s.riskEvents {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out
}
