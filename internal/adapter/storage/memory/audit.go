package memory

import (
	"context"

	"mobile-money-ledger/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	s *Store
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{s: s}
}

// Insert ignores redelivery of an event already recorded.
func (r *AuditRepo) Insert(_ context.Context, rec *domain.AuditRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.audit[rec.EventID]; !ok {
		r.s.audit[rec.EventID] = *rec
	}
	return nil
}

// Len returns the number of recorded events.
func (r *AuditRepo) Len() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.audit)
}
