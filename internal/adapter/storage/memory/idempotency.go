package memory

import (
	"context"
	"time"

	"mobile-money-ledger/internal/core/domain"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	s *Store
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(s *Store) *IdempotencyRepo {
	return &IdempotencyRepo{s: s}
}

func recordKey(key, route string) string {
	return route + "|" + key
}

func (r *IdempotencyRepo) Insert(_ context.Context, rec *domain.IdempotencyRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := recordKey(rec.Key, rec.Route)
	if _, ok := r.s.idempotency[k]; ok {
		return domain.ErrDuplicate
	}
	r.s.idempotency[k] = *rec
	return nil
}

func (r *IdempotencyRepo) Get(_ context.Context, key, route string) (*domain.IdempotencyRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.idempotency[recordKey(key, route)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *IdempotencyRepo) Complete(_ context.Context, key, route string, result []byte) error {
	r.update(key, route, func(rec *domain.IdempotencyRecord) {
		rec.Status = domain.IdempotencyCompleted
		rec.Result = append([]byte(nil), result...)
		rec.Error = nil
	})
	return nil
}

func (r *IdempotencyRepo) Fail(_ context.Context, key, route string, reason string, result []byte) error {
	r.update(key, route, func(rec *domain.IdempotencyRecord) {
		rec.Status = domain.IdempotencyFailed
		rec.Result = append([]byte(nil), result...)
		rec.Error = &reason
	})
	return nil
}

func (r *IdempotencyRepo) Reclaim(_ context.Context, key, route, requestHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := recordKey(key, route)
	rec, ok := r.s.idempotency[k]
	if !ok || rec.Status != domain.IdempotencyFailed || rec.RequestHash != requestHash {
		return false, nil
	}
	rec.Status = domain.IdempotencyProcessing
	rec.Result = nil
	rec.Error = nil
	rec.UpdatedAt = time.Now().UTC()
	r.s.idempotency[k] = rec
	return true, nil
}

func (r *IdempotencyRepo) ReclaimStale(_ context.Context, key, route, requestHash string, staleBefore time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := recordKey(key, route)
	rec, ok := r.s.idempotency[k]
	if !ok || rec.Status != domain.IdempotencyProcessing || rec.RequestHash != requestHash || !rec.UpdatedAt.Before(staleBefore) {
		return false, nil
	}
	rec.UpdatedAt = time.Now().UTC()
	r.s.idempotency[k] = rec
	return true, nil
}

func (r *IdempotencyRepo) update(key, route string, fn func(*domain.IdempotencyRecord)) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := recordKey(key, route)
	rec, ok := r.s.idempotency[k]
	if !ok {
		return
	}
	fn(&rec)
	rec.UpdatedAt = time.Now().UTC()
	r.s.idempotency[k] = rec
}
