package memory

import (
	"context"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// DeviceRepo implements ports.DeviceRepository.
type DeviceRepo struct {
	s *Store
}

// NewDeviceRepo creates a new DeviceRepo.
func NewDeviceRepo(s *Store) *DeviceRepo {
	return &DeviceRepo{s: s}
}

func (r *DeviceRepo) HasFingerprint(_ context.Context, ownerID uuid.UUID, fingerprint string) (bool, error) {
	return r.any(func(d domain.DeviceSession) bool {
		return d.OwnerID == ownerID && d.Fingerprint == fingerprint
	}), nil
}

func (r *DeviceRepo) HasOrigin(_ context.Context, ownerID uuid.UUID, origin string) (bool, error) {
	return r.any(func(d domain.DeviceSession) bool {
		return d.OwnerID == ownerID && d.NetworkOrigin == origin
	}), nil
}

func (r *DeviceRepo) IsTrusted(_ context.Context, ownerID uuid.UUID, fingerprint, origin string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.devices[domain.DeviceKey(ownerID, fingerprint, origin)]
	return ok && d.Trusted, nil
}

func (r *DeviceRepo) Upsert(_ context.Context, s *domain.DeviceSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := domain.DeviceKey(s.OwnerID, s.Fingerprint, s.NetworkOrigin)
	existing, ok := r.s.devices[key]
	if !ok {
		r.s.devices[key] = *s
		return nil
	}
	existing.Trusted = existing.Trusted || s.Trusted
	if s.LastSeenAt.After(existing.LastSeenAt) {
		existing.LastSeenAt = s.LastSeenAt
	}
	r.s.devices[key] = existing
	return nil
}

func (r *DeviceRepo) any(match func(domain.DeviceSession) bool) bool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, d := range r.s.devices {
		if match(d) {
			return true
		}
	}
	return false
}

// CounterpartyRepo implements ports.CounterpartyRepository.
type CounterpartyRepo struct {
	s *Store
}

// NewCounterpartyRepo creates a new CounterpartyRepo.
func NewCounterpartyRepo(s *Store) *CounterpartyRepo {
	return &CounterpartyRepo{s: s}
}

func pairKey(ownerID, counterpartyID uuid.UUID) string {
	return ownerID.String() + ">" + counterpartyID.String()
}

func (r *CounterpartyRepo) Exists(_ context.Context, ownerID, counterpartyID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.counterparties[pairKey(ownerID, counterpartyID)]
	return ok, nil
}

func (r *CounterpartyRepo) Record(_ context.Context, ownerID, counterpartyID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey(ownerID, counterpartyID)
	c, ok := r.s.counterparties[key]
	if !ok {
		c = domain.Counterparty{OwnerID: ownerID, CounterpartyID: counterpartyID, FirstSeenAt: at}
	}
	c.TransferCount++
	c.LastSeenAt = at
	r.s.counterparties[key] = c
	return nil
}
