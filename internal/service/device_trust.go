package service

import (
	"context"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// DeviceTrustService implements ports.DeviceTrust. The LRU only remembers
// positive answers; a miss always asks the device store.
type DeviceTrustService struct {
	repo  ports.DeviceRepository
	cache *expirable.LRU[string, struct{}]
	log   zerolog.Logger
}

// NewDeviceTrustService creates a device trust service. size <= 0 disables the cache.
func NewDeviceTrustService(repo ports.DeviceRepository, size int, ttl time.Duration, log zerolog.Logger) *DeviceTrustService {
	s := &DeviceTrustService{repo: repo, log: log}
	if size > 0 {
		s.cache = expirable.NewLRU[string, struct{}](size, nil, ttl)
	}
	return s
}

// IsTrusted reports whether the (owner, fingerprint, origin) triple completed a step-up before.
func (s *DeviceTrustService) IsTrusted(ctx context.Context, ownerID uuid.UUID, fingerprint, origin string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	key := domain.DeviceKey(ownerID, fingerprint, origin)
	if s.cache != nil {
		if _, ok := s.cache.Get(key); ok {
			return true, nil
		}
	}

	trusted, err := s.repo.IsTrusted(ctx, ownerID, fingerprint, origin)
	if err != nil {
		return false, fmt.Errorf("device trust lookup: %w", err)
	}
	if trusted && s.cache != nil {
		s.cache.Add(key, struct{}{})
	}
	return trusted, nil
}

// Trust marks a device as trusted for the owner.
func (s *DeviceTrustService) Trust(ctx context.Context, ownerID uuid.UUID, fingerprint, origin string) error {
	if fingerprint == "" {
		return nil
	}
	now := time.Now().UTC()
	session := &domain.DeviceSession{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Fingerprint:   fingerprint,
		NetworkOrigin: origin,
		Trusted:       true,
		FirstSeenAt:   now,
		LastSeenAt:    now,
	}
	if err := s.repo.Upsert(ctx, session); err != nil {
		return fmt.Errorf("trust device: %w", err)
	}
	if s.cache != nil {
		s.cache.Add(domain.DeviceKey(ownerID, fingerprint, origin), struct{}{})
	}
	return nil
}

// Observe records an untrusted sighting so later risk checks treat the
// device and origin as familiar.
func (s *DeviceTrustService) Observe(ctx context.Context, ownerID uuid.UUID, device domain.RiskContext, at time.Time) error {
	if device.DeviceFingerprint == "" && device.NetworkOrigin == "" {
		return nil
	}
	return s.repo.Upsert(ctx, &domain.DeviceSession{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Fingerprint:   device.DeviceFingerprint,
		NetworkOrigin: device.NetworkOrigin,
		FirstSeenAt:   at,
		LastSeenAt:    at,
	})
}
