package postgres

import (
	"context"
	"fmt"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// DeviceRepo implements ports.DeviceRepository on device_sessions.
type DeviceRepo struct {
	pool Pool
}

// NewDeviceRepo creates a new DeviceRepo.
func NewDeviceRepo(pool Pool) *DeviceRepo {
	return &DeviceRepo{pool: pool}
}

// HasFingerprint reports whether the owner was ever seen on this device.
func (r *DeviceRepo) HasFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM device_sessions WHERE owner_id = $1 AND fingerprint = $2)`,
		ownerID, fingerprint)
}

// HasOrigin reports whether the owner was ever seen from this network origin.
func (r *DeviceRepo) HasOrigin(ctx context.Context, ownerID uuid.UUID, origin string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM device_sessions WHERE owner_id = $1 AND network_origin = $2)`,
		ownerID, origin)
}

// IsTrusted reports whether (owner, fingerprint, origin) completed a step-up before.
func (r *DeviceRepo) IsTrusted(ctx context.Context, ownerID uuid.UUID, fingerprint, origin string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM device_sessions
		WHERE owner_id = $1 AND fingerprint = $2 AND network_origin = $3 AND trusted)`,
		ownerID, fingerprint, origin)
}

// Upsert records a sighting. Trust is sticky: OR-ing keeps a trusted session trusted.
func (r *DeviceRepo) Upsert(ctx context.Context, s *domain.DeviceSession) error {
	query := `INSERT INTO device_sessions (id, owner_id, fingerprint, network_origin, trusted, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, fingerprint, network_origin) DO UPDATE
		SET trusted = device_sessions.trusted OR EXCLUDED.trusted,
		    last_seen_at = GREATEST(device_sessions.last_seen_at, EXCLUDED.last_seen_at)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.OwnerID, s.Fingerprint, s.NetworkOrigin, s.Trusted, s.FirstSeenAt, s.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("upsert device session: %w", err)
	}
	return nil
}

func (r *DeviceRepo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check device session: %w", err)
	}
	return exists, nil
}
