package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeviceSession records a (fingerprint, network origin) pair seen for an owner.
type DeviceSession struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Fingerprint   string    `json:"fingerprint"`
	NetworkOrigin string    `json:"network_origin"`
	Trusted       bool      `json:"trusted"`
	FirstSeenAt   time.Time `json:"first_seen_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

// DeviceKey is the cache key of a trusted device lookup.
func DeviceKey(ownerID uuid.UUID, fingerprint, origin string) string {
	return ownerID.String() + "|" + fingerprint + "|" + origin
}

// Counterparty records that an owner has successfully paid another owner.
type Counterparty struct {
	OwnerID        uuid.UUID `json:"owner_id"`
	CounterpartyID uuid.UUID `json:"counterparty_id"`
	TransferCount  int64     `json:"transfer_count"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}
