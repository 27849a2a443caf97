package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyStatus tracks one attempt of a keyed operation.
type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "processing"
	IdempotencyCompleted  IdempotencyStatus = "completed"
	IdempotencyFailed     IdempotencyStatus = "failed"
)

// IdempotencyRecord deduplicates an operation across retries. (Key, Route) is unique.
type IdempotencyRecord struct {
	Key         string            `json:"key"` // Format: "owner_id:client_key"
	Route       string            `json:"route"`
	OwnerID     uuid.UUID         `json:"owner_id"`
	RequestHash string            `json:"request_hash"`
	Status      IdempotencyStatus `json:"status"`
	Result      []byte            `json:"result,omitempty"`
	Error       *string           `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// BuildIdempotencyKey scopes a client key to its caller.
func BuildIdempotencyKey(ownerID uuid.UUID, clientKey string) string {
	return ownerID.String() + ":" + clientKey
}
