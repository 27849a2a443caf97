package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an outbound event. Values double as routing keys.
type EventType string

const (
	EventTransferCompleted EventType = "transfer.completed"
	EventTransferHeld      EventType = "transfer.held"
	EventAccountFrozen     EventType = "account.frozen"
	EventHoldResolved      EventType = "hold.resolved"
)

// Notification is handed to the notification collaborator.
type Notification struct {
	OwnerID  uuid.UUID `json:"owner_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Category string    `json:"category"`
}

// OutboundEvent is a post-commit side effect. Handlers may fail and retry;
// the money movement it describes is already durable.
type OutboundEvent struct {
	ID             uuid.UUID       `json:"id"`
	Type           EventType       `json:"type"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	TransferID     *uuid.UUID      `json:"transfer_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	Status         string          `json:"status,omitempty"`
	Device         RiskContext     `json:"device"`
	Notifications  []Notification  `json:"notifications,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// AuditRecord is the stored copy of a dispatched event.
type AuditRecord struct {
	EventID    uuid.UUID  `json:"event_id"`
	Type       EventType  `json:"type"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	TransferID *uuid.UUID `json:"transfer_id,omitempty"`
	Amount     string     `json:"amount"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
	OccurredAt time.Time  `json:"occurred_at"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// AuditFromEvent flattens an event for storage.
func AuditFromEvent(e OutboundEvent, recordedAt time.Time) AuditRecord {
	return AuditRecord{
		EventID:    e.ID,
		Type:       e.Type,
		OwnerID:    e.OwnerID,
		TransferID: e.TransferID,
		Amount:     e.Amount.String(),
		Currency:   e.Currency,
		Status:     e.Status,
		OccurredAt: e.OccurredAt,
		RecordedAt: recordedAt,
	}
}
