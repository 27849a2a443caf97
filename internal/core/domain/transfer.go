package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the transfer state machine:
//
//	completed                      (terminal)
//	pending_review -> released     (terminal)
//	pending_review -> seized       (terminal)
type TransferStatus string

const (
	TransferStatusCompleted     TransferStatus = "completed"
	TransferStatusPendingReview TransferStatus = "pending_review"
	TransferStatusReleased      TransferStatus = "released"
	TransferStatusSeized        TransferStatus = "seized"
)

// Transfer is the logical record of one money movement. Its ledger entries
// reference it by id.
type Transfer struct {
	ID               uuid.UUID       `json:"id"`
	SenderOwnerID    uuid.UUID       `json:"sender_owner_id"`
	RecipientOwnerID uuid.UUID       `json:"recipient_owner_id"`
	FromAccountID    uuid.UUID       `json:"from_account_id"`
	ToAccountID      uuid.UUID       `json:"to_account_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	ConvertedAmount  decimal.Decimal `json:"converted_amount"`
	ToCurrency       string          `json:"to_currency"`
	Rate             decimal.Decimal `json:"rate"`
	Fee              decimal.Decimal `json:"fee"`
	Status           TransferStatus  `json:"status"`
	IdempotencyKey   string          `json:"idempotency_key"`
	RiskEventID      *uuid.UUID      `json:"risk_event_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
}

// IsCrossCurrency returns true if the recipient is credited in another currency.
func (t *Transfer) IsCrossCurrency() bool {
	return t.Currency != t.ToCurrency
}

// Debited is the full amount leaving the sender: amount plus fee.
func (t *Transfer) Debited() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// IsPendingReview returns true while the transfer's hold is unresolved.
func (t *Transfer) IsPendingReview() bool {
	return t.Status == TransferStatusPendingReview
}

// TransferRequest is the input of the execution engine.
type TransferRequest struct {
	SenderOwnerID    uuid.UUID       `json:"sender_owner_id"`
	RecipientOwnerID uuid.UUID       `json:"recipient_owner_id"`
	Amount           decimal.Decimal `json:"amount"`
	FromCurrency     string          `json:"from_currency"`
	ToCurrency       string          `json:"to_currency,omitempty"`
	Fee              decimal.Decimal `json:"fee"`
	IdempotencyKey   string          `json:"idempotency_key"`
	SkipRisk         bool            `json:"skip_risk,omitempty"`
	Risk             RiskContext     `json:"risk"`

	// StepUpToken proves a completed step-up for this intent. It is not part
	// of the idempotent payload.
	StepUpToken string `json:"-"`
}

// DestinationCurrency returns ToCurrency, defaulting to FromCurrency.
func (r TransferRequest) DestinationCurrency() string {
	if r.ToCurrency == "" {
		return r.FromCurrency
	}
	return r.ToCurrency
}

// Intent is the part of the request replayed after a step-up challenge.
func (r TransferRequest) Intent() TransferIntent {
	return TransferIntent{
		RecipientOwnerID: r.RecipientOwnerID,
		Amount:           r.Amount,
		FromCurrency:     r.FromCurrency,
		ToCurrency:       r.ToCurrency,
		Fee:              r.Fee,
		IdempotencyKey:   r.IdempotencyKey,
	}
}

// TransferIntent is the challenge payload: exactly what was first requested.
type TransferIntent struct {
	RecipientOwnerID uuid.UUID       `json:"recipient_owner_id"`
	Amount           decimal.Decimal `json:"amount"`
	FromCurrency     string          `json:"from_currency"`
	ToCurrency       string          `json:"to_currency,omitempty"`
	Fee              decimal.Decimal `json:"fee"`
	IdempotencyKey   string          `json:"idempotency_key"`
}

// ReceiptOutcome tells the caller which branch the engine took.
type ReceiptOutcome string

const (
	OutcomeCompleted         ReceiptOutcome = "completed"
	OutcomeHeld              ReceiptOutcome = "held"
	OutcomeChallengeRequired ReceiptOutcome = "challenge_required"
)

// Receipt is the result of ExecuteTransfer.
type Receipt struct {
	Outcome            ReceiptOutcome  `json:"outcome"`
	TransferID         *uuid.UUID      `json:"transfer_id,omitempty"`
	Status             TransferStatus  `json:"status,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	ConvertedAmount    decimal.Decimal `json:"converted_amount"`
	ToCurrency         string          `json:"to_currency"`
	Rate               decimal.Decimal `json:"rate"`
	Fee                decimal.Decimal `json:"fee"`
	RiskEventID        *uuid.UUID      `json:"risk_event_id,omitempty"`
	ChallengeID        *uuid.UUID      `json:"challenge_id,omitempty"`
	ChallengeExpiresAt *time.Time      `json:"challenge_expires_at,omitempty"`
	Replayed           bool            `json:"replayed"`
}

// ReceiptFor builds the receipt describing a persisted transfer.
func ReceiptFor(t *Transfer) *Receipt {
	outcome := OutcomeCompleted
	if t.Status != TransferStatusCompleted {
		outcome = OutcomeHeld
	}
	id := t.ID
	return &Receipt{
		Outcome:         outcome,
		TransferID:      &id,
		Status:          t.Status,
		Amount:          t.Amount,
		Currency:        t.Currency,
		ConvertedAmount: t.ConvertedAmount,
		ToCurrency:      t.ToCurrency,
		Rate:            t.Rate,
		Fee:             t.Fee,
		RiskEventID:     t.RiskEventID,
	}
}

// HoldDecision is the outcome of a manual review.
type HoldDecision string

const (
	HoldRelease HoldDecision = "release"
	HoldSeize   HoldDecision = "seize"
)

// IsValid reports whether d is a known decision.
func (d HoldDecision) IsValid() bool {
	return d == HoldRelease || d == HoldSeize
}

// ResolveHoldRequest terminates a pending_review transfer.
type ResolveHoldRequest struct {
	TransferID    uuid.UUID
	Decision      HoldDecision
	RefundOwnerID *uuid.UUID
}
