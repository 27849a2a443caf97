package dto

import (
	"encoding/json"
	"time"

	"mobile-money-ledger/internal/core/domain"
)

// TransferRequest is the request body for POST /api/v1/transfers. Amounts are
// decimal strings so no precision is lost in transit.
type TransferRequest struct {
	RecipientOwnerID string `json:"recipient_owner_id" binding:"required,uuid"`
	Amount           string `json:"amount" binding:"required,amount"`
	FromCurrency     string `json:"from_currency" binding:"required,len=3,alpha"`
	ToCurrency       string `json:"to_currency,omitempty" binding:"omitempty,len=3,alpha"`
	Fee              string `json:"fee,omitempty" binding:"omitempty,amount"`
}

// CreateChallengeRequest is the request body for POST /api/v1/challenges.
type CreateChallengeRequest struct {
	Purpose string          `json:"purpose" binding:"required,max=50,safe_id"`
	Binding string          `json:"binding" binding:"required,max=128,safe_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CreateChallengeResponse is returned when a challenge was issued.
type CreateChallengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ConsumeChallengeRequest is the request body for POST /api/v1/challenges/:id/consume.
type ConsumeChallengeRequest struct {
	Code string `json:"code" binding:"required,numeric,min=4,max=10"`
}

// ResolveHoldRequest is the request body for the admin hold resolution route.
type ResolveHoldRequest struct {
	Decision      string `json:"decision" binding:"required,oneof=release seize"`
	RefundOwnerID string `json:"refund_owner_id,omitempty" binding:"omitempty,uuid"`
}

// CashInRequest is the request body for POST /api/v1/admin/cash-in.
type CashInRequest struct {
	OwnerID   string `json:"owner_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required,amount"`
	Currency  string `json:"currency" binding:"required,len=3,alpha"`
	Reference string `json:"reference" binding:"required,max=128,safe_id"`
}

// AccountStatusRequest is the request body for PUT /api/v1/admin/owners/:owner_id/status.
type AccountStatusRequest struct {
	Frozen bool   `json:"frozen"`
	Reason string `json:"reason" binding:"max=500"`
}

// EntryResponse is one ledger entry in a history listing.
type EntryResponse struct {
	ID         string `json:"id"`
	Amount     string `json:"amount"`
	EntryType  string `json:"entry_type"`
	TransferID string `json:"transfer_id,omitempty"`
	Reference  string `json:"reference,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// EntryListResponse wraps a history listing.
type EntryListResponse struct {
	AccountID string          `json:"account_id"`
	Items     []EntryResponse `json:"items"`
	Count     int             `json:"count"`
}

// ToEntryResponse converts a ledger entry for output.
func ToEntryResponse(e domain.LedgerEntry) EntryResponse {
	out := EntryResponse{
		ID:        e.ID.String(),
		Amount:    e.Amount.String(),
		EntryType: string(e.EntryType),
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.TransferID != nil {
		out.TransferID = e.TransferID.String()
	}
	if e.Reference != nil {
		out.Reference = *e.Reference
	}
	return out
}
