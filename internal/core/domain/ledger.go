package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry. Debits are posted with a negative
// amount and credits with a positive amount.
type EntryType string

const (
	EntryTransferDebit  EntryType = "transfer_debit"
	EntryTransferCredit EntryType = "transfer_credit"
	EntryFeeDebit       EntryType = "fee_debit"
	EntryFeeCredit      EntryType = "fee_credit"
	EntryFXCredit       EntryType = "fx_credit"
	EntryFXDebit        EntryType = "fx_debit"
	EntryHoldDebit      EntryType = "hold_debit"
	EntryHoldRelease    EntryType = "hold_release"
	EntryHoldSeize      EntryType = "hold_seize"
	EntrySeizureCredit  EntryType = "seizure_credit"
	EntryCashIn         EntryType = "cash_in"
)

// IsMemo reports whether the entry only moves funds between available and
// held. Memo entries never change an account's total.
func (t EntryType) IsMemo() bool {
	return t == EntryHoldDebit || t == EntryHoldRelease
}

// IsHoldResolution reports whether the entry terminates a hold.
func (t EntryType) IsHoldResolution() bool {
	return t == EntryHoldRelease || t == EntryHoldSeize
}

// LedgerEntry is one signed-amount fact posted against an account. Entries
// are append-only.
type LedgerEntry struct {
	ID         uuid.UUID       `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Amount     decimal.Decimal `json:"amount"`
	EntryType  EntryType       `json:"entry_type"`
	TransferID *uuid.UUID      `json:"transfer_id,omitempty"`
	Reference  *string         `json:"reference,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EntryFilter narrows a history query. Zero values mean "no constraint".
type EntryFilter struct {
	Types      []EntryType
	TransferID *uuid.UUID
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

// NewEntry builds an entry for the given transfer with a fresh id.
func NewEntry(accountID uuid.UUID, amount decimal.Decimal, typ EntryType, transferID uuid.UUID, reference string, at time.Time) LedgerEntry {
	e := LedgerEntry{
		ID:         uuid.New(),
		AccountID:  accountID,
		Amount:     amount,
		EntryType:  typ,
		TransferID: &transferID,
		CreatedAt:  at,
	}
	if reference != "" {
		e.Reference = &reference
	}
	return e
}

// SettledSum returns the sum of all non-memo amounts. For a completed
// transfer it must be zero.
func SettledSum(entries []LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.EntryType.IsMemo() {
			continue
		}
		sum = sum.Add(e.Amount)
	}
	return sum
}

// HoldReference is the reference shared by a hold and its single resolution.
func HoldReference(transferID uuid.UUID) string {
	return "hold:" + transferID.String()
}

// FXReference tags every leg of a cross-currency transfer with the rate used.
func FXReference(from, to string, rate decimal.Decimal) string {
	return fmt.Sprintf("fx:%s/%s@%s", from, to, rate.String())
}
