package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is derived from an account's entries, never stored.
type Balance struct {
	AccountID uuid.UUID       `json:"account_id"`
	Currency  string          `json:"currency,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
}

// EntrySums maps an entry type to the signed sum of its amounts for one account.
type EntrySums map[EntryType]decimal.Decimal

// BalanceFromSums applies the hold arithmetic:
//
//	total     = sum of non-memo entries
//	held      = |hold_debit| - |hold_release| - |hold_seize|, never below zero
//	available = total - held
func BalanceFromSums(accountID uuid.UUID, sums EntrySums) Balance {
	total := decimal.Zero
	for typ, amount := range sums {
		if typ.IsMemo() {
			continue
		}
		total = total.Add(amount)
	}

	held := sums[EntryHoldDebit].Abs().
		Sub(sums[EntryHoldRelease].Abs()).
		Sub(sums[EntryHoldSeize].Abs())
	if held.IsNegative() {
		held = decimal.Zero
	}

	return Balance{
		AccountID: accountID,
		Total:     total,
		Held:      held,
		Available: total.Sub(held),
	}
}

// SumsFromEntries groups entries by type.
func SumsFromEntries(entries []LedgerEntry) EntrySums {
	sums := make(EntrySums)
	for _, e := range entries {
		sums[e.EntryType] = sums[e.EntryType].Add(e.Amount)
	}
	return sums
}
