package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the only mutable attribute of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
)

// AccountRole describes what kind of owner holds the account.
type AccountRole string

const (
	AccountRoleUser        AccountRole = "user"
	AccountRoleMerchant    AccountRole = "merchant"
	AccountRoleDistributor AccountRole = "distributor"
	AccountRoleTreasury    AccountRole = "treasury"
)

// Account is a currency-scoped balance holder for one owner.
// Balances are never stored on the account; they derive from ledger entries.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	OwnerID      uuid.UUID     `json:"owner_id"`
	Currency     string        `json:"currency"`
	Role         AccountRole   `json:"role"`
	IsPrimary    bool          `json:"is_primary"`
	Status       AccountStatus `json:"status"`
	FrozenReason *string       `json:"frozen_reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsFrozen returns true if the account may not send or receive.
func (a *Account) IsFrozen() bool {
	return a.Status == AccountStatusFrozen
}
