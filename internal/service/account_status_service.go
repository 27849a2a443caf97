package service

import (
	"context"
	"fmt"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountStatusService implements ports.AccountStatusUpdater.
type AccountStatusService struct {
	accountRepo ports.AccountRepository
	log         zerolog.Logger
}

// NewAccountStatusService creates a new AccountStatusService.
func NewAccountStatusService(accountRepo ports.AccountRepository, log zerolog.Logger) *AccountStatusService {
	return &AccountStatusService{accountRepo: accountRepo, log: log}
}

// SetAccountStatus freezes or unfreezes every account the owner holds.
func (s *AccountStatusService) SetAccountStatus(ctx context.Context, ownerID uuid.UUID, frozen bool, reason string) error {
	status := domain.AccountStatusActive
	var frozenReason *string
	if frozen {
		status = domain.AccountStatusFrozen
		frozenReason = &reason
	}

	n, err := s.accountRepo.SetStatusByOwner(ctx, ownerID, status, frozenReason)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("set account status: %w", err))
	}
	if n == 0 {
		return apperror.ErrAccountNotFound(ownerID.String())
	}

	s.log.Warn().
		Str("owner_id", ownerID.String()).
		Str("status", string(status)).
		Str("reason", reason).
		Int64("accounts", n).
		Msg("account status changed")
	return nil
}
