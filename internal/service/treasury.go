package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EnsureTreasuryAccounts creates the treasury owner's account in every
// currency that does not have one yet. The first currency is primary.
// Safe to run on every start.
func EnsureTreasuryAccounts(ctx context.Context, repo ports.AccountRepository, ownerID uuid.UUID, currencies []string, log zerolog.Logger) error {
	if len(currencies) == 0 {
		return errors.New("no treasury currencies configured")
	}

	now := time.Now().UTC()
	for i, ccy := range currencies {
		ccy = strings.ToUpper(strings.TrimSpace(ccy))

		existing, err := repo.GetByOwnerAndCurrency(ctx, ownerID, ccy)
		if err != nil {
			return fmt.Errorf("lookup treasury %s: %w", ccy, err)
		}
		if existing != nil {
			continue
		}

		err = repo.Create(ctx, &domain.Account{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			Currency:  ccy,
			Role:      domain.AccountRoleTreasury,
			IsPrimary: i == 0,
			Status:    domain.AccountStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
		// another instance won the race
		if errors.Is(err, domain.ErrDuplicate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create treasury %s: %w", ccy, err)
		}
		log.Info().Str("currency", ccy).Msg("treasury account created")
	}
	return nil
}
