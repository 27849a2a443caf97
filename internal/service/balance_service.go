package service

import (
	"context"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxHistoryLimit = 200

// BalanceService implements ports.BalanceCalculator. The cache is a shadow
// of the ledger and may be nil.
type BalanceService struct {
	accountRepo ports.AccountRepository
	ledgerRepo  ports.LedgerRepository
	cache       ports.BalanceCache
	cacheTTL    time.Duration
	log         zerolog.Logger
}

// NewBalanceService creates a new BalanceService.
func NewBalanceService(
	accountRepo ports.AccountRepository,
	ledgerRepo ports.LedgerRepository,
	cache ports.BalanceCache,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *BalanceService {
	return &BalanceService{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

// ComputeBalance derives total, held and available for one account.
func (s *BalanceService) ComputeBalance(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return s.Settled(ctx, accountID)
	}

	cached, err := s.cache.Get(ctx, accountID)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("balance cache read failed, recomputing")
	}
	if cached != nil {
		return cached, nil
	}

	// The generation must be read before summing: a commit landing in between
	// advances it and the stale sum is not stored.
	gen, genErr := s.cache.Generation(ctx, accountID)
	if genErr != nil {
		s.log.Warn().Err(genErr).Str("account_id", accountID.String()).Msg("balance cache generation read failed, not caching")
	}

	balance, err := s.Settled(ctx, accountID)
	if err != nil || genErr != nil {
		return balance, err
	}

	stored, err := s.cache.Set(ctx, balance, gen, s.cacheTTL)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("balance cache write failed")
	case !stored:
		s.log.Debug().Str("account_id", accountID.String()).Msg("balance changed while computing, not cached")
	}
	return balance, nil
}

// Settled recomputes the balance from ledger entries, bypassing the cache.
func (s *BalanceService) Settled(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error) {
	sums, err := s.ledgerRepo.SumsByAccount(ctx, nil, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("sum entries: %w", err))
	}
	balance := domain.BalanceFromSums(accountID, sums)
	return &balance, nil
}

// OwnerBalance is ComputeBalance restricted to accounts held by ownerID.
// Another owner's account is reported as not found.
func (s *BalanceService) OwnerBalance(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.Balance, error) {
	account, err := s.ownedAccount(ctx, ownerID, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := s.ComputeBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := *balance
	out.Currency = account.Currency
	return &out, nil
}

// History lists the entries of an account held by ownerID in posting order.
func (s *BalanceService) History(ctx context.Context, ownerID, accountID uuid.UUID, filter domain.EntryFilter) ([]domain.LedgerEntry, error) {
	if _, err := s.ownedAccount(ctx, ownerID, accountID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	entries, err := s.ledgerRepo.ListByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list entries: %w", err))
	}
	return entries, nil
}

func (s *BalanceService) ownedAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account == nil || account.OwnerID != ownerID {
		return nil, apperror.ErrNotFound("account")
	}
	return account, nil
}

// Invalidate drops cached balances. Call only after the writing transaction committed.
func (s *BalanceService) Invalidate(ctx context.Context, accountIDs ...uuid.UUID) {
	if s.cache == nil || len(accountIDs) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, accountIDs...); err != nil {
		s.log.Warn().Err(err).Int("accounts", len(accountIDs)).Msg("balance cache invalidation failed")
	}
}
