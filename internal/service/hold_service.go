package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/internal/metrics"
	"mobile-money-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HoldService implements ports.HoldResolver.
type HoldService struct {
	accounts        ports.AccountRepository
	ledger          ports.LedgerRepository
	transfers       ports.TransferRepository
	transactor      ports.DBTransactor
	balances        ports.BalanceCalculator
	dispatcher      ports.EventDispatcher
	treasuryOwnerID uuid.UUID
	now             func() time.Time
	log             zerolog.Logger
}

// NewHoldService creates a new HoldService.
func NewHoldService(
	accounts ports.AccountRepository,
	ledger ports.LedgerRepository,
	transfers ports.TransferRepository,
	transactor ports.DBTransactor,
	balances ports.BalanceCalculator,
	dispatcher ports.EventDispatcher,
	treasuryOwnerID uuid.UUID,
	log zerolog.Logger,
) *HoldService {
	return &HoldService{
		accounts:        accounts,
		ledger:          ledger,
		transfers:       transfers,
		transactor:      transactor,
		balances:        balances,
		dispatcher:      dispatcher,
		treasuryOwnerID: treasuryOwnerID,
		now:             time.Now,
		log:             log,
	}
}

// ResolveHold terminates a pending_review transfer exactly once. Release
// returns the held amount to the sender's available balance; seize removes it
// from the sender and credits treasury or the refund owner.
func (s *HoldService) ResolveHold(ctx context.Context, req domain.ResolveHoldRequest) (*domain.Transfer, error) {
	if !req.Decision.IsValid() {
		return nil, apperror.Validation("Decision must be release or seize")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	t, err := s.transfers.GetByIDForUpdate(ctx, dbTx, req.TransferID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock transfer: %w", err))
	}
	if t == nil {
		return nil, apperror.ErrNotFound("transfer")
	}
	switch t.Status {
	case domain.TransferStatusPendingReview:
	case domain.TransferStatusReleased, domain.TransferStatusSeized:
		return nil, apperror.ErrHoldAlreadyResolved()
	default:
		return nil, apperror.ErrHoldNotPending()
	}

	now := s.now().UTC()
	held := t.Debited()
	ref := domain.HoldReference(t.ID)
	touched := []uuid.UUID{t.FromAccountID}

	var entries []domain.LedgerEntry
	status := domain.TransferStatusReleased
	switch req.Decision {
	case domain.HoldRelease:
		entries = []domain.LedgerEntry{
			domain.NewEntry(t.FromAccountID, held, domain.EntryHoldRelease, t.ID, ref, now),
		}
	case domain.HoldSeize:
		status = domain.TransferStatusSeized
		dest, err := s.seizureDestination(ctx, req.RefundOwnerID, t.Currency)
		if err != nil {
			return nil, err
		}
		touched = append(touched, dest.ID)
		entries = []domain.LedgerEntry{
			domain.NewEntry(t.FromAccountID, held.Neg(), domain.EntryHoldSeize, t.ID, ref, now),
			domain.NewEntry(dest.ID, held, domain.EntrySeizureCredit, t.ID, ref, now),
		}
	}

	if err := s.ledger.Append(ctx, dbTx, entries); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.ErrHoldAlreadyResolved()
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("append resolution: %w", err))
	}
	if err := s.transfers.UpdateStatus(ctx, dbTx, t.ID, status, now); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update transfer status: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	t.Status = status
	t.ResolvedAt = &now

	s.balances.Invalidate(ctx, touched...)
	evt := transferEvent(domain.EventHoldResolved, t, domain.RiskContext{}, []domain.Notification{{
		OwnerID:  t.SenderOwnerID,
		Title:    "Transfer review completed",
		Body:     fmt.Sprintf("Your held transfer was %s.", status),
		Category: "transfer",
	}})
	evt.OccurredAt = now
	s.dispatcher.Enqueue(evt)

	metrics.RecordHoldResolution(string(req.Decision))
	s.log.Info().
		Str("transfer_id", t.ID.String()).
		Str("decision", string(req.Decision)).
		Str("amount", held.String()).
		Str("currency", t.Currency).
		Msg("hold resolved")
	return t, nil
}

func (s *HoldService) seizureDestination(ctx context.Context, refundOwnerID *uuid.UUID, currency string) (*domain.Account, error) {
	if refundOwnerID == nil {
		return treasuryAccount(ctx, s.accounts, s.treasuryOwnerID, currency)
	}
	account, err := s.accounts.GetByOwnerAndCurrency(ctx, *refundOwnerID, currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get refund account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound(refundOwnerID.String())
	}
	return account, nil
}
