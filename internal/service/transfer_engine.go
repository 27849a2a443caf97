package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/internal/metrics"
	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransferEngineDeps are the collaborators of the execution engine.
type TransferEngineDeps struct {
	Accounts   ports.AccountRepository
	Ledger     ports.LedgerRepository
	Transfers  ports.TransferRepository
	Transactor ports.DBTransactor
	Balances   ports.BalanceCalculator
	Risk       ports.RiskEvaluator
	Challenges ports.ChallengeService
	Rates      ports.RateProvider
	Status     ports.AccountStatusUpdater
	Dispatcher ports.EventDispatcher
}

// TransferEngine implements ports.TransferEngine.
type TransferEngine struct {
	TransferEngineDeps
	treasuryOwnerID uuid.UUID
	minConverted    decimal.Decimal
	now             func() time.Time
	log             zerolog.Logger
}

// NewTransferEngine creates a new TransferEngine. Fees and FX legs settle
// against the treasury owner's account in each currency.
func NewTransferEngine(deps TransferEngineDeps, treasuryOwnerID uuid.UUID, minConverted decimal.Decimal, log zerolog.Logger) *TransferEngine {
	return &TransferEngine{
		TransferEngineDeps: deps,
		treasuryOwnerID:    treasuryOwnerID,
		minConverted:       minConverted,
		now:                time.Now,
		log:                log,
	}
}

// transferPlan is everything resolved before the risk decision.
type transferPlan struct {
	req       domain.TransferRequest
	sender    *domain.Account
	recipient *domain.Account
	toCcy     string
	rate      decimal.Decimal
	converted decimal.Decimal

	// set only when the transfer posts to treasury (fee or FX legs)
	fromTreasury *domain.Account
	toTreasury   *domain.Account
}

func (p *transferPlan) debited() decimal.Decimal {
	return p.req.Amount.Add(p.req.Fee)
}

// Committed returns a replay receipt when the sender already has a transfer
// for key, and nil when none exists.
func (e *TransferEngine) Committed(ctx context.Context, senderOwnerID uuid.UUID, key string) (*domain.Receipt, error) {
	existing, err := e.Transfers.GetByIdempotencyKey(ctx, senderOwnerID, key)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup transfer by key: %w", err))
	}
	if existing == nil {
		return nil, nil
	}
	receipt := domain.ReceiptFor(existing)
	receipt.Replayed = true
	return receipt, nil
}

// ExecuteTransfer runs one transfer attempt: completed, held, challenge
// required, or an error with nothing written.
func (e *TransferEngine) ExecuteTransfer(ctx context.Context, req domain.TransferRequest) (*domain.Receipt, error) {
	req.FromCurrency = strings.ToUpper(req.FromCurrency)
	req.ToCurrency = strings.ToUpper(req.ToCurrency)
	if err := validateTransfer(req); err != nil {
		return nil, err
	}

	if receipt, err := e.Committed(ctx, req.SenderOwnerID, req.IdempotencyKey); receipt != nil || err != nil {
		return receipt, err
	}

	plan, err := e.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	// Pre-check against the ledger itself; the authoritative check runs under
	// the row lock.
	balance, err := e.Balances.Settled(ctx, plan.sender.ID)
	if err != nil {
		return nil, err
	}
	if balance.Available.LessThan(plan.debited()) {
		metrics.RecordTransfer("insufficient_funds")
		return nil, apperror.ErrInsufficientFunds()
	}

	var riskEventID *uuid.UUID
	if !req.SkipRisk {
		event, err := e.Risk.Evaluate(ctx, domain.RiskInput{
			OwnerID:        req.SenderOwnerID,
			Amount:         req.Amount,
			Currency:       req.FromCurrency,
			CounterpartyID: &req.RecipientOwnerID,
			Context:        req.Risk,
		})
		if err != nil {
			return nil, err
		}
		riskEventID = &event.ID

		switch event.Action {
		case domain.RiskActionFreeze:
			return nil, e.freeze(ctx, plan, event)
		case domain.RiskActionBlock:
			return e.hold(ctx, plan, riskEventID)
		case domain.RiskActionChallenge:
			receipt, err := e.stepUp(ctx, plan, riskEventID)
			if receipt != nil || err != nil {
				return receipt, err
			}
		}
	}

	return e.complete(ctx, plan, riskEventID)
}

func validateTransfer(req domain.TransferRequest) error {
	if !req.Amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if !money.HasValidPrecision(req.Amount) || !money.HasValidPrecision(req.Fee) {
		return apperror.ErrAmountPrecision()
	}
	if req.Fee.IsNegative() {
		return apperror.Validation("Fee must not be negative")
	}
	if req.SenderOwnerID == req.RecipientOwnerID {
		return apperror.ErrSelfTransfer()
	}
	if req.IdempotencyKey == "" {
		return apperror.Validation("Idempotency key is required")
	}
	if req.FromCurrency == "" {
		return apperror.Validation("Currency is required")
	}
	return nil
}

// plan resolves accounts and the exchange rate.
func (e *TransferEngine) plan(ctx context.Context, req domain.TransferRequest) (*transferPlan, error) {
	sender, err := e.resolveAccount(ctx, req.SenderOwnerID, req.FromCurrency)
	if err != nil {
		return nil, err
	}
	if sender.Currency != req.FromCurrency {
		return nil, apperror.ErrCurrencyMismatch()
	}
	recipient, err := e.resolveAccount(ctx, req.RecipientOwnerID, req.DestinationCurrency())
	if err != nil {
		return nil, err
	}
	if req.ToCurrency != "" && recipient.Currency != req.ToCurrency {
		return nil, apperror.ErrCurrencyMismatch()
	}
	if sender.IsFrozen() || recipient.IsFrozen() {
		return nil, apperror.ErrAccountFrozen()
	}

	plan := &transferPlan{
		req:       req,
		sender:    sender,
		recipient: recipient,
		toCcy:     recipient.Currency,
		rate:      decimal.NewFromInt(1),
		converted: req.Amount,
	}
	if req.Fee.IsPositive() || plan.toCcy != req.FromCurrency {
		if plan.fromTreasury, err = e.treasury(ctx, req.FromCurrency); err != nil {
			return nil, err
		}
	}
	if plan.toCcy == req.FromCurrency {
		return plan, nil
	}
	if plan.toTreasury, err = e.treasury(ctx, plan.toCcy); err != nil {
		return nil, err
	}

	rate, err := e.Rates.GetRate(ctx, req.FromCurrency, plan.toCcy)
	if err != nil {
		return nil, apperror.ErrRateUnavailable(err)
	}
	if !rate.IsPositive() {
		return nil, apperror.ErrRateUnavailable(fmt.Errorf("non-positive rate %s for %s/%s", rate, req.FromCurrency, plan.toCcy))
	}
	plan.rate = rate
	plan.converted = money.Convert(req.Amount, rate)
	if plan.converted.LessThan(e.minConverted) {
		return nil, apperror.ErrConversionTooSmall()
	}
	return plan, nil
}

// resolveAccount finds the owner's account in currency, falling back to the primary account.
func (e *TransferEngine) resolveAccount(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Account, error) {
	account, err := e.Accounts.GetByOwnerAndCurrency(ctx, ownerID, currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account != nil {
		return account, nil
	}
	account, err = e.Accounts.GetPrimary(ctx, ownerID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get primary account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound(ownerID.String())
	}
	return account, nil
}

func (e *TransferEngine) treasury(ctx context.Context, currency string) (*domain.Account, error) {
	return treasuryAccount(ctx, e.Accounts, e.treasuryOwnerID, currency)
}

func treasuryAccount(ctx context.Context, accounts ports.AccountRepository, ownerID uuid.UUID, currency string) (*domain.Account, error) {
	account, err := accounts.GetByOwnerAndCurrency(ctx, ownerID, currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get treasury account: %w", err))
	}
	if account == nil {
		return nil, apperror.InternalError(fmt.Errorf("no treasury account for %s", currency))
	}
	return account, nil
}

func (e *TransferEngine) freeze(ctx context.Context, plan *transferPlan, event *domain.RiskEvent) error {
	reason := fmt.Sprintf("risk score %d: %s", event.Score, strings.Join(event.Reasons, ","))
	if err := e.Status.SetAccountStatus(ctx, plan.req.SenderOwnerID, true, reason); err != nil {
		return err
	}
	e.Balances.Invalidate(ctx, plan.sender.ID)

	e.Dispatcher.Enqueue(domain.OutboundEvent{
		ID:         uuid.New(),
		Type:       domain.EventAccountFrozen,
		OwnerID:    plan.req.SenderOwnerID,
		Amount:     plan.req.Amount,
		Currency:   plan.req.FromCurrency,
		Status:     string(domain.AccountStatusFrozen),
		Device:     plan.req.Risk,
		OccurredAt: e.now().UTC(),
		Notifications: []domain.Notification{{
			OwnerID:  plan.req.SenderOwnerID,
			Title:    "Account frozen",
			Body:     "Your account was frozen after unusual activity. Contact support to restore access.",
			Category: "security",
		}},
	})

	metrics.RecordTransfer("frozen")
	e.log.Warn().
		Str("owner_id", plan.req.SenderOwnerID.String()).
		Int("score", event.Score).
		Strs("reasons", event.Reasons).
		Msg("account frozen by risk evaluation")
	return apperror.ErrRiskFrozen()
}

// stepUp returns a challenge receipt, or nil when the caller already proved
// (or the device is trusted for) this intent.
func (e *TransferEngine) stepUp(ctx context.Context, plan *transferPlan, riskEventID *uuid.UUID) (*domain.Receipt, error) {
	req := plan.req
	if req.StepUpToken != "" {
		if err := e.Challenges.VerifyStepUp(req.StepUpToken, req.SenderOwnerID, domain.PurposeTransfer, req.IdempotencyKey); err != nil {
			return nil, err
		}
		return nil, nil
	}

	payload, err := json.Marshal(req.Intent())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal intent: %w", err))
	}
	result, err := e.Challenges.Begin(ctx, domain.StepUpRequest{
		OwnerID: req.SenderOwnerID,
		Purpose: domain.PurposeTransfer,
		Binding: req.IdempotencyKey,
		Payload: payload,
		Device:  req.Risk,
	})
	if err != nil {
		return nil, err
	}
	if result.Trusted {
		return nil, nil
	}

	metrics.RecordTransfer(string(domain.OutcomeChallengeRequired))
	return &domain.Receipt{
		Outcome:            domain.OutcomeChallengeRequired,
		Amount:             req.Amount,
		Currency:           req.FromCurrency,
		ConvertedAmount:    plan.converted,
		ToCurrency:         plan.toCcy,
		Rate:               plan.rate,
		Fee:                req.Fee,
		RiskEventID:        riskEventID,
		ChallengeID:        result.ChallengeID,
		ChallengeExpiresAt: result.ExpiresAt,
	}, nil
}

func (e *TransferEngine) newTransfer(plan *transferPlan, status domain.TransferStatus, riskEventID *uuid.UUID, now time.Time) *domain.Transfer {
	return &domain.Transfer{
		ID:               uuid.New(),
		SenderOwnerID:    plan.req.SenderOwnerID,
		RecipientOwnerID: plan.req.RecipientOwnerID,
		FromAccountID:    plan.sender.ID,
		ToAccountID:      plan.recipient.ID,
		Amount:           plan.req.Amount,
		Currency:         plan.req.FromCurrency,
		ConvertedAmount:  plan.converted,
		ToCurrency:       plan.toCcy,
		Rate:             plan.rate,
		Fee:              plan.req.Fee,
		Status:           status,
		IdempotencyKey:   plan.req.IdempotencyKey,
		RiskEventID:      riskEventID,
		CreatedAt:        now,
	}
}

// postingLegs builds the balanced entries of a completed transfer. Every
// currency nets to zero on its own: cross-currency value passes through the
// treasury account of each currency.
func postingLegs(plan *transferPlan, t *domain.Transfer) []domain.LedgerEntry {
	ref := ""
	if t.IsCrossCurrency() {
		ref = domain.FXReference(t.Currency, t.ToCurrency, t.Rate)
	}

	entries := []domain.LedgerEntry{
		domain.NewEntry(plan.sender.ID, t.Amount.Neg(), domain.EntryTransferDebit, t.ID, ref, t.CreatedAt),
	}
	if t.IsCrossCurrency() {
		entries = append(entries,
			domain.NewEntry(plan.fromTreasury.ID, t.Amount, domain.EntryFXCredit, t.ID, ref, t.CreatedAt),
			domain.NewEntry(plan.toTreasury.ID, t.ConvertedAmount.Neg(), domain.EntryFXDebit, t.ID, ref, t.CreatedAt),
		)
	}
	entries = append(entries,
		domain.NewEntry(plan.recipient.ID, t.ConvertedAmount, domain.EntryTransferCredit, t.ID, ref, t.CreatedAt),
	)
	if t.Fee.IsPositive() {
		entries = append(entries,
			domain.NewEntry(plan.sender.ID, t.Fee.Neg(), domain.EntryFeeDebit, t.ID, ref, t.CreatedAt),
			domain.NewEntry(plan.fromTreasury.ID, t.Fee, domain.EntryFeeCredit, t.ID, ref, t.CreatedAt),
		)
	}
	return entries
}

// touched lists every account a completed transfer posts to.
func (p *transferPlan) touched() []uuid.UUID {
	ids := []uuid.UUID{p.sender.ID, p.recipient.ID}
	if p.fromTreasury != nil {
		ids = append(ids, p.fromTreasury.ID)
	}
	if p.toTreasury != nil {
		ids = append(ids, p.toTreasury.ID)
	}
	return ids
}

// lockAndCheck locks the sender row and re-verifies availability inside dbTx.
func (e *TransferEngine) lockAndCheck(ctx context.Context, dbTx pgx.Tx, plan *transferPlan) error {
	sender, err := e.Accounts.GetByIDForUpdate(ctx, dbTx, plan.sender.ID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock sender account: %w", err))
	}
	if sender == nil {
		return apperror.ErrAccountNotFound(plan.req.SenderOwnerID.String())
	}
	if sender.IsFrozen() {
		return apperror.ErrAccountFrozen()
	}

	sums, err := e.Ledger.SumsByAccount(ctx, dbTx, sender.ID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("sum sender entries: %w", err))
	}
	balance := domain.BalanceFromSums(sender.ID, sums)
	if balance.Available.LessThan(plan.debited()) {
		metrics.RecordTransfer("insufficient_funds")
		return apperror.ErrInsufficientFunds()
	}
	return nil
}

// persist runs the locked write and resolves a lost key race to the winner's receipt.
func (e *TransferEngine) persist(
	ctx context.Context,
	plan *transferPlan,
	t *domain.Transfer,
	entries []domain.LedgerEntry,
) (*domain.Receipt, error) {
	dbTx, err := e.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := e.lockAndCheck(ctx, dbTx, plan); err != nil {
		return nil, err
	}

	if err := e.Transfers.Create(ctx, dbTx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			_ = dbTx.Rollback(ctx)
			return e.winnerReceipt(ctx, plan.req)
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create transfer: %w", err))
	}

	if err := e.Ledger.Append(ctx, dbTx, entries); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("append entries: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil, nil
}

func (e *TransferEngine) winnerReceipt(ctx context.Context, req domain.TransferRequest) (*domain.Receipt, error) {
	winner, err := e.Transfers.GetByIdempotencyKey(ctx, req.SenderOwnerID, req.IdempotencyKey)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup transfer by key: %w", err))
	}
	if winner == nil {
		return nil, apperror.ErrRequestInProgress()
	}
	receipt := domain.ReceiptFor(winner)
	receipt.Replayed = true
	return receipt, nil
}

func (e *TransferEngine) complete(ctx context.Context, plan *transferPlan, riskEventID *uuid.UUID) (*domain.Receipt, error) {
	t := e.newTransfer(plan, domain.TransferStatusCompleted, riskEventID, e.now().UTC())

	replay, err := e.persist(ctx, plan, t, postingLegs(plan, t))
	if err != nil || replay != nil {
		return replay, err
	}

	e.Balances.Invalidate(ctx, plan.touched()...)
	e.Dispatcher.Enqueue(transferEvent(domain.EventTransferCompleted, t, plan.req.Risk, []domain.Notification{
		{
			OwnerID:  t.SenderOwnerID,
			Title:    "Transfer sent",
			Body:     fmt.Sprintf("You sent %s %s.", money.Format(t.Amount), t.Currency),
			Category: "transfer",
		},
		{
			OwnerID:  t.RecipientOwnerID,
			Title:    "Money received",
			Body:     fmt.Sprintf("You received %s %s.", money.Format(t.ConvertedAmount), t.ToCurrency),
			Category: "transfer",
		},
	}))

	metrics.RecordTransfer(string(domain.OutcomeCompleted))
	e.log.Info().
		Str("transfer_id", t.ID.String()).
		Str("owner_id", t.SenderOwnerID.String()).
		Str("amount", t.Amount.String()).
		Str("currency", t.Currency).
		Str("converted_amount", t.ConvertedAmount.String()).
		Str("to_currency", t.ToCurrency).
		Msg("transfer completed")
	return domain.ReceiptFor(t), nil
}

// hold reserves amount+fee on the sender with a single memo entry. The
// recipient sees nothing until the hold is resolved.
func (e *TransferEngine) hold(ctx context.Context, plan *transferPlan, riskEventID *uuid.UUID) (*domain.Receipt, error) {
	t := e.newTransfer(plan, domain.TransferStatusPendingReview, riskEventID, e.now().UTC())

	replay, err := e.persist(ctx, plan, t, []domain.LedgerEntry{
		domain.NewEntry(plan.sender.ID, t.Debited().Neg(), domain.EntryHoldDebit, t.ID, domain.HoldReference(t.ID), t.CreatedAt),
	})
	if err != nil || replay != nil {
		return replay, err
	}

	e.Balances.Invalidate(ctx, plan.sender.ID)
	e.Dispatcher.Enqueue(transferEvent(domain.EventTransferHeld, t, plan.req.Risk, []domain.Notification{{
		OwnerID:  t.SenderOwnerID,
		Title:    "Transfer under review",
		Body:     fmt.Sprintf("Your transfer of %s %s is being reviewed.", money.Format(t.Amount), t.Currency),
		Category: "transfer",
	}}))

	metrics.RecordTransfer(string(domain.OutcomeHeld))
	e.log.Info().
		Str("transfer_id", t.ID.String()).
		Str("owner_id", t.SenderOwnerID.String()).
		Str("amount", t.Debited().String()).
		Str("currency", t.Currency).
		Msg("transfer held for review")
	return domain.ReceiptFor(t), nil
}

// CashIn credits an owner's account from the treasury account of the same currency.
// Reference is the idempotency key: a repeated reference returns the original transfer.
func (e *TransferEngine) CashIn(ctx context.Context, req ports.CashInRequest) (*domain.Transfer, error) {
	currency := strings.ToUpper(req.Currency)
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if !money.HasValidPrecision(req.Amount) {
		return nil, apperror.ErrAmountPrecision()
	}
	if req.Reference == "" {
		return nil, apperror.Validation("Reference is required")
	}

	existing, err := e.Transfers.GetByIdempotencyKey(ctx, e.treasuryOwnerID, req.Reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup cash-in: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	account, err := e.Accounts.GetByOwnerAndCurrency(ctx, req.OwnerID, currency)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound(req.OwnerID.String())
	}
	if account.IsFrozen() {
		return nil, apperror.ErrAccountFrozen()
	}
	treasury, err := e.treasury(ctx, currency)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	one := decimal.NewFromInt(1)
	t := &domain.Transfer{
		ID:               uuid.New(),
		SenderOwnerID:    e.treasuryOwnerID,
		RecipientOwnerID: req.OwnerID,
		FromAccountID:    treasury.ID,
		ToAccountID:      account.ID,
		Amount:           req.Amount,
		Currency:         currency,
		ConvertedAmount:  req.Amount,
		ToCurrency:       currency,
		Rate:             one,
		Fee:              decimal.Zero,
		Status:           domain.TransferStatusCompleted,
		IdempotencyKey:   req.Reference,
		CreatedAt:        now,
	}

	dbTx, err := e.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := e.Transfers.Create(ctx, dbTx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			_ = dbTx.Rollback(ctx)
			return e.Transfers.GetByIdempotencyKey(ctx, e.treasuryOwnerID, req.Reference)
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create cash-in: %w", err))
	}
	entries := []domain.LedgerEntry{
		domain.NewEntry(treasury.ID, req.Amount.Neg(), domain.EntryCashIn, t.ID, "", now),
		domain.NewEntry(account.ID, req.Amount, domain.EntryCashIn, t.ID, "", now),
	}
	if err := e.Ledger.Append(ctx, dbTx, entries); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("append entries: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	e.Balances.Invalidate(ctx, treasury.ID, account.ID)
	e.Dispatcher.Enqueue(transferEvent(domain.EventTransferCompleted, t, domain.RiskContext{}, []domain.Notification{{
		OwnerID:  req.OwnerID,
		Title:    "Cash in",
		Body:     fmt.Sprintf("%s %s was added to your account.", money.Format(req.Amount), currency),
		Category: "cash_in",
	}}))

	e.log.Info().
		Str("transfer_id", t.ID.String()).
		Str("owner_id", req.OwnerID.String()).
		Str("amount", req.Amount.String()).
		Str("currency", currency).
		Msg("cash-in posted")
	return t, nil
}

func transferEvent(typ domain.EventType, t *domain.Transfer, device domain.RiskContext, notes []domain.Notification) domain.OutboundEvent {
	transferID := t.ID
	counterparty := t.RecipientOwnerID
	return domain.OutboundEvent{
		ID:             uuid.New(),
		Type:           typ,
		OwnerID:        t.SenderOwnerID,
		CounterpartyID: &counterparty,
		TransferID:     &transferID,
		Amount:         t.Amount,
		Currency:       t.Currency,
		Status:         string(t.Status),
		Device:         device,
		Notifications:  notes,
		OccurredAt:     t.CreatedAt,
	}
}
