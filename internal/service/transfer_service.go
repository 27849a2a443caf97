package service

import (
	"context"
	"encoding/json"
	"fmt"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/pkg/apperror"
)

// RouteTransfer scopes transfer idempotency records.
const RouteTransfer = "transfers.execute"

// TransferServiceImpl implements ports.TransferService: the idempotency
// coordinator in front of the execution engine.
type TransferServiceImpl struct {
	coordinator ports.IdempotencyCoordinator
	engine      *TransferEngine
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(coordinator ports.IdempotencyCoordinator, engine *TransferEngine) *TransferServiceImpl {
	return &TransferServiceImpl{coordinator: coordinator, engine: engine}
}

// Transfer executes req once per (sender, idempotency key). A challenge
// receipt leaves the key reusable for the step-up retry.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req domain.TransferRequest) (*domain.Receipt, error) {
	outcome, err := s.coordinator.Execute(ctx, req.SenderOwnerID, RouteTransfer, req.IdempotencyKey, req.Intent(),
		func(ctx context.Context) (ports.IdempotentResult, error) {
			receipt, err := s.engine.ExecuteTransfer(ctx, req)
			if err != nil {
				return ports.IdempotentResult{}, err
			}
			body, err := json.Marshal(receipt)
			if err != nil {
				return ports.IdempotentResult{}, apperror.InternalError(fmt.Errorf("marshal receipt: %w", err))
			}
			return ports.IdempotentResult{
				Body:  body,
				Final: receipt.Outcome != domain.OutcomeChallengeRequired,
			}, nil
		})
	if err != nil {
		// A processing record whose transfer already committed (finalize was
		// lost) still replays instead of blocking the retry.
		if apperror.CodeOf(err) == apperror.ErrRequestInProgress().Code {
			if receipt, lookupErr := s.engine.Committed(ctx, req.SenderOwnerID, req.IdempotencyKey); lookupErr == nil && receipt != nil {
				return receipt, nil
			}
		}
		return nil, err
	}

	var receipt domain.Receipt
	if err := json.Unmarshal(outcome.Body, &receipt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal receipt: %w", err))
	}
	if outcome.Replayed {
		receipt.Replayed = true
	}
	return &receipt, nil
}

// CashIn credits an owner's account from treasury.
func (s *TransferServiceImpl) CashIn(ctx context.Context, req ports.CashInRequest) (*domain.Transfer, error) {
	return s.engine.CashIn(ctx, req)
}
