package handler

import (
	"strings"

	"mobile-money-ledger/internal/adapter/http/dto"
	"mobile-money-ledger/internal/adapter/http/middleware"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/money"
	"mobile-money-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	HeaderIdempotencyKey    = "Idempotency-Key"
	HeaderDeviceFingerprint = "X-Device-Fingerprint"
	HeaderStepUpToken       = "X-Step-Up-Token"
	HeaderReplayed          = "Idempotent-Replayed"
)

// TransferHandler handles peer-to-peer transfers.
type TransferHandler struct {
	transferSvc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc}
}

// CreateTransfer handles POST /api/v1/transfers.
//
// A completed transfer answers 201. A held transfer or one waiting on a
// step-up challenge answers 202 with the receipt describing what happened.
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	key := c.GetHeader(HeaderIdempotencyKey)
	if !dto.ValidIdempotencyKey(key) {
		response.Error(c, apperror.Validation("Idempotency-Key header is required (max 128 characters of [A-Za-z0-9_-.:])"))
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	recipient, err := uuid.Parse(req.RecipientOwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("recipient_owner_id must be a UUID"))
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	fee := decimal.Zero
	if req.Fee != "" {
		if fee, err = money.Parse(req.Fee); err != nil {
			response.Error(c, apperror.ErrInvalidAmount())
			return
		}
	}

	receipt, err := h.transferSvc.Transfer(c.Request.Context(), domain.TransferRequest{
		SenderOwnerID:    ownerID,
		RecipientOwnerID: recipient,
		Amount:           amount,
		FromCurrency:     strings.ToUpper(req.FromCurrency),
		ToCurrency:       strings.ToUpper(req.ToCurrency),
		Fee:              fee,
		IdempotencyKey:   key,
		Risk: domain.RiskContext{
			DeviceFingerprint: c.GetHeader(HeaderDeviceFingerprint),
			NetworkOrigin:     c.ClientIP(),
		},
		StepUpToken: c.GetHeader(HeaderStepUpToken),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if receipt.Replayed {
		c.Header(HeaderReplayed, "true")
	}
	if receipt.Outcome == domain.OutcomeCompleted {
		response.Created(c, receipt)
		return
	}
	response.Accepted(c, receipt)
}
