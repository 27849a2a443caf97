package handler

import (
	"strings"

	"mobile-money-ledger/internal/adapter/http/dto"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/money"
	"mobile-money-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves operator routes. All of them sit behind RequireRole(admin).
type AdminHandler struct {
	holds     ports.HoldResolver
	transfers ports.TransferService
	status    ports.AccountStatusUpdater
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(holds ports.HoldResolver, transfers ports.TransferService, status ports.AccountStatusUpdater) *AdminHandler {
	return &AdminHandler{holds: holds, transfers: transfers, status: status}
}

// ResolveHold handles POST /api/v1/admin/holds/:transfer_id/resolve.
func (h *AdminHandler) ResolveHold(c *gin.Context) {
	transferID, err := uuid.Parse(c.Param("transfer_id"))
	if err != nil {
		response.Error(c, apperror.Validation("transfer_id must be a UUID"))
		return
	}

	var req dto.ResolveHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	resolve := domain.ResolveHoldRequest{
		TransferID: transferID,
		Decision:   domain.HoldDecision(req.Decision),
	}
	if req.RefundOwnerID != "" {
		refund, err := uuid.Parse(req.RefundOwnerID)
		if err != nil {
			response.Error(c, apperror.Validation("refund_owner_id must be a UUID"))
			return
		}
		resolve.RefundOwnerID = &refund
	}

	transfer, err := h.holds.ResolveHold(c.Request.Context(), resolve)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, transfer)
}

// CashIn handles POST /api/v1/admin/cash-in.
func (h *AdminHandler) CashIn(c *gin.Context) {
	var req dto.CashInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("owner_id must be a UUID"))
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	transfer, err := h.transfers.CashIn(c.Request.Context(), ports.CashInRequest{
		OwnerID:   ownerID,
		Amount:    amount,
		Currency:  strings.ToUpper(req.Currency),
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transfer)
}

// SetAccountStatus handles PUT /api/v1/admin/owners/:owner_id/status.
func (h *AdminHandler) SetAccountStatus(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("owner_id must be a UUID"))
		return
	}

	var req dto.AccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.status.SetAccountStatus(c.Request.Context(), ownerID, req.Frozen, req.Reason); err != nil {
		response.Error(c, err)
		return
	}

	status := domain.AccountStatusActive
	if req.Frozen {
		status = domain.AccountStatusFrozen
	}
	response.OK(c, gin.H{"owner_id": ownerID.String(), "status": status})
}
