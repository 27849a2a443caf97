package handler

import (
	"strconv"
	"strings"
	"time"

	"mobile-money-ledger/internal/adapter/http/dto"
	"mobile-money-ledger/internal/adapter/http/middleware"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler serves balance and history reads for the caller's accounts.
type AccountHandler struct {
	balances ports.BalanceCalculator
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(balances ports.BalanceCalculator) *AccountHandler {
	return &AccountHandler{balances: balances}
}

// GetBalance handles GET /api/v1/accounts/:id/balance.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	ownerID, accountID, ok := ownerAndAccount(c)
	if !ok {
		return
	}

	balance, err := h.balances.OwnerBalance(c.Request.Context(), ownerID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, balance)
}

// ListEntries handles GET /api/v1/accounts/:id/entries.
//
// Query: types (comma separated), transfer_id, since, until (RFC3339), limit.
func (h *AccountHandler) ListEntries(c *gin.Context) {
	ownerID, accountID, ok := ownerAndAccount(c)
	if !ok {
		return
	}

	filter, err := parseEntryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, err := h.balances.History(c.Request.Context(), ownerID, accountID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.ToEntryResponse(e))
	}
	response.OK(c, dto.EntryListResponse{
		AccountID: accountID.String(),
		Items:     items,
		Count:     len(items),
	})
}

func ownerAndAccount(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, uuid.Nil, false
	}
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("account id must be a UUID"))
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, accountID, true
}

func parseEntryFilter(c *gin.Context) (domain.EntryFilter, error) {
	var f domain.EntryFilter

	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				f.Types = append(f.Types, domain.EntryType(t))
			}
		}
	}
	if raw := c.Query("transfer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apperror.Validation("transfer_id must be a UUID")
		}
		f.TransferID = &id
	}
	if raw := c.Query("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, apperror.Validation("since must be RFC3339")
		}
		f.Since = &ts
	}
	if raw := c.Query("until"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, apperror.Validation("until must be RFC3339")
		}
		f.Until = &ts
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, apperror.Validation("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}
