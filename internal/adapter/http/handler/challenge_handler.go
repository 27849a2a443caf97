package handler

import (
	"mobile-money-ledger/internal/adapter/http/dto"
	"mobile-money-ledger/internal/adapter/http/middleware"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChallengeHandler exposes the step-up challenge endpoints.
type ChallengeHandler struct {
	challenges ports.ChallengeService
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(challenges ports.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges}
}

// Create handles POST /api/v1/challenges. The code goes out of band and is
// never part of the response.
func (h *ChallengeHandler) Create(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	challenge, err := h.challenges.CreateChallenge(c.Request.Context(), ownerID, req.Purpose, req.Binding, req.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CreateChallengeResponse{
		ChallengeID: challenge.ID.String(),
		ExpiresAt:   challenge.ExpiresAt,
	})
}

// Consume handles POST /api/v1/challenges/:id/consume.
func (h *ChallengeHandler) Consume(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrChallengeNotFound())
		return
	}

	var req dto.ConsumeChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.challenges.ConsumeChallenge(c.Request.Context(), ownerID, challengeID, req.Code, domain.RiskContext{
		DeviceFingerprint: c.GetHeader(HeaderDeviceFingerprint),
		NetworkOrigin:     c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}
