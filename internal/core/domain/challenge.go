package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeStatus: pending -> used | expired. Both targets are terminal.
type ChallengeStatus string

const (
	ChallengePending ChallengeStatus = "pending"
	ChallengeUsed    ChallengeStatus = "used"
	ChallengeExpired ChallengeStatus = "expired"
)

// PurposeTransfer is the purpose used by the transfer engine.
const PurposeTransfer = "transfer"

// Challenge is a single-use, time-boxed verification code.
type Challenge struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	Purpose          string          `json:"purpose"`
	CodeHash         string          `json:"-"`
	EncryptedPayload string          `json:"-"`
	Binding          string          `json:"-"` // what a resulting step-up token is bound to
	Status           ChallengeStatus `json:"status"`
	Attempts         int             `json:"attempts"`
	ExpiresAt        time.Time       `json:"expires_at"`
	CreatedAt        time.Time       `json:"created_at"`
	ConsumedAt       *time.Time      `json:"consumed_at,omitempty"`
}

// IsExpiredAt returns true once the validity window has elapsed.
func (c *Challenge) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsPending returns true if the challenge may still be consumed.
func (c *Challenge) IsPending() bool {
	return c.Status == ChallengePending
}

// StepUpRequest starts a step-up for one intent.
type StepUpRequest struct {
	OwnerID uuid.UUID
	Purpose string
	Binding string
	Payload []byte
	Device  RiskContext
}

// StepUpResult is either a token (trusted device) or a pending challenge.
type StepUpResult struct {
	Token       string     `json:"step_up_token,omitempty"`
	ChallengeID *uuid.UUID `json:"challenge_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Trusted     bool       `json:"trusted_device"`
}

// ConsumeResult returns the payload stored at creation, byte for byte.
type ConsumeResult struct {
	Purpose     string `json:"purpose"`
	Payload     []byte `json:"payload"`
	StepUpToken string `json:"step_up_token"`
}
