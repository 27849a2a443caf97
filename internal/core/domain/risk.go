package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

type RiskAction string

const (
	RiskActionAllow     RiskAction = "allow"
	RiskActionChallenge RiskAction = "challenge"
	RiskActionBlock     RiskAction = "block"
	RiskActionFreeze    RiskAction = "freeze"
)

// Reason strings are shown to operators and must stay stable.
const (
	ReasonUnfamiliarDevice  = "unfamiliar_device"
	ReasonUnfamiliarNetwork = "unfamiliar_network"
	ReasonHighAmount        = "high_amount"
	ReasonMediumAmount      = "medium_amount"
	ReasonHighVelocity      = "high_velocity"
	ReasonNewCounterparty   = "new_counterparty"
	ReasonOpenAccountFlags  = "open_account_flags"
)

const (
	MinRiskScore = 0
	MaxRiskScore = 100
)

// RiskContext carries request-side signals.
type RiskContext struct {
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
	NetworkOrigin     string `json:"network_origin,omitempty"`
}

// RiskInput is what the evaluator scores.
type RiskInput struct {
	OwnerID        uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	CounterpartyID *uuid.UUID
	Context        RiskContext
}

// RiskEvent is the immutable audit record of one evaluation.
type RiskEvent struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	Score     int        `json:"score"`
	Level     RiskLevel  `json:"level"`
	Reasons   []string   `json:"reasons"`
	Action    RiskAction `json:"action"`
	CreatedAt time.Time  `json:"created_at"`
}

// RiskFlag is a standing account-level flag raised by a block.
type RiskFlag struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	RiskEventID uuid.UUID  `json:"risk_event_id"`
	Reason      string     `json:"reason"`
	Resolved    bool       `json:"resolved"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// ClampScore bounds a raw score to [0,100].
func ClampScore(score int) int {
	if score < MinRiskScore {
		return MinRiskScore
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// ClassifyScore maps a clamped score to level and action, high to low.
func ClassifyScore(score int) (RiskLevel, RiskAction) {
	switch {
	case score >= 90:
		return RiskLevelHigh, RiskActionFreeze
	case score >= 70:
		return RiskLevelHigh, RiskActionBlock
	case score >= 40:
		return RiskLevelMedium, RiskActionChallenge
	default:
		return RiskLevelLow, RiskActionAllow
	}
}
