package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mobile-money-ledger/config"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/internal/metrics"
	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RiskPolicy holds the point values and thresholds the evaluator applies.
type RiskPolicy struct {
	UnfamiliarDevicePoints  int
	UnfamiliarNetworkPoints int
	HighAmountPoints        int
	MediumAmountPoints      int
	VelocityPoints          int
	NewCounterpartyPoints   int
	FlagPoints              int
	FlagPointsCap           int

	VelocityWindow time.Duration
	VelocityLimit  int64

	DefaultHighAmount   decimal.Decimal
	DefaultMediumAmount decimal.Decimal
	HighAmounts         map[string]decimal.Decimal
	MediumAmounts       map[string]decimal.Decimal

	SignalTimeout time.Duration
}

// RiskPolicyFromConfig parses the configured thresholds. Currency keys are
// upper-cased since viper lower-cases map keys.
func RiskPolicyFromConfig(cfg config.RiskConfig) (RiskPolicy, error) {
	p := RiskPolicy{
		UnfamiliarDevicePoints:  cfg.UnfamiliarDevicePoints,
		UnfamiliarNetworkPoints: cfg.UnfamiliarNetworkPoints,
		HighAmountPoints:        cfg.HighAmountPoints,
		MediumAmountPoints:      cfg.MediumAmountPoints,
		VelocityPoints:          cfg.VelocityPoints,
		NewCounterpartyPoints:   cfg.NewCounterpartyPoints,
		FlagPoints:              cfg.FlagPoints,
		FlagPointsCap:           cfg.FlagPointsCap,
		VelocityWindow:          cfg.VelocityWindow,
		VelocityLimit:           cfg.VelocityLimit,
		SignalTimeout:           cfg.SignalTimeout,
	}

	var err error
	if p.DefaultHighAmount, err = money.Parse(cfg.DefaultHighAmount); err != nil {
		return p, fmt.Errorf("risk.default_high_amount: %w", err)
	}
	if p.DefaultMediumAmount, err = money.Parse(cfg.DefaultMediumAmount); err != nil {
		return p, fmt.Errorf("risk.default_medium_amount: %w", err)
	}
	if p.HighAmounts, err = parseThresholds(cfg.HighAmounts); err != nil {
		return p, fmt.Errorf("risk.high_amounts: %w", err)
	}
	if p.MediumAmounts, err = parseThresholds(cfg.MediumAmounts); err != nil {
		return p, fmt.Errorf("risk.medium_amounts: %w", err)
	}
	return p, nil
}

func parseThresholds(in map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(in))
	for currency, raw := range in {
		v, err := money.Parse(raw)
		if err != nil {
			return nil, err
		}
		out[strings.ToUpper(currency)] = v
	}
	return out, nil
}

func (p RiskPolicy) thresholds(currency string) (high, medium decimal.Decimal) {
	currency = strings.ToUpper(currency)
	high, ok := p.HighAmounts[currency]
	if !ok {
		high = p.DefaultHighAmount
	}
	medium, ok = p.MediumAmounts[currency]
	if !ok {
		medium = p.DefaultMediumAmount
	}
	return high, medium
}

// RiskService implements ports.RiskEvaluator.
type RiskService struct {
	deviceRepo       ports.DeviceRepository
	transferRepo     ports.TransferRepository
	counterpartyRepo ports.CounterpartyRepository
	riskRepo         ports.RiskRepository
	policy           RiskPolicy
	now              func() time.Time
	log              zerolog.Logger
}

// NewRiskService creates a new RiskService.
func NewRiskService(
	deviceRepo ports.DeviceRepository,
	transferRepo ports.TransferRepository,
	counterpartyRepo ports.CounterpartyRepository,
	riskRepo ports.RiskRepository,
	policy RiskPolicy,
	log zerolog.Logger,
) *RiskService {
	return &RiskService{
		deviceRepo:       deviceRepo,
		transferRepo:     transferRepo,
		counterpartyRepo: counterpartyRepo,
		riskRepo:         riskRepo,
		policy:           policy,
		now:              time.Now,
		log:              log,
	}
}

// riskSignals accumulates points from concurrently evaluated signals.
type riskSignals struct {
	mu      sync.Mutex
	score   int
	reasons map[string]bool
}

func (r *riskSignals) add(reason string, points int) {
	if points <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.score += points
	r.reasons[reason] = true
}

// reasonOrder keeps persisted reasons stable regardless of which signal finished first.
var reasonOrder = []string{
	domain.ReasonUnfamiliarDevice,
	domain.ReasonUnfamiliarNetwork,
	domain.ReasonHighAmount,
	domain.ReasonMediumAmount,
	domain.ReasonHighVelocity,
	domain.ReasonNewCounterparty,
	domain.ReasonOpenAccountFlags,
}

// Evaluate scores the input, persists a risk event and, for a block, an
// open account flag. A failing signal fails the evaluation.
func (s *RiskService) Evaluate(ctx context.Context, input domain.RiskInput) (*domain.RiskEvent, error) {
	now := s.now().UTC()
	signals := &riskSignals{reasons: make(map[string]bool)}

	sigCtx := ctx
	if s.policy.SignalTimeout > 0 {
		var cancel context.CancelFunc
		sigCtx, cancel = context.WithTimeout(ctx, s.policy.SignalTimeout)
		defer cancel()
	}
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		fp := input.Context.DeviceFingerprint
		if fp == "" {
			signals.add(domain.ReasonUnfamiliarDevice, s.policy.UnfamiliarDevicePoints)
			return nil
		}
		known, err := s.deviceRepo.HasFingerprint(gctx, input.OwnerID, fp)
		if err != nil {
			return fmt.Errorf("device signal: %w", err)
		}
		if !known {
			signals.add(domain.ReasonUnfamiliarDevice, s.policy.UnfamiliarDevicePoints)
		}
		return nil
	})

	g.Go(func() error {
		origin := input.Context.NetworkOrigin
		if origin == "" {
			signals.add(domain.ReasonUnfamiliarNetwork, s.policy.UnfamiliarNetworkPoints)
			return nil
		}
		known, err := s.deviceRepo.HasOrigin(gctx, input.OwnerID, origin)
		if err != nil {
			return fmt.Errorf("network signal: %w", err)
		}
		if !known {
			signals.add(domain.ReasonUnfamiliarNetwork, s.policy.UnfamiliarNetworkPoints)
		}
		return nil
	})

	g.Go(func() error {
		if s.policy.VelocityLimit <= 0 {
			return nil
		}
		count, err := s.transferRepo.CountCompletedSince(gctx, input.OwnerID, now.Add(-s.policy.VelocityWindow))
		if err != nil {
			return fmt.Errorf("velocity signal: %w", err)
		}
		if count > s.policy.VelocityLimit {
			signals.add(domain.ReasonHighVelocity, s.policy.VelocityPoints)
		}
		return nil
	})

	if input.CounterpartyID != nil {
		g.Go(func() error {
			known, err := s.counterpartyRepo.Exists(gctx, input.OwnerID, *input.CounterpartyID)
			if err != nil {
				return fmt.Errorf("counterparty signal: %w", err)
			}
			if !known {
				signals.add(domain.ReasonNewCounterparty, s.policy.NewCounterpartyPoints)
			}
			return nil
		})
	}

	g.Go(func() error {
		open, err := s.riskRepo.CountOpenFlags(gctx, input.OwnerID)
		if err != nil {
			return fmt.Errorf("flag signal: %w", err)
		}
		points := open * s.policy.FlagPoints
		if s.policy.FlagPointsCap > 0 && points > s.policy.FlagPointsCap {
			points = s.policy.FlagPointsCap
		}
		signals.add(domain.ReasonOpenAccountFlags, points)
		return nil
	})

	high, medium := s.policy.thresholds(input.Currency)
	switch {
	case input.Amount.GreaterThanOrEqual(high):
		signals.add(domain.ReasonHighAmount, s.policy.HighAmountPoints)
	case input.Amount.GreaterThanOrEqual(medium):
		signals.add(domain.ReasonMediumAmount, s.policy.MediumAmountPoints)
	}

	if err := g.Wait(); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("evaluate risk: %w", err))
	}

	score := domain.ClampScore(signals.score)
	level, action := domain.ClassifyScore(score)
	reasons := make([]string, 0, len(signals.reasons))
	for _, r := range reasonOrder {
		if signals.reasons[r] {
			reasons = append(reasons, r)
		}
	}

	event := &domain.RiskEvent{
		ID:        uuid.New(),
		OwnerID:   input.OwnerID,
		Score:     score,
		Level:     level,
		Reasons:   reasons,
		Action:    action,
		CreatedAt: now,
	}
	if err := s.riskRepo.CreateEvent(ctx, event); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("persist risk event: %w", err))
	}

	if action == domain.RiskActionBlock {
		flag := &domain.RiskFlag{
			ID:          uuid.New(),
			OwnerID:     input.OwnerID,
			RiskEventID: event.ID,
			Reason:      strings.Join(reasons, ","),
			CreatedAt:   now,
		}
		if err := s.riskRepo.CreateFlag(ctx, flag); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("persist risk flag: %w", err))
		}
	}

	metrics.RecordRiskScore(string(action), score)
	s.log.Debug().
		Str("owner_id", input.OwnerID.String()).
		Int("score", score).
		Str("action", string(action)).
		Strs("reasons", reasons).
		Msg("risk evaluated")

	return event, nil
}
