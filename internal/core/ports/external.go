package ports

//go:generate mockgen -source=external.go -destination=mocks/mock_external.go -package=mocks

import (
	"context"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateProvider resolves the current exchange rate. Failures must propagate;
// callers never default to a rate of one.
type RateProvider interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Notifier delivers a user-facing notification. Best effort.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// CodeDeliverer sends a step-up code out of band.
type CodeDeliverer interface {
	DeliverCode(ctx context.Context, destination, code string) error
}

// AccountStatusUpdater freezes or unfreezes every account of an owner.
type AccountStatusUpdater interface {
	SetAccountStatus(ctx context.Context, ownerID uuid.UUID, frozen bool, reason string) error
}

// EventPublisher emits outbound events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OutboundEvent) error
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
