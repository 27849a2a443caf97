package service

import (
	"context"
	"errors"
	"fmt"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
)

// NotificationHandler sends every notification attached to the event.
func NotificationHandler(notifier ports.Notifier) EventHandlerFunc {
	return func(ctx context.Context, event domain.OutboundEvent) error {
		var errs []error
		for _, n := range event.Notifications {
			if err := notifier.Notify(ctx, n); err != nil {
				errs = append(errs, fmt.Errorf("notify %s: %w", n.OwnerID, err))
			}
		}
		return errors.Join(errs...)
	}
}

// PublishHandler forwards the event to the message broker.
func PublishHandler(publisher ports.EventPublisher) EventHandlerFunc {
	return func(ctx context.Context, event domain.OutboundEvent) error {
		return publisher.Publish(ctx, event)
	}
}

// BookkeepingHandler records the counterparty pair of a completed transfer
// and marks the sender's device and origin as seen.
func BookkeepingHandler(counterparties ports.CounterpartyRepository, devices *DeviceTrustService) EventHandlerFunc {
	return func(ctx context.Context, event domain.OutboundEvent) error {
		if event.Type != domain.EventTransferCompleted && event.Type != domain.EventTransferHeld {
			return nil
		}
		if event.Type == domain.EventTransferCompleted && event.CounterpartyID != nil {
			if err := counterparties.Record(ctx, event.OwnerID, *event.CounterpartyID, event.OccurredAt); err != nil {
				return fmt.Errorf("record counterparty: %w", err)
			}
		}
		if err := devices.Observe(ctx, event.OwnerID, event.Device, event.OccurredAt); err != nil {
			return fmt.Errorf("observe device: %w", err)
		}
		return nil
	}
}
