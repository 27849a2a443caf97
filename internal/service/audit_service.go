package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// AuditService stores a copy of every dispatched event.
type AuditService struct {
	repo ports.AuditRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit records are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, now: time.Now, log: log}
}

// Handle is an EventHandlerFunc. A record already stored by an earlier
// attempt counts as success.
func (s *AuditService) Handle(ctx context.Context, event domain.OutboundEvent) error {
	record := domain.AuditFromEvent(event, s.now().UTC())
	s.log.Info().
		Str("event_id", record.EventID.String()).
		Str("event_type", string(record.Type)).
		Str("owner_id", record.OwnerID.String()).
		Str("amount", record.Amount).
		Str("currency", record.Currency).
		Msg("audit")

	if s.repo == nil {
		return nil
	}
	if err := s.repo.Insert(ctx, &record); err != nil && !errors.Is(err, domain.ErrDuplicate) {
		return fmt.Errorf("persist audit record: %w", err)
	}
	return nil
}
