package postgres

import (
	"context"
	"fmt"

	"mobile-money-ledger/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository. It is the audit sink when no
// MongoDB URI is configured.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed AuditRepository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Insert stores the record. Redelivery of the same event is ignored.
func (r *AuditRepo) Insert(ctx context.Context, rec *domain.AuditRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_events (event_id, type, owner_id, transfer_id, amount, currency, status, occurred_at, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (event_id) DO NOTHING`,
		rec.EventID, rec.Type, rec.OwnerID, rec.TransferID, rec.Amount,
		rec.Currency, rec.Status, rec.OccurredAt, rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
