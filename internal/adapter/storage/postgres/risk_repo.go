package postgres

import (
	"context"
	"fmt"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// RiskRepo implements ports.RiskRepository.
type RiskRepo struct {
	pool Pool
}

// NewRiskRepo creates a new RiskRepo.
func NewRiskRepo(pool Pool) *RiskRepo {
	return &RiskRepo{pool: pool}
}

// CreateEvent persists a risk evaluation.
func (r *RiskRepo) CreateEvent(ctx context.Context, e *domain.RiskEvent) error {
	query := `INSERT INTO risk_events (id, owner_id, score, level, reasons, action, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query, e.ID, e.OwnerID, e.Score, e.Level, e.Reasons, e.Action, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert risk event: %w", err)
	}
	return nil
}

// CreateFlag opens a standing flag against an owner.
func (r *RiskRepo) CreateFlag(ctx context.Context, f *domain.RiskFlag) error {
	query := `INSERT INTO risk_flags (id, owner_id, risk_event_id, reason, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, f.ID, f.OwnerID, f.RiskEventID, f.Reason, f.Resolved, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert risk flag: %w", err)
	}
	return nil
}

// CountOpenFlags counts the owner's unresolved flags.
func (r *RiskRepo) CountOpenFlags(ctx context.Context, ownerID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM risk_flags WHERE owner_id = $1 AND NOT resolved`

	var count int
	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count open risk flags: %w", err)
	}
	return count, nil
}
