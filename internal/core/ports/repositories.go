package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByOwnerAndCurrency(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Account, error)
	GetPrimary(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	SetStatusByOwner(ctx context.Context, ownerID uuid.UUID, status domain.AccountStatus, reason *string) (int64, error)
}

// LedgerRepository is the append-only entry store.
type LedgerRepository interface {
	// Append writes every entry or none of them.
	Append(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error
	// SumsByAccount groups the account's amounts by entry type. A nil tx reads outside any transaction.
	SumsByAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (domain.EntrySums, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, filter domain.EntryFilter) ([]domain.LedgerEntry, error)
	ListByTransfer(ctx context.Context, transferID uuid.UUID) ([]domain.LedgerEntry, error)
}

// TransferRepository defines persistence operations for transfers.
type TransferRepository interface {
	// Create returns domain.ErrDuplicate when (sender, idempotency key) already exists.
	Create(ctx context.Context, tx pgx.Tx, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	GetByIdempotencyKey(ctx context.Context, senderOwnerID uuid.UUID, key string) (*domain.Transfer, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transfer, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransferStatus, resolvedAt time.Time) error
	CountCompletedSince(ctx context.Context, senderOwnerID uuid.UUID, since time.Time) (int64, error)
}

// IdempotencyRepository persists idempotency records. Insert is the
// concurrency primitive: it returns domain.ErrDuplicate when (key, route) exists.
type IdempotencyRepository interface {
	Insert(ctx context.Context, record *domain.IdempotencyRecord) error
	Get(ctx context.Context, key, route string) (*domain.IdempotencyRecord, error)
	Complete(ctx context.Context, key, route string, result []byte) error
	Fail(ctx context.Context, key, route string, reason string, result []byte) error
	// Reclaim moves a failed record with the same hash back to processing.
	// It reports false when another attempt reclaimed it first.
	Reclaim(ctx context.Context, key, route, requestHash string) (bool, error)
	// ReclaimStale takes over a processing record with the same hash whose
	// last update is before staleBefore (its owner crashed or lost finalize).
	ReclaimStale(ctx context.Context, key, route, requestHash string, staleBefore time.Time) (bool, error)
}

// RiskRepository persists risk events and standing account flags.
type RiskRepository interface {
	CreateEvent(ctx context.Context, event *domain.RiskEvent) error
	CreateFlag(ctx context.Context, flag *domain.RiskFlag) error
	CountOpenFlags(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// ChallengeRepository persists step-up challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *domain.Challenge) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Challenge, error)
	Update(ctx context.Context, tx pgx.Tx, challenge *domain.Challenge) error
}

// DeviceRepository is the durable device-session store.
type DeviceRepository interface {
	HasFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string) (bool, error)
	HasOrigin(ctx context.Context, ownerID uuid.UUID, origin string) (bool, error)
	IsTrusted(ctx context.Context, ownerID uuid.UUID, fingerprint, origin string) (bool, error)
	// Upsert records a sighting. Trust is never revoked by a later untrusted sighting.
	Upsert(ctx context.Context, session *domain.DeviceSession) error
}

// CounterpartyRepository tracks which owners have successfully paid which.
type CounterpartyRepository interface {
	Exists(ctx context.Context, ownerID, counterpartyID uuid.UUID) (bool, error)
	Record(ctx context.Context, ownerID, counterpartyID uuid.UUID, at time.Time) error
}

// AuditRepository stores a copy of every dispatched outbound event.
type AuditRepository interface {
	Insert(ctx context.Context, record *domain.AuditRecord) error
}
