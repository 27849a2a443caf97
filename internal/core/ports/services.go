package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, body string) string
}

// HashService hashes short secrets (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// Token roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// TokenService handles access and step-up JWTs.
type TokenService interface {
	Generate(ownerID uuid.UUID, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
	GenerateStepUp(ownerID uuid.UUID, purpose, binding string) (string, time.Time, error)
	ValidateStepUp(tokenString string) (*StepUpClaims, error)
}

// TokenClaims holds the parsed access token claims.
type TokenClaims struct {
	OwnerID uuid.UUID
	Role    string
}

// StepUpClaims holds the parsed step-up token claims.
type StepUpClaims struct {
	OwnerID   uuid.UUID
	Purpose   string
	Binding   string
	ExpiresAt time.Time
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached envelope or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// BalanceCache shadows computed balances. It is never authoritative.
// Delete advances each account's generation; Set stores a balance only if the
// generation read before computing it is still current.
type BalanceCache interface {
	Get(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error)
	Generation(ctx context.Context, accountID uuid.UUID) (int64, error)
	Set(ctx context.Context, balance *domain.Balance, generation int64, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, accountIDs ...uuid.UUID) error
}

// --- Service Ports (Business Logic) ---

// BalanceCalculator derives balances from ledger entries.
type BalanceCalculator interface {
	ComputeBalance(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error)
	// Settled recomputes from entries and never consults the cache.
	Settled(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error)
	OwnerBalance(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.Balance, error)
	History(ctx context.Context, ownerID, accountID uuid.UUID, filter domain.EntryFilter) ([]domain.LedgerEntry, error)
	Invalidate(ctx context.Context, accountIDs ...uuid.UUID)
}

// IdempotentResult is what a keyed operation hands back to the coordinator.
// A non-final result is returned to the caller but leaves the key reusable.
type IdempotentResult struct {
	Body  []byte
	Final bool
}

// IdempotentOutcome is what the coordinator returns to its caller.
type IdempotentOutcome struct {
	Body     []byte
	Replayed bool
}

// IdempotentOperation is the work guarded by the coordinator.
type IdempotentOperation func(ctx context.Context) (IdempotentResult, error)

// IdempotencyCoordinator executes an operation at most once per (owner, route, key).
type IdempotencyCoordinator interface {
	Execute(ctx context.Context, ownerID uuid.UUID, route, key string, payload any, op IdempotentOperation) (*IdempotentOutcome, error)
}

// RiskEvaluator scores a prospective transaction and persists the result.
type RiskEvaluator interface {
	Evaluate(ctx context.Context, input domain.RiskInput) (*domain.RiskEvent, error)
}

// DeviceTrust answers whether a device may skip challenge delivery.
type DeviceTrust interface {
	IsTrusted(ctx context.Context, ownerID uuid.UUID, fingerprint, origin string) (bool, error)
	Trust(ctx context.Context, ownerID uuid.UUID, fingerprint, origin string) error
}

// ChallengeService implements the step-up sub-flow.
type ChallengeService interface {
	Begin(ctx context.Context, req domain.StepUpRequest) (*domain.StepUpResult, error)
	CreateChallenge(ctx context.Context, ownerID uuid.UUID, purpose, binding string, payload []byte) (*domain.Challenge, error)
	ConsumeChallenge(ctx context.Context, ownerID, challengeID uuid.UUID, code string, device domain.RiskContext) (*domain.ConsumeResult, error)
	VerifyStepUp(token string, ownerID uuid.UUID, purpose, binding string) error
}

// TransferEngine executes one transfer attempt.
type TransferEngine interface {
	ExecuteTransfer(ctx context.Context, req domain.TransferRequest) (*domain.Receipt, error)
}

// TransferService is the idempotent entry point in front of the engine.
type TransferService interface {
	Transfer(ctx context.Context, req domain.TransferRequest) (*domain.Receipt, error)
	CashIn(ctx context.Context, req CashInRequest) (*domain.Transfer, error)
}

// CashInRequest credits an owner's account from treasury.
type CashInRequest struct {
	OwnerID   uuid.UUID
	Amount    decimal.Decimal
	Currency  string
	Reference string // idempotency key for the credit
}

// HoldResolver terminates pending_review transfers exactly once.
type HoldResolver interface {
	ResolveHold(ctx context.Context, req domain.ResolveHoldRequest) (*domain.Transfer, error)
}

// EventDispatcher queues post-commit side effects. Enqueue never blocks.
type EventDispatcher interface {
	Enqueue(event domain.OutboundEvent) bool
}
