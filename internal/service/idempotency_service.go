package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/internal/metrics"
	"mobile-money-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// reasonStepUpPending finalizes a record whose operation asked for a step-up.
const reasonStepUpPending = "step_up_pending"

// DefaultProcessingLease bounds how long a processing record blocks retries.
const DefaultProcessingLease = time.Minute

// cacheEnvelope is what the fast path stores: the hash guards against key reuse
// even when the database is never consulted.
type cacheEnvelope struct {
	Hash string          `json:"hash"`
	Body json.RawMessage `json:"body"`
}

// IdempotencyService implements ports.IdempotencyCoordinator. The repository
// insert is the only lock; the cache only shortcuts completed replays.
type IdempotencyService struct {
	repo     ports.IdempotencyRepository
	cache    ports.IdempotencyCache
	cacheTTL time.Duration
	lease    time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewIdempotencyService creates a new IdempotencyService. cache may be nil.
func NewIdempotencyService(repo ports.IdempotencyRepository, cache ports.IdempotencyCache, cacheTTL time.Duration, log zerolog.Logger) *IdempotencyService {
	return &IdempotencyService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		lease:    DefaultProcessingLease,
		now:      time.Now,
		log:      log,
	}
}

// WithProcessingLease sets how long a processing record is honoured before a
// retry with the same payload may take it over. Non-positive values are ignored.
func (s *IdempotencyService) WithProcessingLease(lease time.Duration) *IdempotencyService {
	if lease > 0 {
		s.lease = lease
	}
	return s
}

// HashPayload returns the hex SHA-256 of the payload's JSON encoding.
func HashPayload(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Execute runs op at most once per (owner, route, key) and replays its result afterwards.
func (s *IdempotencyService) Execute(
	ctx context.Context,
	ownerID uuid.UUID,
	route, key string,
	payload any,
	op ports.IdempotentOperation,
) (*ports.IdempotentOutcome, error) {
	if key == "" {
		return nil, apperror.Validation("Idempotency key is required")
	}

	hash, err := HashPayload(payload)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	recordKey := domain.BuildIdempotencyKey(ownerID, key)
	cacheKey := route + ":" + recordKey

	// Layer 1: Redis
	if outcome, err := s.fromCache(ctx, cacheKey, hash); outcome != nil || err != nil {
		return outcome, err
	}

	// Layer 2: claim the key
	now := s.now().UTC()
	record := &domain.IdempotencyRecord{
		Key:         recordKey,
		Route:       route,
		OwnerID:     ownerID,
		RequestHash: hash,
		Status:      domain.IdempotencyProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.repo.Insert(ctx, record)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		outcome, err := s.resolveExisting(ctx, recordKey, route, hash, cacheKey)
		if outcome != nil || err != nil {
			return outcome, err
		}
		// reclaimed a failed or abandoned attempt
	case err != nil:
		return nil, apperror.ErrDatabaseError(fmt.Errorf("claim idempotency key: %w", err))
	}

	return s.run(ctx, recordKey, route, hash, cacheKey, op)
}

func (s *IdempotencyService) fromCache(ctx context.Context, cacheKey, hash string) (*ports.IdempotentOutcome, error) {
	if s.cache == nil {
		return nil, nil
	}
	raw, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("redis idempotency check failed, falling through to DB")
		return nil, nil
	}
	if raw == nil {
		return nil, nil
	}
	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("discarding malformed idempotency envelope")
		return nil, nil
	}
	if env.Hash != hash {
		return nil, apperror.ErrIdempotencyKeyReused()
	}
	metrics.RecordReplay("cache")
	return &ports.IdempotentOutcome{Body: env.Body, Replayed: true}, nil
}

// resolveExisting decides what a losing insert means. A nil outcome and nil
// error tells the caller it now owns the reclaimed record.
func (s *IdempotencyService) resolveExisting(ctx context.Context, recordKey, route, hash, cacheKey string) (*ports.IdempotentOutcome, error) {
	existing, err := s.repo.Get(ctx, recordKey, route)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load idempotency record: %w", err))
	}
	if existing == nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency record %s vanished after conflict", recordKey))
	}
	if existing.RequestHash != hash {
		return nil, apperror.ErrIdempotencyKeyReused()
	}

	switch existing.Status {
	case domain.IdempotencyCompleted:
		s.storeInCache(ctx, cacheKey, hash, existing.Result)
		metrics.RecordReplay("store")
		return &ports.IdempotentOutcome{Body: existing.Result, Replayed: true}, nil
	case domain.IdempotencyFailed:
		ok, err := s.repo.Reclaim(ctx, recordKey, route, hash)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("reclaim idempotency key: %w", err))
		}
		if !ok {
			return nil, apperror.ErrRequestInProgress()
		}
		return nil, nil
	default:
		// A processing record past its lease was abandoned: its owner crashed or
		// could not finalize. The operation must tolerate being re-run.
		staleBefore := s.now().UTC().Add(-s.lease)
		if !existing.UpdatedAt.Before(staleBefore) {
			return nil, apperror.ErrRequestInProgress()
		}
		ok, err := s.repo.ReclaimStale(ctx, recordKey, route, hash, staleBefore)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("reclaim stale idempotency key: %w", err))
		}
		if !ok {
			return nil, apperror.ErrRequestInProgress()
		}
		s.log.Warn().Str("key", recordKey).Time("updated_at", existing.UpdatedAt).Msg("took over abandoned idempotency record")
		return nil, nil
	}
}

func (s *IdempotencyService) run(ctx context.Context, recordKey, route, hash, cacheKey string, op ports.IdempotentOperation) (*ports.IdempotentOutcome, error) {
	result, opErr := op(ctx)

	// The outcome is already decided; finalize even if the caller went away.
	finalizeCtx := context.WithoutCancel(ctx)

	if opErr != nil {
		if err := s.repo.Fail(finalizeCtx, recordKey, route, opErr.Error(), nil); err != nil {
			s.log.Error().Err(err).Str("key", recordKey).Msg("failed to mark idempotency record failed")
		}
		return nil, opErr
	}

	if !result.Final {
		if err := s.repo.Fail(finalizeCtx, recordKey, route, reasonStepUpPending, result.Body); err != nil {
			s.log.Error().Err(err).Str("key", recordKey).Msg("failed to release idempotency record")
		}
		return &ports.IdempotentOutcome{Body: result.Body}, nil
	}

	if err := s.repo.Complete(finalizeCtx, recordKey, route, result.Body); err != nil {
		// The operation committed. Retries see CONF_002 until the lease runs out
		// and are then replayed by the operation's own uniqueness.
		s.log.Error().Err(err).Str("key", recordKey).Msg("failed to complete idempotency record")
		return &ports.IdempotentOutcome{Body: result.Body}, nil
	}
	s.storeInCache(finalizeCtx, cacheKey, hash, result.Body)
	return &ports.IdempotentOutcome{Body: result.Body}, nil
}

func (s *IdempotencyService) storeInCache(ctx context.Context, cacheKey, hash string, body []byte) {
	if s.cache == nil || s.cacheTTL <= 0 || !json.Valid(bytes.TrimSpace(body)) {
		return
	}
	raw, err := json.Marshal(cacheEnvelope{Hash: hash, Body: body})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache idempotency result in redis")
	}
}
