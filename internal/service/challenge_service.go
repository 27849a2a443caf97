package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"mobile-money-ledger/config"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/internal/metrics"
	"mobile-money-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ChallengeServiceImpl implements ports.ChallengeService.
type ChallengeServiceImpl struct {
	repo       ports.ChallengeRepository
	transactor ports.DBTransactor
	hashSvc    ports.HashService
	encSvc     ports.EncryptionService
	tokenSvc   ports.TokenService
	deliverer  ports.CodeDeliverer
	trust      ports.DeviceTrust
	cfg        config.ChallengeConfig
	now        func() time.Time
	log        zerolog.Logger
}

// NewChallengeService creates a new ChallengeServiceImpl.
func NewChallengeService(
	repo ports.ChallengeRepository,
	transactor ports.DBTransactor,
	hashSvc ports.HashService,
	encSvc ports.EncryptionService,
	tokenSvc ports.TokenService,
	deliverer ports.CodeDeliverer,
	trust ports.DeviceTrust,
	cfg config.ChallengeConfig,
	log zerolog.Logger,
) *ChallengeServiceImpl {
	if cfg.CodeDigits <= 0 {
		cfg.CodeDigits = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &ChallengeServiceImpl{
		repo:       repo,
		transactor: transactor,
		hashSvc:    hashSvc,
		encSvc:     encSvc,
		tokenSvc:   tokenSvc,
		deliverer:  deliverer,
		trust:      trust,
		cfg:        cfg,
		now:        time.Now,
		log:        log,
	}
}

// Begin either mints a step-up token for a trusted device or issues a challenge.
func (s *ChallengeServiceImpl) Begin(ctx context.Context, req domain.StepUpRequest) (*domain.StepUpResult, error) {
	trusted, err := s.trust.IsTrusted(ctx, req.OwnerID, req.Device.DeviceFingerprint, req.Device.NetworkOrigin)
	if err != nil {
		s.log.Warn().Err(err).Str("owner_id", req.OwnerID.String()).Msg("device trust lookup failed, issuing challenge")
		trusted = false
	}

	if trusted {
		token, expiresAt, err := s.tokenSvc.GenerateStepUp(req.OwnerID, req.Purpose, req.Binding)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("mint step-up token: %w", err))
		}
		metrics.RecordChallenge("trusted_device")
		return &domain.StepUpResult{Token: token, ExpiresAt: &expiresAt, Trusted: true}, nil
	}

	challenge, err := s.CreateChallenge(ctx, req.OwnerID, req.Purpose, req.Binding, req.Payload)
	if err != nil {
		return nil, err
	}
	id := challenge.ID
	expiresAt := challenge.ExpiresAt
	return &domain.StepUpResult{ChallengeID: &id, ExpiresAt: &expiresAt}, nil
}

// CreateChallenge stores a hashed code and the encrypted payload, then delivers the code.
func (s *ChallengeServiceImpl) CreateChallenge(ctx context.Context, ownerID uuid.UUID, purpose, binding string, payload []byte) (*domain.Challenge, error) {
	code, err := generateCode(s.cfg.CodeDigits)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate code: %w", err))
	}
	codeHash, err := s.hashSvc.Hash(code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash code: %w", err))
	}
	encrypted, err := s.encSvc.Encrypt(string(payload))
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt payload: %w", err))
	}

	now := s.now().UTC()
	challenge := &domain.Challenge{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Purpose:          purpose,
		CodeHash:         codeHash,
		EncryptedPayload: encrypted,
		Binding:          binding,
		Status:           domain.ChallengePending,
		ExpiresAt:        now.Add(s.cfg.TTL),
		CreatedAt:        now,
	}
	if err := s.repo.Create(ctx, challenge); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create challenge: %w", err))
	}

	if err := s.deliverer.DeliverCode(ctx, ownerID.String(), code); err != nil {
		return nil, apperror.ErrDeliveryFailed(err)
	}

	metrics.RecordChallenge("created")
	s.log.Info().
		Str("challenge_id", challenge.ID.String()).
		Str("owner_id", ownerID.String()).
		Str("purpose", purpose).
		Msg("step-up challenge issued")
	return challenge, nil
}

// ConsumeChallenge verifies a code under the challenge row lock. Failed
// attempts and lazy expiry are committed before the error is returned.
func (s *ChallengeServiceImpl) ConsumeChallenge(ctx context.Context, ownerID, challengeID uuid.UUID, code string, device domain.RiskContext) (*domain.ConsumeResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	challenge, err := s.repo.GetByIDForUpdate(ctx, dbTx, challengeID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock challenge: %w", err))
	}
	if challenge == nil {
		return nil, apperror.ErrChallengeNotFound()
	}
	if challenge.OwnerID != ownerID {
		return nil, apperror.ErrChallengeOwnerMismatch()
	}
	if !challenge.IsPending() {
		return nil, apperror.ErrChallengeNotPending()
	}

	now := s.now().UTC()
	if challenge.IsExpiredAt(now) {
		challenge.Status = domain.ChallengeExpired
		if err := s.save(ctx, dbTx, challenge); err != nil {
			return nil, err
		}
		metrics.RecordChallenge("expired")
		return nil, apperror.ErrChallengeExpired()
	}

	ok, err := s.hashSvc.Verify(code, challenge.CodeHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify code: %w", err))
	}
	if !ok {
		challenge.Attempts++
		if challenge.Attempts >= s.cfg.MaxAttempts {
			challenge.Status = domain.ChallengeExpired
		}
		if err := s.save(ctx, dbTx, challenge); err != nil {
			return nil, err
		}
		metrics.RecordChallenge("mismatch")
		return nil, apperror.ErrChallengeCodeMismatch()
	}

	payload, err := s.encSvc.Decrypt(challenge.EncryptedPayload)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt payload: %w", err))
	}

	challenge.Status = domain.ChallengeUsed
	challenge.ConsumedAt = &now
	if err := s.save(ctx, dbTx, challenge); err != nil {
		return nil, err
	}

	token, _, err := s.tokenSvc.GenerateStepUp(ownerID, challenge.Purpose, challenge.Binding)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mint step-up token: %w", err))
	}

	if err := s.trust.Trust(ctx, ownerID, device.DeviceFingerprint, device.NetworkOrigin); err != nil {
		s.log.Warn().Err(err).Str("owner_id", ownerID.String()).Msg("failed to trust device after step-up")
	}

	metrics.RecordChallenge("consumed")
	return &domain.ConsumeResult{
		Purpose:     challenge.Purpose,
		Payload:     []byte(payload),
		StepUpToken: token,
	}, nil
}

// VerifyStepUp checks that token proves a step-up for exactly this owner, purpose and binding.
func (s *ChallengeServiceImpl) VerifyStepUp(token string, ownerID uuid.UUID, purpose, binding string) error {
	claims, err := s.tokenSvc.ValidateStepUp(token)
	if err != nil {
		return apperror.ErrInvalidToken()
	}
	if claims.OwnerID != ownerID || claims.Purpose != purpose || claims.Binding != binding {
		return apperror.ErrInvalidToken()
	}
	return nil
}

func (s *ChallengeServiceImpl) save(ctx context.Context, dbTx pgx.Tx, challenge *domain.Challenge) error {
	if err := s.repo.Update(ctx, dbTx, challenge); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update challenge: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// generateCode returns a zero-padded numeric code drawn from crypto/rand.
func generateCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
