package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mobile-money-ledger/internal/adapter/storage/memory"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTransferService(h *engineHarness) *TransferServiceImpl {
	coordinator := NewIdempotencyService(memory.NewIdempotencyRepo(h.store), nil, 0, zerolog.Nop())
	return NewTransferService(coordinator, h.engine)
}

func TestTransferService_ReplaysByKey(t *testing.T) {
	h := newEngineHarness(t)
	svc := newTransferService(h)
	ctx := context.Background()
	alice, aliceAcct := h.funded(t, "HTG", "1000")
	bob, _ := h.funded(t, "HTG", "0")

	first, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, *first.TransferID, *second.TransferID)
	assert.Equal(t, 1, h.risk.calls)
	assertAmount(t, "700", h.balance(t, aliceAcct.ID).Available)
}

func TestTransferService_KeyReuseWithDifferentPayload(t *testing.T) {
	h := newEngineHarness(t)
	svc := newTransferService(h)
	ctx := context.Background()
	alice, aliceAcct := h.funded(t, "HTG", "1000")
	bob, _ := h.funded(t, "HTG", "0")

	_, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, transferReq(alice, bob, "400", "HTG", "k-1"))
	assert.Equal(t, "CONF_001", apperror.CodeOf(err))
	assertAmount(t, "700", h.balance(t, aliceAcct.ID).Available)
}

func TestTransferService_KeysAreScopedToSender(t *testing.T) {
	h := newEngineHarness(t)
	svc := newTransferService(h)
	ctx := context.Background()
	alice, _ := h.funded(t, "HTG", "1000")
	carol, _ := h.funded(t, "HTG", "1000")
	bob, _ := h.funded(t, "HTG", "0")

	a, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "shared"))
	require.NoError(t, err)
	c, err := svc.Transfer(ctx, transferReq(carol, bob, "300", "HTG", "shared"))
	require.NoError(t, err)
	assert.NotEqual(t, *a.TransferID, *c.TransferID)
	assert.False(t, c.Replayed)
}

func TestTransferService_ChallengeLeavesKeyReusable(t *testing.T) {
	h := newEngineHarness(t)
	svc := newTransferService(h)
	ctx := context.Background()
	alice, aliceAcct := h.funded(t, "HTG", "1000")
	bob, _ := h.funded(t, "HTG", "0")
	h.risk.set(domain.RiskActionChallenge, 45)

	challengeID := uuid.New()
	expires := time.Now().Add(time.Minute)
	h.challenges.EXPECT().Begin(gomock.Any(), gomock.Any()).
		Return(&domain.StepUpResult{ChallengeID: &challengeID, ExpiresAt: &expires}, nil)

	req := transferReq(alice, bob, "300", "HTG", "k-step")
	receipt, err := svc.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeChallengeRequired, receipt.Outcome)

	req.StepUpToken = "token"
	h.challenges.EXPECT().VerifyStepUp("token", alice, domain.PurposeTransfer, "k-step").Return(nil)
	receipt, err = svc.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, receipt.Outcome)
	assert.False(t, receipt.Replayed)
	assertAmount(t, "700", h.balance(t, aliceAcct.ID).Available)

	// The completed result is what later retries see.
	receipt, err = svc.Transfer(ctx, req)
	require.NoError(t, err)
	assert.True(t, receipt.Replayed)
	assert.Equal(t, domain.OutcomeCompleted, receipt.Outcome)
}

func TestTransferService_ErrorLeavesKeyReusable(t *testing.T) {
	h := newEngineHarness(t)
	svc := newTransferService(h)
	ctx := context.Background()
	alice, _ := h.funded(t, "HTG", "100")
	bob, _ := h.funded(t, "HTG", "0")

	_, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	assert.Equal(t, "PAY_001", apperror.CodeOf(err))

	_, err = h.engine.CashIn(ctx, cashIn(alice, "500", "HTG"))
	require.NoError(t, err)

	receipt, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, receipt.Outcome)
}

func TestTransferService_CashIn(t *testing.T) {
	h := newEngineHarness(t)
	svc := newTransferService(h)
	owner, acct := h.funded(t, "HTG", "0")

	transfer, err := svc.CashIn(context.Background(), cashIn(owner, "75.50", "HTG"))
	require.NoError(t, err)
	assert.Equal(t, h.treasury, transfer.SenderOwnerID)
	assertAmount(t, "75.50", h.balance(t, acct.ID).Available)
}

func cashIn(owner uuid.UUID, amount, currency string) ports.CashInRequest {
	return ports.CashInRequest{
		OwnerID:   owner,
		Amount:    money.MustParse(amount),
		Currency:  currency,
		Reference: uuid.NewString(),
	}
}

// completeFailingRepo loses the first n Complete calls, as when the database
// drops between the transfer commit and the idempotency update.
type completeFailingRepo struct {
	*memory.IdempotencyRepo
	failures int
}

func (r *completeFailingRepo) Complete(ctx context.Context, key, route string, result []byte) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	return r.IdempotencyRepo.Complete(ctx, key, route, result)
}

func TestTransferService_LostCompletionStillReplays(t *testing.T) {
	h := newEngineHarness(t)
	repo := &completeFailingRepo{IdempotencyRepo: memory.NewIdempotencyRepo(h.store), failures: 1}
	coordinator := NewIdempotencyService(repo, nil, 0, zerolog.Nop())
	svc := NewTransferService(coordinator, h.engine)
	ctx := context.Background()
	alice, aliceAcct := h.funded(t, "HTG", "1000")
	bob, _ := h.funded(t, "HTG", "0")

	first, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	require.NoError(t, err)
	require.NotNil(t, first.TransferID)

	for i := 0; i < 2; i++ {
		again, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		assert.Equal(t, *first.TransferID, *again.TransferID)
	}
	assertAmount(t, "700", h.balance(t, aliceAcct.ID).Available)
}

func TestTransferService_AbandonedRecordIsTakenOverAfterLease(t *testing.T) {
	h := newEngineHarness(t)
	repo := &completeFailingRepo{IdempotencyRepo: memory.NewIdempotencyRepo(h.store), failures: 1}
	coordinator := NewIdempotencyService(repo, nil, 0, zerolog.Nop()).WithProcessingLease(time.Minute)
	svc := NewTransferService(coordinator, h.engine)
	ctx := context.Background()
	alice, aliceAcct := h.funded(t, "HTG", "1000")
	bob, _ := h.funded(t, "HTG", "0")

	first, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	require.NoError(t, err)

	recordKey := domain.BuildIdempotencyKey(alice, "k-1")
	rec, err := repo.Get(ctx, recordKey, RouteTransfer)
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyProcessing, rec.Status)

	coordinator.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	again, err := svc.Transfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	require.NoError(t, err)
	assert.Equal(t, *first.TransferID, *again.TransferID)

	rec, err = repo.Get(ctx, recordKey, RouteTransfer)
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyCompleted, rec.Status, "takeover finalizes the record")
	assert.Equal(t, 1, h.risk.calls)
	assertAmount(t, "700", h.balance(t, aliceAcct.ID).Available)
}
