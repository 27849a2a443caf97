package service

import (
	"context"
	"errors"
	"testing"
	"time"

	redisStorage "mobile-money-ledger/internal/adapter/storage/redis"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports/mocks"
	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/money"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type balanceTestDeps struct {
	svc         *BalanceService
	accountRepo *mocks.MockAccountRepository
	ledgerRepo  *mocks.MockLedgerRepository
	cache       *mocks.MockBalanceCache
}

func setupBalanceService(t *testing.T) *balanceTestDeps {
	ctrl := gomock.NewController(t)
	d := &balanceTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		ledgerRepo:  mocks.NewMockLedgerRepository(ctrl),
		cache:       mocks.NewMockBalanceCache(ctrl),
	}
	d.svc = NewBalanceService(d.accountRepo, d.ledgerRepo, d.cache, 30*time.Second, zerolog.Nop())
	return d
}

func TestBalanceService_ComputeBalance_CacheMiss(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	accountID := uuid.New()

	d.cache.EXPECT().Get(ctx, accountID).Return(nil, nil)
	d.cache.EXPECT().Generation(ctx, accountID).Return(int64(3), nil)
	d.ledgerRepo.EXPECT().SumsByAccount(ctx, nil, accountID).Return(domain.EntrySums{
		domain.EntryCashIn:    money.MustParse("10000"),
		domain.EntryHoldDebit: money.MustParse("-5000"),
	}, nil)
	d.cache.EXPECT().Set(ctx, gomock.Any(), int64(3), 30*time.Second).Return(true, nil)

	b, err := d.svc.ComputeBalance(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, b.Total.Equal(money.MustParse("10000")))
	assert.True(t, b.Held.Equal(money.MustParse("5000")))
	assert.True(t, b.Available.Equal(money.MustParse("5000")))
}

func TestBalanceService_ComputeBalance_CacheHit(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	accountID := uuid.New()
	cached := &domain.Balance{AccountID: accountID, Total: money.MustParse("7")}

	d.cache.EXPECT().Get(ctx, accountID).Return(cached, nil)

	b, err := d.svc.ComputeBalance(ctx, accountID)
	require.NoError(t, err)
	assert.Same(t, cached, b)
}

func TestBalanceService_ComputeBalance_CacheFailureFallsBack(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	accountID := uuid.New()

	d.cache.EXPECT().Get(ctx, accountID).Return(nil, errors.New("redis down"))
	d.cache.EXPECT().Generation(ctx, accountID).Return(int64(0), nil)
	d.ledgerRepo.EXPECT().SumsByAccount(ctx, nil, accountID).Return(domain.EntrySums{
		domain.EntryCashIn: money.MustParse("1000"),
	}, nil)
	d.cache.EXPECT().Set(ctx, gomock.Any(), int64(0), gomock.Any()).Return(false, errors.New("redis down"))

	b, err := d.svc.ComputeBalance(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, b.Available.Equal(money.MustParse("1000")))
}

func TestBalanceService_ComputeBalance_StoreError(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	accountID := uuid.New()

	d.cache.EXPECT().Get(ctx, accountID).Return(nil, nil)
	d.cache.EXPECT().Generation(ctx, accountID).Return(int64(0), nil)
	d.ledgerRepo.EXPECT().SumsByAccount(ctx, nil, accountID).Return(nil, errors.New("conn refused"))

	_, err := d.svc.ComputeBalance(ctx, accountID)
	assert.Equal(t, "SYS_001", apperror.CodeOf(err))
}

func TestBalanceService_ComputeBalance_GenerationErrorSkipsCacheWrite(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	accountID := uuid.New()

	d.cache.EXPECT().Get(ctx, accountID).Return(nil, nil)
	d.cache.EXPECT().Generation(ctx, accountID).Return(int64(0), errors.New("redis down"))
	d.ledgerRepo.EXPECT().SumsByAccount(ctx, nil, accountID).Return(domain.EntrySums{
		domain.EntryCashIn: money.MustParse("50"),
	}, nil)

	b, err := d.svc.ComputeBalance(ctx, accountID)
	require.NoError(t, err)
	assertAmount(t, "50", b.Available)
}

func TestBalanceService_Settled_BypassesCache(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	accountID := uuid.New()

	d.ledgerRepo.EXPECT().SumsByAccount(ctx, nil, accountID).Return(domain.EntrySums{
		domain.EntryCashIn: money.MustParse("1000"),
	}, nil)

	b, err := d.svc.Settled(ctx, accountID)
	require.NoError(t, err)
	assertAmount(t, "1000", b.Available)
}

func TestBalanceService_CommitDuringRecomputeIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerRepo := mocks.NewMockLedgerRepository(ctrl)
	cache := redisStorage.NewBalanceCache(goredis.NewClient(&goredis.Options{Addr: miniredis.RunT(t).Addr()}))
	svc := NewBalanceService(mocks.NewMockAccountRepository(ctrl), ledgerRepo, cache, 30*time.Second, zerolog.Nop())
	ctx := context.Background()
	accountID := uuid.New()

	gomock.InOrder(
		// a cash-in commits and invalidates after this reader summed
		ledgerRepo.EXPECT().SumsByAccount(gomock.Any(), nil, accountID).DoAndReturn(
			func(ctx context.Context, _ pgx.Tx, id uuid.UUID) (domain.EntrySums, error) {
				svc.Invalidate(ctx, id)
				return domain.EntrySums{}, nil
			}),
		ledgerRepo.EXPECT().SumsByAccount(gomock.Any(), nil, accountID).Return(domain.EntrySums{
			domain.EntryCashIn: money.MustParse("1000"),
		}, nil),
	)

	racing, err := svc.ComputeBalance(ctx, accountID)
	require.NoError(t, err)
	assertAmount(t, "0", racing.Available)

	fresh, err := svc.ComputeBalance(ctx, accountID)
	require.NoError(t, err)
	assertAmount(t, "1000", fresh.Available)

	// served from cache now; no further ledger reads are expected
	cached, err := svc.ComputeBalance(ctx, accountID)
	require.NoError(t, err)
	assertAmount(t, "1000", cached.Available)
}

func TestTransferEngine_PreCheckIgnoresStaleCache(t *testing.T) {
	h := newEngineHarness(t)
	ctx := context.Background()
	alice, aliceAcct := h.funded(t, "HTG", "1000")
	bob, _ := h.funded(t, "HTG", "0")

	cache := redisStorage.NewBalanceCache(goredis.NewClient(&goredis.Options{Addr: miniredis.RunT(t).Addr()}))
	stored, err := cache.Set(ctx, &domain.Balance{AccountID: aliceAcct.ID, Currency: "HTG"}, 0, time.Minute)
	require.NoError(t, err)
	require.True(t, stored)
	h.engine.Balances = NewBalanceService(h.accounts, h.ledger, cache, time.Minute, zerolog.Nop())

	receipt, err := h.engine.ExecuteTransfer(ctx, transferReq(alice, bob, "300", "HTG", "k-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, receipt.Outcome)
	assertAmount(t, "700", h.balance(t, aliceAcct.ID).Available)
}

func TestBalanceService_NilCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerRepo := mocks.NewMockLedgerRepository(ctrl)
	svc := NewBalanceService(mocks.NewMockAccountRepository(ctrl), ledgerRepo, nil, time.Minute, zerolog.Nop())
	accountID := uuid.New()

	ledgerRepo.EXPECT().SumsByAccount(gomock.Any(), nil, accountID).Return(domain.EntrySums{}, nil)

	b, err := svc.ComputeBalance(context.Background(), accountID)
	require.NoError(t, err)
	assert.True(t, b.Total.IsZero())
	svc.Invalidate(context.Background(), accountID)
}

func TestBalanceService_OwnerBalance(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	ownerID := uuid.New()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{ID: accountID, OwnerID: ownerID, Currency: "HTG"}, nil)
	d.cache.EXPECT().Get(ctx, accountID).Return(&domain.Balance{AccountID: accountID, Total: money.MustParse("5")}, nil)

	b, err := d.svc.OwnerBalance(ctx, ownerID, accountID)
	require.NoError(t, err)
	assert.Equal(t, "HTG", b.Currency)
}

func TestBalanceService_OwnerBalance_OtherOwner(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{ID: accountID, OwnerID: uuid.New()}, nil)

	_, err := d.svc.OwnerBalance(ctx, uuid.New(), accountID)
	assert.Equal(t, "VAL_007", apperror.CodeOf(err))
}

func TestBalanceService_Invalidate(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	d.cache.EXPECT().Delete(ctx, a, b).Return(errors.New("ignored"))
	d.svc.Invalidate(ctx, a, b)
	d.svc.Invalidate(ctx)
}

func TestBalanceService_History(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()
	owner := uuid.New()
	account := &domain.Account{ID: uuid.New(), OwnerID: owner, Currency: "HTG"}
	entries := []domain.LedgerEntry{
		domain.NewEntry(account.ID, money.MustParse("100"), domain.EntryCashIn, uuid.New(), "", time.Now()),
	}

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	d.ledgerRepo.EXPECT().ListByAccount(ctx, account.ID, domain.EntryFilter{Limit: maxHistoryLimit}).Return(entries, nil)

	got, err := d.svc.History(ctx, owner, account.ID, domain.EntryFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	d.accountRepo.EXPECT().GetByID(ctx, account.ID).Return(account, nil)
	_, err = d.svc.History(ctx, uuid.New(), account.ID, domain.EntryFilter{})
	assert.Equal(t, "VAL_007", apperror.CodeOf(err))
}
