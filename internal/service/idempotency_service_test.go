package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mobile-money-ledger/internal/adapter/storage/memory"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/internal/core/ports/mocks"
	"mobile-money-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testRoute = "transfers.execute"

type idempotencyTestDeps struct {
	svc   *IdempotencyService
	repo  *mocks.MockIdempotencyRepository
	cache *mocks.MockIdempotencyCache
}

func setupIdempotencyService(t *testing.T) *idempotencyTestDeps {
	ctrl := gomock.NewController(t)
	d := &idempotencyTestDeps{
		repo:  mocks.NewMockIdempotencyRepository(ctrl),
		cache: mocks.NewMockIdempotencyCache(ctrl),
	}
	d.svc = NewIdempotencyService(d.repo, d.cache, time.Hour, zerolog.Nop())
	return d
}

type testPayload struct {
	Amount string `json:"amount"`
}

func finalOp(body string, calls *int) ports.IdempotentOperation {
	return func(context.Context) (ports.IdempotentResult, error) {
		*calls++
		return ports.IdempotentResult{Body: []byte(body), Final: true}, nil
	}
}

func mustHash(t *testing.T, payload any) string {
	t.Helper()
	h, err := HashPayload(payload)
	require.NoError(t, err)
	return h
}

func TestHashPayload_Deterministic(t *testing.T) {
	a := mustHash(t, testPayload{Amount: "10"})
	b := mustHash(t, testPayload{Amount: "10"})
	c := mustHash(t, testPayload{Amount: "11"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestIdempotencyService_FirstExecution(t *testing.T) {
	d := setupIdempotencyService(t)
	ctx := context.Background()
	owner := uuid.New()
	recordKey := domain.BuildIdempotencyKey(owner, "k1")
	cacheKey := testRoute + ":" + recordKey

	d.cache.EXPECT().Get(ctx, cacheKey).Return(nil, nil)
	d.repo.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, rec *domain.IdempotencyRecord) error {
		assert.Equal(t, recordKey, rec.Key)
		assert.Equal(t, testRoute, rec.Route)
		assert.Equal(t, domain.IdempotencyProcessing, rec.Status)
		return nil
	})
	d.repo.EXPECT().Complete(gomock.Any(), recordKey, testRoute, []byte(`{"id":1}`)).Return(nil)
	d.cache.EXPECT().Set(gomock.Any(), cacheKey, gomock.Any(), time.Hour).Return(nil)

	calls := 0
	out, err := d.svc.Execute(ctx, owner, testRoute, "k1", testPayload{Amount: "10"}, finalOp(`{"id":1}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, out.Replayed)
	assert.JSONEq(t, `{"id":1}`, string(out.Body))
}

func TestIdempotencyService_MissingKey(t *testing.T) {
	d := setupIdempotencyService(t)
	calls := 0
	_, err := d.svc.Execute(context.Background(), uuid.New(), testRoute, "", testPayload{}, finalOp(`{}`, &calls))
	assert.Equal(t, "VAL_000", apperror.CodeOf(err))
	assert.Zero(t, calls)
}

func TestIdempotencyService_CacheReplay(t *testing.T) {
	d := setupIdempotencyService(t)
	ctx := context.Background()
	owner := uuid.New()
	payload := testPayload{Amount: "10"}
	env, _ := json.Marshal(cacheEnvelope{Hash: mustHash(t, payload), Body: json.RawMessage(`{"id":1}`)})

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(env, nil)

	calls := 0
	out, err := d.svc.Execute(ctx, owner, testRoute, "k1", payload, finalOp(`{"id":2}`, &calls))
	require.NoError(t, err)
	assert.True(t, out.Replayed)
	assert.JSONEq(t, `{"id":1}`, string(out.Body))
	assert.Zero(t, calls)
}

func TestIdempotencyService_CacheHashMismatch(t *testing.T) {
	d := setupIdempotencyService(t)
	ctx := context.Background()
	env, _ := json.Marshal(cacheEnvelope{Hash: "other", Body: json.RawMessage(`{}`)})

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(env, nil)

	calls := 0
	_, err := d.svc.Execute(ctx, uuid.New(), testRoute, "k1", testPayload{Amount: "10"}, finalOp(`{}`, &calls))
	assert.Equal(t, "CONF_001", apperror.CodeOf(err))
	assert.Zero(t, calls)
}

func TestIdempotencyService_CacheErrorFallsThrough(t *testing.T) {
	d := setupIdempotencyService(t)
	ctx := context.Background()

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, errors.New("redis down"))
	d.repo.EXPECT().Insert(ctx, gomock.Any()).Return(nil)
	d.repo.EXPECT().Complete(gomock.Any(), gomock.Any(), testRoute, gomock.Any()).Return(nil)
	d.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	calls := 0
	_, err := d.svc.Execute(ctx, uuid.New(), testRoute, "k1", testPayload{}, finalOp(`{}`, &calls))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyService_ExistingRecord(t *testing.T) {
	payload := testPayload{Amount: "10"}

	tests := []struct {
		name       string
		status     domain.IdempotencyStatus
		hash       string
		reclaim    *bool
		stale      *bool // processing record past its lease; value is the ReclaimStale result
		wantCode   string
		wantReplay bool
		wantCalls  int
	}{
		{name: "completed same payload replays", status: domain.IdempotencyCompleted, wantReplay: true},
		{name: "completed different payload", status: domain.IdempotencyCompleted, hash: "different", wantCode: "CONF_001"},
		{name: "processing", status: domain.IdempotencyProcessing, wantCode: "CONF_002"},
		{name: "processing different payload", status: domain.IdempotencyProcessing, hash: "different", wantCode: "CONF_001"},
		{name: "failed is reclaimed", status: domain.IdempotencyFailed, reclaim: boolPtr(true), wantCalls: 1},
		{name: "failed reclaimed elsewhere", status: domain.IdempotencyFailed, reclaim: boolPtr(false), wantCode: "CONF_002"},
		{name: "abandoned processing is taken over", status: domain.IdempotencyProcessing, stale: boolPtr(true), wantCalls: 1},
		{name: "abandoned processing taken over elsewhere", status: domain.IdempotencyProcessing, stale: boolPtr(false), wantCode: "CONF_002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupIdempotencyService(t)
			ctx := context.Background()
			owner := uuid.New()
			recordKey := domain.BuildIdempotencyKey(owner, "k1")
			hash := tt.hash
			if hash == "" {
				hash = mustHash(t, payload)
			}

			d.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
			d.repo.EXPECT().Insert(ctx, gomock.Any()).Return(domain.ErrDuplicate)
			updatedAt := time.Now().UTC()
			if tt.stale != nil {
				updatedAt = updatedAt.Add(-2 * DefaultProcessingLease)
				d.repo.EXPECT().ReclaimStale(ctx, recordKey, testRoute, hash, gomock.Any()).Return(*tt.stale, nil)
			}
			d.repo.EXPECT().Get(ctx, recordKey, testRoute).Return(&domain.IdempotencyRecord{
				Key:         recordKey,
				Route:       testRoute,
				RequestHash: hash,
				Status:      tt.status,
				Result:      []byte(`{"id":"old"}`),
				UpdatedAt:   updatedAt,
			}, nil)
			if tt.wantReplay {
				d.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), time.Hour).Return(nil)
			}
			if tt.reclaim != nil {
				d.repo.EXPECT().Reclaim(ctx, recordKey, testRoute, hash).Return(*tt.reclaim, nil)
			}
			if tt.wantCalls > 0 {
				d.repo.EXPECT().Complete(gomock.Any(), recordKey, testRoute, gomock.Any()).Return(nil)
				d.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			}

			calls := 0
			out, err := d.svc.Execute(ctx, owner, testRoute, "k1", payload, finalOp(`{"id":"new"}`, &calls))
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, apperror.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReplay, out.Replayed)
			if tt.wantReplay {
				assert.JSONEq(t, `{"id":"old"}`, string(out.Body))
			}
		})
	}
}

func TestIdempotencyService_OperationErrorMarksFailed(t *testing.T) {
	d := setupIdempotencyService(t)
	ctx := context.Background()
	owner := uuid.New()
	recordKey := domain.BuildIdempotencyKey(owner, "k1")
	opErr := apperror.ErrInsufficientFunds()

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.repo.EXPECT().Insert(ctx, gomock.Any()).Return(nil)
	d.repo.EXPECT().Fail(gomock.Any(), recordKey, testRoute, opErr.Error(), nil).Return(nil)

	_, err := d.svc.Execute(ctx, owner, testRoute, "k1", testPayload{}, func(context.Context) (ports.IdempotentResult, error) {
		return ports.IdempotentResult{}, opErr
	})
	assert.Equal(t, "PAY_001", apperror.CodeOf(err))
}

func TestIdempotencyService_NonFinalResultLeavesKeyReusable(t *testing.T) {
	d := setupIdempotencyService(t)
	ctx := context.Background()
	owner := uuid.New()
	recordKey := domain.BuildIdempotencyKey(owner, "k1")
	body := []byte(`{"outcome":"challenge_required"}`)

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.repo.EXPECT().Insert(ctx, gomock.Any()).Return(nil)
	d.repo.EXPECT().Fail(gomock.Any(), recordKey, testRoute, reasonStepUpPending, body).Return(nil)

	out, err := d.svc.Execute(ctx, owner, testRoute, "k1", testPayload{}, func(context.Context) (ports.IdempotentResult, error) {
		return ports.IdempotentResult{Body: body}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, body, out.Body)
	assert.False(t, out.Replayed)
}

func TestIdempotencyService_InsertError(t *testing.T) {
	d := setupIdempotencyService(t)
	ctx := context.Background()

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.repo.EXPECT().Insert(ctx, gomock.Any()).Return(errors.New("conn reset"))

	calls := 0
	_, err := d.svc.Execute(ctx, uuid.New(), testRoute, "k1", testPayload{}, finalOp(`{}`, &calls))
	assert.Equal(t, "SYS_001", apperror.CodeOf(err))
	assert.Zero(t, calls)
}

func TestIdempotencyService_ConcurrentCallersRunOnce(t *testing.T) {
	store := memory.NewStore()
	svc := NewIdempotencyService(memory.NewIdempotencyRepo(store), nil, 0, zerolog.Nop())
	owner := uuid.New()

	var runs atomic.Int32
	release := make(chan struct{})
	op := func(context.Context) (ports.IdempotentResult, error) {
		runs.Add(1)
		<-release
		return ports.IdempotentResult{Body: []byte(`{"ok":true}`), Final: true}, nil
	}

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Execute(context.Background(), owner, testRoute, "same", testPayload{Amount: "1"}, op)
			errs <- err
		}()
	}

	// every loser has returned before the winner is released
	require.Eventually(t, func() bool { return len(errs) == callers-1 }, 5*time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	assert.Equal(t, int32(1), runs.Load())
	inProgress := 0
	for err := range errs {
		if err != nil {
			assert.Equal(t, "CONF_002", apperror.CodeOf(err))
			inProgress++
		}
	}
	assert.Equal(t, callers-1, inProgress)

	out, err := svc.Execute(context.Background(), owner, testRoute, "same", testPayload{Amount: "1"}, op)
	require.NoError(t, err)
	assert.True(t, out.Replayed)
	assert.Equal(t, int32(1), runs.Load())
}

func boolPtr(b bool) *bool { return &b }
