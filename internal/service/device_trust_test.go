package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mobile-money-ledger/internal/adapter/storage/memory"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDeviceTrust_CachesPositiveAnswersOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDeviceRepository(ctrl)
	svc := NewDeviceTrustService(repo, 16, time.Minute, zerolog.Nop())
	ctx := context.Background()
	owner := uuid.New()

	// a negative answer is asked again every time
	repo.EXPECT().IsTrusted(ctx, owner, "fp", "1.1.1.1").Return(false, nil).Times(2)
	for i := 0; i < 2; i++ {
		ok, err := svc.IsTrusted(ctx, owner, "fp", "1.1.1.1")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	repo.EXPECT().IsTrusted(ctx, owner, "fp", "2.2.2.2").Return(true, nil).Times(1)
	for i := 0; i < 3; i++ {
		ok, err := svc.IsTrusted(ctx, owner, "fp", "2.2.2.2")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestDeviceTrust_ColdCacheFallsBackToStore(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewDeviceRepo(store)
	ctx := context.Background()
	owner := uuid.New()

	warm := NewDeviceTrustService(repo, 16, time.Minute, zerolog.Nop())
	require.NoError(t, warm.Trust(ctx, owner, "fp", "10.0.0.1"))

	cold := NewDeviceTrustService(repo, 16, time.Minute, zerolog.Nop())
	ok, err := cold.IsTrusted(ctx, owner, "fp", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	disabled := NewDeviceTrustService(repo, 0, 0, zerolog.Nop())
	ok, err = disabled.IsTrusted(ctx, owner, "fp", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = disabled.IsTrusted(ctx, owner, "fp", "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeviceTrust_ObserveDoesNotRevokeTrust(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewDeviceRepo(store)
	svc := NewDeviceTrustService(repo, 0, 0, zerolog.Nop())
	ctx := context.Background()
	owner := uuid.New()
	device := domain.RiskContext{DeviceFingerprint: "fp", NetworkOrigin: "10.0.0.1"}

	require.NoError(t, svc.Trust(ctx, owner, "fp", "10.0.0.1"))
	require.NoError(t, svc.Observe(ctx, owner, device, time.Now()))

	ok, err := svc.IsTrusted(ctx, owner, "fp", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	known, err := repo.HasOrigin(ctx, owner, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestDeviceTrust_EmptyFingerprint(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewDeviceTrustService(mocks.NewMockDeviceRepository(ctrl), 16, time.Minute, zerolog.Nop())

	ok, err := svc.IsTrusted(context.Background(), uuid.New(), "", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, svc.Trust(context.Background(), uuid.New(), "", "10.0.0.1"))
	assert.NoError(t, svc.Observe(context.Background(), uuid.New(), domain.RiskContext{}, time.Now()))
}

func TestDeviceTrust_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDeviceRepository(ctrl)
	svc := NewDeviceTrustService(repo, 16, time.Minute, zerolog.Nop())

	repo.EXPECT().IsTrusted(gomock.Any(), gomock.Any(), "fp", "o").Return(false, errors.New("down"))
	_, err := svc.IsTrusted(context.Background(), uuid.New(), "fp", "o")
	assert.Error(t, err)

	repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(errors.New("down"))
	assert.Error(t, svc.Trust(context.Background(), uuid.New(), "fp", "o"))
}
