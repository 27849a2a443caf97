package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idempotencyCols = []string{"key", "route", "owner_id", "request_hash", "status", "result", "error", "created_at", "updated_at"}

func TestIdempotencyRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := uuid.New()
	rec := &domain.IdempotencyRecord{
		Key:         domain.BuildIdempotencyKey(owner, "ORDER-001"),
		Route:       "transfers.execute",
		OwnerID:     owner,
		RequestHash: "abc",
		Status:      domain.IdempotencyProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO idempotency_records").
		WithArgs(rec.Key, rec.Route, rec.OwnerID, rec.RequestHash, rec.Status, rec.CreatedAt, rec.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Insert_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	rec := &domain.IdempotencyRecord{Key: "k", Route: "r", Status: domain.IdempotencyProcessing}

	mock.ExpectExec("INSERT INTO idempotency_records").
		WithArgs(rec.Key, rec.Route, rec.OwnerID, rec.RequestHash, rec.Status, rec.CreatedAt, rec.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Insert(context.Background(), rec)
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
}

func TestIdempotencyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	owner := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM idempotency_records WHERE key = \\$1 AND route = \\$2").
		WithArgs("owner:ORDER-001", "transfers.execute").
		WillReturnRows(pgxmock.NewRows(idempotencyCols).
			AddRow("owner:ORDER-001", "transfers.execute", owner, "abc", domain.IdempotencyCompleted,
				[]byte(`{"outcome":"completed"}`), (*string)(nil), now, now))

	rec, err := repo.Get(context.Background(), "owner:ORDER-001", "transfers.execute")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.IdempotencyCompleted, rec.Status)
	assert.Equal(t, []byte(`{"outcome":"completed"}`), rec.Result)
	assert.Nil(t, rec.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM idempotency_records WHERE key").
		WithArgs("nonexistent-key", "transfers.execute").
		WillReturnRows(pgxmock.NewRows(idempotencyCols))

	rec, err := repo.Get(context.Background(), "nonexistent-key", "transfers.execute")
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Complete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	body := []byte(`{"outcome":"completed"}`)

	mock.ExpectExec("UPDATE idempotency_records SET status").
		WithArgs(domain.IdempotencyCompleted, body, pgxmock.AnyArg(), "k", "r").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Complete(context.Background(), "k", "r", body))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Fail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectExec("UPDATE idempotency_records SET status").
		WithArgs(domain.IdempotencyFailed, []byte(nil), "PAY_001", pgxmock.AnyArg(), "k", "r").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Fail(context.Background(), "k", "r", "PAY_001", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Reclaim(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "won", affected: 1, want: true},
		{name: "lost race", affected: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewIdempotencyRepo(mock)

			mock.ExpectExec("UPDATE idempotency_records SET status .+ AND status = \\$6").
				WithArgs(domain.IdempotencyProcessing, pgxmock.AnyArg(), "k", "r", "hash", domain.IdempotencyFailed).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			ok, err := repo.Reclaim(context.Background(), "k", "r", "hash")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdempotencyRepo_ReclaimStale(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "lease expired", affected: 1, want: true},
		{name: "still held", affected: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewIdempotencyRepo(mock)
			staleBefore := time.Now().UTC().Add(-time.Minute)

			mock.ExpectExec("UPDATE idempotency_records SET updated_at .+ AND updated_at < \\$6").
				WithArgs(pgxmock.AnyArg(), "k", "r", "hash", domain.IdempotencyProcessing, staleBefore).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			ok, err := repo.ReclaimStale(context.Background(), "k", "r", "hash", staleBefore)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
