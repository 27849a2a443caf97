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

var accountCols = []string{"id", "owner_id", "currency", "role", "is_primary", "status", "frozen_reason", "created_at", "updated_at"}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &domain.Account{
		ID: uuid.New(), OwnerID: uuid.New(), Currency: "HTG",
		Role: domain.AccountRoleUser, IsPrimary: true, Status: domain.AccountStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.ID, a.OwnerID, a.Currency, a.Role, a.IsPrimary, a.Status, a.FrozenReason, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), &domain.Account{ID: uuid.New()})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
}

func TestAccountRepo_GetByOwnerAndCurrency(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id, owner := uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE owner_id = \\$1 AND currency = \\$2").
		WithArgs(owner, "USD").
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow(id, owner, "USD", domain.AccountRoleUser, false, domain.AccountStatusActive, (*string)(nil), now, now))

	a, err := repo.GetByOwnerAndCurrency(context.Background(), owner, "USD")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, "USD", a.Currency)
	assert.False(t, a.IsFrozen())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetPrimary_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	owner := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE owner_id = \\$1 AND is_primary").
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows(accountCols))

	a, err := repo.GetPrimary(context.Background(), owner)
	assert.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id, owner := uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	reason := "risk score 95"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id = \\$1 FOR UPDATE").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow(id, owner, "HTG", domain.AccountRoleUser, true, domain.AccountStatusFrozen, &reason, now, now))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	a, err := repo.GetByIDForUpdate(context.Background(), tx, id)
	require.NoError(t, err)
	assert.True(t, a.IsFrozen())
	require.NotNil(t, a.FrozenReason)
	assert.Equal(t, reason, *a.FrozenReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_SetStatusByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	owner := uuid.New()
	reason := "risk"

	mock.ExpectExec("UPDATE accounts SET status").
		WithArgs(domain.AccountStatusFrozen, &reason, pgxmock.AnyArg(), owner).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := repo.SetStatusByOwner(context.Background(), owner, domain.AccountStatusFrozen, &reason)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
