package postgres

import (
	"context"
	"fmt"
	"strings"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const entryColumns = `id, account_id, amount, entry_type, transfer_id, reference, created_at`

// LedgerRepo implements ports.LedgerRepository on the append-only
// ledger_entries table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append writes all entries in a single INSERT inside the caller's transaction.
// A unique violation (second resolution of the same hold) maps to domain.ErrDuplicate.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)*7)
	for i, e := range entries {
		n := i * 7
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7))
		args = append(args, e.ID, e.AccountID, e.Amount, e.EntryType, e.TransferID, e.Reference, e.CreatedAt)
	}

	query := `INSERT INTO ledger_entries (` + entryColumns + `) VALUES ` + strings.Join(values, ", ")
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert ledger entries: %w", err)
	}
	return nil
}

// SumsByAccount aggregates the account's entries per entry type.
func (r *LedgerRepo) SumsByAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (domain.EntrySums, error) {
	query := `SELECT entry_type, SUM(amount) FROM ledger_entries WHERE account_id = $1 GROUP BY entry_type`

	rows, err := on(r.pool, tx).Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("sum ledger entries: %w", err)
	}
	defer rows.Close()

	sums := make(domain.EntrySums)
	for rows.Next() {
		var (
			typ domain.EntryType
			sum decimal.Decimal
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return nil, fmt.Errorf("scan ledger sum: %w", err)
		}
		sums[typ] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger sums: %w", err)
	}
	return sums, nil
}

// ListByAccount returns the account's entries oldest first.
func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, filter domain.EntryFilter) ([]domain.LedgerEntry, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("account_id = $%d", argIdx))
	args = append(args, accountID)
	argIdx++

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("entry_type = ANY($%d)", argIdx))
		args = append(args, types)
		argIdx++
	}
	if filter.TransferID != nil {
		conditions = append(conditions, fmt.Sprintf("transfer_id = $%d", argIdx))
		args = append(args, *filter.TransferID)
		argIdx++
	}
	if filter.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filter.Since)
		argIdx++
	}
	if filter.Until != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *filter.Until)
		argIdx++
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	return r.queryEntries(ctx, query, args...)
}

// ListByTransfer returns every entry posted for one transfer.
func (r *LedgerRepo) ListByTransfer(ctx context.Context, transferID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE transfer_id = $1 ORDER BY created_at, id`
	return r.queryEntries(ctx, query, transferID)
}

func (r *LedgerRepo) queryEntries(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.EntryType, &e.TransferID, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
