package memory

import (
	"context"
	"sort"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Entries are only ever appended.
type LedgerRepo struct {
	s *Store
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(s *Store) *LedgerRepo {
	return &LedgerRepo{s: s}
}

// Append enforces one resolution per hold reference, like the partial
// unique index in PostgreSQL.
func (r *LedgerRepo) Append(_ context.Context, dbTx pgx.Tx, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := append([]domain.LedgerEntry(nil), entries...)

	var refs []string
	for _, e := range batch {
		if e.EntryType.IsHoldResolution() && e.Reference != nil {
			refs = append(refs, *e.Reference)
		}
	}

	var pending map[string]struct{}
	if dbTx != nil {
		t, err := r.s.own(dbTx)
		if err != nil {
			return err
		}
		if t.holds == nil {
			t.holds = make(map[string]struct{})
		}
		pending = t.holds
	}

	r.s.mu.RLock()
	for _, ref := range refs {
		_, committed := r.s.holdRefs[ref]
		_, claimed := pending[ref]
		if committed || claimed {
			r.s.mu.RUnlock()
			return domain.ErrDuplicate
		}
	}
	r.s.mu.RUnlock()

	for _, ref := range refs {
		if pending != nil {
			pending[ref] = struct{}{}
		}
	}

	return r.s.write(dbTx, func() {
		r.s.entries = append(r.s.entries, batch...)
		for _, ref := range refs {
			r.s.holdRefs[ref] = struct{}{}
		}
	})
}

func (r *LedgerRepo) SumsByAccount(_ context.Context, dbTx pgx.Tx, accountID uuid.UUID) (domain.EntrySums, error) {
	if dbTx != nil {
		if _, err := r.s.own(dbTx); err != nil {
			return nil, err
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sums := make(domain.EntrySums)
	for _, e := range r.s.entries {
		if e.AccountID == accountID {
			sums[e.EntryType] = sums[e.EntryType].Add(e.Amount)
		}
	}
	return sums, nil
}

func (r *LedgerRepo) ListByAccount(_ context.Context, accountID uuid.UUID, filter domain.EntryFilter) ([]domain.LedgerEntry, error) {
	types := make(map[domain.EntryType]bool, len(filter.Types))
	for _, t := range filter.Types {
		types[t] = true
	}

	r.s.mu.RLock()
	var out []domain.LedgerEntry
	for _, e := range r.s.entries {
		switch {
		case e.AccountID != accountID:
		case len(types) > 0 && !types[e.EntryType]:
		case filter.TransferID != nil && (e.TransferID == nil || *e.TransferID != *filter.TransferID):
		case filter.Since != nil && e.CreatedAt.Before(*filter.Since):
		case filter.Until != nil && !e.CreatedAt.Before(*filter.Until):
		default:
			out = append(out, e)
		}
	}
	r.s.mu.RUnlock()

	sortEntries(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *LedgerRepo) ListByTransfer(_ context.Context, transferID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.s.mu.RLock()
	var out []domain.LedgerEntry
	for _, e := range r.s.entries {
		if e.TransferID != nil && *e.TransferID == transferID {
			out = append(out, e)
		}
	}
	r.s.mu.RUnlock()

	sortEntries(out)
	return out, nil
}

// sortEntries orders by creation time; append order breaks ties.
func sortEntries(entries []domain.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
