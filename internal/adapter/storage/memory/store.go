// Package memory is an in-process implementation of the storage ports. It
// backs the dev profile and the engine tests.
//
// Transactions are serialized by a single writer slot: Begin blocks until the
// previous transaction commits or rolls back, which gives every transaction
// the isolation PostgreSQL provides through FOR UPDATE row locks. Writes made
// inside a transaction are buffered and applied atomically on Commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Store holds every table.
type Store struct {
	writer chan struct{}

	mu             sync.RWMutex
	accounts       map[uuid.UUID]domain.Account
	entries        []domain.LedgerEntry
	transfers      map[uuid.UUID]domain.Transfer
	transferKeys   map[string]uuid.UUID
	holdRefs       map[string]struct{}
	idempotency    map[string]domain.IdempotencyRecord
	riskEvents     map[uuid.UUID]domain.RiskEvent
	riskFlags      []domain.RiskFlag
	challenges     map[uuid.UUID]domain.Challenge
	devices        map[string]domain.DeviceSession
	counterparties map[string]domain.Counterparty
	audit          map[uuid.UUID]domain.AuditRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		writer:         make(chan struct{}, 1),
		accounts:       make(map[uuid.UUID]domain.Account),
		transfers:      make(map[uuid.UUID]domain.Transfer),
		transferKeys:   make(map[string]uuid.UUID),
		holdRefs:       make(map[string]struct{}),
		idempotency:    make(map[string]domain.IdempotencyRecord),
		riskEvents:     make(map[uuid.UUID]domain.RiskEvent),
		challenges:     make(map[uuid.UUID]domain.Challenge),
		devices:        make(map[string]domain.DeviceSession),
		counterparties: make(map[string]domain.Counterparty),
		audit:          make(map[uuid.UUID]domain.AuditRecord),
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.writer <- struct{}{}:
		return &tx{store: s}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("begin transaction: %w", ctx.Err())
	}
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

// Name returns the dependency name.
func (s *Store) Name() string { return "memory" }

// tx buffers writes until Commit. It embeds pgx.Tx only to satisfy the
// interface; calling any other pgx method panics.
type tx struct {
	pgx.Tx
	store   *Store
	ops     []func()
	keys    map[string]struct{} // transfer keys claimed in this tx
	holds   map[string]struct{} // hold references resolved in this tx
	settled bool
}

func (t *tx) Commit(context.Context) error {
	if t.settled {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for _, op := range t.ops {
		op()
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *tx) Rollback(context.Context) error {
	if t.settled {
		return pgx.ErrTxClosed
	}
	t.release()
	return nil
}

func (t *tx) release() {
	t.settled = true
	t.ops = nil
	<-t.store.writer
}

// write applies op inside dbTx, or immediately when dbTx is nil.
func (s *Store) write(dbTx pgx.Tx, op func()) error {
	if dbTx == nil {
		s.mu.Lock()
		op()
		s.mu.Unlock()
		return nil
	}
	t, err := s.own(dbTx)
	if err != nil {
		return err
	}
	t.ops = append(t.ops, op)
	return nil
}

func (s *Store) own(dbTx pgx.Tx) (*tx, error) {
	t, ok := dbTx.(*tx)
	if !ok || t.store != s {
		return nil, errForeignTx
	}
	if t.settled {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}
