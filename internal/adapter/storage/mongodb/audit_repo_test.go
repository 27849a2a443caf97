package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type fakeCollection struct {
	docs []any
	err  error
}

func (f *fakeCollection) InsertOne(_ context.Context, doc any, _ ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)
	return &mongo.InsertOneResult{}, nil
}

func TestAuditRepo_Insert(t *testing.T) {
	coll := &fakeCollection{}
	repo := NewAuditRepo(coll)
	transferID := uuid.New()
	rec := &domain.AuditRecord{
		EventID:    uuid.New(),
		Type:       domain.EventTransferHeld,
		OwnerID:    uuid.New(),
		TransferID: &transferID,
		Amount:     "5000",
		Currency:   "HTG",
		Status:     "pending_review",
		OccurredAt: time.Now().UTC(),
		RecordedAt: time.Now().UTC(),
	}

	require.NoError(t, repo.Insert(context.Background(), rec))
	require.Len(t, coll.docs, 1)

	doc := coll.docs[0].(auditDocument)
	assert.Equal(t, rec.EventID.String(), doc.ID)
	assert.Equal(t, "transfer.held", doc.Type)
	assert.Equal(t, transferID.String(), doc.TransferID)
	assert.Equal(t, "5000", doc.Amount)
}

func TestAuditRepo_Insert_NoTransfer(t *testing.T) {
	coll := &fakeCollection{}
	repo := NewAuditRepo(coll)

	require.NoError(t, repo.Insert(context.Background(), &domain.AuditRecord{EventID: uuid.New(), Type: domain.EventAccountFrozen}))
	assert.Empty(t, coll.docs[0].(auditDocument).TransferID)
}

func TestAuditRepo_Insert_DuplicateIgnored(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	repo := NewAuditRepo(&fakeCollection{err: dup})

	assert.NoError(t, repo.Insert(context.Background(), &domain.AuditRecord{EventID: uuid.New()}))
}

func TestAuditRepo_Insert_Error(t *testing.T) {
	repo := NewAuditRepo(&fakeCollection{err: errors.New("no reachable servers")})

	err := repo.Insert(context.Background(), &domain.AuditRecord{EventID: uuid.New()})
	assert.ErrorContains(t, err, "insert audit document")
}
