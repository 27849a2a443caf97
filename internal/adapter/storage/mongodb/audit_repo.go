package mongodb

import (
	"context"
	"fmt"
	"time"

	"mobile-money-ledger/config"
	"mobile-money-ledger/internal/core/domain"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// auditDocument is the stored shape. The event id is the document id so a
// redelivered event collides instead of duplicating.
type auditDocument struct {
	ID         string    `bson:"_id"`
	Type       string    `bson:"type"`
	OwnerID    string    `bson:"owner_id"`
	TransferID string    `bson:"transfer_id,omitempty"`
	Amount     string    `bson:"amount"`
	Currency   string    `bson:"currency,omitempty"`
	Status     string    `bson:"status,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func toDocument(rec *domain.AuditRecord) auditDocument {
	doc := auditDocument{
		ID:         rec.EventID.String(),
		Type:       string(rec.Type),
		OwnerID:    rec.OwnerID.String(),
		Amount:     rec.Amount,
		Currency:   rec.Currency,
		Status:     rec.Status,
		OccurredAt: rec.OccurredAt,
		RecordedAt: rec.RecordedAt,
	}
	if rec.TransferID != nil {
		doc.TransferID = rec.TransferID.String()
	}
	return doc
}

// Collection is the subset of *mongo.Collection used by AuditRepo.
type Collection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
}

// AuditRepo implements ports.AuditRepository on a MongoDB collection.
type AuditRepo struct {
	collection Collection
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(collection Collection) *AuditRepo {
	return &AuditRepo{collection: collection}
}

// Insert stores the record. A duplicate event id is not an error.
func (r *AuditRepo) Insert(ctx context.Context, rec *domain.AuditRecord) error {
	if _, err := r.collection.InsertOne(ctx, toDocument(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit document: %w", err)
	}
	return nil
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// HealthCheck implements ports.HealthChecker for MongoDB.
type HealthCheck struct {
	client *mongo.Client
}

// NewHealthCheck creates a MongoDB health checker.
func NewHealthCheck(client *mongo.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping checks MongoDB connectivity.
func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, nil)
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "mongodb"
}
