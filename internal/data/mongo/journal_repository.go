// Package mongo holds the MongoDB-backed read models of the ledger.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// JournalCollectionName is the default name of the journal collection in MongoDB
	JournalCollectionName = "transaction_journal"
)

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal repository. An empty
// collection name falls back to JournalCollectionName.
func NewJournalRepository(logger *slog.Logger, db *mongo.Database, collection string) *JournalRepository {
	if collection == "" {
		collection = JournalCollectionName
	}
	return &JournalRepository{
		collection: db.Collection(collection),
		logger:     logger,
	}
}

// EnsureIndexes creates the unique transaction_id index the upsert relies on
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "transaction_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("transaction_id_unique"),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, model); err != nil {
		r.logger.Error("Failed to create journal indexes", "error", err)
		return fmt.Errorf("failed to create journal indexes: %w", err)
	}
	return nil
}

// Upsert writes the record keyed by transaction id. Redelivered events replace
// the earlier copy instead of adding a second one.
func (r *JournalRepository) Upsert(ctx context.Context, record *journal.Record) error {
	filter := bson.M{"transaction_id": record.TransactionID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, record, opts); err != nil {
		r.logger.Error("Failed to upsert journal record",
			"transaction_id", record.TransactionID.String(),
			"status", string(record.Status),
			"error", err)
		return fmt.Errorf("failed to upsert journal record: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves a journal record by its transaction ID.
// Returns ErrRecordNotFound if nothing was journaled for the transaction.
func (r *JournalRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*journal.Record, error) {
	filter := bson.M{"transaction_id": transactionID}

	var record journal.Record
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, journal.ErrRecordNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get journal record",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal record: %w", err)
	}

	return &record, nil
}
