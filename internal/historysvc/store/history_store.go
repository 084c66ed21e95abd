package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
)

const CollectionName = "user_history"

// retention for audit records, enforced by the TTL index on expires_at
const retention = 90 * 24 * time.Hour

type HistoryStore struct {
	coll *mongo.Collection
}

func NewHistoryStore(db *mongo.Database) *HistoryStore {
	return &HistoryStore{coll: db.Collection(CollectionName)}
}

type historyDoc struct {
	UserID         string            `bson:"user_id"`
	Action         string            `bson:"action"`
	PreviousStatus string            `bson:"previous_status"`
	NewStatus      string            `bson:"new_status"`
	TableNumber    int               `bson:"table_number,omitempty"`
	Metadata       map[string]string `bson:"metadata,omitempty"`
	CreatedAt      time.Time         `bson:"created_at"`
	ExpiresAt      time.Time         `bson:"expires_at"`
}

// Append writes one audit record. Callers treat failures as non-fatal, the
// primary state transition already happened.
func (s *HistoryStore) Append(ctx context.Context, rec models.HistoryRecord) error {
	doc := historyDoc{
		UserID:         rec.UserID,
		Action:         rec.Action,
		PreviousStatus: rec.PreviousStatus,
		NewStatus:      rec.NewStatus,
		TableNumber:    rec.TableNumber,
		Metadata:       rec.Metadata,
		CreatedAt:      rec.CreatedAt,
		ExpiresAt:      rec.CreatedAt.Add(retention),
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("could not append history for user %s: %w", rec.UserID, err)
	}
	return nil
}

// Recent returns the latest records, newest first, optionally filtered to
// one user.
func (s *HistoryStore) Recent(ctx context.Context, userID string, limit int64) ([]models.HistoryRecord, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("could not query history: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.HistoryRecord
	for cursor.Next(ctx) {
		var doc historyDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("could not decode history record: %w", err)
		}
		records = append(records, models.HistoryRecord{
			UserID:         doc.UserID,
			Action:         doc.Action,
			PreviousStatus: doc.PreviousStatus,
			NewStatus:      doc.NewStatus,
			TableNumber:    doc.TableNumber,
			Metadata:       doc.Metadata,
			CreatedAt:      doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("history cursor: %w", err)
	}
	return records, nil
}
