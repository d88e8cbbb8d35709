// Package inbox records consumed broker messages so redelivered audit
// requests are dropped.
package inbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collection       = "audit_inbox"
	DefaultRetention = 7 * 24 * time.Hour
)

// Store keeps one document per consumer group and message id. Entries expire
// after the retention period through a TTL index.
type Store struct {
	col      *mongo.Collection
	consumer string
	now      func() time.Time
}

func NewStore(db *mongo.Database, consumer string, retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	col := db.Collection(collection)
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "received_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
	})
	return &Store{col: col, consumer: consumer, now: time.Now}
}

// Seen reports whether id was marked for this consumer.
func (s *Store) Seen(ctx context.Context, id string) (bool, error) {
	err := s.col.FindOne(ctx, bson.M{"_id": s.key(id)}).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	default:
		return false, err
	}
}

// Mark records id as handled. Marking twice is not an error.
func (s *Store) Mark(ctx context.Context, id string) error {
	_, err := s.col.InsertOne(ctx, inboxDocument{
		ID:         s.key(id),
		MessageID:  id,
		Consumer:   s.consumer,
		ReceivedAt: s.now().UTC(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return nil
}

func (s *Store) key(id string) string {
	return s.consumer + ":" + id
}

type inboxDocument struct {
	ID         string    `bson:"_id"`
	MessageID  string    `bson:"message_id"`
	Consumer   string    `bson:"consumer"`
	ReceivedAt time.Time `bson:"received_at"`
}
