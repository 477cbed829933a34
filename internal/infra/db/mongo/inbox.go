package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Inbox records handled event ids per consumer in app_inbox.
type Inbox struct {
	col      *mongo.Collection
	consumer string
}

func NewInbox(ctx context.Context, db *mongo.Database, consumer string) (*Inbox, error) {
	col := db.Collection("app_inbox")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &Inbox{col: col, consumer: consumer}, nil
}

// Seen marks eventID handled and reports whether it already was.
func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{"event_id": eventID, "consumer": i.consumer, "received_at": time.Now().UTC()}
	_, err := i.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, err
}
