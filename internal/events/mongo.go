package events

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	HistoryDatabase   = "auctionhouse"
	HistoryCollection = "history_status"
)

// StatusDoc is one row of the item status history.
type StatusDoc struct {
	RelatedID   string    `bson:"related_id"`
	RelatedType string    `bson:"related_type"`
	OldStatus   string    `bson:"old_status"`
	NewStatus   string    `bson:"new_status"`
	ChangedBy   string    `bson:"changed_by"`
	Timestamp   time.Time `bson:"timestamp"`
	Note        string    `bson:"note"`
}

// StatusDocFor maps a state-change event to a history row; ok is false for other events.
func StatusDocFor(e Event) (StatusDoc, bool) {
	if e.NewState == "" {
		return StatusDoc{}, false
	}
	changedBy := e.ActorID
	if changedBy == "" {
		changedBy = "system"
	}
	return StatusDoc{
		RelatedID:   e.ItemID,
		RelatedType: "item",
		OldStatus:   e.OldState,
		NewStatus:   e.NewState,
		ChangedBy:   changedBy,
		Timestamp:   e.Timestamp,
		Note:        e.Type,
	}, true
}

// MongoHistory keeps an item status history in MongoDB.
type MongoHistory struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoHistory(ctx context.Context, uri string) (*MongoHistory, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoHistory{client: client, collection: client.Database(HistoryDatabase).Collection(HistoryCollection)}, nil
}

func (h *MongoHistory) Publish(ctx context.Context, e Event) error {
	doc, ok := StatusDocFor(e)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := h.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert history status to Mongo: %w", err)
	}
	return nil
}

func (h *MongoHistory) Close(ctx context.Context) error { return h.client.Disconnect(ctx) }
