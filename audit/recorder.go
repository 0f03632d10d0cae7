// Package audit keeps a trail of payment verification attempts. Entries carry
// identifiers and outcomes only; signatures and secrets are never recorded.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Attempt struct {
	StoreID          string    `bson:"store_id"`
	Source           string    `bson:"source"`
	ProcessorOrderID string    `bson:"processor_order_id"`
	PaymentID        string    `bson:"payment_id"`
	OrderID          string    `bson:"order_id,omitempty"`
	Outcome          string    `bson:"outcome"`
	At               time.Time `bson:"at"`
}

type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// Nop discards attempts.
type Nop struct{}

func (Nop) Record(context.Context, Attempt) error { return nil }

// Inserter is the part of *mongo.Collection the recorder uses.
type Inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type MongoRecorder struct {
	coll Inserter
}

func NewMongoRecorder(coll Inserter) *MongoRecorder {
	return &MongoRecorder{coll: coll}
}

func (r *MongoRecorder) Record(ctx context.Context, a Attempt) error {
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, a)
	return err
}

// EnsureIndexes creates the lookup indexes used by support tooling.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "processor_order_id", Value: 1}}},
		{Keys: bson.D{{Key: "at", Value: -1}}},
	})
	return err
}
