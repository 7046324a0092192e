package sink

import (
	"context"
	"fmt"

	"github.com/hupe1980/convosim/core"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSinkOptions configures a MongoSink instance.
type MongoSinkOptions struct {
	Database   string
	Collection string
}

// MongoSink persists records into a MongoDB collection, one document per
// conversation.
type MongoSink struct {
	collection *mongo.Collection
}

// NewMongoSink connects to the given MongoDB URI and returns a sink writing
// into convosim.conversations by default.
func NewMongoSink(ctx context.Context, uri string, optFns ...func(o *MongoSinkOptions)) (*MongoSink, error) {
	opts := MongoSinkOptions{
		Database:   "convosim",
		Collection: "conversations",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &MongoSink{
		collection: client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

// NewMongoSinkFromCollection wraps an existing collection handle.
func NewMongoSinkFromCollection(collection *mongo.Collection) *MongoSink {
	return &MongoSink{collection: collection}
}

// Write implements Sink.
func (s *MongoSink) Write(ctx context.Context, record *core.ConversationRecord) error {
	if _, err := s.collection.InsertOne(ctx, record.Clone()); err != nil {
		return &core.SinkError{Sink: "mongo", Err: fmt.Errorf("inserting record %s: %w", record.CallID, err)}
	}
	return nil
}
