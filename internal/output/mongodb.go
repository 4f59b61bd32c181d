// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// MongoOptions configures the MongoDB export target.
type MongoOptions struct {
	// URI is a mongodb:// connection string.
	URI string

	// Database selects the target database.
	Database string

	// Collection receives the record documents.
	Collection string

	// Timeout bounds connect and insert operations; default 10s.
	Timeout time.Duration
}

// MongoWriter inserts records as documents: one field map per record
// plus provenance and a created_at timestamp. Inserts are unordered so
// one bad document cannot abort the rest of the batch.
type MongoWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

const defaultMongoTimeout = 10 * time.Second

// NewMongoWriter connects and verifies the deployment is reachable.
func NewMongoWriter(opts MongoOptions) (*MongoWriter, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("MongoDB collection name is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultMongoTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoWriter{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		timeout:    opts.Timeout,
	}, nil
}

func (w *MongoWriter) Write(records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(records))
	for i := range records {
		docs = append(docs, toDocument(&records[i], now))
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if _, err := w.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	return nil
}

func (w *MongoWriter) Close() error {
	if w.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := w.client.Disconnect(ctx)
	w.client = nil
	return err
}

func toDocument(record *types.Record, now time.Time) bson.M {
	doc := bson.M{"created_at": now}
	for _, name := range record.FieldNames() {
		doc[mongoKey(name)] = record.Get(name)
	}
	if record.Path != "" {
		doc["_path"] = record.Path
		doc["_depth"] = record.Depth
	}
	if len(record.Links) > 0 {
		links := make([]bson.M, len(record.Links))
		for i, l := range record.Links {
			links[i] = bson.M{"text": l.Text, "href": l.Href}
		}
		doc["_links"] = links
	}
	return doc
}

// mongoKey makes a scraped field name a legal BSON key: no dots, no
// leading dollar sign.
func mongoKey(name string) string {
	key := strings.ReplaceAll(name, ".", "_")
	if strings.HasPrefix(key, "$") {
		key = "_" + key[1:]
	}
	return key
}
