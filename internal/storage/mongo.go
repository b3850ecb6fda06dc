package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollectionName is the collection holding stored documents.
const MongoCollectionName = "documents"

type mongoDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoBackend stores each key as one document whose _id is the key.
type MongoBackend struct {
	docs       IMongoCollection
	disconnect func(context.Context) error
	now        func() time.Time
}

// NewMongoBackend uses the documents collection of database on client.
// Close disconnects the client.
func NewMongoBackend(client *mongo.Client, database string) *MongoBackend {
	b := NewMongoBackendWithCollection(&MongoCollection{
		Coll: client.Database(database).Collection(MongoCollectionName),
	})
	b.disconnect = client.Disconnect
	return b
}

// NewMongoBackendWithCollection wraps an existing collection.
func NewMongoBackendWithCollection(coll IMongoCollection) *MongoBackend {
	return &MongoBackend{docs: coll, now: time.Now}
}

// ConnectMongo dials uri and pings the primary.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func (b *MongoBackend) Name() string { return "mongo" }

func (b *MongoBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var doc mongoDocument
	err := b.docs.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return []byte(doc.Value), nil
}

func (b *MongoBackend) Set(ctx context.Context, key string, value []byte) error {
	doc := mongoDocument{Key: key, Value: string(value), UpdatedAt: b.now().UTC()}
	_, err := b.docs.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (b *MongoBackend) Close() error {
	if b.disconnect == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.disconnect(ctx)
}
