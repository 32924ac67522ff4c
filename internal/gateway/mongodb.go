package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoGateway implements Gateway over a single MongoDB collection in which
// each document stores its full path, its parent collection path and its data.
type MongoGateway struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     zerolog.Logger
}

// mongoDocument is the stored layout of one document.
type mongoDocument struct {
	Path   string `bson:"_path"`
	Parent string `bson:"_parent"`
	Data   bson.M `bson:"data"`
}

// NewMongoGateway connects to MongoDB and ensures the path indexes exist.
func NewMongoGateway(cfg MongoConfig, logger zerolog.Logger) (*MongoGateway, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "_path", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "_parent", Value: 1}, {Key: "data." + DateField, Value: 1}},
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn().Err(err).Str("component", "mongo_gateway").Msg("failed to create indexes")
	}

	logger.Info().
		Str("component", "mongo_gateway").
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("connected to MongoDB")

	return &MongoGateway{
		client:     client,
		collection: coll,
		logger:     logger,
	}, nil
}

// GetDocument reads one document by path.
func (g *MongoGateway) GetDocument(ctx context.Context, path string) (bool, map[string]any, error) {
	var doc mongoDocument
	err := g.collection.FindOne(ctx, bson.M{"_path": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	return true, plainDocument(doc.Data), nil
}

// QueryRange returns the documents of a collection whose field lies in
// [lower, upper], ordered by path.
func (g *MongoGateway) QueryRange(ctx context.Context, collectionPath, field string, lower, upper int64) ([]map[string]any, error) {
	filter := bson.M{
		"_parent": collectionPath,
		"data." + field: bson.M{
			"$gte": lower,
			"$lte": upper,
		},
	}
	return g.find(ctx, collectionPath, filter)
}

// QueryAll returns every document of a collection, ordered by path.
func (g *MongoGateway) QueryAll(ctx context.Context, collectionPath string) ([]map[string]any, error) {
	return g.find(ctx, collectionPath, bson.M{"_parent": collectionPath})
}

func (g *MongoGateway) find(ctx context.Context, collectionPath string, filter bson.M) ([]map[string]any, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_path", Value: 1}})

	cursor, err := g.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collectionPath, err)
	}
	defer cursor.Close(ctx)

	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collectionPath, err)
	}

	results := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		results = append(results, plainDocument(d.Data))
	}
	return results, nil
}

// Put upserts a document.
func (g *MongoGateway) Put(ctx context.Context, path string, data map[string]any) error {
	update := bson.M{
		"$set": bson.M{
			"_path":   path,
			"_parent": ParentPath(path),
			"data":    data,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := g.collection.UpdateOne(ctx, bson.M{"_path": path}, update, opts); err != nil {
		return fmt.Errorf("failed to put document %s: %w", path, err)
	}
	return nil
}

// plainDocument converts decoded BSON containers into map[string]any and
// []any so cached values can be deep copied.
func plainDocument(m bson.M) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return plainDocument(t)
	case map[string]any:
		return plainDocument(t)
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

// Ping checks the MongoDB connection.
func (g *MongoGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (g *MongoGateway) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return g.client.Disconnect(ctx)
}

var (
	_ Gateway = (*MongoGateway)(nil)
	_ Writer  = (*MongoGateway)(nil)
)
