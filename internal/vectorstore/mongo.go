package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docqa-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const registryCollection = "vector_collections"

// Mongo keeps each session's points in its own MongoDB collection and scores
// them in process. A registry collection records each collection's dimension.
type Mongo struct {
	db *mongo.Database
}

type mongoRegistryEntry struct {
	Name      string    `bson:"_id"`
	Dimension int       `bson:"dimension"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoPoint struct {
	ID           string `bson:"_id"`
	models.Chunk `bson:",inline"`
	Vector       []float32 `bson:"vector"`
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) Backend() string { return "mongo" }

func (m *Mongo) dimension(ctx context.Context, name string) (int, error) {
	var entry mongoRegistryEntry
	err := m.db.Collection(registryCollection).FindOne(ctx, bson.M{"_id": name}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, err
	}
	return entry.Dimension, nil
}

func (m *Mongo) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	existing, err := m.dimension(ctx, name)
	if err == nil {
		if existing != dim {
			return fmt.Errorf("%w: %s has %d, requested %d", ErrDimensionMismatch, name, existing, dim)
		}
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	_, err = m.db.Collection(registryCollection).InsertOne(ctx, mongoRegistryEntry{
		Name:      name,
		Dimension: dim,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to register collection: %w", err)
	}
	return nil
}

func (m *Mongo) Upsert(ctx context.Context, name string, chunks []models.Chunk, vectors [][]float32) error {
	dim, err := m.dimension(ctx, name)
	if err != nil {
		return err
	}
	if err := checkUpsert(chunks, vectors, dim); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, len(chunks))
	for i := range chunks {
		p := mongoPoint{
			ID:     fmt.Sprintf("%d:%d", chunks[i].DocumentIndex, chunks[i].Position),
			Chunk:  chunks[i],
			Vector: vectors[i],
		}
		writes[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": p.ID}).
			SetReplacement(p).
			SetUpsert(true)
	}
	_, err = m.db.Collection(name).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

func (m *Mongo) Query(ctx context.Context, name string, vector []float32, topK int) ([]models.ScoredChunk, error) {
	dim, err := m.dimension(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d values, collection has %d", ErrDimensionMismatch, len(vector), dim)
	}

	cur, err := m.db.Collection(name).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var chunks []models.Chunk
	var vectors [][]float32
	for cur.Next(ctx) {
		var p mongoPoint
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		chunks = append(chunks, p.Chunk)
		vectors = append(vectors, p.Vector)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return rankByCosine(vector, chunks, vectors, topK), nil
}

func (m *Mongo) DeleteCollection(ctx context.Context, name string) error {
	if err := m.db.Collection(name).Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	if _, err := m.db.Collection(registryCollection).DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return fmt.Errorf("failed to unregister %s: %w", name, err)
	}
	return nil
}

func (m *Mongo) ListCollections(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1})
	cursor, err := m.db.Collection(registryCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []mongoRegistryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}
