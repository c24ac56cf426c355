package store

import (
	"context"
	"errors"

	"docqa-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Mongo struct {
	col *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{col: db.Collection("sessions")}
}

func (m *Mongo) Get(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Mongo) Put(ctx context.Context, s *models.Session) error {
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": s.ID}, s, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": id}, s)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Mongo) Remove(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := m.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Mongo) List(ctx context.Context) ([]*models.Session, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []*models.Session
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) Count(ctx context.Context) (int, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{})
	return int(n), err
}
