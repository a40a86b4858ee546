package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotsearch/internal/config"
	"hotsearch/internal/trending"
)

const (
	hourlyCollection  = "hourly"
	summaryCollection = "summary"
)

// hourlyDoc is one snapshot as stored in the hourly collection.
type hourlyDoc struct {
	Date       string           `bson:"date"`
	Hour       int              `bson:"hour"`
	UpdateTime time.Time        `bson:"update_time"`
	Items      []*trending.Item `bson:"items"`
}

// summaryDoc is the merged aggregate for one day, replaced on every run.
type summaryDoc struct {
	Date       string           `bson:"date"`
	UpdateTime time.Time        `bson:"update_time"`
	Items      []*trending.Item `bson:"items"`
}

// MongoStore persists snapshots and aggregates in MongoDB: hourly documents
// are append-only, the per-day summary is upserted.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (*MongoStore, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("mongo storage requires a connection URI")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger = logger.With("component", "mongo_store")
	logger.Info("mongodb connected", "database", cfg.MongoDB)

	return &MongoStore{
		client: client,
		db:     client.Database(cfg.MongoDB),
		logger: logger,
	}, nil
}

func (s *MongoStore) SaveHourly(ctx context.Context, ts time.Time, items []*trending.Item) error {
	doc := hourlyDoc{
		Date:       ts.Format(DayLayout),
		Hour:       ts.Hour(),
		UpdateTime: ts,
		Items:      items,
	}
	if _, err := s.db.Collection(hourlyCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert hourly snapshot: %w", err)
	}
	s.logger.Info("hourly snapshot saved", "date", doc.Date, "hour", doc.Hour, "items", len(items))
	return nil
}

func (s *MongoStore) SaveSummary(ctx context.Context, day time.Time, items []*trending.Item) error {
	doc := summaryDoc{
		Date:       day.Format(DayLayout),
		UpdateTime: time.Now(),
		Items:      items,
	}
	_, err := s.db.Collection(summaryCollection).ReplaceOne(
		ctx,
		bson.M{"date": doc.Date},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	s.logger.Info("daily summary saved", "date", doc.Date, "items", len(items))
	return nil
}

func (s *MongoStore) LoadSummary(ctx context.Context, day time.Time) ([]*trending.Item, error) {
	var doc summaryDoc
	err := s.db.Collection(summaryCollection).
		FindOne(ctx, bson.M{"date": day.Format(DayLayout)}).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		s.logger.Warn("stored summary unreadable, starting empty", "error", err)
		return nil, nil
	}
	return doc.Items, nil
}

func (s *MongoStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	cutoff := time.Now().AddDate(0, 0, -1).Format(DayLayout)

	var doc hourlyDoc
	err := s.db.Collection(hourlyCollection).
		FindOne(ctx,
			bson.M{"date": bson.M{"$gte": cutoff}},
			options.FindOne().SetSort(bson.D{{Key: "update_time", Value: -1}}),
		).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return &Snapshot{UpdateTime: doc.UpdateTime, Items: doc.Items}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
