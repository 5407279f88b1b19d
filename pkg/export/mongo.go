package export

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// Default MongoDB names.
const (
	DefaultMongoDatabase   = "steamfam"
	DefaultMongoCollection = "runs"
)

// MongoSink stores each run as one document keyed by run id.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink connects to uri and verifies the connection. An empty
// database uses [DefaultMongoDatabase].
func NewMongoSink(ctx context.Context, uri, database string) (*MongoSink, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoSink{client: client, coll: client.Database(database).Collection(DefaultMongoCollection)}, nil
}

// runDocument is the stored shape of a run.
type runDocument struct {
	RunID            string                   `bson:"_id"`
	StartedAt        time.Time                `bson:"started_at"`
	Features         pipeline.Features        `bson:"features"`
	OKAccounts       int                      `bson:"ok_accounts"`
	TotalAccounts    int                      `bson:"total_accounts"`
	FailedAccounts   []pipeline.FailedAccount `bson:"failed_accounts"`
	ExcludedDelisted int                      `bson:"excluded_delisted"`
	TypeCounts       map[string]int           `bson:"type_counts"`
	TotalSeconds     float64                  `bson:"total_seconds"`
	Coverage         map[string]float64       `bson:"coverage"`
	Rows             []pipeline.Row           `bson:"rows"`
}

func newRunDocument(res *pipeline.Result) runDocument {
	types := make(map[string]int, len(res.TypeCounts))
	for k, v := range res.TypeCounts {
		types[string(k)] = v
	}
	return runDocument{
		RunID:            res.RunID,
		StartedAt:        res.StartedAt.UTC(),
		Features:         res.Features,
		OKAccounts:       res.OKAccounts,
		TotalAccounts:    res.TotalAccounts,
		FailedAccounts:   res.FailedAccounts,
		ExcludedDelisted: res.ExcludedDelisted,
		TypeCounts:       types,
		TotalSeconds:     res.Stats.Total.Seconds(),
		Coverage:         res.Coverage.Percent,
		Rows:             res.Rows,
	}
}

// Write upserts the run document.
func (s *MongoSink) Write(ctx context.Context, res *pipeline.Result) error {
	doc := newRunDocument(res)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.RunID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store run %s: %w", res.RunID, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
