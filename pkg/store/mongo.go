package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/stagetower/pkg/errors"
	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/stages"
)

// Default MongoDB names.
const (
	DefaultDatabase   = "stagetower"
	DefaultCollection = "reports"
)

// MongoOptions configures NewMongoStore.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MongoStore keeps reports in a MongoDB collection, one document per
// report with the JSON payload stored as binary.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	Info    `bson:",inline"`
	Payload []byte `bson:"payload"`
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo uri is required")
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(opts.URI).
		SetServerSelectionTimeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(opts.Database).Collection(opts.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "saved_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Save(ctx context.Context, rep *stages.Report) (string, error) {
	id, data, err := prepare(rep)
	if err != nil {
		return "", err
	}
	doc := mongoDoc{
		Info:    Info{ID: id, StageCount: len(rep.Stages), SavedAt: time.Now().UTC()},
		Payload: data,
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("save report %s: %w", id, err)
	}
	return id, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*stages.Report, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return reportio.DecodeReport(doc.Payload)
}

func (s *MongoStore) List(ctx context.Context) ([]Info, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "saved_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"payload": 0})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	infos := []Info{}
	if err := cur.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return infos, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
