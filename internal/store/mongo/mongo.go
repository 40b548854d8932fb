// Package mongo provides a MongoDB implementation of the interview and
// feedback store.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/user/intervoice/internal/types"
)

const (
	interviewsCollection = "interviews"
	feedbackCollection   = "feedback"
)

// Store persists interviews and feedback in two collections of one
// database.
type Store struct {
	client     *mongo.Client
	interviews *mongo.Collection
	feedback   *mongo.Collection
}

// Compile-time check that Store implements types.Store.
var _ types.Store = (*Store)(nil)

// Connect dials uri, verifies the connection, and ensures the indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	s := New(client.Database(database))
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// New wraps an already connected database. Close does not disconnect it.
func New(db *mongo.Database) *Store {
	return &Store{
		interviews: db.Collection(interviewsCollection),
		feedback:   db.Collection(feedbackCollection),
	}
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.interviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "finalized", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongodb create interview indexes: %w", err)
	}
	_, err = s.feedback.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "interviewId", Value: 1}, {Key: "userId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongodb create feedback index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func (s *Store) GetInterview(ctx context.Context, id types.InterviewID) (*types.Interview, error) {
	var iv types.Interview
	err := s.interviews.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&iv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb get interview %q: %w", id, err)
	}
	return &iv, nil
}

func (s *Store) PutInterview(ctx context.Context, iv *types.Interview) error {
	if iv.ID == "" {
		iv.ID = types.NewInterviewID()
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.interviews.ReplaceOne(ctx, bson.M{"_id": string(iv.ID)}, iv, opts); err != nil {
		return fmt.Errorf("mongodb put interview %q: %w", iv.ID, err)
	}
	return nil
}

func (s *Store) LatestInterviews(ctx context.Context, excludeUser types.UserID, limit int) ([]*types.Interview, error) {
	if limit <= 0 {
		limit = types.DefaultLatestLimit
	}
	filter := bson.M{
		"finalized": true,
		"userId":    bson.M{"$ne": string(excludeUser)},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return s.findInterviews(ctx, filter, opts)
}

func (s *Store) InterviewsByUser(ctx context.Context, userID types.UserID) ([]*types.Interview, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.findInterviews(ctx, bson.M{"userId": string(userID)}, opts)
}

func (s *Store) findInterviews(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*types.Interview, error) {
	cursor, err := s.interviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find interviews: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	out := make([]*types.Interview, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongodb find interviews decode: %w", err)
	}
	return out, nil
}

func (s *Store) CreateFeedback(ctx context.Context, rec *types.FeedbackRecord) (types.FeedbackID, error) {
	stored := *rec
	stored.ID = types.NewFeedbackID()
	if _, err := s.feedback.InsertOne(ctx, &stored); err != nil {
		return "", fmt.Errorf("mongodb insert feedback: %w", err)
	}
	return stored.ID, nil
}

func (s *Store) PutFeedback(ctx context.Context, id types.FeedbackID, rec *types.FeedbackRecord) error {
	stored := *rec
	stored.ID = id
	opts := options.Replace().SetUpsert(true)
	if _, err := s.feedback.ReplaceOne(ctx, bson.M{"_id": string(id)}, &stored, opts); err != nil {
		return fmt.Errorf("mongodb put feedback %q: %w", id, err)
	}
	return nil
}

func (s *Store) FeedbackByInterview(ctx context.Context, interviewID types.InterviewID, userID types.UserID) (*types.FeedbackRecord, error) {
	var rec types.FeedbackRecord
	filter := bson.M{"interviewId": string(interviewID), "userId": string(userID)}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if err := s.feedback.FindOne(ctx, filter, opts).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb get feedback for %q: %w", interviewID, err)
	}
	return &rec, nil
}

func (s *Store) CountFeedback(ctx context.Context) (int64, error) {
	n, err := s.feedback.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongodb count feedback: %w", err)
	}
	return n, nil
}
