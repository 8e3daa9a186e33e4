package formstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"schedcal/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 5 * time.Second

// Connect opens a MongoDB client and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// MongoStore keeps scheduling forms in a MongoDB collection.
type MongoStore struct {
	coll   *mongo.Collection
	logger *slog.Logger
	now    func() time.Time
}

// NewMongoStore creates a store on coll.
func NewMongoStore(coll *mongo.Collection, logger *slog.Logger) *MongoStore {
	return &MongoStore{coll: coll, logger: logger, now: time.Now}
}

// EnsureIndexes creates the indexes used by candidate removal.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_confirmed", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Ping reports whether the database answers.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

// Create stores a new form under a fresh id and returns the id.
func (s *MongoStore) Create(ctx context.Context, form models.FormData) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := s.now().UTC()
	form.ID = uuid.NewString()
	form.CreatedAt = now
	form.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, form); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("form %s: %w", form.ID, models.ErrDuplicate)
		}
		return "", fmt.Errorf("failed to create form: %w", err)
	}
	s.logger.Info("Form stored", "formID", form.ID, "candidates", len(form.Candidates))
	return form.ID, nil
}

// Get loads a form by id.
func (s *MongoStore) Get(ctx context.Context, id string) (models.FormData, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var form models.FormData
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&form); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.FormData{}, fmt.Errorf("form %s: %w", id, models.ErrNotFound)
		}
		return models.FormData{}, fmt.Errorf("failed to fetch form %s: %w", id, err)
	}
	return form, nil
}

// SaveCandidates replaces the proposed candidates of a form.
func (s *MongoStore) SaveCandidates(ctx context.Context, id string, candidates [][2]string, attendees map[string][]string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{
		"schedule_interview_datetimes": candidates,
		"slot_attendees_map":           attendees,
		"updated_at":                   s.now().UTC(),
	}})
}

// SetConfirmation records the booked candidate and its events and marks the
// form confirmed.
func (s *MongoStore) SetConfirmation(ctx context.Context, id string, c models.Confirmation) error {
	return s.update(ctx, id, confirmationUpdate(c, s.now().UTC()))
}

// Reset clears the confirmation so the form can be booked again.
func (s *MongoStore) Reset(ctx context.Context, id string) error {
	return s.update(ctx, id, resetUpdate(s.now().UTC()))
}

// RemoveCandidateFromOthers pulls candidate from every other form offering
// exactly the same window and returns how many forms changed.
func (s *MongoStore) RemoveCandidateFromOthers(ctx context.Context, id string, candidate [2]string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter, update := removeCandidate(id, candidate, s.now().UTC())
	res, err := s.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to remove candidate from other forms: %w", err)
	}
	if res.ModifiedCount > 0 {
		s.logger.Info("Removed booked candidate from other forms", "formID", id, "forms", res.ModifiedCount)
	}
	return res.ModifiedCount, nil
}

// Delete removes a form.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("failed to delete form %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("form %s: %w", id, models.ErrNotFound)
	}
	s.logger.Info("Form deleted", "formID", id)
	return nil
}

func (s *MongoStore) update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, byID(id), update)
	if err != nil {
		return fmt.Errorf("failed to update form %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("form %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func byID(id string) bson.M {
	return bson.M{"_id": id}
}

func confirmationUpdate(c models.Confirmation, now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"selected_candidate": bson.A{c.SelectedCandidate[0], c.SelectedCandidate[1]},
		"event_ids":          c.EventIDs,
		"is_confirmed":       true,
		"updated_at":         now,
	}}
}

func resetUpdate(now time.Time) bson.M {
	return bson.M{
		"$set":   bson.M{"is_confirmed": false, "updated_at": now},
		"$unset": bson.M{"selected_candidate": "", "event_ids": ""},
	}
}

func removeCandidate(id string, candidate [2]string, now time.Time) (bson.M, bson.M) {
	pair := bson.A{candidate[0], candidate[1]}
	filter := bson.M{
		"_id":                          bson.M{"$ne": id},
		"schedule_interview_datetimes": pair,
	}
	update := bson.M{
		"$pull": bson.M{"schedule_interview_datetimes": pair},
		"$set":  bson.M{"updated_at": now},
	}
	return filter, update
}
