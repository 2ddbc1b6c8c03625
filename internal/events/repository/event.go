package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	eventserrors "meetsync/internal/events/errors"
	"meetsync/pkg/config"
	"meetsync/pkg/model"
)

const (
	CollectionName = "Events"
)

type mongoEventRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

// EventRepository is the booking ledger: the durable record independent of
// external-calendar availability and the authority for conflict detection.
type EventRepository interface {
	EnsureIndexes(ctx context.Context) error
	Reserve(ctx context.Context, event *model.Event) (string, error)
	FindConflicting(ctx context.Context, start, end time.Time, buffer time.Duration, excludeID string) (*model.Event, error)
	Finalize(ctx context.Context, id string, externalID string) error
	Abort(ctx context.Context, id string) error
	UpdateFields(ctx context.Context, id string, fields model.EventFields) error
	RevertFields(ctx context.Context, id string, fields model.EventFields) error
	FindByExternalID(ctx context.Context, externalID string) (*model.Event, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
	ListForOwner(ctx context.Context, ownerID string, start, end *time.Time) ([]*model.Event, error)
	FindInWindow(ctx context.Context, start, end time.Time) ([]*model.Event, error)
}

func NewMongoEventRepository(cfg *config.Config) EventRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEventRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout wraps the context with a timeout, respecting a tighter deadline
// already present on the incoming context.
func (r *mongoEventRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// EnsureIndexes declares the two uniqueness constraints the commit protocol
// relies on: one external id per confirmed event, and one reservation per
// exact slot. The slot index is what turns a reservation race into a
// detectable duplicate-key error instead of a double booking.
func (r *mongoEventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"external_id": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{
				{Key: "start_time_utc", Value: 1},
				{Key: "end_time_utc", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "start_time_utc", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}
	return nil
}

// Reserve inserts a pending record, claiming the slot locally before any
// external call is made.
func (r *mongoEventRepository) Reserve(ctx context.Context, event *model.Event) (string, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	event.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", eventserrors.ErrSlotRaceLost
		}
		return "", fmt.Errorf("failed to reserve event slot: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	event.ID = oid.Hex()
	return event.ID, nil
}

// FindConflicting returns the first pending-or-confirmed record overlapping
// the candidate interval once existing records are expanded by buffer.
// excludeID lets a reschedule skip the record being moved.
func (r *mongoEventRepository) FindConflicting(ctx context.Context, start, end time.Time, buffer time.Duration, excludeID string) (*model.Event, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":         bson.M{"$in": []string{model.StatusPending, model.StatusConfirmed}},
		"start_time_utc": bson.M{"$lt": end.Add(buffer)},
		"end_time_utc":   bson.M{"$gt": start.Add(-buffer)},
	}
	if excludeID != "" {
		objectID, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", eventserrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}

	var event model.Event
	err := r.collection.FindOne(ctx, filter).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check conflicting events: %w", err)
	}

	return &event, nil
}

// Finalize confirms a reserved record with the external id the provider assigned.
func (r *mongoEventRepository) Finalize(ctx context.Context, id string, externalID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", eventserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"external_id": externalID,
			"status":      model.StatusConfirmed,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to finalize event: %w", err)
	}
	if result.MatchedCount == 0 {
		return eventserrors.ErrNotFound
	}
	return nil
}

// Abort deletes a reserved record; the compensating action when external
// sync fails after reservation.
func (r *mongoEventRepository) Abort(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", eventserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to abort reserved event: %w", err)
	}
	if result.DeletedCount == 0 {
		return eventserrors.ErrNotFound
	}
	return nil
}

func (r *mongoEventRepository) UpdateFields(ctx context.Context, id string, fields model.EventFields) error {
	return r.setFields(ctx, id, fields)
}

// RevertFields is UpdateFields' inverse: callers pass the snapshot captured
// before the update so a failed sync restores the exact pre-update values.
func (r *mongoEventRepository) RevertFields(ctx context.Context, id string, fields model.EventFields) error {
	return r.setFields(ctx, id, fields)
}

func (r *mongoEventRepository) setFields(ctx context.Context, id string, fields model.EventFields) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", eventserrors.ErrInvalidID, id)
	}

	set := bson.M{}
	if fields.Title != nil {
		set["title"] = *fields.Title
	}
	if fields.StartUTC != nil {
		set["start_time_utc"] = *fields.StartUTC
	}
	if fields.EndUTC != nil {
		set["end_time_utc"] = *fields.EndUTC
	}
	if len(set) == 0 {
		return nil
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return eventserrors.ErrSlotRaceLost
		}
		return fmt.Errorf("failed to update event fields: %w", err)
	}
	if result.MatchedCount == 0 {
		return eventserrors.ErrNotFound
	}
	return nil
}

func (r *mongoEventRepository) FindByExternalID(ctx context.Context, externalID string) (*model.Event, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var event model.Event
	err := r.collection.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, eventserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find event by external id: %w", err)
	}

	return &event, nil
}

func (r *mongoEventRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"external_id": externalID})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.DeletedCount == 0 {
		return eventserrors.ErrNotFound
	}
	return nil
}

// ListForOwner returns the owner's events ascending by start time. With no
// range it lists upcoming events only.
func (r *mongoEventRepository) ListForOwner(ctx context.Context, ownerID string, start, end *time.Time) ([]*model.Event, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"owner_id": ownerID}
	switch {
	case start != nil && end != nil:
		filter["start_time_utc"] = bson.M{"$gte": *start, "$lte": *end}
	case start != nil:
		filter["start_time_utc"] = bson.M{"$gte": *start}
	case end != nil:
		filter["start_time_utc"] = bson.M{"$lte": *end}
	default:
		filter["start_time_utc"] = bson.M{"$gte": time.Now().UTC()}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time_utc", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*model.Event
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	return events, nil
}

// FindInWindow returns every event starting inside [start, end), regardless
// of owner. The availability solver scans the whole company calendar.
func (r *mongoEventRepository) FindInWindow(ctx context.Context, start, end time.Time) ([]*model.Event, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{
		"start_time_utc": bson.M{"$gte": start, "$lt": end},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find events in window: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*model.Event
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	return events, nil
}
