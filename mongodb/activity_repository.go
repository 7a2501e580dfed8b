package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.pilab.hu/sessiond/domain"
)

// ActivityRepositoryMongo implements the domain.ActivityRepository interface using MongoDB.
type ActivityRepositoryMongo struct {
	collection *mongo.Collection
}

// NewActivityRepositoryMongo creates a new ActivityRepositoryMongo.
// It also ensures that necessary indexes are created on the collection.
func NewActivityRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.ActivityRepository, error) {
	repo := &ActivityRepositoryMongo{
		collection: db.Collection(ActivityRecordsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			// The sweep filters on both fields; keep them in one compound index.
			Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "last_activity", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "token_expires_at", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	opts := options.CreateIndexes()
	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels, opts); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for activity_records collection (might already exist or other error)")
	} else {
		log.Info().Msg("Indexes for activity_records collection ensured.")
	}

	return repo, nil
}

// GetByUserID retrieves the activity record for a user.
func (r *ActivityRepositoryMongo) GetByUserID(ctx context.Context, userID string) (*domain.ActivityRecord, error) {
	var record domain.ActivityRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrActivityNotFound
		}
		log.Error().Err(err).Str("userID", userID).Msg("Error getting activity record from MongoDB")
		return nil, err
	}
	return &record, nil
}

// Touch records an authenticated request at the given time and returns the
// post-update record. The whole update is a single upsert with an aggregation
// pipeline, so the derived is_active/token_expires_at pair is always
// recomputed from the document's own state on the server. Concurrent touches
// for the same user converge on the latest last_activity with no
// read-modify-write window.
func (r *ActivityRepositoryMongo) Touch(ctx context.Context, userID string, now time.Time) (*domain.ActivityRecord, error) {
	now = now.UTC().Truncate(time.Millisecond) // BSON dates carry millisecond precision

	threshMillis := domain.InactivityThreshold.Milliseconds()
	elapsed := bson.M{"$subtract": bson.A{now, bson.M{"$ifNull": bson.A{"$last_activity", now}}}}
	// A request that passed token verification re-activates a dormant record
	// outright; a record that is still active stays so only while the gap is
	// inside the threshold.
	active := bson.M{"$or": bson.A{
		bson.M{"$eq": bson.A{"$is_active", false}},
		bson.M{"$lt": bson.A{elapsed, threshMillis}},
	}}

	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"last_activity":    now,
			"is_active":        active,
			"token_expires_at": bson.M{"$cond": bson.A{active, nil, now.Add(domain.InactivityThreshold)}},
		}}},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record domain.ActivityRecord
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&record)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Error upserting activity record in MongoDB")
		return nil, err
	}
	return &record, nil
}

// MarkInactiveBefore flips every still-active record whose last activity is
// older than cutoff. One conditional UpdateMany; the expiry stamp is derived
// from each record's own last_activity on the server, so records touched
// concurrently by the tracker are simply no longer matched by the filter.
func (r *ActivityRepositoryMongo) MarkInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"is_active":     true,
		"last_activity": bson.M{"$lt": cutoff.UTC()},
	}
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"is_active":        false,
			"token_expires_at": bson.M{"$add": bson.A{"$last_activity", domain.InactivityThreshold.Milliseconds()}},
		}}},
	}

	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Msg("Error sweeping inactive activity records in MongoDB")
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ReconcileExpiry repairs the is_active/token_expires_at invariant in both
// directions. Under normal operation both updates match nothing; they exist to
// heal records written by older code or interrupted sweeps.
func (r *ActivityRepositoryMongo) ReconcileExpiry(ctx context.Context) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult

	// Inactive records missing their expiry stamp.
	setRes, err := r.collection.UpdateMany(ctx,
		bson.M{"is_active": false, "token_expires_at": nil},
		mongo.Pipeline{
			bson.D{{Key: "$set", Value: bson.M{
				"token_expires_at": bson.M{"$add": bson.A{"$last_activity", domain.InactivityThreshold.Milliseconds()}},
			}}},
		})
	if err != nil {
		log.Error().Err(err).Msg("Error stamping expiry on inactive activity records")
		return result, err
	}
	result.ExpirySet = setRes.ModifiedCount

	// Active records still carrying a stale expiry stamp.
	clearRes, err := r.collection.UpdateMany(ctx,
		bson.M{"is_active": true, "token_expires_at": bson.M{"$ne": nil}},
		bson.M{"$set": bson.M{"token_expires_at": nil}})
	if err != nil {
		log.Error().Err(err).Msg("Error clearing expiry on active activity records")
		return result, err
	}
	result.ExpiryCleared = clearRes.ModifiedCount

	return result, nil
}

// CountActive returns the number of records currently marked active.
func (r *ActivityRepositoryMongo) CountActive(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"is_active": true})
}

// Ensure interface compliance
var _ domain.ActivityRepository = (*ActivityRepositoryMongo)(nil)
