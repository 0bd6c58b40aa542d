package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestClaimPublishSlot(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	next := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("matching swap wins", func(mt *mtest.T) {
		repo := &MongoSettingsRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		prev := next.Add(-2 * time.Hour)
		won, err := repo.ClaimPublishSlot(context.Background(), 100, &prev, next)

		require.NoError(mt, err)
		assert.True(mt, won)
	})

	mt.Run("stale swap loses", func(mt *mtest.T) {
		repo := &MongoSettingsRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		prev := next.Add(-2 * time.Hour)
		won, err := repo.ClaimPublishSlot(context.Background(), 100, &prev, next)

		require.NoError(mt, err)
		assert.False(mt, won)
	})

	// Two first-publish claimants race on a settings document that exists but
	// has no last_post_time yet. The loser's update matches nothing; finding
	// the document afterwards means the other claimant set the field, so no
	// second settings document may be inserted.
	mt.Run("first publish race loses when document exists", func(mt *mtest.T) {
		repo := &MongoSettingsRepository{collection: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 0},
				bson.E{Key: "nModified", Value: 0},
			),
			mtest.CreateCursorResponse(0, "memehub.channel_settings", mtest.FirstBatch, bson.D{
				{Key: "channel_id", Value: int64(100)},
				{Key: "interval_minutes", Value: 60},
				{Key: "last_post_time", Value: primitive.NewDateTimeFromTime(next)},
			}),
		)

		won, err := repo.ClaimPublishSlot(context.Background(), 100, nil, next)

		require.NoError(mt, err)
		assert.False(mt, won)
	})

	mt.Run("first publish on a fresh channel inserts and wins", func(mt *mtest.T) {
		repo := &MongoSettingsRepository{collection: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 0},
				bson.E{Key: "nModified", Value: 0},
			),
			mtest.CreateCursorResponse(0, "memehub.channel_settings", mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)

		won, err := repo.ClaimPublishSlot(context.Background(), 100, nil, next)

		require.NoError(mt, err)
		assert.True(mt, won)
	})

	mt.Run("duplicate insert loses", func(mt *mtest.T) {
		repo := &MongoSettingsRepository{collection: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 0},
				bson.E{Key: "nModified", Value: 0},
			),
			mtest.CreateCursorResponse(0, "memehub.channel_settings", mtest.FirstBatch),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "duplicate key",
			}),
		)

		won, err := repo.ClaimPublishSlot(context.Background(), 100, nil, next)

		require.NoError(mt, err)
		assert.False(mt, won)
	})
}
