package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupTestMongo(t *testing.T) *MongoStore {
	ctx := context.Background()
	db, err := ConnectMongoDB(ctx, startTestMongo(t), "testdb")
	require.NoError(t, err)

	store, err := OpenMongoStore(ctx, db, 24*time.Hour)
	require.NoError(t, err)
	return store
}

func startTestMongo(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)
	return uri
}

func TestMongoStore_RoundTrip(t *testing.T) {
	store := setupTestMongo(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "storefront:s1:wishlist")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "storefront:s1:wishlist", []byte(`[]`)))
	require.NoError(t, store.Set(ctx, "storefront:s1:wishlist", []byte(`[{"name":"Hades"}]`)))

	v, err := store.Get(ctx, "storefront:s1:wishlist")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Hades"}]`, string(v))

	require.NoError(t, store.Remove(ctx, "storefront:s1:wishlist"))
	_, err = store.Get(ctx, "storefront:s1:wishlist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenMongoStore_DisconnectsWhenIndexesFail(t *testing.T) {
	ctx := context.Background()
	db, err := ConnectMongoDB(ctx, startTestMongo(t), "testdb")
	require.NoError(t, err)

	// same key with a different expiry makes CreateIndexes fail
	_, err = db.Collection("drafts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(60),
	})
	require.NoError(t, err)

	store, err := OpenMongoStore(ctx, db, 24*time.Hour)
	require.Error(t, err)
	assert.Nil(t, store)

	assert.ErrorIs(t, db.Client().Ping(ctx, nil), mongo.ErrClientDisconnected)
}
