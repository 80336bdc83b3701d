package remote

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rotacerta/rota-certa/internal/localstore"
)

func TestRecordFromDocument(t *testing.T) {
	objectID := primitive.NewObjectID()
	doc := bson.M{
		"_id":     objectID,
		"localId": "v-1",
		"model":   "Fiorino",
	}

	rec, err := recordFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, objectID.Hex(), rec.RemoteID)
	assert.Equal(t, "v-1", rec.LocalID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Payload, &payload))
	assert.Equal(t, "Fiorino", payload["model"])
	assert.NotContains(t, payload, "_id")
}

func TestRecordFromDocument_MissingObjectID(t *testing.T) {
	_, err := recordFromDocument(bson.M{"localId": "v-1"})
	assert.Error(t, err)
}

func TestPush_NeverSyncedDeleteIsNoop(t *testing.T) {
	// A tombstone the server never saw needs no round trip at all.
	store := &MongoStore{}
	serverID, err := store.Push(context.Background(), localstore.EntityVisits, localstore.Record{
		LocalID: "vis-1",
		Deleted: true,
	})
	require.NoError(t, err)
	assert.Empty(t, serverID)
}

// TestMongoStore_Integration exercises the real document database when one
// is reachable. Run with MONGO_TEST_URI set, e.g. against a local container.
func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("rotacerta_test")
	defer db.Drop(context.Background())
	store := NewMongoStore(db)

	payload, err := json.Marshal(map[string]interface{}{
		"localId":      "veh-1",
		"licensePlate": "ABC1D23",
		"model":        "Saveiro",
		"syncStatus":   "pending",
	})
	require.NoError(t, err)
	rec := localstore.Record{LocalID: "veh-1", Payload: payload}

	serverID, err := store.Push(ctx, localstore.EntityVehicles, rec)
	require.NoError(t, err)
	require.NotEmpty(t, serverID)

	pulled, err := store.Pull(ctx, localstore.EntityVehicles)
	require.NoError(t, err)
	require.Len(t, pulled, 1)
	assert.Equal(t, serverID, pulled[0].RemoteID)
	assert.Equal(t, "veh-1", pulled[0].LocalID)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(pulled[0].Payload, &doc))
	assert.Equal(t, "ABC1D23", doc["licensePlate"])
	assert.NotContains(t, doc, "syncStatus", "client sync state must not reach the server")

	// update through the same id
	payload, err = json.Marshal(map[string]interface{}{
		"localId":      "veh-1",
		"licensePlate": "ABC1D23",
		"model":        "Strada",
	})
	require.NoError(t, err)
	rec.RemoteID = serverID
	rec.Payload = payload
	updatedID, err := store.Push(ctx, localstore.EntityVehicles, rec)
	require.NoError(t, err)
	assert.Equal(t, serverID, updatedID)

	// delete removes the document
	rec.Deleted = true
	_, err = store.Push(ctx, localstore.EntityVehicles, rec)
	require.NoError(t, err)

	pulled, err = store.Pull(ctx, localstore.EntityVehicles)
	require.NoError(t, err)
	assert.Empty(t, pulled)
}
