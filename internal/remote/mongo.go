// Package remote adapts local records to the cloud document database that
// serves as the system of record. It is a thin translation layer: push one
// record, pull one collection. Unreachability is reported as a plain error
// and treated as retryable by the caller; nothing here is fatal.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rotacerta/rota-certa/internal/localstore"
)

// Store is the contract the sync driver pushes through and pulls from.
type Store interface {
	// Push propagates one local record (write or delete) and returns the
	// server-assigned id.
	Push(ctx context.Context, entity localstore.Entity, rec localstore.Record) (string, error)
	// Pull fetches every document of the entity's collection as records
	// keyed by their server id.
	Pull(ctx context.Context, entity localstore.Entity) ([]localstore.Record, error)
}

// Connect connects to MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoStore implements Store over a MongoDB database, one collection per
// entity type.
type MongoStore struct {
	DB *mongo.Database
}

// NewMongoStore creates a remote store over the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{DB: db}
}

func (m *MongoStore) collection(entity localstore.Entity) *mongo.Collection {
	return m.DB.Collection(string(entity))
}

// syncBookkeepingFields are stripped from documents before they are written
// remotely; the server does not carry client-side sync state.
var syncBookkeepingFields = []string{"syncStatus", "deleted", "id"}

// Push writes or deletes one record remotely. Deleting a record the server
// never saw is a no-op success. Inserts return the new document id; updates
// and deletes return the record's existing id.
func (m *MongoStore) Push(ctx context.Context, entity localstore.Entity, rec localstore.Record) (string, error) {
	if rec.Deleted && rec.RemoteID == "" {
		// Never synced: the remote side has nothing to delete.
		return "", nil
	}

	coll := m.collection(entity)

	if rec.Deleted {
		objectID, err := primitive.ObjectIDFromHex(rec.RemoteID)
		if err != nil {
			return "", fmt.Errorf("invalid remote id %q: %w", rec.RemoteID, err)
		}
		if _, err := coll.DeleteOne(ctx, bson.M{"_id": objectID}); err != nil {
			return "", fmt.Errorf("failed to delete %s/%s remotely: %w", entity, rec.LocalID, err)
		}
		return rec.RemoteID, nil
	}

	var doc bson.M
	if err := json.Unmarshal(rec.Payload, &doc); err != nil {
		return "", fmt.Errorf("failed to decode %s payload: %w", entity, err)
	}
	for _, field := range syncBookkeepingFields {
		delete(doc, field)
	}
	doc["localId"] = rec.LocalID

	if rec.RemoteID == "" {
		res, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return "", fmt.Errorf("failed to insert %s/%s remotely: %w", entity, rec.LocalID, err)
		}
		objectID, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
		}
		return objectID.Hex(), nil
	}

	objectID, err := primitive.ObjectIDFromHex(rec.RemoteID)
	if err != nil {
		return "", fmt.Errorf("invalid remote id %q: %w", rec.RemoteID, err)
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": objectID}, doc, opts); err != nil {
		return "", fmt.Errorf("failed to update %s/%s remotely: %w", entity, rec.LocalID, err)
	}
	return rec.RemoteID, nil
}

// Pull fetches the entity's full remote collection.
func (m *MongoStore) Pull(ctx context.Context, entity localstore.Entity) ([]localstore.Record, error) {
	cursor, err := m.collection(entity).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s collection: %w", entity, err)
	}
	defer cursor.Close(ctx)

	var out []localstore.Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", entity, err)
		}
		rec, err := recordFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to translate %s document: %w", entity, err)
		}
		out = append(out, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error on %s collection: %w", entity, err)
	}
	return out, nil
}

func recordFromDocument(doc bson.M) (localstore.Record, error) {
	var rec localstore.Record
	objectID, ok := doc["_id"].(primitive.ObjectID)
	if !ok {
		return rec, errors.New("document has no ObjectID _id")
	}
	rec.RemoteID = objectID.Hex()
	delete(doc, "_id")
	if localID, ok := doc["localId"].(string); ok {
		rec.LocalID = localID
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return rec, fmt.Errorf("failed to encode payload: %w", err)
	}
	rec.Payload = payload
	return rec, nil
}
