package database

import (
	"context"

	"github.com/go-errors/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoIndexStore lists, creates and drops the indexes of one collection
type MongoIndexStore struct {
	collection *mongo.Collection
}

func NewMongoIndexStore(collection *mongo.Collection) *MongoIndexStore {
	return &MongoIndexStore{collection: collection}
}

// Namespace returns database.collection
func (m *MongoIndexStore) Namespace() string {
	return m.collection.Database().Name() + "." + m.collection.Name()
}

// ListIndexes returns every index of the collection, the _id_ index included.
// A missing collection or database has no indexes.
func (m *MongoIndexStore) ListIndexes(ctx context.Context) ([]IndexDefinition, error) {
	cursor, err := m.collection.Indexes().List(ctx)
	if err != nil {
		return m.listFailure(err)
	}
	defer cursor.Close(ctx)

	indexes := []IndexDefinition{}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Errorf("failed to decode index: %v", err)
		}

		index, err := IndexDefinitionFromDocument(doc)
		if err != nil {
			return nil, err
		}

		indexes = append(indexes, index)
	}

	if err := cursor.Err(); err != nil {
		return m.listFailure(err)
	}

	return indexes, nil
}

// listFailure turns a NamespaceNotFound error into an empty index list
func (m *MongoIndexStore) listFailure(err error) ([]IndexDefinition, error) {
	if IsNamespaceNotFound(err) {
		return []IndexDefinition{}, nil
	}
	return nil, errors.Errorf("failed to list indexes of %s: %v", m.Namespace(), err)
}

// CreateIndexes creates all indexes in a single createIndexes command.
// It reports false when the server acknowledged fewer indexes than requested.
func (m *MongoIndexStore) CreateIndexes(ctx context.Context, indexes []IndexDefinition) (bool, error) {
	if len(indexes) == 0 {
		return true, nil
	}

	indexModels := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		indexModels = append(indexModels, idx.IndexModel())
	}

	names, err := m.collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return false, errors.Errorf("failed to create indexes on %s: %v", m.Namespace(), err)
	}

	return allAcknowledged(indexes, names), nil
}

// allAcknowledged reports whether the server returned a name for every requested index
func allAcknowledged(requested []IndexDefinition, acknowledged []string) bool {
	if len(acknowledged) != len(requested) {
		return false
	}

	names := make(map[string]struct{}, len(acknowledged))
	for _, name := range acknowledged {
		names[name] = struct{}{}
	}

	for _, idx := range requested {
		if _, ok := names[idx.Name]; !ok {
			return false
		}
	}

	return true
}

// DropIndexes drops the named indexes in a single dropIndexes command
func (m *MongoIndexStore) DropIndexes(ctx context.Context, names []string) (bool, error) {
	if len(names) == 0 {
		return true, nil
	}

	command := bson.D{
		{Key: "dropIndexes", Value: m.collection.Name()},
		{Key: "index", Value: names},
	}

	var result bson.M
	if err := m.collection.Database().RunCommand(ctx, command).Decode(&result); err != nil {
		return false, errors.Errorf("failed to drop indexes on %s: %v", m.Namespace(), err)
	}

	return commandSucceeded(result), nil
}

// commandSucceeded reads the ok field of a command reply, 1 or true meaning success
func commandSucceeded(reply bson.M) bool {
	return isTruthy(reply["ok"])
}
