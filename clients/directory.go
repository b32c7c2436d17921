package clients

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/xompass/mongo-index-creator/database"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	DefaultCollection      = "clients"
	DefaultIdentifierField = "code"
	DefaultDatabasesField  = "databases"
)

// MongoDirectory reads clients from a collection of the core database
type MongoDirectory struct {
	collection      *mongo.Collection
	identifierField string
	databasesField  string
}

// NewMongoDirectory creates a directory over collection. Empty field names fall back to
// the defaults.
func NewMongoDirectory(collection *mongo.Collection, identifierField, databasesField string) *MongoDirectory {
	if identifierField == "" {
		identifierField = DefaultIdentifierField
	}
	if databasesField == "" {
		databasesField = DefaultDatabasesField
	}

	return &MongoDirectory{
		collection:      collection,
		identifierField: identifierField,
		databasesField:  databasesField,
	}
}

// Filter returns the query matching the given codes, or every client when there is none
func (d *MongoDirectory) Filter(codes ...string) bson.D {
	if len(codes) == 0 {
		return bson.D{}
	}

	if len(codes) == 1 {
		return bson.D{{Key: d.identifierField, Value: codes[0]}}
	}

	return bson.D{{Key: d.identifierField, Value: bson.D{{Key: "$in", Value: codes}}}}
}

// Get returns the clients with the given codes, or every client when no code is given
func (d *MongoDirectory) Get(ctx context.Context, codes ...string) ([]Client, error) {
	cursor, err := d.collection.Find(ctx, d.Filter(codes...))
	if err != nil {
		if database.IsConnectionError(err) {
			return nil, errors.Errorf("clients database unreachable: %v", err)
		}
		return nil, errors.Errorf("failed to find clients: %v", err)
	}
	defer cursor.Close(ctx)

	result := []Client{}
	for cursor.Next(ctx) {
		client, err := d.decode(cursor.Current)
		if err != nil {
			return nil, err
		}
		result = append(result, client)
	}

	if err := cursor.Err(); err != nil {
		return nil, errors.Errorf("cursor error: %v", err)
	}

	return result, nil
}

func (d *MongoDirectory) decode(raw bson.Raw) (Client, error) {
	var client Client

	code, ok := raw.Lookup(d.identifierField).StringValueOK()
	if !ok || code == "" {
		return client, errors.Errorf("client without %s", d.identifierField)
	}
	client.Code = code

	databases, err := raw.LookupErr(d.databasesField)
	if err != nil {
		// Still listed, so the run warns about it and reports its collections as failed
		client.Databases = map[string]ClientDatabase{}
		return client, nil
	}

	if err := databases.Unmarshal(&client.Databases); err != nil {
		return client, errors.Errorf("invalid %s for client %s: %v", d.databasesField, code, err)
	}

	return client, nil
}

// StaticDirectory serves a fixed list of clients
type StaticDirectory []Client

func (s StaticDirectory) Get(_ context.Context, codes ...string) ([]Client, error) {
	if len(codes) == 0 {
		return append([]Client{}, s...), nil
	}

	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}

	result := []Client{}
	for _, client := range s {
		if _, ok := wanted[client.Code]; ok {
			result = append(result, client)
		}
	}

	return result, nil
}
