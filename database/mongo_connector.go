package database

import (
	"context"

	"github.com/go-errors/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoConnectorOpts struct {
	options.ClientOptions
	Name     string
	Database string
}

type MongoConnector struct {
	client  *mongo.Client
	options *MongoConnectorOpts
}

/**
 * NewMongoConnector creates a new MongoDB connector.
 * The driver connects lazily, so no I/O happens until the first operation.
 */
func NewMongoConnector(opts *MongoConnectorOpts) (*MongoConnector, error) {
	if opts == nil {
		return nil, errors.New("mongo connector options cannot be nil")
	}

	if opts.Database == "" {
		return nil, errors.Errorf("database name is required for connector %s", opts.Name)
	}

	connector := &MongoConnector{
		options: opts,
	}

	if err := connector.connect(); err != nil {
		return nil, err
	}

	return connector, nil
}

// NewMongoConnectorFromConfig builds a connector for a database config
func NewMongoConnectorFromConfig(name string, cfg Config) (*MongoConnector, error) {
	if cfg.IsZero() {
		return nil, errors.Errorf("missing uri for database %s", name)
	}

	clientOptions := options.Client().ApplyURI(cfg.URI)
	if err := clientOptions.Validate(); err != nil {
		return nil, errors.Errorf("invalid uri for database %s: %v", name, err)
	}

	return NewMongoConnector(&MongoConnectorOpts{
		ClientOptions: *clientOptions,
		Name:          name,
		Database:      cfg.DatabaseName(),
	})
}

/**
 * connect initializes the MongoDB client with the provided options.
 */
func (receiver *MongoConnector) connect() error {
	opts := receiver.options.ClientOptions

	client, err := mongo.Connect(&opts)
	if err != nil {
		return errors.Errorf("failed to connect %s: %v", receiver.options.Name, err)
	}

	receiver.client = client
	return nil
}

/**
 * Ping checks the connection to the MongoDB server.
 */
func (receiver *MongoConnector) Ping(ctx context.Context) error {
	if receiver.client == nil {
		return errors.New("mongo client not initialized")
	}
	return receiver.client.Ping(ctx, nil)
}

/**
 * Disconnect closes the connection to the MongoDB server.
 */
func (receiver *MongoConnector) Disconnect(ctx context.Context) error {
	if receiver.client == nil {
		return errors.New("mongo client not initialized")
	}
	return receiver.client.Disconnect(ctx)
}

func (receiver *MongoConnector) GetName() string {
	return receiver.options.Name
}

func (receiver *MongoConnector) GetDatabaseName() string {
	return receiver.options.Database
}

// Collection returns a handle to a collection of the connector's database
func (receiver *MongoConnector) Collection(name string) *mongo.Collection {
	return receiver.client.Database(receiver.options.Database).Collection(name)
}

// IndexStore returns the index store of a collection
func (receiver *MongoConnector) IndexStore(collection string) *MongoIndexStore {
	return NewMongoIndexStore(receiver.Collection(collection))
}
