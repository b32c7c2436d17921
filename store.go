package indexer

import (
	"context"

	"github.com/xompass/mongo-index-creator/clients"
	"github.com/xompass/mongo-index-creator/database"
	"go.uber.org/zap"
)

// IndexStore is the index API of one collection on one connection
type IndexStore interface {
	// ListIndexes returns the indexes present on the collection, _id_ included
	ListIndexes(ctx context.Context) ([]database.IndexDefinition, error)

	// CreateIndexes creates all the given indexes. False means the backend refused them.
	CreateIndexes(ctx context.Context, indexes []database.IndexDefinition) (bool, error)

	// DropIndexes drops the named indexes. False means the backend refused them.
	DropIndexes(ctx context.Context, names []string) (bool, error)
}

// ConnectionResolver gives access to the collections of a database
type ConnectionResolver interface {
	IndexStore(name string, cfg database.Config, collection string) (IndexStore, error)
}

// ClientDirectory lists the clients whose databases receive the client schema
type ClientDirectory interface {
	// Get returns the clients with the given codes, or every client when no code is given
	Get(ctx context.Context, codes ...string) ([]clients.Client, error)
}

// SchemaSource provides the declared schemas as ordered documents (bson.D trees).
// A nil value with a nil error means the scope has no schema.
type SchemaSource interface {
	Core() (any, error)
	Client() (any, error)
}

// ReportSink receives the summary of a run
type ReportSink interface {
	Publish(summary string)
}

// ReportSinkFunc adapts a function to a ReportSink
type ReportSinkFunc func(summary string)

func (f ReportSinkFunc) Publish(summary string) {
	f(summary)
}

// LoggerSink publishes summaries as info log lines
func LoggerSink(logger *zap.Logger) ReportSink {
	return ReportSinkFunc(func(summary string) {
		logger.Info(summary)
	})
}

type datasourceResolver struct {
	datasource *database.Datasource
}

// NewDatasourceResolver resolves index stores through a datasource's connectors
func NewDatasourceResolver(ds *database.Datasource) ConnectionResolver {
	return datasourceResolver{datasource: ds}
}

func (r datasourceResolver) IndexStore(name string, cfg database.Config, collection string) (IndexStore, error) {
	store, err := r.datasource.IndexStore(name, cfg, collection)
	if err != nil {
		return nil, err
	}
	return store, nil
}
