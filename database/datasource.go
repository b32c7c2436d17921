package database

import (
	"context"
	"sync"

	"github.com/go-errors/errors"
)

// Datasource keeps one connector per physical database, so every target of a run that
// points to the same database shares its client. Safe for concurrent use.
type Datasource struct {
	mu         sync.Mutex
	connectors map[string]*MongoConnector
}

func NewDatasource() *Datasource {
	return &Datasource{
		connectors: make(map[string]*MongoConnector),
	}
}

// GetConnector returns the connector for cfg, creating it on first use.
func (receiver *Datasource) GetConnector(name string, cfg Config) (*MongoConnector, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	receiver.mu.Lock()
	defer receiver.mu.Unlock()

	if receiver.connectors == nil {
		receiver.connectors = make(map[string]*MongoConnector)
	}

	key := cfg.cacheKey()
	if connector, ok := receiver.connectors[key]; ok {
		return connector, nil
	}

	connector, err := NewMongoConnectorFromConfig(name, cfg)
	if err != nil {
		return nil, err
	}

	receiver.connectors[key] = connector
	return connector, nil
}

// IndexStore returns the index store of a collection living in the database described by cfg
func (receiver *Datasource) IndexStore(name string, cfg Config, collection string) (*MongoIndexStore, error) {
	connector, err := receiver.GetConnector(name, cfg)
	if err != nil {
		return nil, err
	}

	return connector.IndexStore(collection), nil
}

// Destroy disconnects every connector
func (receiver *Datasource) Destroy(ctx context.Context) {
	if receiver == nil {
		return
	}

	receiver.mu.Lock()
	defer receiver.mu.Unlock()

	for key, connector := range receiver.connectors {
		if connector != nil {
			_ = connector.Disconnect(ctx)
		}
		delete(receiver.connectors, key)
	}
}
