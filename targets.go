package indexer

import (
	"sort"
	"strings"

	"github.com/go-errors/errors"
	"github.com/xompass/mongo-index-creator/clients"
	"github.com/xompass/mongo-index-creator/database"
	"go.uber.org/zap"
)

// Role is the connection a target is reconciled through
type Role string

const (
	RoleWrite Role = "write"
	RoleRead  Role = "read"
)

// CollectionID identifies a collection on one connection
type CollectionID struct {
	DatabaseKey string `json:"databaseKey"`
	ClientCode  string `json:"clientCode,omitempty"`
	Role        Role   `json:"role"`
	Collection  string `json:"collection"`
}

// String returns [clientCode.]databaseKey.role.collection
func (id CollectionID) String() string {
	parts := make([]string, 0, 4)
	if id.ClientCode != "" {
		parts = append(parts, id.ClientCode)
	}
	parts = append(parts, id.DatabaseKey, string(id.Role), id.Collection)
	return strings.Join(parts, ".")
}

// Target is one collection on one connection, with the indexes it must have.
// Err is set instead of Store when the connection of a client cannot be used.
type Target struct {
	ID      CollectionID
	Indexes []database.IndexDefinition
	Store   IndexStore
	Err     error
}

// Enumerator expands declared schemas into reconciliation targets
type Enumerator struct {
	// CoreDatabases maps the database keys of the core schema to their connection
	CoreDatabases map[string]database.Config
	// ClientDatabaseKey selects the client database the client schema applies to
	ClientDatabaseKey string
	Connections       ConnectionResolver
	Logger            *zap.Logger
}

// Enumerate returns one target per core collection, and per client collection and distinct
// client connection. A core database without connection fails the whole enumeration,
// a client without usable connection only fails its own targets.
func (e *Enumerator) Enumerate(schemas Schemas, clientList []clients.Client) ([]Target, error) {
	targets := []Target{}

	coreTargets, err := e.coreTargets(schemas.Core)
	if err != nil {
		return nil, err
	}
	targets = append(targets, coreTargets...)

	if schemas.Client != nil {
		targets = append(targets, e.clientTargets(schemas.Client, clientList)...)
	}

	return targets, nil
}

func (e *Enumerator) coreTargets(core map[string]Collections) ([]Target, error) {
	targets := []Target{}

	for _, databaseKey := range sortedKeys(core) {
		cfg, ok := e.coreDatabase(databaseKey)
		if !ok {
			return nil, newIndexerError(INVALID_DATABASE, nil, "Invalid core schemas: database %q has no connection configured", databaseKey)
		}

		collections := core[databaseKey]
		for _, collection := range collections.Names() {
			id := CollectionID{DatabaseKey: databaseKey, Role: RoleWrite, Collection: collection}
			target, err := e.target(id, cfg, collections[collection])
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
	}

	return targets, nil
}

// coreDatabase looks a key up as declared, then lowercased as config loaders store it
func (e *Enumerator) coreDatabase(databaseKey string) (database.Config, bool) {
	cfg, ok := e.CoreDatabases[databaseKey]
	if !ok {
		cfg, ok = e.CoreDatabases[strings.ToLower(databaseKey)]
	}
	return cfg, ok && !cfg.IsZero()
}

func (e *Enumerator) clientTargets(collections Collections, clientList []clients.Client) []Target {
	targets := []Target{}

	for _, client := range clientList {
		clientDB, ok := client.Database(e.ClientDatabaseKey)
		if !ok || clientDB.Write.IsZero() {
			err := errors.Errorf("client %s: database %q has no write connection", client.Code, e.ClientDatabaseKey)
			e.logger().Warn("Client skipped: No write connection configured.",
				zap.String("clientCode", client.Code), zap.String("databaseKey", e.ClientDatabaseKey))

			for _, collection := range collections.Names() {
				id := CollectionID{DatabaseKey: e.ClientDatabaseKey, ClientCode: client.Code, Role: RoleWrite, Collection: collection}
				targets = append(targets, Target{ID: id, Indexes: collections[collection], Err: err})
			}
			continue
		}

		for _, collection := range collections.Names() {
			id := CollectionID{DatabaseKey: e.ClientDatabaseKey, ClientCode: client.Code, Role: RoleWrite, Collection: collection}
			targets = append(targets, e.clientTarget(id, clientDB.Write, collections[collection]))

			if !clientDB.HasDistinctRead() {
				continue
			}

			id.Role = RoleRead
			targets = append(targets, e.clientTarget(id, *clientDB.Read, collections[collection]))
		}
	}

	return targets
}

// clientTarget keeps a connection error on the target instead of failing the run
func (e *Enumerator) clientTarget(id CollectionID, cfg database.Config, indexes []database.IndexDefinition) Target {
	target, err := e.target(id, cfg, indexes)
	if err != nil {
		e.logger().Warn("Client connection unusable", zap.Stringer("target", id), zap.Error(err))
		return Target{ID: id, Indexes: indexes, Err: err}
	}
	return target
}

func (e *Enumerator) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Enumerator) target(id CollectionID, cfg database.Config, indexes []database.IndexDefinition) (Target, error) {
	connectionName := id.DatabaseKey
	if id.ClientCode != "" {
		connectionName = id.ClientCode + "." + id.DatabaseKey
	}
	connectionName += "." + string(id.Role)

	store, err := e.Connections.IndexStore(connectionName, cfg, id.Collection)
	if err != nil {
		return Target{}, newIndexerError(INVALID_DATABASE, err, "Invalid connection for %s", id)
	}

	return Target{ID: id, Indexes: indexes, Store: store}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
