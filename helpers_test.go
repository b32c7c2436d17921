package indexer

import (
	"context"
	"sync"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/mock"
	"github.com/xompass/mongo-index-creator/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var idIndex = database.NewIndex(database.DefaultIdIndexName, database.IndexField{Name: "_id", Order: int32(1)})

func index(name string, fields ...string) database.IndexDefinition {
	key := make([]database.IndexField, 0, len(fields))
	for _, field := range fields {
		key = append(key, database.IndexField{Name: field, Order: 1})
	}
	return database.NewIndex(name, key...)
}

// MockIndexStore records the calls made by the reconciler
type MockIndexStore struct {
	mock.Mock
}

func (m *MockIndexStore) ListIndexes(ctx context.Context) ([]database.IndexDefinition, error) {
	args := m.Called(ctx)
	indexes, _ := args.Get(0).([]database.IndexDefinition)
	return indexes, args.Error(1)
}

func (m *MockIndexStore) CreateIndexes(ctx context.Context, indexes []database.IndexDefinition) (bool, error) {
	args := m.Called(ctx, indexes)
	return args.Bool(0), args.Error(1)
}

func (m *MockIndexStore) DropIndexes(ctx context.Context, names []string) (bool, error) {
	args := m.Called(ctx, names)
	return args.Bool(0), args.Error(1)
}

// memoryStore behaves like a collection: creating an existing name fails, dropping a
// missing name fails.
type memoryStore struct {
	mu        sync.Mutex
	indexes   []database.IndexDefinition
	listErr   error
	createErr error
	dropErr   error
	refuse    bool
}

func newMemoryStore(indexes ...database.IndexDefinition) *memoryStore {
	return &memoryStore{indexes: append([]database.IndexDefinition{idIndex}, indexes...)}
}

func (s *memoryStore) ListIndexes(context.Context) ([]database.IndexDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]database.IndexDefinition{}, s.indexes...), nil
}

func (s *memoryStore) CreateIndexes(_ context.Context, indexes []database.IndexDefinition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return false, s.createErr
	}
	if s.refuse {
		return false, nil
	}

	for _, idx := range indexes {
		for _, existing := range s.indexes {
			if existing.Name == idx.Name {
				return false, errors.Errorf("index %s already exists", idx.Name)
			}
		}
	}

	s.indexes = append(s.indexes, indexes...)
	return true, nil
}

func (s *memoryStore) DropIndexes(_ context.Context, names []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropErr != nil {
		return false, s.dropErr
	}
	if s.refuse {
		return false, nil
	}

	remaining := make([]database.IndexDefinition, 0, len(s.indexes))
	dropped := 0
	for _, existing := range s.indexes {
		drop := false
		for _, name := range names {
			if existing.Name == name {
				drop = true
			}
		}
		if drop {
			dropped++
			continue
		}
		remaining = append(remaining, existing)
	}

	if dropped != len(names) {
		return false, errors.New("index not found")
	}

	s.indexes = remaining
	return true, nil
}

func (s *memoryStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexNames(s.indexes)
}

// memoryConnections hands out one memoryStore per database URI and collection
type memoryConnections struct {
	mu     sync.Mutex
	stores map[string]*memoryStore
	err    error
}

func newMemoryConnections() *memoryConnections {
	return &memoryConnections{stores: make(map[string]*memoryStore)}
}

func (c *memoryConnections) store(uri, collection string) *memoryStore {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := uri + "/" + collection
	store, ok := c.stores[key]
	if !ok {
		store = newMemoryStore()
		c.stores[key] = store
	}
	return store
}

func (c *memoryConnections) IndexStore(_ string, cfg database.Config, collection string) (IndexStore, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.store(cfg.URI, collection), nil
}

func (c *memoryConnections) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stores)
}

// doc builds an ordered document from key/value pairs
func doc(pairs ...any) bson.D {
	d := make(bson.D, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		d = append(d, bson.E{Key: pairs[i].(string), Value: pairs[i+1]})
	}
	return d
}
