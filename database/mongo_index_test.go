package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestIndexBuilders(t *testing.T) {
	idx := NewIndex("brand_name",
		IndexField{Name: "brand", Order: 1},
		IndexField{Name: "name", Order: -1},
	).WithUnique(true).WithSparse(true)

	assert.Equal(t, "brand_name", idx.Name)
	assert.Equal(t, bson.D{{Key: "brand", Value: 1}, {Key: "name", Value: -1}}, idx.Key)
	assert.True(t, idx.Unique)
	assert.True(t, idx.Sparse)
	assert.Nil(t, idx.ExpireAfterSeconds)

	ttl := NewTTLIndex("createdAt", 2*time.Hour)
	assert.Equal(t, "createdAt", ttl.Name)
	require.NotNil(t, ttl.ExpireAfterSeconds)
	assert.Equal(t, int32(7200), *ttl.ExpireAfterSeconds)
}

func TestIndexModel(t *testing.T) {
	filter := bson.D{{Key: "eans", Value: bson.D{{Key: "$type", Value: "string"}}}}
	idx := NewSimpleIndex("eans").WithUnique(true).WithPartialFilter(filter).WithTTL(time.Minute)

	model := idx.IndexModel()
	assert.Equal(t, idx.Key, model.Keys)
	require.NotNil(t, model.Options)
}

func TestIndexDefinitionFromDocument(t *testing.T) {
	doc := bson.D{
		{Key: "v", Value: int32(2)},
		{Key: "key", Value: bson.D{{Key: "createdAt", Value: int32(1)}, {Key: "type", Value: int32(-1)}}},
		{Key: "name", Value: "created_type"},
		{Key: "unique", Value: true},
		{Key: "sparse", Value: int32(1)},
		{Key: "expireAfterSeconds", Value: int32(0)},
		{Key: "partialFilterExpression", Value: bson.D{{Key: "type", Value: bson.D{{Key: "$exists", Value: true}}}}},
		{Key: "collation", Value: bson.D{{Key: "locale", Value: "es"}}},
	}

	idx, err := IndexDefinitionFromDocument(doc)
	require.NoError(t, err)

	assert.Equal(t, "created_type", idx.Name)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: int32(1)}, {Key: "type", Value: int32(-1)}}, idx.Key)
	assert.True(t, idx.Unique)
	assert.True(t, idx.Sparse)
	require.NotNil(t, idx.ExpireAfterSeconds)
	assert.Equal(t, int32(0), *idx.ExpireAfterSeconds)
	assert.Len(t, idx.PartialFilterExpression, 1)
}

func TestIndexDefinitionFromDocumentErrors(t *testing.T) {
	_, err := IndexDefinitionFromDocument(bson.D{{Key: "key", Value: bson.D{{Key: "a", Value: 1}}}})
	assert.Error(t, err)

	_, err = IndexDefinitionFromDocument(bson.D{{Key: "name", Value: 1}})
	assert.Error(t, err)

	_, err = IndexDefinitionFromDocument(bson.D{{Key: "name", Value: "a"}, {Key: "key", Value: "a"}})
	assert.Error(t, err)

	_, err = IndexDefinitionFromDocument(bson.D{{Key: "name", Value: "a"}, {Key: "expireAfterSeconds", Value: 1.5}})
	assert.Error(t, err)
}

func TestAsDocument(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}})
	require.NoError(t, err)

	doc, ok := AsDocument(bson.Raw(raw))
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}}, doc)

	doc, ok = AsDocument(map[string]any{"a": 1})
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "a", Value: 1}}, doc)

	_, ok = AsDocument("a")
	assert.False(t, ok)
}

func TestNumericConversions(t *testing.T) {
	for _, value := range []any{1, int8(1), int16(1), int32(1), int64(1), uint(1), uint32(1), float32(1), 1.0} {
		f, ok := ToFloat64(value)
		assert.True(t, ok, "%T", value)
		assert.Equal(t, 1.0, f, "%T", value)
	}

	decimal, err := bson.ParseDecimal128("3600")
	require.NoError(t, err)
	seconds, ok := ToInt32(decimal)
	assert.True(t, ok)
	assert.Equal(t, int32(3600), seconds)

	_, ok = ToInt32(1.5)
	assert.False(t, ok)

	_, ok = ToInt32(int64(1) << 40)
	assert.False(t, ok)

	_, ok = ToFloat64("1")
	assert.False(t, ok)
}

func TestIndexDefinitionFromTextIndexDocument(t *testing.T) {
	doc := bson.D{
		{Key: "v", Value: int32(2)},
		{Key: "key", Value: bson.D{
			{Key: "brand", Value: int32(1)},
			{Key: "_fts", Value: "text"},
			{Key: "_ftsx", Value: int32(1)},
			{Key: "createdAt", Value: int32(-1)},
		}},
		{Key: "name", Value: "brand_search"},
		{Key: "weights", Value: bson.D{{Key: "description", Value: int32(1)}, {Key: "title", Value: int32(1)}}},
		{Key: "default_language", Value: "english"},
		{Key: "language_override", Value: "language"},
		{Key: "textIndexVersion", Value: int32(3)},
	}

	idx, err := IndexDefinitionFromDocument(doc)
	require.NoError(t, err)

	assert.Equal(t, bson.D{
		{Key: "brand", Value: int32(1)},
		{Key: "description", Value: "text"},
		{Key: "title", Value: "text"},
		{Key: "createdAt", Value: int32(-1)},
	}, idx.Key)
}

func TestIndexDefinitionWeightsWithoutTextKey(t *testing.T) {
	idx, err := IndexDefinitionFromDocument(bson.D{
		{Key: "name", Value: "a"},
		{Key: "key", Value: bson.D{{Key: "a", Value: int32(1)}}},
		{Key: "weights", Value: bson.D{{Key: "b", Value: int32(1)}}},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "a", Value: int32(1)}}, idx.Key)
}
