package database

import (
	"math"
	"time"

	"github.com/go-errors/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultIdIndexName is the name MongoDB gives to the implicit primary key index.
const DefaultIdIndexName = "_id_"

// IndexDefinition represents a MongoDB index. Key keeps the declared field order,
// which is significant for compound indexes.
type IndexDefinition struct {
	Name                    string `json:"name" validate:"required,ne=_id_"`
	Key                     bson.D `json:"key" validate:"min=1"`
	Unique                  bool   `json:"unique,omitempty"`
	Sparse                  bool   `json:"sparse,omitempty"`
	ExpireAfterSeconds      *int32 `json:"expireAfterSeconds,omitempty" validate:"omitempty,min=0"`
	PartialFilterExpression bson.D `json:"partialFilterExpression,omitempty"`
}

// IndexField is a single key of an index
type IndexField struct {
	Name  string
	Order any // 1, -1 or a special type such as "text", "2dsphere" or "hashed"
}

// NewIndex creates an index definition with the given fields, in order.
func NewIndex(name string, fields ...IndexField) IndexDefinition {
	key := make(bson.D, 0, len(fields))
	for _, field := range fields {
		key = append(key, bson.E{Key: field.Name, Value: field.Order})
	}

	return IndexDefinition{
		Name: name,
		Key:  key,
	}
}

// NewSimpleIndex creates an ascending index on a single field, named after the field
func NewSimpleIndex(fieldName string) IndexDefinition {
	return NewIndex(fieldName, IndexField{Name: fieldName, Order: 1})
}

// NewTTLIndex creates a TTL index on a single date field
func NewTTLIndex(fieldName string, expireAfter time.Duration) IndexDefinition {
	return NewSimpleIndex(fieldName).WithTTL(expireAfter)
}

// WithUnique sets the unique option
func (idx IndexDefinition) WithUnique(unique bool) IndexDefinition {
	idx.Unique = unique
	return idx
}

// WithSparse sets the sparse option
func (idx IndexDefinition) WithSparse(sparse bool) IndexDefinition {
	idx.Sparse = sparse
	return idx
}

// WithTTL sets the TTL (Time To Live) for the index.
// The index must include a date field for TTL to work.
func (idx IndexDefinition) WithTTL(expireAfter time.Duration) IndexDefinition {
	seconds := int32(expireAfter.Seconds())
	idx.ExpireAfterSeconds = &seconds
	return idx
}

// WithPartialFilter sets a partial filter expression
func (idx IndexDefinition) WithPartialFilter(filter bson.D) IndexDefinition {
	idx.PartialFilterExpression = filter
	return idx
}

// IndexModel converts the definition to the driver's IndexModel
func (idx IndexDefinition) IndexModel() mongo.IndexModel {
	opts := options.Index()
	opts.SetName(idx.Name)

	if idx.Unique {
		opts.SetUnique(true)
	}

	if idx.Sparse {
		opts.SetSparse(true)
	}

	if idx.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*idx.ExpireAfterSeconds)
	}

	if idx.PartialFilterExpression != nil {
		opts.SetPartialFilterExpression(idx.PartialFilterExpression)
	}

	return mongo.IndexModel{
		Keys:    idx.Key,
		Options: opts,
	}
}

// IndexDefinitionFromDocument builds a definition from a listIndexes document.
// Options the definition does not model (v, collation, default_language...) are ignored.
// Text indexes get back the key they were declared with, rebuilt from their weights.
func IndexDefinitionFromDocument(doc bson.D) (IndexDefinition, error) {
	var idx IndexDefinition
	var weights bson.D

	for _, elem := range doc {
		switch elem.Key {
		case "name":
			name, ok := elem.Value.(string)
			if !ok {
				return idx, errors.Errorf("index name must be a string, got %T", elem.Value)
			}
			idx.Name = name
		case "key":
			key, ok := AsDocument(elem.Value)
			if !ok {
				return idx, errors.Errorf("index key must be a document, got %T", elem.Value)
			}
			idx.Key = key
		case "unique":
			idx.Unique = isTruthy(elem.Value)
		case "sparse":
			idx.Sparse = isTruthy(elem.Value)
		case "expireAfterSeconds":
			seconds, ok := ToInt32(elem.Value)
			if !ok {
				return idx, errors.Errorf("expireAfterSeconds must be an integer, got %v", elem.Value)
			}
			idx.ExpireAfterSeconds = &seconds
		case "partialFilterExpression":
			filter, ok := AsDocument(elem.Value)
			if !ok {
				return idx, errors.Errorf("partialFilterExpression must be a document, got %T", elem.Value)
			}
			idx.PartialFilterExpression = filter
		case "weights":
			weights, _ = AsDocument(elem.Value)
		}
	}

	if idx.Name == "" {
		return idx, errors.New("index document without name")
	}

	if weights != nil {
		idx.Key = textIndexKey(idx.Key, weights)
	}

	return idx, nil
}

// The server stores a text index key as {prefix..., _fts: "text", _ftsx: 1, suffix...}
// and the text fields under weights.
const (
	textKeyField      = "_fts"
	textKeyExtraField = "_ftsx"
	TextIndexOrder    = "text"
)

func textIndexKey(key bson.D, weights bson.D) bson.D {
	hasText := false
	for _, elem := range key {
		if elem.Key == textKeyField {
			hasText = true
		}
	}
	if !hasText {
		return key
	}

	declared := make(bson.D, 0, len(key)+len(weights))
	for _, elem := range key {
		switch elem.Key {
		case textKeyField:
			for _, weight := range weights {
				declared = append(declared, bson.E{Key: weight.Key, Value: TextIndexOrder})
			}
		case textKeyExtraField:
		default:
			declared = append(declared, elem)
		}
	}

	return declared
}

// AsDocument returns value as an ordered document. bson.M values are accepted
// but lose their field order.
func AsDocument(value any) (bson.D, bool) {
	switch v := value.(type) {
	case bson.D:
		return v, true
	case bson.Raw:
		var doc bson.D
		if err := bson.Unmarshal(v, &doc); err != nil {
			return nil, false
		}
		return doc, true
	case bson.M:
		doc := make(bson.D, 0, len(v))
		for key, val := range v {
			doc = append(doc, bson.E{Key: key, Value: val})
		}
		return doc, true
	case map[string]any:
		return AsDocument(bson.M(v))
	}

	return nil, false
}

// ToFloat64 converts any BSON or Go numeric value to float64
func ToFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case bson.Decimal128:
		f, err := decimalToFloat(v)
		return f, err == nil
	}

	return 0, false
}

// ToInt32 converts a numeric value holding an integer into int32
func ToInt32(value any) (int32, bool) {
	f, ok := ToFloat64(value)
	if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}

	return int32(f), true
}

func decimalToFloat(d bson.Decimal128) (float64, error) {
	bigInt, exp, err := d.BigInt()
	if err != nil {
		return 0, err
	}

	f, _ := bigInt.Float64()
	return f * math.Pow10(exp), nil
}

func isTruthy(value any) bool {
	if b, ok := value.(bool); ok {
		return b
	}

	if f, ok := ToFloat64(value); ok {
		return f != 0
	}

	return false
}
