package indexer

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"github.com/xompass/mongo-index-creator/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Collections maps a collection name to its declared indexes
type Collections map[string][]database.IndexDefinition

// Names returns the collection names, sorted
func (c Collections) Names() []string {
	return sortedKeys(c)
}

// Schemas are the validated declared schemas of a run. A nil scope declares nothing.
type Schemas struct {
	Core   map[string]Collections
	Client Collections
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func indexValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		// Report field names as they are written in the schemas
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})

	return validate
}

// DecodeSchemas validates and decodes both scopes. Nil raw values stay nil.
func DecodeSchemas(core, client any) (Schemas, error) {
	var schemas Schemas

	if core != nil {
		decoded, err := DecodeCoreSchema(core)
		if err != nil {
			return schemas, err
		}
		schemas.Core = decoded
	}

	if client != nil {
		decoded, err := DecodeCollections(client)
		if err != nil {
			return schemas, err
		}
		schemas.Client = decoded
	}

	return schemas, nil
}

// DecodeCoreSchema decodes a document of database key to collections
func DecodeCoreSchema(raw any) (map[string]Collections, error) {
	doc, ok := raw.(bson.D)
	if !ok {
		return nil, newIndexerError(INVALID_SCHEMAS, nil, "Invalid core schemas: Should exist and must be an object")
	}

	core := make(map[string]Collections, len(doc))
	for _, elem := range doc {
		collections, err := DecodeCollections(elem.Value)
		if err != nil {
			return nil, err
		}
		core[elem.Key] = collections
	}

	return core, nil
}

// DecodeCollections decodes a document of collection name to an array of index definitions
func DecodeCollections(raw any) (Collections, error) {
	doc, ok := raw.(bson.D)
	if !ok {
		return nil, newIndexerError(INVALID_COLLECTIONS, nil, "Invalid collections: Should exist and must be an object, also not an array")
	}

	collections := make(Collections, len(doc))
	for _, elem := range doc {
		indexes, err := decodeIndexes(elem.Key, elem.Value)
		if err != nil {
			return nil, err
		}
		collections[elem.Key] = indexes
	}

	return collections, nil
}

func decodeIndexes(collection string, raw any) ([]database.IndexDefinition, error) {
	items, ok := asArray(raw)
	if !ok {
		return nil, newIndexerError(INVALID_INDEXES, nil, "Invalid indexes for collection %s: indexes must be an array of objects", collection)
	}

	indexes := make([]database.IndexDefinition, 0, len(items))
	names := make(map[string]struct{}, len(items))

	for position, item := range items {
		index, err := decodeIndex(item)
		if err == nil {
			err = validateIndex(index)
		}
		if err != nil {
			return nil, newIndexerError(INVALID_INDEXES, nil, "Invalid indexes for collection %s: index at position %d: %v", collection, position, err)
		}

		if _, duplicated := names[index.Name]; duplicated {
			return nil, newIndexerError(INVALID_INDEXES, nil, "Invalid indexes for collection %s: duplicated index name %q", collection, index.Name)
		}
		names[index.Name] = struct{}{}

		indexes = append(indexes, index)
	}

	return indexes, nil
}

func decodeIndex(raw any) (database.IndexDefinition, error) {
	var index database.IndexDefinition

	doc, ok := raw.(bson.D)
	if !ok {
		return index, errors.New("must be an object")
	}

	for _, elem := range doc {
		switch elem.Key {
		case "name":
			name, ok := elem.Value.(string)
			if !ok {
				return index, errors.Errorf("name must be a string")
			}
			index.Name = name
		case "key":
			key, ok := elem.Value.(bson.D)
			if !ok {
				return index, errors.Errorf("key must be an object")
			}
			index.Key = key
		case "unique":
			unique, ok := elem.Value.(bool)
			if !ok {
				return index, errors.Errorf("unique must be a boolean")
			}
			index.Unique = unique
		case "sparse":
			sparse, ok := elem.Value.(bool)
			if !ok {
				return index, errors.Errorf("sparse must be a boolean")
			}
			index.Sparse = sparse
		case "expireAfterSeconds":
			seconds, ok := database.ToInt32(elem.Value)
			if !ok {
				return index, errors.Errorf("expireAfterSeconds must be an integer")
			}
			index.ExpireAfterSeconds = &seconds
		case "partialFilterExpression":
			filter, ok := elem.Value.(bson.D)
			if !ok {
				return index, errors.Errorf("partialFilterExpression must be an object")
			}
			index.PartialFilterExpression = filter
		default:
			return index, errors.Errorf("unknown field %s", elem.Key)
		}
	}

	return index, nil
}

func validateIndex(index database.IndexDefinition) error {
	err := indexValidator().Struct(index)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, describeFieldError(fieldErr))
	}
	sort.Strings(messages)

	return errors.New(strings.Join(messages, ", "))
}

func describeFieldError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldErr.Field())
	case "ne":
		return fmt.Sprintf("%s cannot be %s", fieldErr.Field(), fieldErr.Param())
	case "min":
		if fieldErr.Kind() == reflect.Slice {
			return fmt.Sprintf("%s cannot be empty", fieldErr.Field())
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", fieldErr.Field(), fieldErr.Param())
	}

	return fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag())
}
