package indexer

import (
	"sort"

	"github.com/xompass/mongo-index-creator/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Equal reports whether two index definitions describe the same index shape.
// The name is not compared. Key order is significant, partial filter field order is not.
// Expiration and partial filter are compared only when present on either side.
func Equal(a, b database.IndexDefinition) bool {
	if !keysEqual(a.Key, b.Key) {
		return false
	}

	if a.Unique != b.Unique || a.Sparse != b.Sparse {
		return false
	}

	if a.ExpireAfterSeconds != nil || b.ExpireAfterSeconds != nil {
		if a.ExpireAfterSeconds == nil || b.ExpireAfterSeconds == nil {
			return false
		}
		if *a.ExpireAfterSeconds != *b.ExpireAfterSeconds {
			return false
		}
	}

	if a.PartialFilterExpression != nil || b.PartialFilterExpression != nil {
		return documentsEqual(a.PartialFilterExpression, b.PartialFilterExpression)
	}

	return true
}

func keysEqual(a, b bson.D) bool {
	if len(a) != len(b) {
		return false
	}

	a, b = withSortedTextFields(a), withSortedTextFields(b)

	for i := range a {
		if a[i].Key != b[i].Key || !valuesEqual(a[i].Value, b[i].Value) {
			return false
		}
	}

	return true
}

// withSortedTextFields sorts each run of consecutive text fields by name.
// A text index covers its text fields as a set, and the server lists them sorted.
func withSortedTextFields(key bson.D) bson.D {
	sorted := append(bson.D{}, key...)

	for start := 0; start < len(sorted); {
		if sorted[start].Value != database.TextIndexOrder {
			start++
			continue
		}

		end := start
		for end < len(sorted) && sorted[end].Value == database.TextIndexOrder {
			end++
		}

		run := sorted[start:end]
		sort.Slice(run, func(i, j int) bool { return run[i].Key < run[j].Key })
		start = end
	}

	return sorted
}

// documentsEqual compares two documents ignoring field order, at any depth.
func documentsEqual(a, b bson.D) bool {
	if len(a) != len(b) {
		return false
	}

	fields := make(map[string]any, len(a))
	for _, elem := range a {
		fields[elem.Key] = elem.Value
	}

	for _, elem := range b {
		value, ok := fields[elem.Key]
		if !ok || !valuesEqual(value, elem.Value) {
			return false
		}
	}

	return true
}

func valuesEqual(a, b any) bool {
	if fa, ok := database.ToFloat64(a); ok {
		fb, ok := database.ToFloat64(b)
		return ok && fa == fb
	}

	if docA, ok := database.AsDocument(a); ok {
		docB, ok := database.AsDocument(b)
		return ok && documentsEqual(docA, docB)
	}

	if arrA, ok := asArray(a); ok {
		arrB, ok := asArray(b)
		if !ok || len(arrA) != len(arrB) {
			return false
		}
		for i := range arrA {
			if !valuesEqual(arrA[i], arrB[i]) {
				return false
			}
		}
		return true
	}

	switch va := a.(type) {
	case string, bool, nil:
		return a == b
	case bson.Regex:
		vb, ok := b.(bson.Regex)
		return ok && va.Pattern == vb.Pattern && va.Options == vb.Options
	case bson.DateTime:
		vb, ok := b.(bson.DateTime)
		return ok && va == vb
	case bson.ObjectID:
		vb, ok := b.(bson.ObjectID)
		return ok && va == vb
	}

	return rawEqual(a, b)
}

func asArray(value any) ([]any, bool) {
	switch v := value.(type) {
	case bson.A:
		return v, true
	case []any:
		return v, true
	case []string:
		arr := make([]any, len(v))
		for i := range v {
			arr[i] = v[i]
		}
		return arr, true
	}

	return nil, false
}

// rawEqual compares values of types without a dedicated rule through their BSON encoding.
func rawEqual(a, b any) bool {
	typeA, dataA, errA := bson.MarshalValue(a)
	typeB, dataB, errB := bson.MarshalValue(b)
	if errA != nil || errB != nil {
		return false
	}

	return typeA == typeB && string(dataA) == string(dataB)
}
