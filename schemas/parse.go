package schemas

import (
	"github.com/go-errors/errors"
	"github.com/valyala/fastjson"
	"go.mongodb.org/mongo-driver/v2/bson"
	"gopkg.in/yaml.v3"
)

// Schemas are parsed into ordered trees: objects become bson.D, arrays bson.A,
// integers int64 and other numbers float64. Index keys rely on that order.

// ParseJSON parses a JSON schema keeping the order of object fields
func ParseJSON(data []byte) (any, error) {
	var parser fastjson.Parser

	value, err := parser.ParseBytes(data)
	if err != nil {
		return nil, err
	}

	return fromJSON(value)
}

func fromJSON(value *fastjson.Value) (any, error) {
	switch value.Type() {
	case fastjson.TypeObject:
		object, _ := value.Object()

		doc := make(bson.D, 0, object.Len())
		var visitErr error
		object.Visit(func(key []byte, v *fastjson.Value) {
			if visitErr != nil {
				return
			}
			converted, err := fromJSON(v)
			if err != nil {
				visitErr = err
				return
			}
			doc = append(doc, bson.E{Key: string(key), Value: converted})
		})
		if visitErr != nil {
			return nil, visitErr
		}
		return doc, nil

	case fastjson.TypeArray:
		items, _ := value.Array()

		array := make(bson.A, 0, len(items))
		for _, item := range items {
			converted, err := fromJSON(item)
			if err != nil {
				return nil, err
			}
			array = append(array, converted)
		}
		return array, nil

	case fastjson.TypeString:
		return string(value.GetStringBytes()), nil

	case fastjson.TypeNumber:
		if i, err := value.Int64(); err == nil {
			return i, nil
		}
		return value.Float64()

	case fastjson.TypeTrue:
		return true, nil

	case fastjson.TypeFalse:
		return false, nil

	case fastjson.TypeNull:
		return nil, nil
	}

	return nil, errors.Errorf("unsupported JSON value %s", value.Type())
}

// ParseYAML parses a YAML schema keeping the order of mapping keys
func ParseYAML(data []byte) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	if node.Kind == 0 {
		return nil, nil
	}

	return fromYAML(&node)
}

func fromYAML(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return fromYAML(node.Content[0])

	case yaml.AliasNode:
		return fromYAML(node.Alias)

	case yaml.MappingNode:
		doc := make(bson.D, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, errors.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}

			converted, err := fromYAML(valueNode)
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: keyNode.Value, Value: converted})
		}
		return doc, nil

	case yaml.SequenceNode:
		array := make(bson.A, 0, len(node.Content))
		for _, item := range node.Content {
			converted, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			array = append(array, converted)
		}
		return array, nil

	case yaml.ScalarNode:
		return scalarFromYAML(node)
	}

	return nil, errors.Errorf("line %d: unsupported YAML node", node.Line)
}

func scalarFromYAML(node *yaml.Node) (any, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := node.Decode(&b)
		return b, err
	case "!!int":
		var i int64
		err := node.Decode(&i)
		return i, err
	case "!!float":
		var f float64
		err := node.Decode(&f)
		return f, err
	}

	return node.Value, nil
}
