package localyaml

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jobforge/jobforge/pkg/errors"
)

// Dump serializes v back to YAML with mapping keys in insertion order, so
// a dump-then-reload cycle observes the same key order. Unresolved lazy
// references serialize as their original tagged form.
func Dump(v any) ([]byte, error) {
	node, err := toNode(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *Mapping:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range t.Keys() {
			keyNode, err := toNode(key)
			if err != nil {
				return nil, err
			}
			value, _ := t.Get(key)
			valueNode, err := toNode(value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, keyNode, valueNode)
		}
		return node, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			itemNode, err := toNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, itemNode)
		}
		return node, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}, nil
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(t)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(t, 10)}, nil
	case uint64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(t, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(t, 'g', -1, 64)}, nil
	case *LazyRef:
		return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.TaggedStyle, Tag: t.kind.Tag(), Value: t.path}, nil
	case *LazyCollection:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, ref := range t.refs {
			node.Content = append(node.Content, &yaml.Node{
				Kind: yaml.ScalarNode, Style: yaml.TaggedStyle, Tag: ref.kind.Tag(), Value: ref.path,
			})
		}
		return node, nil
	default:
		return nil, errors.NewParse(fmt.Sprintf("cannot dump value of type %T", v), nil)
	}
}
