package orderedjson

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// ToYAMLNode builds a YAML node tree for v. Mapping entries follow the
// object's member order.
func ToYAMLNode(v Value) *yaml.Node {
	switch v.kind {
	case BoolKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.String()}
	case NumberKind:
		tag := "!!int"
		if strings.ContainsAny(v.s, ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.s}
	case StringKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.s}
	case ArrayKind:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range v.arr {
			n.Content = append(n.Content, ToYAMLNode(elem))
		}
		return n
	case ObjectKind:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, member := range v.obj.All() {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				ToYAMLNode(member),
			)
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// ToYAML renders v as a YAML document.
func ToYAML(v Value) ([]byte, error) {
	return yaml.Marshal(ToYAMLNode(v))
}
