// Package valueyaml renders semantic values as YAML documents. Nodes become
// mappings whose first key is "type" followed by their properties in
// declaration order, and lists become sequences.
package valueyaml

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/dekarrin/parselet"
	"gopkg.in/yaml.v3"
)

// TypeKey is the mapping key that holds a node's type name.
const TypeKey = "type"

// Node converts v to a YAML node tree.
func Node(v any) *yaml.Node {
	switch tv := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case *parselet.Node:
		m := &yaml.Node{Kind: yaml.MappingNode}
		m.Content = append(m.Content, str(TypeKey), str(tv.Type().Name))
		for i, p := range tv.Type().Props {
			m.Content = append(m.Content, str(p), Node(tv.Values()[i]))
		}
		return m
	case *parselet.NodeList:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, it := range tv.Items() {
			seq.Content = append(seq.Content, Node(it))
		}
		return seq
	case string:
		return str(tv)
	case rune:
		return str(string(tv))
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(tv)}
	case int, uint, int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(tv)}
	case float32:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(float64(tv), 'g', -1, 32)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(tv, 'g', -1, 64)}
	default:
		return str(fmt.Sprint(tv))
	}
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Marshal encodes v as a YAML document indented by indent spaces.
func Marshal(v any, indent int) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(Node(v)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
