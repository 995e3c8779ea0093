package emit

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// entry is one key/value pair in an OrderedMap.
type entry struct {
	Key   string
	Value any
}

// OrderedMap marshals to YAML preserving insertion order, rather than
// the lexical key order gopkg.in/yaml.v3 imposes on a plain Go map.
// Provider emitters use it wherever document order carries meaning
// (a step list, a workflow's declared job order) and SortedMap
// everywhere else, matching spec.md 4.7/5's determinism requirement:
// the same Input always marshals to byte-identical output, and
// semantically-unordered maps sort so an unrelated code change can't
// reorder them.
type OrderedMap []entry

// Add appends a key/value pair.
func (m *OrderedMap) Add(key string, value any) {
	*m = append(*m, entry{Key: key, Value: value})
}

// MarshalYAML builds a manual yaml.Node mapping so key order survives
// encoding — the technique grounded on the teacher's Pipeline.ToYAML,
// which builds its job-name-sorted map[string]interface{} by hand
// before marshaling (internal/pipeline/gitlab/generator.go).
func (m OrderedMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range m {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(e.Key); err != nil {
			return nil, err
		}
		valNode := &yaml.Node{}
		if err := valNode.Encode(e.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// SortedMap returns an OrderedMap whose keys are sorted lexically,
// for the parts of a document where order carries no meaning and
// determinism is the only goal.
func SortedMap(m map[string]any) OrderedMap {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(OrderedMap, 0, len(keys))
	for _, k := range keys {
		out = append(out, entry{Key: k, Value: m[k]})
	}
	return out
}
