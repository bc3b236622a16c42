// Package xmltree turns a RAMQ XML extract into a generic tree in which every
// child element is held in a sequence, whatever its cardinality in the source.
// Attributes and mixed text share the node's key space under reserved prefixes
// so that they can never collide with child element names.
package xmltree

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	// AttrPrefix marks attribute keys in the merged namespace.
	AttrPrefix = "@"
	// TextKey is the merged-namespace key of a node's text content.
	TextKey = "#text"
)

// Node is one element of the parsed tree.
type Node struct {
	Tag      string
	Attrs    map[string]string  // keyed by local name, without AttrPrefix
	Text     string             // trimmed text content, concatenated across mixed content
	Children map[string][]*Node // always a slice, even for a single occurrence
}

func newNode(tag string) *Node {
	return &Node{
		Tag:      tag,
		Attrs:    make(map[string]string),
		Children: make(map[string][]*Node),
	}
}

// Get resolves a key in the merged namespace: "@name" for attributes,
// TextKey for text, anything else for child sequences.
func (n *Node) Get(key string) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch {
	case key == TextKey:
		return n.Text, n.Text != ""
	case strings.HasPrefix(key, AttrPrefix):
		v, ok := n.Attrs[strings.TrimPrefix(key, AttrPrefix)]
		return v, ok
	default:
		c, ok := n.Children[key]
		return c, ok
	}
}

// Keys returns every key of the merged namespace, sorted.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.Attrs)+len(n.Children)+1)
	for k := range n.Attrs {
		keys = append(keys, AttrPrefix+k)
	}
	for k := range n.Children {
		keys = append(keys, k)
	}
	if n.Text != "" {
		keys = append(keys, TextKey)
	}
	sort.Strings(keys)
	return keys
}

// All returns every child with the given name. The result is nil when there
// are none and never needs a cardinality check.
func (n *Node) All(name string) []*Node {
	if n == nil {
		return nil
	}
	return n.Children[name]
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	c := n.All(name)
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Path walks the named levels below n, flattening the sequences found at
// each level. Path("a", "b") returns every b under every a.
func (n *Node) Path(names ...string) []*Node {
	if n == nil {
		return nil
	}
	level := []*Node{n}
	for _, name := range names {
		var next []*Node
		for _, p := range level {
			next = append(next, p.All(name)...)
		}
		level = next
	}
	return level
}

// Value returns the trimmed text of the first child with the given name, or
// the attribute value when name carries AttrPrefix. Missing keys yield "".
func (n *Node) Value(name string) string {
	if n == nil {
		return ""
	}
	if strings.HasPrefix(name, AttrPrefix) {
		return strings.TrimSpace(n.Attrs[strings.TrimPrefix(name, AttrPrefix)])
	}
	if c := n.Child(name); c != nil {
		return c.Text
	}
	return ""
}

// Values returns the text of every child with the given name, keeping empty
// entries so that parallel lists stay positionally aligned.
func (n *Node) Values(name string) []string {
	children := n.All(name)
	out := make([]string, len(children))
	for i, c := range children {
		out[i] = c.Text
	}
	return out
}

// MarshalJSON emits the merged namespace, which is what audit dumps show.
func (n *Node) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Attrs)+len(n.Children)+1)
	for k, v := range n.Attrs {
		m[AttrPrefix+k] = v
	}
	for k, v := range n.Children {
		m[k] = v
	}
	if n.Text != "" {
		m[TextKey] = n.Text
	}
	return json.Marshal(m)
}
