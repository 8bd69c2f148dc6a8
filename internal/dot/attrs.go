// Package dot builds Graphviz DOT statements and documents for item graphs.
package dot

import (
	"sort"
	"strings"
)

// Attr is a single DOT attribute.
type Attr struct {
	Key   string
	Value string
}

// Attrs is an ordered attribute list. Setting an existing key keeps its
// position.
type Attrs []Attr

// FromMap returns the attributes of m ordered by key.
func FromMap(m map[string]string) Attrs {
	return Attrs(nil).Merge(m)
}

// Get returns the value of key.
func (a Attrs) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Set replaces the value of key, or appends it.
func (a Attrs) Set(key, value string) Attrs {
	for i := range a {
		if a[i].Key == key {
			a[i].Value = value
			return a
		}
	}
	return append(a, Attr{Key: key, Value: value})
}

// Merge sets every entry of m, in key order.
func (a Attrs) Merge(m map[string]string) Attrs {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		a = a.Set(k, m[k])
	}
	return a
}

// Clone returns a copy of a.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	copy(out, a)
	return out
}

// Format renders the list as key="value" pairs joined by sep. HTML labels
// (values starting with "<<") are left unquoted; the "name" key is never
// rendered.
func (a Attrs) Format(sep string) string {
	parts := make([]string, 0, len(a))
	for _, attr := range a {
		if attr.Key == "name" {
			continue
		}
		if attr.Key == "label" && strings.HasPrefix(attr.Value, "<<") {
			parts = append(parts, attr.Key+"="+attr.Value)
			continue
		}
		parts = append(parts, attr.Key+"="+Quote(attr.Value))
	}
	return strings.Join(parts, sep)
}

// Quote returns key as a DOT quoted string. Bare double quotes are escaped;
// existing escape sequences such as \n and \" pass through unchanged.
func Quote(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 2)
	b.WriteByte('"')
	for i := 0; i < len(key); i++ {
		switch c := key[i]; {
		case c == '\\' && i+1 < len(key):
			b.WriteByte(c)
			i++
			b.WriteByte(key[i])
		case c == '\\':
			// A trailing backslash would escape the closing quote.
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
