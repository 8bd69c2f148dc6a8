// Package cluster groups walked items into nested DOT clusters by parent and
// workflow state, and attaches label nodes to the innermost cluster shared
// by every item carrying the label.
//
// The cluster tree alternates between parent levels (keyed by the parent's
// identity, "" for the synthetic root) and state levels (keyed by the
// upper-cased state). Leaves are empty trees.
package cluster

import (
	"sort"
	"strconv"
	"strings"
)

// Tree is an insertion-ordered recursive mapping.
type Tree struct {
	keys     []string
	children map[string]*Tree
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{children: make(map[string]*Tree)}
}

// Get returns the subtree at key.
func (t *Tree) Get(key string) (*Tree, bool) {
	sub, ok := t.children[key]
	return sub, ok
}

// Child returns the subtree at key, creating an empty one if absent.
func (t *Tree) Child(key string) *Tree {
	if sub, ok := t.children[key]; ok {
		return sub
	}
	sub := NewTree()
	t.Set(key, sub)
	return sub
}

// Set stores sub at key. An existing key keeps its position.
func (t *Tree) Set(key string, sub *Tree) {
	if _, ok := t.children[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.children[key] = sub
}

// Delete removes key and returns its subtree.
func (t *Tree) Delete(key string) (*Tree, bool) {
	sub, ok := t.children[key]
	if !ok {
		return nil, false
	}
	delete(t.children, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return sub, true
}

// Keys returns the keys in insertion order.
func (t *Tree) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of keys.
func (t *Tree) Len() int {
	return len(t.keys)
}

// Equal reports whether t and o hold the same keys and subtrees, ignoring
// key order.
func (t *Tree) Equal(o *Tree) bool {
	if t.Len() != o.Len() {
		return false
	}
	for k, sub := range t.children {
		osub, ok := o.children[k]
		if !ok || !sub.Equal(osub) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	out := NewTree()
	for _, k := range t.keys {
		out.Set(k, t.children[k].Clone())
	}
	return out
}

// contains reports whether target is t or any subtree below it.
func (t *Tree) contains(target *Tree) bool {
	if t == target {
		return true
	}
	for _, sub := range t.children {
		if sub.contains(target) {
			return true
		}
	}
	return false
}

// String renders the tree as nested braces with sorted keys, e.g.
// {"P-1": {"OPEN": {"P-2": {}}}}.
func (t *Tree) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *Tree) write(b *strings.Builder) {
	keys := t.Keys()
	sort.Strings(keys)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(k))
		b.WriteString(": ")
		t.children[k].write(b)
	}
	b.WriteByte('}')
}
