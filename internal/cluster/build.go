package cluster

import "strings"

// Member is an item placed in the cluster tree.
type Member struct {
	Key    string
	Parent string // "" when the item has no parent
	State  string
	Epic   bool // epics are bucketed by parent only
}

// Build creates the parent → state → item tree for members. An item with no
// parent is only placed under the root when no other member names it as
// parent; it then appears as a top-level key of its own instead. Parents
// that are not members themselves still get their top-level key.
func Build(members []Member) *Tree {
	parents := make(map[string]bool)
	for _, m := range members {
		if m.Parent != "" {
			parents[m.Parent] = true
		}
	}

	tree := NewTree()
	for _, m := range members {
		state := strings.ToUpper(m.State)
		if m.Epic {
			state = ""
		}
		if m.Parent != "" || !parents[m.Key] {
			tree.Child(m.Parent).Child(state).Child(m.Key)
		}
	}
	return tree
}

type graft struct {
	target *Tree // the state level receiving the subtree
	key    string
}

// Graft moves every top-level entry that also occurs as a child under
// another top-level parent into that slot, carrying its whole subtree. Moves
// are collected first and applied afterwards, so the result does not depend
// on iteration order. A move that would place a subtree inside itself
// (self-parented items, parent cycles) is skipped. Graft is idempotent.
func Graft(tree *Tree) *Tree {
	var grafts []graft
	for _, parent := range tree.Keys() {
		states := tree.children[parent]
		for _, state := range states.Keys() {
			children := states.children[state]
			for _, child := range children.Keys() {
				if child == parent {
					continue
				}
				if _, ok := tree.Get(child); ok {
					grafts = append(grafts, graft{target: children, key: child})
				}
			}
		}
	}

	for _, g := range grafts {
		sub, ok := tree.Get(g.key)
		if !ok || sub.contains(g.target) {
			continue
		}
		tree.Delete(g.key)
		g.target.Set(g.key, sub)
	}
	return tree
}
