package dot

import "strings"

// Statement is one line of a DOT graph body. Keys lists the item identities
// the statement refers to, so statements can be dropped by identity.
type Statement interface {
	Keys() []string
	String() string
}

// EdgeKind classifies where an edge came from.
type EdgeKind string

const (
	EdgeEpic    EdgeKind = "epic"
	EdgeSubtask EdgeKind = "subtask"
	EdgeLink    EdgeKind = "link"
	EdgeLabel   EdgeKind = "label"
	EdgeChain   EdgeKind = "chain"
)

// Node is a node definition.
type Node struct {
	ID    string
	Attrs Attrs
}

func (n *Node) Keys() []string { return []string{n.ID} }

func (n *Node) String() string {
	return Quote(n.ID) + " [" + n.Attrs.Format(",") + "]"
}

// Edge is a directed edge between two identities.
type Edge struct {
	From  string
	To    string
	Kind  EdgeKind
	Attrs Attrs
}

func (e *Edge) Keys() []string { return []string{e.From, e.To} }

func (e *Edge) String() string {
	return Quote(e.From) + "->" + Quote(e.To) + "[" + e.Attrs.Format(",") + "]"
}

// Reverse swaps the edge endpoints.
func (e *Edge) Reverse() {
	e.From, e.To = e.To, e.From
}

// Group is an anonymous subgraph of nodes.
type Group struct {
	Nodes []*Node
}

func (g *Group) Keys() []string {
	keys := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		keys[i] = n.ID
	}
	return keys
}

func (g *Group) String() string {
	parts := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		parts[i] = n.String()
	}
	return "subgraph {" + strings.Join(parts, ";") + "}"
}

// FilterDuplicates drops repeated statements, keeping the first occurrence
// of each rendered line in its original position.
func FilterDuplicates(stmts []Statement) []Statement {
	seen := make(map[string]bool, len(stmts))
	out := make([]Statement, 0, len(stmts))
	for _, st := range stmts {
		s := st.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, st)
	}
	return out
}

// RemoveKeys drops every statement that refers to one of keys.
func RemoveKeys(stmts []Statement, keys map[string]bool) []Statement {
	out := make([]Statement, 0, len(stmts))
next:
	for _, st := range stmts {
		for _, k := range st.Keys() {
			if keys[k] {
				continue next
			}
		}
		out = append(out, st)
	}
	return out
}
