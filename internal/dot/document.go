package dot

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var emptyStatements = regexp.MustCompile(`;\s+;`)

// Document assembles a complete digraph from its sections.
type Document struct {
	GraphAttrs Attrs
	NodeAttrs  Attrs
	Labels     []Statement // label nodes and item→label edges
	Subgraphs  string      // pre-rendered cluster blocks
	Graph      []Statement // walked nodes and edges
}

// String renders the document. Duplicate statements are dropped and empty
// statements between semicolons collapsed.
func (d *Document) String() string {
	var items []string
	if len(d.Labels) > 0 {
		items = append(items, "\n\n// Labels")
		items = append(items, SortLabels(uniqueLines(d.Labels))...)
	}
	if d.Subgraphs != "" {
		items = append(items, "\n\n// Subgraphs", d.Subgraphs)
	}
	if len(d.Graph) > 0 {
		items = append(items, "\n\n// Graph")
		for _, st := range FilterDuplicates(d.Graph) {
			items = append(items, st.String())
		}
	}

	var b strings.Builder
	b.WriteString("digraph{")
	b.WriteString(d.GraphAttrs.Format(";"))
	b.WriteString(";node [")
	b.WriteString(d.NodeAttrs.Format(","))
	b.WriteString("];\n")
	b.WriteString(strings.Join(items, ";\n"))
	b.WriteString("}")
	return CollapseEmpty(b.String())
}

// CollapseEmpty replaces ";<whitespace>;" runs with a single semicolon.
func CollapseEmpty(s string) string {
	return emptyStatements.ReplaceAllString(s, ";")
}

func uniqueLines(stmts []Statement) []string {
	seen := make(map[string]bool, len(stmts))
	var out []string
	for _, st := range stmts {
		s := st.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// SortLabels sorts lines whose first ASCII letter is lower-case ahead of the
// rest, each group alphabetically.
func SortLabels(lines []string) []string {
	var lower, other []string
	for _, l := range lines {
		if firstLetterLower(l) {
			lower = append(lower, l)
		} else {
			other = append(other, l)
		}
	}
	sort.Strings(lower)
	sort.Strings(other)
	return append(lower, other...)
}

func firstLetterLower(s string) bool {
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return unicode.IsLower(r)
		}
	}
	return false
}
