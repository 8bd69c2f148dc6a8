package walk

import (
	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// BeyondLimit returns the cached items that were never assigned a depth or
// whose depth exceeds limit.
func BeyondLimit(s *store.ItemStore, limit int) map[string]bool {
	out := make(map[string]bool)
	for _, item := range s.Items() {
		if d, ok := s.Depth(item.Key); !ok || d > limit {
			out[item.Key] = true
		}
	}
	return out
}

// Trim applies the depth limit to a run's statements: every statement that
// mentions an item beyond the limit is dropped, and nodes below the seeds are
// drawn smaller. It returns the kept statements and the excluded keys.
func Trim(stmts []dot.Statement, s *store.ItemStore, limit int) ([]dot.Statement, map[string]bool) {
	excluded := BeyondLimit(s, limit)
	kept := dot.RemoveKeys(stmts, excluded)
	for i, st := range kept {
		n, ok := st.(*dot.Node)
		if !ok {
			continue
		}
		if d, _ := s.Depth(n.ID); d > 0 {
			attrs := n.Attrs.Clone()
			attrs = attrs.Set("penwidth", "0.5")
			attrs = attrs.Set("fontsize", "12")
			kept[i] = &dot.Node{ID: n.ID, Attrs: attrs}
		}
	}
	return kept, excluded
}
