package graph

import (
	"sort"
	"strings"

	"github.com/alfredjeanlab/issuegraph/internal/cluster"
	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// labelItems maps each consolidated label to the walked, non-excluded items
// carrying it. Labels are lower-cased, renamed to their configured group and
// dropped when ignored.
func (p *Pipeline) labelItems(s *store.ItemStore, excluded map[string]bool) map[string][]string {
	itemLabels := make(map[string][]string)
	for _, item := range s.Items() {
		if excluded[item.Key] {
			continue
		}
		if _, ok := s.Depth(item.Key); !ok {
			continue
		}
		itemLabels[item.Key] = item.Labels
	}
	return consolidate(cluster.InvertLabels(itemLabels), p.styler.Styles.LabelAlias)
}

// consolidate renames labels with alias, merging the item lists of labels
// that end up with the same name. Labels are visited in sorted order so the
// merged lists are deterministic.
func consolidate(labelItems map[string][]string, alias func(string) (string, bool)) map[string][]string {
	found := make([]string, 0, len(labelItems))
	for l := range labelItems {
		found = append(found, l)
	}
	sort.Strings(found)

	out := make(map[string][]string, len(labelItems))
	for _, label := range found {
		clean, ok := alias(strings.ToLower(label))
		if !ok {
			continue
		}
		for _, k := range labelItems[label] {
			if !contains(out[clean], k) {
				out[clean] = append(out[clean], k)
			}
		}
	}
	return out
}

// labelStatements renders a node per label and an edge between the label and
// each of its items. Root labels point at their items; leaf labels hang off
// them.
func (p *Pipeline) labelStatements(labelItems map[string][]string) []dot.Statement {
	styles := p.styler.Styles
	nodeOpts, edgeOpts := styles.NodeOptions("label")

	labels := make([]string, 0, len(labelItems))
	for l := range labelItems {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	var stmts []dot.Statement
	for _, label := range labels {
		orientation := styles.LabelOrientation(label)

		nodeAttrs := dot.FromMap(nodeOpts)
		if p.styler.Links != nil {
			nodeAttrs = nodeAttrs.Set("href", p.styler.Links.QueryURL(LabelQuery(label)))
		}
		if orientation == "leaf" {
			nodeAttrs = nodeAttrs.Set("orientation", "180")
		}
		edgeAttrs := dot.FromMap(edgeOpts)
		if p.hidden(label) {
			nodeAttrs = nodeAttrs.Set("style", "invis")
			edgeAttrs = edgeAttrs.Set("style", "invis")
			nodeAttrs = nodeAttrs.Set("label", ".")
		}
		stmts = append(stmts, &dot.Node{ID: label, Attrs: nodeAttrs})

		for _, key := range labelItems[label] {
			edge := &dot.Edge{From: key, To: label, Kind: dot.EdgeLabel, Attrs: edgeAttrs.Clone()}
			if orientation == "root" {
				edge.Reverse()
			}
			stmts = append(stmts, edge)
		}
	}
	return stmts
}

func (p *Pipeline) hidden(label string) bool {
	for _, h := range p.opts.HideLabels {
		if strings.EqualFold(h, label) {
			return true
		}
	}
	return false
}

// LabelQuery selects the open items carrying label. A grouped label written
// as "a/b" matches either.
func LabelQuery(label string) string {
	return "labels in (" + strings.ReplaceAll(label, "/", ", ") + ") and not statusCategory = Done"
}
