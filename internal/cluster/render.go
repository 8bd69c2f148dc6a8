package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// Render emits the nested subgraph blocks for tree. clusterLabels maps
// cluster names to the labels drawn inside them; states is the canonical
// workflow order (normalized) used to chain sibling state groups. With debug
// set the clusters and their anchor points are drawn visibly.
func Render(tree *Tree, clusterLabels map[string][]string, states []string, debug bool) string {
	r := &renderer{labels: clusterLabels, states: states, debug: debug}
	return dot.CollapseEmpty(r.render(tree))
}

type renderer struct {
	labels map[string][]string
	states []string
	debug  bool
}

func (r *renderer) render(tree *Tree) string {
	var blocks []string
	for _, issue := range tree.Keys() {
		states := tree.children[issue]
		labels := r.labels[model.SnakeCase("cluster_"+issue)]

		if states.Len() == 0 {
			blocks = append(blocks, flatList(issue, labels))
			continue
		}

		var groups []string
		var stateNames []string
		for _, state := range states.Keys() {
			stateNames = append(stateNames, state)
			groups = append(groups, r.stateGroup(issue, state, states.children[state]))
		}
		groups = append(groups, StateEdges(issue, stateNames, r.states, r.debug))

		key := model.SnakeCase(issue)
		blocks = append(blocks, fmt.Sprintf("\nsubgraph cluster_%s {\n%s\n%s\n%s\n};\n",
			key,
			r.clusterAttrs(key),
			nodeSets([]string{issue}, labels),
			strings.Join(groups, "\n"),
		))
	}
	return strings.Join(blocks, "\n")
}

func (r *renderer) stateGroup(issue, state string, children *Tree) string {
	issueState := model.SnakeCase(issue + " " + state)
	labels := r.labels[model.SnakeCase("cluster_"+issueState)]

	var leaves []string
	nested := NewTree()
	for _, k := range children.Keys() {
		sub := children.children[k]
		if sub.Len() == 0 {
			leaves = append(leaves, k)
		} else {
			nested.Set(k, sub)
		}
	}

	return fmt.Sprintf("\nsubgraph cluster_%s {\n%s\n%s\n%s\n%s\n};\n",
		issueState,
		r.clusterAttrs(issueState),
		r.point(issueState),
		nodeSets(leaves, labels),
		r.render(nested),
	)
}

func (r *renderer) clusterAttrs(key string) string {
	attrs := dot.Attrs{{Key: "style", Value: "invis"}}
	if r.debug {
		attrs = dot.Attrs{{Key: "style", Value: "dashed"}}
	}
	attrs = attrs.Set("label", "cluster_"+key)
	return attrs.Format(";")
}

// point is the invisible anchor the state ordering edges attach to.
func (r *renderer) point(key string) string {
	attrs := dot.Attrs{{Key: "style", Value: "invis"}, {Key: "shape", Value: "point"}}
	if r.debug {
		attrs = dot.Attrs{{Key: "shape", Value: "rarrow"}}
	}
	return key + "[" + attrs.Format(",") + "]"
}

// nodeSets renders each non-empty set as quoted identifiers joined by ";",
// one set per line.
func nodeSets(sets ...[]string) string {
	var lines []string
	for _, set := range sets {
		var ids []string
		for _, k := range set {
			if k != "" {
				ids = append(ids, dot.Quote(k))
			}
		}
		if len(ids) > 0 {
			lines = append(lines, strings.Join(ids, ";"))
		}
	}
	return strings.Join(lines, "\n")
}

func flatList(issue string, labels []string) string {
	var ids []string
	if issue != "" {
		ids = append(ids, dot.Quote(issue))
	}
	for _, l := range labels {
		if l != "" {
			ids = append(ids, dot.Quote(l))
		}
	}
	return strings.Join(ids, "\n")
}

// StateEdges chains the anchor points of the state groups of issue in
// canonical order. States outside canonical are left out of the chain; fewer
// than two chained states produce no edge.
func StateEdges(issue string, states, canonical []string, debug bool) string {
	rank := make(map[string]int, len(canonical))
	for i, s := range canonical {
		if _, ok := rank[s]; !ok {
			rank[s] = i
		}
	}

	seen := make(map[string]bool)
	var present []string
	for _, s := range states {
		s = model.SnakeCase(s)
		if _, ok := rank[s]; ok && !seen[s] {
			seen[s] = true
			present = append(present, s)
		}
	}
	if len(present) < 2 {
		return ""
	}
	sort.Slice(present, func(i, j int) bool { return rank[present[i]] < rank[present[j]] })

	points := make([]string, len(present))
	for i, s := range present {
		points[i] = model.SnakeCase(issue + " " + s)
	}
	attrs := dot.Attrs{{Key: "weight", Value: "4"}}
	if !debug {
		attrs = attrs.Set("style", "invis")
	}
	return strings.Join(points, " -> ") + " [" + attrs.Format(",") + "]"
}
