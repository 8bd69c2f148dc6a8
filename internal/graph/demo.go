package graph

import (
	"fmt"
	"strings"

	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// ColorDemoSeed is the pseudo-seed that renders the colour demo instead of
// walking the tracker.
const ColorDemoSeed = "color-demo"

// ColorDemo renders one chain of synthetic items per configured workflow, one
// item per state, so the configured colour progression can be inspected.
// Demo nodes carry no links.
func ColorDemo(styler *dot.Styler) []dot.Statement {
	plain := *styler
	plain.Links = nil

	var stmts []dot.Statement
	for _, wf := range styler.Styles.Workflows() {
		if len(wf.IssueTypes) == 0 {
			continue
		}
		itemType := wf.IssueTypes[0]
		group := &dot.Group{}
		prior := ""
		for i, state := range wf.States {
			key := fmt.Sprintf("%s-00%d", strings.ToUpper(itemType), i)
			item := &model.Item{
				Key:            key,
				Type:           model.ItemType(itemType),
				Summary:        "summary",
				Status:         state,
				StatusCategory: "name",
			}
			group.Nodes = append(group.Nodes, plain.ItemNode(item))
			if prior != "" {
				stmts = append(stmts, &dot.Edge{From: prior, To: key, Kind: dot.EdgeChain})
			}
			prior = key
		}
		stmts = append(stmts, group)
	}
	return stmts
}
