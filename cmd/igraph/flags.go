package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/graph"
	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// graphFlags are the rendering flags shared by graph, watch and serve.
type graphFlags struct {
	depth          int
	excludeLinks   []string
	ignoreClosed   bool
	closedStates   []string
	include        string
	issueExclude   []string
	showDirections []string
	directions     []string
	ignoreEpic     bool
	ignoreSubtasks bool
	noTraverse     bool
	prefetch       int

	excludeEmptyEpics bool
	includeLabels     bool
	hideLabels        []string
	subgraphs         bool
	debugSubgraphs    bool
	includeArguments  bool
	rankDir           string
	nodeShape         string

	wordWrap        bool
	htmlStylize     bool
	includeState    bool
	includeAssignee bool

	graphConfig string
}

func (f *graphFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&f.depth, "depth", "d", -1, "maximum link depth from the seeds (-1 for unlimited)")
	fs.StringSliceVarP(&f.excludeLinks, "exclude-link", "e", nil, "link labels to walk but not draw (e.g. \"is cloned by\")")
	fs.BoolVarP(&f.ignoreClosed, "ignore-closed", "c", false, "skip closed items")
	fs.StringSliceVar(&f.closedStates, "closed-state", []string{"Closed"}, "states treated as closed")
	fs.StringVarP(&f.include, "include", "i", "", "only follow links to keys containing this string")
	fs.StringSliceVarP(&f.issueExclude, "issue-exclude", "x", nil, "item keys never walked")
	fs.StringSliceVarP(&f.showDirections, "show-directions", "s", []string{"inward", "outward"}, "link directions to draw")
	fs.StringSliceVarP(&f.directions, "directions", "w", []string{"inward", "outward"}, "link directions to walk")
	fs.BoolVar(&f.ignoreEpic, "ignore-epic", false, "don't follow an epic into its children")
	fs.BoolVar(&f.ignoreSubtasks, "ignore-subtasks", false, "don't follow epic children or subtasks")
	fs.BoolVar(&f.noTraverse, "no-traverse", false, "don't follow links into other projects")
	fs.IntVar(&f.prefetch, "prefetch", 0, "concurrent child fetches per item (0 fetches lazily)")

	fs.BoolVar(&f.excludeEmptyEpics, "exclude-empty-epics", false, "drop epics without drawn children")
	fs.BoolVar(&f.includeLabels, "include-labels", false, "draw label nodes")
	fs.StringSliceVar(&f.hideLabels, "hide-label", nil, "labels drawn invisible")
	fs.BoolVar(&f.subgraphs, "employ-subgraphs", false, "cluster items by epic and state")
	fs.BoolVar(&f.debugSubgraphs, "debug-subgraphs", false, "outline clusters with dashed borders")
	fs.BoolVar(&f.includeArguments, "include-arguments", false, "print the command line as the graph title")
	fs.StringVarP(&f.rankDir, "rankdir", "r", "TB", "graph direction (TB, BT, LR, RL)")
	fs.StringVarP(&f.nodeShape, "node-shape", "n", "box", "node shape")

	fs.BoolVar(&f.wordWrap, "word-wrap", false, "wrap summaries instead of truncating them")
	fs.BoolVar(&f.htmlStylize, "html-stylize", false, "use HTML table node labels")
	fs.BoolVar(&f.includeState, "include-state", false, "show the status in node labels")
	fs.BoolVar(&f.includeAssignee, "include-assignee", false, "show the assignee in node labels")

	fs.StringVar(&f.graphConfig, "graph-config", "", "path to the YAML graph configuration")
}

// options converts the flags into pipeline and label options. args are the
// raw command-line arguments used for --include-arguments.
func (f *graphFlags) options(args []string) (graph.Options, dot.LabelOptions, error) {
	opts := graph.DefaultOptions()

	if f.depth >= 0 {
		depth := f.depth
		opts.Walk.DepthLimit = &depth
	}
	directions, err := parseDirections(f.directions)
	if err != nil {
		return opts, dot.LabelOptions{}, err
	}
	show, err := parseDirections(f.showDirections)
	if err != nil {
		return opts, dot.LabelOptions{}, err
	}
	opts.Walk.Directions = directions
	opts.Walk.ShowDirections = show
	opts.Walk.ExcludeLinks = f.excludeLinks
	opts.Walk.ExcludeItems = f.issueExclude
	opts.Walk.IgnoreClosed = f.ignoreClosed
	if len(f.closedStates) > 0 {
		opts.Walk.ClosedStates = f.closedStates
	}
	opts.Walk.Include = f.include
	opts.Walk.IgnoreEpic = f.ignoreEpic
	opts.Walk.IgnoreSubtasks = f.ignoreSubtasks
	opts.Walk.Traverse = !f.noTraverse
	opts.Walk.Prefetch = f.prefetch

	switch rd := strings.ToUpper(f.rankDir); rd {
	case "TB", "BT", "LR", "RL":
		opts.RankDir = rd
	default:
		return opts, dot.LabelOptions{}, fmt.Errorf("invalid rankdir %q", f.rankDir)
	}
	opts.NodeShape = f.nodeShape
	opts.ExcludeEmptyEpics = f.excludeEmptyEpics
	opts.IncludeLabels = f.includeLabels
	opts.HideLabels = f.hideLabels
	opts.Subgraphs = f.subgraphs || f.debugSubgraphs
	opts.DebugSubgraphs = f.debugSubgraphs
	if f.includeArguments {
		opts.Arguments = append([]string{}, args...)
	}

	label := dot.LabelOptions{
		HTML:     f.htmlStylize,
		WordWrap: f.wordWrap,
		State:    f.includeState,
		Assignee: f.includeAssignee,
	}
	return opts, label, nil
}

func parseDirections(values []string) ([]model.Direction, error) {
	out := make([]model.Direction, 0, len(values))
	for _, v := range values {
		d := model.Direction(strings.ToLower(strings.TrimSpace(v)))
		if !d.IsValid() {
			return nil, fmt.Errorf("invalid direction %q (want inward or outward)", v)
		}
		out = append(out, d)
	}
	return out, nil
}
