// Package graph runs the whole rendering pipeline for a set of seeds: it
// walks the tracker, applies the depth and epic post-passes, builds label
// nodes and state clusters, and assembles the DOT document.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alfredjeanlab/issuegraph/internal/client"
	"github.com/alfredjeanlab/issuegraph/internal/cluster"
	"github.com/alfredjeanlab/issuegraph/internal/config"
	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/idgen"
	"github.com/alfredjeanlab/issuegraph/internal/model"
	"github.com/alfredjeanlab/issuegraph/internal/store"
	"github.com/alfredjeanlab/issuegraph/internal/walk"
)

// Options configures a pipeline run beyond the walk itself.
type Options struct {
	Walk walk.Options

	ExcludeEmptyEpics bool
	IncludeLabels     bool
	HideLabels        []string
	Subgraphs         bool
	DebugSubgraphs    bool

	RankDir   string // default "TB"
	NodeShape string // default "box"

	// Arguments, when non-nil, are printed as the graph's title.
	Arguments []string
}

// DefaultOptions returns the options used when no flags are given.
func DefaultOptions() Options {
	return Options{
		Walk:      walk.DefaultOptions(),
		RankDir:   "TB",
		NodeShape: "box",
	}
}

// Graph is the result of one run.
type Graph struct {
	Summary model.GraphSummary
	Text    string

	// Items and Depths describe everything the run fetched.
	Items  []*model.Item
	Depths map[string]int
}

// Renderer renders graphs for seeds. It is implemented by Pipeline.
type Renderer interface {
	Render(ctx context.Context, seeds []string) (*Graph, error)
}

// Pipeline renders graphs from a fixed source, styler and option set. It
// holds no per-run state and may be used concurrently.
type Pipeline struct {
	source store.Source
	styler *dot.Styler
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New returns a pipeline reading from source.
func New(source store.Source, styler *dot.Styler, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if styler == nil {
		styler = &dot.Styler{}
	}
	if styler.Styles == nil {
		withDefaults := *styler
		withDefaults.Styles = config.Compile(nil)
		styler = &withDefaults
	}
	if opts.RankDir == "" {
		opts.RankDir = "TB"
	}
	if opts.NodeShape == "" {
		opts.NodeShape = "box"
	}
	return &Pipeline{source: source, styler: styler, opts: opts, logger: logger, now: time.Now}
}

// Render walks every seed into one shared store and renders the document.
// Seeds listed in the walk's ExcludeItems are skipped. The first fetch
// failure aborts the run.
func (p *Pipeline) Render(ctx context.Context, seeds []string) (*Graph, error) {
	runID, err := idgen.NewRunID()
	if err != nil {
		return nil, err
	}
	logger := p.logger.With("run_id", runID)

	st := store.New(p.source)
	w := walk.New(st, p.styler, p.opts.Walk, logger)

	var stmts []dot.Statement
	for _, seed := range seeds {
		if contains(p.opts.Walk.ExcludeItems, seed) {
			continue
		}
		if seed == ColorDemoSeed {
			stmts = append(stmts, ColorDemo(p.styler)...)
			continue
		}
		res, err := w.Walk(ctx, seed)
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", seed, err)
		}
		stmts = append(stmts, res.Statements...)
	}

	excluded := make(map[string]bool)
	if limit := p.opts.Walk.DepthLimit; limit != nil {
		stmts, excluded = walk.Trim(stmts, st, *limit)
	}
	if p.opts.ExcludeEmptyEpics {
		empty := EmptyEpics(st, excluded)
		for k := range empty {
			excluded[k] = true
		}
		stmts = dot.RemoveKeys(stmts, empty)
	}

	var (
		labelItems map[string][]string
		labelStmts []dot.Statement
	)
	if p.opts.IncludeLabels {
		labelItems = p.labelItems(st, excluded)
		labelStmts = p.labelStatements(labelItems)
	}

	var subgraphs string
	if p.opts.Subgraphs {
		subgraphs = p.subgraphs(st, excluded, labelItems)
	}

	doc := &dot.Document{
		GraphAttrs: p.graphAttrs(),
		NodeAttrs:  p.nodeAttrs(),
		Labels:     labelStmts,
		Subgraphs:  subgraphs,
		Graph:      stmts,
	}
	text := doc.String()

	stats := countStatements(dot.FilterDuplicates(stmts))
	stats.Labels = len(labelItems)
	stats.Excluded = len(excluded)

	g := &Graph{
		Summary: model.GraphSummary{
			RunID:      runID,
			Seeds:      seeds,
			Stats:      stats,
			Bytes:      len(text),
			RenderedAt: p.now().UTC(),
		},
		Text:   text,
		Items:  st.Items(),
		Depths: st.Depths(),
	}
	logger.Info("graph rendered",
		"seeds", seeds,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"labels", stats.Labels,
		"excluded", stats.Excluded,
		"bytes", g.Summary.Bytes,
	)
	return g, nil
}

// EmptyEpics returns the cached epics that are not the parent of any item
// outside excluded.
func EmptyEpics(s *store.ItemStore, excluded map[string]bool) map[string]bool {
	parents := make(map[string]bool)
	var epics []string
	for _, item := range s.Items() {
		if item.IsEpic() {
			epics = append(epics, item.Key)
		}
		if item.Parent != "" && !excluded[item.Key] {
			parents[item.Parent] = true
		}
	}
	out := make(map[string]bool)
	for _, k := range epics {
		if !parents[k] {
			out[k] = true
		}
	}
	return out
}

func (p *Pipeline) subgraphs(s *store.ItemStore, excluded map[string]bool, labelItems map[string][]string) string {
	var members []cluster.Member
	for _, item := range s.Items() {
		if excluded[item.Key] {
			continue
		}
		if _, ok := s.Depth(item.Key); !ok {
			continue
		}
		members = append(members, cluster.Member{
			Key:    item.Key,
			Parent: item.Parent,
			State:  item.Status,
			Epic:   item.IsEpic(),
		})
	}
	tree := cluster.Graft(cluster.Build(members))
	clusterLabels := cluster.MapLabels(labelItems, tree)
	return cluster.Render(tree, clusterLabels, p.styler.Styles.CanonicalStates(), p.opts.DebugSubgraphs)
}

func (p *Pipeline) graphAttrs() dot.Attrs {
	attrs := dot.Attrs{{Key: "rankdir", Value: p.opts.RankDir}}
	if p.opts.Arguments != nil {
		attrs = attrs.Set("labelloc", "t")
		attrs = attrs.Set("labeljust", "c")
		attrs = attrs.Set("label", ArgumentsLabel(p.opts.Arguments))
	}
	return attrs
}

func (p *Pipeline) nodeAttrs() dot.Attrs {
	attrs := dot.Attrs{{Key: "shape", Value: p.opts.NodeShape}}
	return attrs.Merge(p.styler.Styles.DefaultNodeOptions())
}

// ArgumentsLabel formats command-line arguments as a graph title: query
// arguments go last on a line of their own and double quotes are escaped.
func ArgumentsLabel(args []string) string {
	sorted := append([]string(nil), args...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return !isJQLArg(sorted[i]) && isJQLArg(sorted[j])
	})
	s := strings.ReplaceAll(strings.Join(sorted, " "), `"`, `\"`)
	return strings.ReplaceAll(s, "--jql=", `\n--jql=`)
}

func isJQLArg(a string) bool {
	return strings.HasPrefix(a, "--jql=")
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// OutputName names a run's output file: the query with non-word runs
// replaced by "_", else up to ten seeds joined by "-", followed by
// ".graph." and a compact timestamp.
func OutputName(seeds []string, jql string, at time.Time) string {
	var name string
	switch {
	case jql != "":
		name = strings.Trim(nonWord.ReplaceAllString(jql, "_"), "_")
	case len(seeds) > 0:
		if len(seeds) > 10 {
			seeds = seeds[:10]
		}
		name = strings.Join(seeds, "-")
	default:
		name = "graph"
	}
	return name + ".graph." + at.Format("20060102T150405")
}

// ResolveSeeds appends the keys matched by jql to seeds.
func ResolveSeeds(ctx context.Context, searcher client.Searcher, seeds []string, jql string) ([]string, error) {
	out := append([]string(nil), seeds...)
	if jql == "" {
		return out, nil
	}
	if searcher == nil {
		return nil, fmt.Errorf("resolving %q: no search backend configured", jql)
	}
	keys, err := searcher.ListKeys(ctx, jql)
	if err != nil {
		return nil, err
	}
	return append(out, keys...), nil
}

func countStatements(stmts []dot.Statement) model.GraphStats {
	var stats model.GraphStats
	for _, st := range stmts {
		switch s := st.(type) {
		case *dot.Node:
			stats.Nodes++
		case *dot.Edge:
			stats.Edges++
		case *dot.Group:
			stats.Nodes += len(s.Nodes)
		}
	}
	return stats
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
