// Package walk discovers the items reachable from a seed and emits their DOT
// node and edge statements.
//
// A walk is depth-first. Depths are recorded in the shared store.ItemStore
// as a monotonic minimum across every walk of a run, and an item reached
// again through a strictly shorter path is re-expanded so its descendants
// get their shorter depths too.
package walk

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/issuegraph/internal/config"
	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/model"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// Options controls which relations are followed and drawn.
type Options struct {
	// DepthLimit bounds the walk; nil means unlimited. Items one hop past the
	// limit are still discovered so a later, shorter path can pull them in.
	DepthLimit *int

	IgnoreClosed   bool
	ClosedStates   []string // states treated as closed (default "Closed")
	IgnoreEpic     bool     // don't follow an epic into its children
	IgnoreSubtasks bool     // don't follow epic children or subtasks
	Traverse       bool     // follow links into other projects

	Directions     []model.Direction // link directions to walk
	ShowDirections []model.Direction // link directions to draw
	ExcludeLinks   []string          // link labels walked but not drawn
	ExcludeItems   []string          // keys never walked
	Include        string            // linked keys must contain this

	// Prefetch is the number of concurrent child fetches; 0 fetches lazily.
	Prefetch int
}

// DefaultOptions returns options that walk and draw everything.
func DefaultOptions() Options {
	return Options{
		ClosedStates:   []string{"Closed"},
		Traverse:       true,
		Directions:     []model.Direction{model.DirectionInward, model.DirectionOutward},
		ShowDirections: []model.Direction{model.DirectionInward, model.DirectionOutward},
	}
}

// Result is the output of one walk.
type Result struct {
	Statements []dot.Statement
	Visited    []string // identities in first-visit order
}

// Walker walks item graphs against a shared ItemStore.
type Walker struct {
	store  *store.ItemStore
	styler *dot.Styler
	styles *config.Styles
	opts   Options
	logger *slog.Logger
}

// New creates a Walker. Edge styling comes from styler.Styles.
func New(s *store.ItemStore, styler *dot.Styler, opts Options, logger *slog.Logger) *Walker {
	if len(opts.ClosedStates) == 0 {
		opts.ClosedStates = []string{"Closed"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	styles := styler.Styles
	if styles == nil {
		styles = config.Compile(nil)
	}
	return &Walker{store: s, styler: styler, styles: styles, opts: opts, logger: logger}
}

// walkState is the per-seed bookkeeping.
type walkState struct {
	project string
	emitted map[string]bool
	visited map[string]bool
	result  *Result
}

// Walk traverses the graph from seed. Any fetch failure aborts the walk and
// is returned unchanged.
func (w *Walker) Walk(ctx context.Context, seed string) (*Result, error) {
	st := &walkState{
		project: model.ProjectOf(seed),
		emitted: make(map[string]bool),
		visited: make(map[string]bool),
		result:  &Result{},
	}
	if err := w.visit(ctx, st, seed, 0); err != nil {
		return nil, err
	}
	return st.result, nil
}

func (w *Walker) visit(ctx context.Context, st *walkState, key string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.logger.Debug("walking", "key", key, "depth", depth)

	item, err := w.store.GetOrFetch(ctx, key)
	if err != nil {
		return err
	}
	if !st.visited[key] {
		st.visited[key] = true
		st.result.Visited = append(st.result.Visited, key)
	}

	if w.opts.IgnoreClosed && item.HasStatus(w.opts.ClosedStates) {
		w.logger.Debug("skipping closed item", "key", key)
		return nil
	}
	if !w.opts.Traverse && item.Project() != st.project {
		w.logger.Debug("skipping item in another project", "key", key, "project", st.project)
		return nil
	}

	if !st.emitted[key] {
		st.emitted[key] = true
		st.result.Statements = append(st.result.Statements, w.styler.ItemNode(item))
	}

	depth = w.store.RecordDepth(key, depth)
	if limit := w.opts.DepthLimit; limit != nil && *limit-depth < 0 {
		return nil
	}

	children, err := w.children(ctx, st, item)
	if err != nil {
		return err
	}

	var next []string
	for _, child := range children {
		if slices.Contains(w.opts.ExcludeItems, child) {
			continue
		}
		if d, ok := w.store.Depth(child); ok && d <= depth+1 {
			continue
		}
		next = append(next, child)
	}
	if err := w.prefetch(ctx, next); err != nil {
		return err
	}
	for _, child := range next {
		// A sibling's subtree may have reached child at a shorter depth.
		if d, ok := w.store.Depth(child); ok && d <= depth+1 {
			continue
		}
		if err := w.visit(ctx, st, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// children emits the edges leaving item and returns the identities to
// descend into, in discovery order.
func (w *Walker) children(ctx context.Context, st *walkState, item *model.Item) ([]string, error) {
	var children []string

	if !w.opts.IgnoreSubtasks {
		if item.IsEpic() && !w.opts.IgnoreEpic {
			filter := model.ItemFilter{EpicKey: item.Key}
			if w.opts.IgnoreClosed {
				filter.ExcludeStatus = w.opts.ClosedStates
			}
			members, err := w.store.Query(ctx, filter)
			if err != nil {
				return nil, err
			}
			for _, m := range members {
				w.logger.Debug("epic member", "epic", item.Key, "key", m.Key)
				st.result.Statements = append(st.result.Statements, &dot.Edge{
					From:  item.Key,
					To:    m.Key,
					Kind:  dot.EdgeEpic,
					Attrs: dot.FromMap(w.styles.EdgeOptions("epic")),
				})
				children = append(children, m.Key)
			}
		}

		for _, sub := range item.Subtasks {
			if w.opts.IgnoreClosed && model.StatusIn(sub.Status, w.opts.ClosedStates) {
				w.logger.Debug("skipping closed subtask", "key", sub.Key)
				continue
			}
			w.store.Put(&model.Item{
				Key:     sub.Key,
				Type:    sub.Type,
				Status:  sub.Status,
				Parent:  item.Key,
				Partial: true,
			})
			st.result.Statements = append(st.result.Statements, &dot.Edge{
				From:  item.Key,
				To:    sub.Key,
				Kind:  dot.EdgeSubtask,
				Attrs: dot.FromMap(w.styles.EdgeOptions("subtask")),
			})
			children = append(children, sub.Key)
		}
	}

	for _, link := range item.Links {
		key, edge, ok := w.processLink(item, link)
		if !ok {
			continue
		}
		children = append(children, key)
		if edge != nil {
			st.result.Statements = append(st.result.Statements, edge)
		}
	}
	return children, nil
}

// processLink applies the link filters. ok is false when the linked item is
// not walked; edge is nil when it is walked but not drawn.
func (w *Walker) processLink(item *model.Item, link *model.Link) (key string, edge *dot.Edge, ok bool) {
	if link == nil || !slices.Contains(w.opts.Directions, link.Direction) {
		return "", nil, false
	}
	if slices.Contains(w.opts.ExcludeItems, link.Key) {
		w.logger.Debug("skipping excluded item", "key", link.Key)
		return "", nil, false
	}
	if w.opts.IgnoreClosed && model.StatusIn(link.Status, w.opts.ClosedStates) {
		w.logger.Debug("skipping closed linked item", "key", link.Key)
		return "", nil, false
	}
	if !strings.Contains(link.Key, w.opts.Include) {
		return "", nil, false
	}
	if slices.Contains(w.opts.ExcludeLinks, strings.TrimSpace(link.Label)) {
		return link.Key, nil, true
	}

	w.logger.Debug("link", "from", item.Key, "direction", link.Direction, "label", link.Label, "to", link.Key)

	if !slices.Contains(w.opts.ShowDirections, link.Direction) {
		return link.Key, nil, true
	}

	edge = &dot.Edge{
		From:  item.Key,
		To:    link.Key,
		Kind:  dot.EdgeLink,
		Attrs: dot.Attrs{{Key: "label", Value: link.Label}},
	}
	switch {
	case link.Type == model.LinkBlocks:
		edge.Attrs = edge.Attrs.Merge(w.styles.EdgeOptions("block"))
		if strings.EqualFold(item.StatusCategory, model.CategoryDone) {
			edge.Attrs = edge.Attrs.Set("color", "black")
		}
		// Blockers point away from the seed.
		edge.Reverse()
	case link.IsSymmetric():
		edge.Attrs = edge.Attrs.Set("constraint", "false")
		edge.Attrs = edge.Attrs.Set("dir", "none")
	default:
		w.logger.Warn("unknown link type", "type", link.Type, "from", item.Key, "to", link.Key)
	}
	return link.Key, edge, true
}

// prefetch loads keys concurrently so the depth-first pass finds them cached.
func (w *Walker) prefetch(ctx context.Context, keys []string) error {
	if w.opts.Prefetch <= 0 || len(keys) < 2 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Prefetch)
	for _, key := range keys {
		g.Go(func() error {
			_, err := w.store.GetOrFetch(gctx, key)
			return err
		})
	}
	return g.Wait()
}
