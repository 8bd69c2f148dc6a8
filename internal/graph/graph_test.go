package graph

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/issuegraph/internal/config"
	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/model"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// fakeSource serves items from a map. Epic members are returned sorted by key.
type fakeSource struct {
	mu    sync.Mutex
	items map[string]*model.Item
	calls int
	fail  map[string]error
}

func newFakeSource(items ...*model.Item) *fakeSource {
	s := &fakeSource{items: make(map[string]*model.Item), fail: make(map[string]error)}
	for _, it := range items {
		s.items[it.Key] = it
	}
	return s
}

func (s *fakeSource) GetItem(_ context.Context, key string) (*model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.fail[key]; err != nil {
		return nil, err
	}
	it, ok := s.items[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *it
	return &clone, nil
}

func (s *fakeSource) QueryItems(_ context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Item
	for _, it := range s.items {
		if it.Parent != filter.EpicKey || it.HasStatus(filter.ExcludeStatus) {
			continue
		}
		clone := *it
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func epic(key string, links ...*model.Link) *model.Item {
	return &model.Item{Key: key, Type: model.TypeEpic, Status: "Open", Summary: key, Links: links}
}

func story(key, parent string, labels ...string) *model.Item {
	return &model.Item{Key: key, Type: model.TypeStory, Status: "Open", Summary: key, Parent: parent, Labels: labels}
}

func relates(key string) *model.Link {
	return &model.Link{Type: model.LinkRelates, Label: "relates to", Direction: model.DirectionOutward, Key: key}
}

func intPtr(n int) *int { return &n }

func mustStyles(t *testing.T, yml string) *config.Styles {
	t.Helper()
	gc, err := config.ParseGraphConfig([]byte(yml))
	if err != nil {
		t.Fatalf("ParseGraphConfig() error = %v", err)
	}
	return config.Compile(gc)
}

func render(t *testing.T, src store.Source, styler *dot.Styler, opts Options, seeds ...string) *Graph {
	t.Helper()
	g, err := New(src, styler, opts, nil).Render(context.Background(), seeds)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return g
}

func TestRender_Document(t *testing.T) {
	src := newFakeSource(epic("P-1"), story("P-2", "P-1"), story("P-3", "P-1"))
	g := render(t, src, nil, DefaultOptions(), "P-1")

	if !strings.HasPrefix(g.Text, "digraph{rankdir=\"TB\";node [shape=\"box\"];\n") {
		t.Errorf("unexpected header:\n%s", g.Text)
	}
	if !strings.HasSuffix(g.Text, "}") {
		t.Errorf("document not closed:\n%s", g.Text)
	}
	for _, want := range []string{"// Graph", `"P-1" [`, `"P-2" [`, `"P-3" [`, `"P-1"->"P-2"`} {
		if !strings.Contains(g.Text, want) {
			t.Errorf("document missing %q:\n%s", want, g.Text)
		}
	}
	for _, unwanted := range []string{"// Labels", "// Subgraphs"} {
		if strings.Contains(g.Text, unwanted) {
			t.Errorf("document should not contain %q", unwanted)
		}
	}

	s := g.Summary
	if !strings.HasPrefix(s.RunID, "run-") {
		t.Errorf("run id = %q", s.RunID)
	}
	if s.Stats.Nodes != 3 || s.Stats.Edges != 2 {
		t.Errorf("stats = %+v, want 3 nodes and 2 edges", s.Stats)
	}
	if s.Bytes != len(g.Text) {
		t.Errorf("bytes = %d, want %d", s.Bytes, len(g.Text))
	}
	if len(g.Items) != 3 || g.Depths["P-2"] != 1 || g.Depths["P-1"] != 0 {
		t.Errorf("items=%d depths=%v", len(g.Items), g.Depths)
	}
}

func TestRender_DepthLimitTrims(t *testing.T) {
	src := newFakeSource(epic("P-1"), story("P-2", "P-1"))
	opts := DefaultOptions()
	opts.Walk.DepthLimit = intPtr(0)

	g := render(t, src, nil, opts, "P-1")
	if strings.Contains(g.Text, `"P-2"`) {
		t.Errorf("P-2 is beyond the limit and should be trimmed:\n%s", g.Text)
	}
	if g.Summary.Stats.Excluded != 1 {
		t.Errorf("excluded = %d, want 1", g.Summary.Stats.Excluded)
	}
}

func TestRender_SmallerNodesBelowSeed(t *testing.T) {
	src := newFakeSource(epic("P-1"), story("P-2", "P-1"))
	opts := DefaultOptions()
	opts.Walk.DepthLimit = intPtr(1)

	g := render(t, src, nil, opts, "P-1")
	for _, line := range strings.Split(g.Text, ";\n") {
		switch {
		case strings.HasPrefix(line, `"P-2" [`):
			if !strings.Contains(line, `penwidth="0.5"`) || !strings.Contains(line, `fontsize="12"`) {
				t.Errorf("P-2 should be drawn smaller: %s", line)
			}
		case strings.HasPrefix(line, `"P-1" [`):
			if strings.Contains(line, "penwidth") {
				t.Errorf("seed should keep its size: %s", line)
			}
		}
	}
}

func TestRender_ExcludeEmptyEpics(t *testing.T) {
	src := newFakeSource(
		epic("P-1"), story("P-2", "P-1", "x"),
		epic("P-9"),
	)
	src.items["P-2"].Links = []*model.Link{relates("P-9")}

	for _, tc := range []struct {
		name    string
		exclude bool
		want9   bool
	}{
		{"kept by default", false, true},
		{"dropped", true, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.ExcludeEmptyEpics = tc.exclude
			g := render(t, src, nil, opts, "P-1")
			if got := strings.Contains(g.Text, `"P-9"`); got != tc.want9 {
				t.Errorf("P-9 present = %v, want %v:\n%s", got, tc.want9, g.Text)
			}
			if !strings.Contains(g.Text, `"P-1" [`) {
				t.Errorf("non-empty epic P-1 must stay:\n%s", g.Text)
			}
		})
	}
}

func TestEmptyEpics_IgnoresExcludedChildren(t *testing.T) {
	s := store.New(nil)
	s.Put(epic("P-1"))
	s.Put(story("P-2", "P-1"))

	if got := EmptyEpics(s, nil); len(got) != 0 {
		t.Errorf("EmptyEpics() = %v, want none", got)
	}
	if got := EmptyEpics(s, map[string]bool{"P-2": true}); !got["P-1"] {
		t.Errorf("EmptyEpics() = %v, want P-1 (only child excluded)", got)
	}
}

const labelConfig = `
labels:
  - name: pay
    group: [payments, billing]
    orientation: root
  - ignore: [wip]
`

func TestRender_Labels(t *testing.T) {
	src := newFakeSource(
		epic("P-1"),
		story("P-2", "P-1", "Payments", "wip", "ops"),
		story("P-3", "P-1", "billing"),
	)
	styler := &dot.Styler{Styles: mustStyles(t, labelConfig), Links: dot.WebLinker{BaseURL: "https://t.example"}}
	opts := DefaultOptions()
	opts.IncludeLabels = true
	opts.HideLabels = []string{"OPS"}

	g := render(t, src, styler, opts, "P-1")

	for _, want := range []string{
		"// Labels",
		`"pay" [href="https://t.example/issues/?jql=labels%20in%20%28pay%29%20and%20not%20statusCategory%20%3D%20Done"]`,
		`"pay"->"P-2"[]`,
		`"pay"->"P-3"[]`,
		`"P-2"->"ops"[style="invis"]`,
		`orientation="180",style="invis",label="."`,
	} {
		if !strings.Contains(g.Text, want) {
			t.Errorf("document missing %q:\n%s", want, g.Text)
		}
	}
	if strings.Contains(g.Text, `"wip"`) {
		t.Errorf("ignored label drawn:\n%s", g.Text)
	}
	if g.Summary.Stats.Labels != 2 {
		t.Errorf("labels = %d, want 2", g.Summary.Stats.Labels)
	}
}

func TestConsolidate(t *testing.T) {
	alias := mustStyles(t, labelConfig).LabelAlias
	got := consolidate(map[string][]string{
		"Payments": {"A-1", "A-2"},
		"billing":  {"A-2", "A-3"},
		"wip":      {"A-1"},
		"Other":    {"A-4"},
	}, alias)

	want := map[string][]string{
		"pay":   {"A-1", "A-2", "A-3"},
		"other": {"A-4"},
	}
	if len(got) != len(want) {
		t.Fatalf("consolidate() = %v, want %v", got, want)
	}
	for label, items := range want {
		if strings.Join(got[label], ",") != strings.Join(items, ",") {
			t.Errorf("%s = %v, want %v", label, got[label], items)
		}
	}
}

func TestRender_Subgraphs(t *testing.T) {
	src := newFakeSource(epic("P-1"), story("P-2", "P-1", "pay"), story("P-3", "P-1", "pay"))
	opts := DefaultOptions()
	opts.Subgraphs = true
	opts.IncludeLabels = true

	g := render(t, src, nil, opts, "P-1")
	for _, want := range []string{"// Subgraphs", "subgraph cluster_p_1 {", "subgraph cluster_p_1_open {"} {
		if !strings.Contains(g.Text, want) {
			t.Errorf("document missing %q:\n%s", want, g.Text)
		}
	}
	if strings.Contains(g.Text, "; ;") || strings.Contains(g.Text, ";\n;") {
		t.Errorf("empty statements not collapsed:\n%s", g.Text)
	}
}

func TestRender_SkipsExcludedSeeds(t *testing.T) {
	src := newFakeSource(epic("P-1"))
	opts := DefaultOptions()
	opts.Walk.ExcludeItems = []string{"P-1"}

	g := render(t, src, nil, opts, "P-1")
	if src.calls != 0 {
		t.Errorf("excluded seed fetched %d times", src.calls)
	}
	if strings.Contains(g.Text, "// Graph") {
		t.Errorf("expected empty graph:\n%s", g.Text)
	}
}

func TestRender_FetchErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	src := newFakeSource(epic("P-1"))
	src.fail["P-2"] = boom

	_, err := New(src, nil, DefaultOptions(), nil).Render(context.Background(), []string{"P-1", "P-2"})
	if !errors.Is(err, boom) {
		t.Fatalf("Render() error = %v, want %v", err, boom)
	}
}

func TestRender_Arguments(t *testing.T) {
	opts := DefaultOptions()
	opts.RankDir = "LR"
	opts.Arguments = []string{"--jql=project = P", "-d", "2"}

	g := render(t, newFakeSource(), nil, opts)
	want := `digraph{rankdir="LR";labelloc="t";labeljust="c";label="-d 2 \n--jql=project = P";node [`
	if !strings.HasPrefix(g.Text, want) {
		t.Errorf("header = %q, want prefix %q", g.Text, want)
	}
}

func TestArgumentsLabel(t *testing.T) {
	for _, tc := range []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"P-1", "--word-wrap"}, "P-1 --word-wrap"},
		{[]string{"--jql=a", "P-1"}, `P-1 \n--jql=a`},
		{[]string{`--jql=summary ~ "x"`}, `\n--jql=summary ~ \"x\"`},
	} {
		if got := ArgumentsLabel(tc.args); got != tc.want {
			t.Errorf("ArgumentsLabel(%q) = %q, want %q", tc.args, got, tc.want)
		}
	}
}

func TestColorDemo(t *testing.T) {
	styles := mustStyles(t, `
color-setting:
  fill-colors: [red, green]
workflows:
  - issue-types: [Story]
    states: [Open, Done]
  - issue-types: []
    states: [Ignored]
`)
	stmts := ColorDemo(&dot.Styler{Styles: styles, Links: dot.WebLinker{BaseURL: "https://t.example"}})
	if len(stmts) != 2 {
		t.Fatalf("ColorDemo() = %d statements, want 2", len(stmts))
	}
	if got := stmts[0].String(); got != `"STORY-000"->"STORY-001"[]` {
		t.Errorf("chain = %q", got)
	}
	group, ok := stmts[1].(*dot.Group)
	if !ok || len(group.Nodes) != 2 {
		t.Fatalf("expected group of 2 nodes, got %#v", stmts[1])
	}
	for _, n := range group.Nodes {
		if _, ok := n.Attrs.Get("href"); ok {
			t.Errorf("demo node %s should not link", n.ID)
		}
	}
	if fill, _ := group.Nodes[0].Attrs.Get("fillcolor"); fill != "red" {
		t.Errorf("first state fill = %q, want red", fill)
	}
	if fill, _ := group.Nodes[1].Attrs.Get("fillcolor"); fill != "green" {
		t.Errorf("last state fill = %q, want green", fill)
	}
}

func TestRender_ColorDemoSeed(t *testing.T) {
	styles := mustStyles(t, "workflows:\n  - issue-types: [Bug]\n    states: [New, Fixed]\n")
	src := newFakeSource()
	g := render(t, src, &dot.Styler{Styles: styles}, DefaultOptions(), ColorDemoSeed)

	if src.calls != 0 {
		t.Errorf("color demo fetched %d items", src.calls)
	}
	if !strings.Contains(g.Text, `"BUG-000"->"BUG-001"`) || !strings.Contains(g.Text, "subgraph {") {
		t.Errorf("demo missing:\n%s", g.Text)
	}
}

func TestOutputName(t *testing.T) {
	at := time.Date(2026, 10, 18, 9, 5, 7, 0, time.UTC)
	many := []string{"A-1", "A-2", "A-3", "A-4", "A-5", "A-6", "A-7", "A-8", "A-9", "A-10", "A-11"}
	for _, tc := range []struct {
		seeds []string
		jql   string
		want  string
	}{
		{nil, "", "graph.graph.20261018T090507"},
		{[]string{"P-1", "P-2"}, "", "P-1-P-2.graph.20261018T090507"},
		{many, "", "A-1-A-2-A-3-A-4-A-5-A-6-A-7-A-8-A-9-A-10.graph.20261018T090507"},
		{[]string{"P-1"}, `project = "P" AND status != Done`, "project_P_AND_status_Done.graph.20261018T090507"},
	} {
		if got := OutputName(tc.seeds, tc.jql, at); got != tc.want {
			t.Errorf("OutputName(%v, %q) = %q, want %q", tc.seeds, tc.jql, got, tc.want)
		}
	}
}

type fakeSearcher struct {
	keys []string
	err  error
}

func (f fakeSearcher) ListKeys(context.Context, string) ([]string, error) { return f.keys, f.err }

func TestResolveSeeds(t *testing.T) {
	ctx := context.Background()
	got, err := ResolveSeeds(ctx, fakeSearcher{keys: []string{"Q-1", "Q-2"}}, []string{"P-1"}, "project = Q")
	if err != nil {
		t.Fatalf("ResolveSeeds() error = %v", err)
	}
	if strings.Join(got, ",") != "P-1,Q-1,Q-2" {
		t.Errorf("ResolveSeeds() = %v", got)
	}

	got, err = ResolveSeeds(ctx, nil, []string{"P-1"}, "")
	if err != nil || len(got) != 1 {
		t.Errorf("ResolveSeeds() without query = %v, %v", got, err)
	}

	if _, err := ResolveSeeds(ctx, nil, nil, "project = Q"); err == nil {
		t.Error("expected error without a searcher")
	}
	boom := errors.New("boom")
	if _, err := ResolveSeeds(ctx, fakeSearcher{err: boom}, nil, "x"); !errors.Is(err, boom) {
		t.Errorf("ResolveSeeds() error = %v, want %v", err, boom)
	}
}

func TestLabelQuery(t *testing.T) {
	if got, want := LabelQuery("web/api"), "labels in (web, api) and not statusCategory = Done"; got != want {
		t.Errorf("LabelQuery() = %q, want %q", got, want)
	}
}
