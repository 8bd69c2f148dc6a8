package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/alfredjeanlab/issuegraph/internal/events"
	"github.com/alfredjeanlab/issuegraph/internal/graph"
	"github.com/alfredjeanlab/issuegraph/internal/model"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// fakeSource serves items from a map.
type fakeSource struct {
	mu    sync.Mutex
	items map[string]*model.Item
	err   error
}

func newFakeSource(items ...*model.Item) *fakeSource {
	s := &fakeSource{items: make(map[string]*model.Item)}
	for _, it := range items {
		s.items[it.Key] = it
	}
	return s
}

func (s *fakeSource) GetItem(_ context.Context, key string) (*model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
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
		if it.Parent == filter.EpicKey && !it.HasStatus(filter.ExcludeStatus) {
			clone := *it
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type fakeSearcher struct {
	keys []string
	jql  string
}

func (s *fakeSearcher) ListKeys(_ context.Context, jql string) ([]string, error) {
	s.jql = jql
	return s.keys, nil
}

// recordingPublisher keeps every published topic.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func testItems() []*model.Item {
	return []*model.Item{
		{Key: "PROJ-1", Type: model.TypeEpic, Status: "Open", Summary: "Epic"},
		{Key: "PROJ-2", Type: model.TypeStory, Status: "Open", Summary: "Story", Parent: "PROJ-1", Labels: []string{"infra"}},
		{Key: "PROJ-3", Type: model.TypeStory, Status: "Closed", Summary: "Other", Parent: "PROJ-1"},
	}
}

func newTestServer() (*GraphServer, *fakeSource, http.Handler) {
	src := newFakeSource(testItems()...)
	srv := NewGraphServer(src, nil, nil, graph.DefaultOptions(), nil, nil)
	return srv, src, srv.NewHTTPHandler("")
}

func doRequest(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	_, _, h := newTestServer()
	rec := doRequest(t, h, "/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body)
	}
}

func TestHandleGetGraph_DOT(t *testing.T) {
	_, _, h := newTestServer()
	rec := doRequest(t, h, "/v1/graph?seed=PROJ-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != ContentTypeDOT {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Header().Get("X-Run-ID"), "run-") {
		t.Fatalf("X-Run-ID = %q", rec.Header().Get("X-Run-ID"))
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "digraph{") {
		t.Fatalf("expected DOT document, got:\n%s", body)
	}
	for _, key := range []string{"PROJ-1", "PROJ-2", "PROJ-3"} {
		if !strings.Contains(body, key) {
			t.Errorf("expected %s in graph, got:\n%s", key, body)
		}
	}
}

func TestHandleGetGraph_JSON(t *testing.T) {
	_, _, h := newTestServer()
	rec := doRequest(t, h, "/v1/graph?seeds=PROJ-1,PROJ-2&format=json&labels=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Summary model.GraphSummary `json:"summary"`
		Text    string             `json:"text"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Summary.Seeds) != 2 {
		t.Errorf("seeds = %v", resp.Summary.Seeds)
	}
	if resp.Summary.Stats.Labels != 1 {
		t.Errorf("labels = %d, want 1", resp.Summary.Stats.Labels)
	}
	if resp.Summary.Bytes != len(resp.Text) {
		t.Errorf("bytes = %d, text length %d", resp.Summary.Bytes, len(resp.Text))
	}
}

func TestHandleGetGraph_IgnoreClosed(t *testing.T) {
	_, _, h := newTestServer()
	rec := doRequest(t, h, "/v1/graph?seed=PROJ-1&ignore_closed=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "PROJ-3") {
		t.Fatalf("closed item should be skipped, got:\n%s", rec.Body.String())
	}
}

func TestHandleGetGraph_BadRequest(t *testing.T) {
	_, _, h := newTestServer()
	for _, tc := range []struct {
		name   string
		target string
	}{
		{"no seeds", "/v1/graph"},
		{"blank seed", "/v1/graph?seed=%20"},
		{"negative depth", "/v1/graph?seed=PROJ-1&depth=-1"},
		{"bad depth", "/v1/graph?seed=PROJ-1&depth=two"},
		{"bad bool", "/v1/graph?seed=PROJ-1&labels=maybe"},
		{"bad rankdir", "/v1/graph?seed=PROJ-1&rankdir=UP"},
		{"jql without searcher", "/v1/graph?jql=project%3DPROJ"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, tc.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d; body: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleGetGraph_NotFound(t *testing.T) {
	_, _, h := newTestServer()
	rec := doRequest(t, h, "/v1/graph?seed=NOPE-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d; body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGetGraph_UpstreamError(t *testing.T) {
	_, src, h := newTestServer()
	src.err = errors.New("connection refused")
	rec := doRequest(t, h, "/v1/graph?seed=PROJ-1")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d; body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGetGraph_JQL(t *testing.T) {
	src := newFakeSource(testItems()...)
	searcher := &fakeSearcher{keys: []string{"PROJ-2"}}
	srv := NewGraphServer(src, searcher, nil, graph.DefaultOptions(), nil, nil)
	h := srv.NewHTTPHandler("")

	rec := doRequest(t, h, "/v1/graph?jql=labels%20%3D%20infra&format=json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	if searcher.jql != "labels = infra" {
		t.Errorf("jql = %q", searcher.jql)
	}
	var resp struct {
		Summary model.GraphSummary `json:"summary"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Summary.Seeds) != 1 || resp.Summary.Seeds[0] != "PROJ-2" {
		t.Errorf("seeds = %v", resp.Summary.Seeds)
	}
}

func TestHandleGetGraph_PublishesEvents(t *testing.T) {
	src := newFakeSource(testItems()...)
	pub := &recordingPublisher{}
	srv := NewGraphServer(src, nil, nil, graph.DefaultOptions(), pub, nil)
	h := srv.NewHTTPHandler("")

	doRequest(t, h, "/v1/graph?seed=PROJ-1")
	doRequest(t, h, "/v1/graph?seed=NOPE-1")

	got := pub.published()
	want := []string{events.TopicGraphRendered, events.TopicGraphFailed}
	if len(got) != len(want) {
		t.Fatalf("published = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("published[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRequestOptions(t *testing.T) {
	srv, _, _ := newTestServer()
	opts, err := srv.requestOptions(map[string][]string{
		"depth":               {"2"},
		"subgraphs":           {"1"},
		"exclude_empty_epics": {"true"},
		"ignore_subtasks":     {"true"},
		"rankdir":             {"lr"},
	})
	if err != nil {
		t.Fatalf("requestOptions: %v", err)
	}
	if opts.Walk.DepthLimit == nil || *opts.Walk.DepthLimit != 2 {
		t.Errorf("depth = %v", opts.Walk.DepthLimit)
	}
	if !opts.Subgraphs || !opts.ExcludeEmptyEpics || !opts.Walk.IgnoreSubtasks {
		t.Errorf("flags not applied: %+v", opts)
	}
	if opts.RankDir != "LR" {
		t.Errorf("rankdir = %q", opts.RankDir)
	}
	if srv.opts.Walk.DepthLimit != nil {
		t.Error("base options were modified")
	}
}

func TestHandleGetItem(t *testing.T) {
	_, _, h := newTestServer()

	rec := doRequest(t, h, "/v1/items/PROJ-2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	var item model.Item
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.Key != "PROJ-2" || item.Parent != "PROJ-1" {
		t.Errorf("unexpected item: %+v", item)
	}

	rec = doRequest(t, h, "/v1/items/NOPE-9")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNewHTTPHandler_Auth(t *testing.T) {
	srv, _, _ := newTestServer()
	h := srv.NewHTTPHandler("secret")

	if rec := doRequest(t, h, "/v1/health"); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := doRequest(t, h, "/v1/graph?seed=PROJ-1"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("graph without token: expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/graph?seed=PROJ-1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("graph with token: expected 200, got %d", rec.Code)
	}
}
