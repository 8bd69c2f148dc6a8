package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/alfredjeanlab/issuegraph/internal/model"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	mu sync.Mutex

	// captured from the request
	method string
	path   string
	query  url.Values
	header http.Header

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.Query()
	h.header = r.Header.Clone()
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler, auth Auth) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	return NewHTTPClient(srv.URL, auth, false), srv
}

const storyJSON = `{
  "key": "PROJ-2",
  "fields": {
    "summary": "Checkout flow",
    "description": "Line one\nLine two",
    "status": {"name": "In Progress", "statusCategory": {"name": "In Progress"}},
    "issuetype": {"name": "Story"},
    "labels": ["payments", "web/checkout"],
    "assignee": {"displayName": "Ada Lovelace", "emailAddress": "ada@example.com"},
    "parent": {"key": "PROJ-1", "fields": {"issuetype": {"name": "Epic"}}},
    "subtasks": [
      {"key": "PROJ-3", "fields": {"status": {"name": "Open"}, "issuetype": {"name": "Sub-task"}}}
    ],
    "issuelinks": [
      {"type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"},
       "outwardIssue": {"key": "PROJ-4", "fields": {"status": {"name": "Closed"}}}},
      {"type": {"name": "Relates", "inward": "relates to", "outward": "relates to"},
       "inwardIssue": {"key": "OTHER-9", "fields": {"status": {"name": "Open"}}}},
      {"type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"}}
    ]
  }
}`

// --- GetItem ---

func TestHTTPClient_GetItem(t *testing.T) {
	h := &testHandler{responseBody: storyJSON}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	item, err := c.GetItem(context.Background(), "PROJ-2")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}

	if h.method != http.MethodGet {
		t.Errorf("method = %q, want GET", h.method)
	}
	if h.path != "/rest/api/latest/issue/PROJ-2" {
		t.Errorf("path = %q, want /rest/api/latest/issue/PROJ-2", h.path)
	}
	if got := h.query.Get("fields"); got != strings.Join(Fields, ",") {
		t.Errorf("fields = %q", got)
	}

	if item.Key != "PROJ-2" || item.Type != model.TypeStory {
		t.Errorf("key/type = %q/%q", item.Key, item.Type)
	}
	if item.Summary != "Checkout flow" {
		t.Errorf("summary = %q", item.Summary)
	}
	if item.Description != "Line one\nLine two" {
		t.Errorf("description = %q", item.Description)
	}
	if item.Status != "In Progress" || item.StatusCategory != "In Progress" {
		t.Errorf("status = %q/%q", item.Status, item.StatusCategory)
	}
	if item.Parent != "PROJ-1" {
		t.Errorf("parent = %q, want PROJ-1", item.Parent)
	}
	if item.Assignee.Initials() != "AD" || item.Assignee.Name() != "Ada Lovelace" {
		t.Errorf("assignee = %+v", item.Assignee)
	}
	if len(item.Labels) != 2 || item.Labels[1] != "web/checkout" {
		t.Errorf("labels = %v", item.Labels)
	}
	if len(item.Subtasks) != 1 {
		t.Fatalf("subtasks = %d, want 1", len(item.Subtasks))
	}
	if st := item.Subtasks[0]; st.Key != "PROJ-3" || st.Status != "Open" || st.Type != model.TypeSubtask {
		t.Errorf("subtask = %+v", st)
	}
	if item.Partial {
		t.Error("fetched item should not be partial")
	}
}

func TestHTTPClient_GetItem_Links(t *testing.T) {
	h := &testHandler{responseBody: storyJSON}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	item, err := c.GetItem(context.Background(), "PROJ-2")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if len(item.Links) != 2 {
		t.Fatalf("links = %d, want 2 (link with no target dropped)", len(item.Links))
	}

	for i, want := range []model.Link{
		{Type: "Blocks", Label: "blocks", Direction: model.DirectionOutward, Key: "PROJ-4", Status: "Closed"},
		{Type: "Relates", Label: "relates to", Direction: model.DirectionInward, Key: "OTHER-9", Status: "Open"},
	} {
		if got := *item.Links[i]; got != want {
			t.Errorf("links[%d] = %+v, want %+v", i, got, want)
		}
	}
}

func TestHTTPClient_GetItem_MinimalFields(t *testing.T) {
	h := &testHandler{responseBody: `{"key": "PROJ-7", "fields": {"description": {"type": "doc"}, "assignee": null}}`}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	item, err := c.GetItem(context.Background(), "PROJ-7")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if item.Assignee != nil {
		t.Errorf("assignee = %+v, want nil", item.Assignee)
	}
	if item.Description != "" || item.Status != "" || item.Type != "" || item.Parent != "" {
		t.Errorf("expected empty fields, got %+v", item)
	}
}

func TestHTTPClient_GetItem_URLEscaping(t *testing.T) {
	h := &testHandler{responseBody: `{"key": "a/b"}`}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	if _, err := c.GetItem(context.Background(), "a/b"); err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if h.path != "/rest/api/latest/issue/a/b" {
		t.Errorf("path = %q", h.path)
	}
}

// --- Auth ---

func TestHTTPClient_Auth(t *testing.T) {
	for _, tc := range []struct {
		name       string
		auth       Auth
		wantBasic  bool
		wantCookie string
	}{
		{name: "anonymous"},
		{name: "basic", auth: Auth{User: "ada", Password: "s3cret"}, wantBasic: true},
		{name: "cookie", auth: Auth{Cookie: "ABC123"}, wantCookie: "JSESSIONID=ABC123"},
		{name: "cookie wins", auth: Auth{User: "ada", Password: "x", Cookie: "ABC123"}, wantCookie: "JSESSIONID=ABC123"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{responseBody: `{"key": "PROJ-1"}`}
			c, srv := newTestClient(h, tc.auth)
			defer srv.Close()

			if _, err := c.GetItem(context.Background(), "PROJ-1"); err != nil {
				t.Fatalf("GetItem() error = %v", err)
			}
			req := &http.Request{Header: h.header}
			user, pass, ok := req.BasicAuth()
			if ok != tc.wantBasic {
				t.Errorf("basic auth present = %v, want %v", ok, tc.wantBasic)
			}
			if ok && (user != tc.auth.User || pass != tc.auth.Password) {
				t.Errorf("basic auth = %q/%q", user, pass)
			}
			if got := h.header.Get("Cookie"); got != tc.wantCookie {
				t.Errorf("cookie = %q, want %q", got, tc.wantCookie)
			}
		})
	}
}

// --- QueryItems ---

func TestHTTPClient_QueryItems(t *testing.T) {
	h := &testHandler{responseBody: `{"total": 2, "issues": [
		{"key": "PROJ-5", "fields": {"issuetype": {"name": "Story"}, "status": {"name": "Open"}}},
		{"key": "PROJ-6", "fields": {"issuetype": {"name": "Bug"}, "status": {"name": "Done"}}}
	]}`}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	items, err := c.QueryItems(context.Background(), model.ItemFilter{EpicKey: "PROJ-1", ExcludeStatus: []string{"Closed"}})
	if err != nil {
		t.Fatalf("QueryItems() error = %v", err)
	}
	if h.path != "/rest/api/latest/search" {
		t.Errorf("path = %q", h.path)
	}
	if got, want := h.query.Get("jql"), `"Epic Link" = "PROJ-1" AND status not in ("Closed")`; got != want {
		t.Errorf("jql = %q, want %q", got, want)
	}
	if got := h.query.Get("maxResults"); got != "300" {
		t.Errorf("maxResults = %q, want 300", got)
	}
	if len(items) != 2 || items[0].Key != "PROJ-5" || items[1].Type != model.TypeBug {
		t.Errorf("items = %+v", items)
	}
}

func TestHTTPClient_QueryItems_RequiresEpic(t *testing.T) {
	c := NewHTTPClient("http://localhost:9999", Auth{}, false)
	if _, err := c.QueryItems(context.Background(), model.ItemFilter{}); err == nil {
		t.Fatal("expected error for empty epic key")
	}
}

func TestEpicJQL(t *testing.T) {
	for _, tc := range []struct {
		filter model.ItemFilter
		want   string
	}{
		{model.ItemFilter{EpicKey: "E-1"}, `"Epic Link" = "E-1"`},
		{model.ItemFilter{EpicKey: "E-1", ExcludeStatus: []string{"Closed", "Won't Do"}},
			`"Epic Link" = "E-1" AND status not in ("Closed", "Won't Do")`},
	} {
		if got := EpicJQL(tc.filter); got != tc.want {
			t.Errorf("EpicJQL(%+v) = %q, want %q", tc.filter, got, tc.want)
		}
	}
}

// --- ListKeys ---

func TestHTTPClient_ListKeys(t *testing.T) {
	h := &testHandler{responseBody: `{"issues": [{"key": "A-1"}, {"key": "A-2"}]}`}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	keys, err := c.ListKeys(context.Background(), "project = A")
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if h.query.Get("jql") != "project = A" || h.query.Get("fields") != "key" {
		t.Errorf("query = %v", h.query)
	}
	if len(keys) != 2 || keys[0] != "A-1" || keys[1] != "A-2" {
		t.Errorf("keys = %v", keys)
	}
}

func TestHTTPClient_ListKeys_Empty(t *testing.T) {
	h := &testHandler{responseBody: `{"issues": []}`}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	keys, err := c.ListKeys(context.Background(), "project = A")
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if keys == nil || len(keys) != 0 {
		t.Errorf("keys = %v, want empty non-nil", keys)
	}
}

// --- Error handling ---

func TestHTTPClient_Error_ErrorMessages(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusNotFound,
		responseBody: `{"errorMessages": ["Issue does not exist or you do not have permission to see it."], "errors": {}}`,
	}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	_, err := c.GetItem(context.Background(), "NOPE-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if !strings.HasPrefix(apiErr.Message, "Issue does not exist") {
		t.Errorf("message = %q", apiErr.Message)
	}
	if !errors.Is(err, store.ErrNotFound) || !IsNotFound(err) {
		t.Error("404 should match store.ErrNotFound")
	}
}

func TestHTTPClient_Error_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal server error"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, Auth{}, false)
	_, err := c.GetItem(context.Background(), "PROJ-1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "internal server error" {
		t.Errorf("message = %q, want 'internal server error'", apiErr.Message)
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Error("500 should not match store.ErrNotFound")
	}
}

func TestHTTPClient_Error_FormatString(t *testing.T) {
	apiErr := &APIError{StatusCode: 403, Message: "forbidden"}
	want := "HTTP 403: forbidden"
	if apiErr.Error() != want {
		t.Errorf("Error() = %q, want %q", apiErr.Error(), want)
	}
}

func TestHTTPClient_Error_BadJSON(t *testing.T) {
	h := &testHandler{responseBody: `{"key": `}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	_, err := c.GetItem(context.Background(), "PROJ-1")
	if err == nil || !strings.Contains(err.Error(), "decoding response") {
		t.Errorf("error = %v, want decoding error", err)
	}
}

func TestHTTPClient_Error_CanceledContext(t *testing.T) {
	h := &testHandler{responseBody: `{"key": "PROJ-1"}`}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetItem(ctx, "PROJ-1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// --- Construction ---

func TestNewHTTPClient_TrimsTrailingSlash(t *testing.T) {
	c := NewHTTPClient("http://localhost:8080/", Auth{}, false)
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q, want 'http://localhost:8080'", c.baseURL)
	}
}

func TestNewHTTPClient_Insecure(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"key": "PROJ-1"}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPClient(srv.URL, Auth{}, false).GetItem(context.Background(), "PROJ-1"); err == nil {
		t.Error("expected certificate error without insecure")
	}
	if _, err := NewHTTPClient(srv.URL, Auth{}, true).GetItem(context.Background(), "PROJ-1"); err != nil {
		t.Errorf("insecure GetItem() error = %v", err)
	}
}

func TestHTTPClient_ImplementsInterfaces(t *testing.T) {
	var _ ItemClient = (*HTTPClient)(nil)
	var _ store.Source = (*HTTPClient)(nil)
}

func TestHTTPClient_ConcurrentRequests(t *testing.T) {
	h := &testHandler{responseBody: `{"key": "PROJ-1"}`}
	c, srv := newTestClient(h, Auth{})
	defer srv.Close()

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := c.GetItem(context.Background(), "PROJ-1")
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent request %d error = %v", i, err)
		}
	}
}
