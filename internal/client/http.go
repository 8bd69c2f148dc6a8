package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/issuegraph/internal/model"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

const apiPrefix = "/rest/api/latest"

// HTTPClient implements ItemClient against the tracker's REST API.
type HTTPClient struct {
	baseURL    string
	auth       Auth
	httpClient *http.Client
}

// NewHTTPClient creates a client targeting the given base URL
// (e.g. "https://tracker.example.com"). insecure disables TLS certificate
// verification.
func NewHTTPClient(baseURL string, auth Auth, insecure bool) *HTTPClient {
	hc := &http.Client{}
	if insecure {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
		hc.Transport = tr
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		auth:       auth,
		httpClient: hc,
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// GetItem fetches a single item with the standard field list.
func (c *HTTPClient) GetItem(ctx context.Context, key string) (*model.Item, error) {
	q := url.Values{}
	q.Set("fields", strings.Join(Fields, ","))

	var p issuePayload
	path := apiPrefix + "/issue/" + url.PathEscape(key) + "?" + q.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, &p); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	return p.toItem(), nil
}

// QueryItems lists the members of filter.EpicKey.
func (c *HTTPClient) QueryItems(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	if filter.EpicKey == "" {
		return nil, fmt.Errorf("query items: epic key is required")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = MaxQueryResults
	}
	resp, err := c.search(ctx, EpicJQL(filter), Fields, limit)
	if err != nil {
		return nil, err
	}
	items := make([]*model.Item, 0, len(resp.Issues))
	for i := range resp.Issues {
		items = append(items, resp.Issues[i].toItem())
	}
	return items, nil
}

// ListKeys returns the keys matching jql, at most MaxQueryResults of them.
func (c *HTTPClient) ListKeys(ctx context.Context, jql string) ([]string, error) {
	resp, err := c.search(ctx, jql, []string{"key"}, MaxQueryResults)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(resp.Issues))
	for _, is := range resp.Issues {
		keys = append(keys, is.Key)
	}
	return keys, nil
}

func (c *HTTPClient) search(ctx context.Context, jql string, fields []string, limit int) (*searchPayload, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("fields", strings.Join(fields, ","))
	q.Set("maxResults", strconv.Itoa(limit))

	var resp searchPayload
	if err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/search?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", jql, err)
	}
	return &resp, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is lets a 404 match store.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == store.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// doJSON performs an HTTP request and decodes the JSON response into result.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case c.auth.Cookie != "":
		req.AddCookie(&http.Cookie{Name: "JSESSIONID", Value: c.auth.Cookie})
	case c.auth.User != "":
		req.SetBasicAuth(c.auth.User, c.auth.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the server's error text, falling back to the raw body.
func errorMessage(body []byte) string {
	var errResp struct {
		Error         string   `json:"error"`
		ErrorMessages []string `json:"errorMessages"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if len(errResp.ErrorMessages) > 0 {
			return strings.Join(errResp.ErrorMessages, "; ")
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return string(body)
}

// IsNotFound reports whether err is a missing-item response.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
