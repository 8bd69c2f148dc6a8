// Package client fetches work items from the tracker's REST API and maps its
// JSON payloads onto the model types used by the graph walker.
package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// MaxQueryResults caps the number of keys a single JQL search returns.
const MaxQueryResults = 300

// Fields is the field list requested for every item.
var Fields = []string{
	"key", "summary", "status", "description", "issuetype",
	"issuelinks", "subtasks", "labels", "assignee", "parent",
}

// ItemClient is the interface the graph commands use to talk to the tracker.
// It is implemented by HTTPClient and satisfies store.Source.
type ItemClient interface {
	GetItem(ctx context.Context, key string) (*model.Item, error)
	QueryItems(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error)
	Searcher
	Close() error
}

// Searcher resolves a JQL query to item keys.
type Searcher interface {
	ListKeys(ctx context.Context, jql string) ([]string, error)
}

// Auth selects how requests are authenticated. Cookie takes precedence over
// basic credentials; with neither set requests are anonymous.
type Auth struct {
	User     string
	Password string
	Cookie   string // JSESSIONID value
}

// EpicJQL builds the search that lists the members of an epic.
func EpicJQL(filter model.ItemFilter) string {
	jql := fmt.Sprintf("%q = %q", "Epic Link", filter.EpicKey)
	if len(filter.ExcludeStatus) > 0 {
		quoted := make([]string, len(filter.ExcludeStatus))
		for i, s := range filter.ExcludeStatus {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		jql += " AND status not in (" + strings.Join(quoted, ", ") + ")"
	}
	return jql
}
