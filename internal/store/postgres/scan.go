package postgres

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanItem scans a single row into a model.Item.
// The row must contain columns in the order defined by itemColumns.
func scanItem(row scannable) (*model.Item, error) {
	var item model.Item
	var (
		parent        sql.NullString
		assigneeName  sql.NullString
		assigneeEmail sql.NullString
		labels        []string
	)

	err := row.Scan(
		&item.Key,
		&item.Type,
		&item.Summary,
		&item.Description,
		&item.Status,
		&item.StatusCategory,
		&parent,
		&assigneeName,
		&assigneeEmail,
		pq.Array(&labels),
	)
	if err != nil {
		return nil, err
	}

	item.Parent = parent.String
	if assigneeName.Valid || assigneeEmail.Valid {
		item.Assignee = &model.Assignee{
			DisplayName:  assigneeName.String,
			EmailAddress: assigneeEmail.String,
		}
	}
	if len(labels) > 0 {
		item.Labels = labels
	}
	return &item, nil
}

// scanItems scans all rows and closes them.
func scanItems(rows *sql.Rows) ([]*model.Item, error) {
	defer rows.Close()
	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// nullString converts an empty string to a NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func assigneeEmail(a *model.Assignee) string {
	if a == nil {
		return ""
	}
	return a.EmailAddress
}
