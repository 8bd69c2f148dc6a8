package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// itemColumns is the column list used for SELECT statements on the items table.
const itemColumns = `key, type, summary, description, status, status_category,
	parent, assignee_name, assignee_email, labels`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGetItem(ctx context.Context, db executor, key string) (*model.Item, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE key = $1`, key)
	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	if err := fillRelations(ctx, db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func queryListByParent(ctx context.Context, db executor, filter model.ItemFilter) ([]*model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE parent = $1`
	args := []any{filter.EpicKey}
	if len(filter.ExcludeStatus) > 0 {
		lowered := make([]string, len(filter.ExcludeStatus))
		for i, s := range filter.ExcludeStatus {
			lowered[i] = strings.ToLower(s)
		}
		query += ` AND NOT (lower(status) = ANY($2))`
		args = append(args, pq.Array(lowered))
	}
	query += ` ORDER BY key`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := fillRelations(ctx, db, item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func fillRelations(ctx context.Context, db executor, item *model.Item) error {
	links, err := queryGetLinks(ctx, db, item.Key)
	if err != nil {
		return err
	}
	item.Links = links

	subtasks, err := queryGetSubtasks(ctx, db, item.Key)
	if err != nil {
		return err
	}
	item.Subtasks = subtasks
	return nil
}

func queryGetLinks(ctx context.Context, db executor, key string) ([]*model.Link, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT link_type, label, direction, target_key, target_status
		FROM item_links WHERE item_key = $1 ORDER BY position`,
		key,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*model.Link
	for rows.Next() {
		var l model.Link
		if err := rows.Scan(&l.Type, &l.Label, &l.Direction, &l.Key, &l.Status); err != nil {
			return nil, err
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

func queryGetSubtasks(ctx context.Context, db executor, key string) ([]model.Subtask, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT subtask_key, status, type
		FROM item_subtasks WHERE item_key = $1 ORDER BY position`,
		key,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subtasks []model.Subtask
	for rows.Next() {
		var st model.Subtask
		if err := rows.Scan(&st.Key, &st.Status, &st.Type); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, st)
	}
	return subtasks, rows.Err()
}

func queryUpsertItem(ctx context.Context, db executor, item *model.Item) error {
	labels := item.Labels
	if labels == nil {
		labels = []string{}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO items (
			key, type, summary, description, status, status_category,
			parent, assignee_name, assignee_email, labels, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (key) DO UPDATE SET
			type = EXCLUDED.type,
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			status_category = EXCLUDED.status_category,
			parent = EXCLUDED.parent,
			assignee_name = EXCLUDED.assignee_name,
			assignee_email = EXCLUDED.assignee_email,
			labels = EXCLUDED.labels,
			fetched_at = now()`,
		item.Key,
		string(item.Type),
		item.Summary,
		item.Description,
		item.Status,
		item.StatusCategory,
		nullString(item.Parent),
		nullString(item.Assignee.Name()),
		nullString(assigneeEmail(item.Assignee)),
		pq.Array(labels),
	)
	return err
}

func queryReplaceLinks(ctx context.Context, db executor, key string, links []*model.Link) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM item_links WHERE item_key = $1`, key); err != nil {
		return err
	}
	for i, l := range links {
		_, err := db.ExecContext(ctx, `
			INSERT INTO item_links (item_key, position, link_type, label, direction, target_key, target_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			key, i, l.Type, l.Label, string(l.Direction), l.Key, l.Status,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func queryReplaceSubtasks(ctx context.Context, db executor, key string, subtasks []model.Subtask) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM item_subtasks WHERE item_key = $1`, key); err != nil {
		return err
	}
	for i, st := range subtasks {
		_, err := db.ExecContext(ctx, `
			INSERT INTO item_subtasks (item_key, position, subtask_key, status, type)
			VALUES ($1, $2, $3, $4, $5)`,
			key, i, st.Key, st.Status, string(st.Type),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
