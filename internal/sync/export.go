package sync

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string             `json:"version"`
	Type      string             `json:"type"`
	Summary   model.GraphSummary `json:"summary"`
	ItemCount int                `json:"item_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// walkedItem is an item together with the depth it was reached at. Depth is
// nil for items the walk fetched but never reached.
type walkedItem struct {
	*model.Item
	Depth *int `json:"depth,omitempty"`
}

// ExportJSONL writes a snapshot of one run as JSONL to w: a header with the
// run summary, then every fetched item sorted by key with its depth.
func ExportJSONL(w io.Writer, summary model.GraphSummary, items []*model.Item, depths map[string]int) error {
	sorted := append([]*model.Item(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Summary:   summary,
		ItemCount: len(sorted),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, item := range sorted {
		rec := walkedItem{Item: item}
		if d, ok := depths[item.Key]; ok {
			rec.Depth = &d
		}
		if err := enc.Encode(record{Type: "item", Data: rec}); err != nil {
			return fmt.Errorf("encode item %s: %w", item.Key, err)
		}
	}
	return nil
}
