// Package events publishes graph run notifications to an event bus so other
// systems can pick up freshly rendered graphs.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// Event topic constants
const (
	TopicGraphRendered = "issuegraph.graph.rendered"
	TopicGraphFailed   = "issuegraph.graph.failed"
	TopicGraphStored   = "issuegraph.graph.stored"

	// TopicAll matches every topic above.
	TopicAll = "issuegraph.>"
)

// Event types

type GraphRendered struct {
	Summary model.GraphSummary `json:"summary"`
}

type GraphFailed struct {
	Seeds []string  `json:"seeds"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// GraphStored reports that a rendered graph was written to a destination.
type GraphStored struct {
	RunID       string `json:"run_id"`
	Destination string `json:"destination"`
	Location    string `json:"location"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
