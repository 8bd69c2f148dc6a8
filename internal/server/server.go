// Package server exposes graph rendering over HTTP and streams the
// resulting run events to subscribers.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alfredjeanlab/issuegraph/internal/client"
	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/events"
	"github.com/alfredjeanlab/issuegraph/internal/graph"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// GraphServer renders graphs on request from a shared item source.
type GraphServer struct {
	source    store.Source
	searcher  client.Searcher
	styler    *dot.Styler
	opts      graph.Options
	publisher events.Publisher
	sseHub    *sseHub
	logger    *slog.Logger
}

// NewGraphServer returns a server rendering with styler and base options.
// searcher may be nil, in which case JQL queries are rejected.
func NewGraphServer(source store.Source, searcher client.Searcher, styler *dot.Styler, opts graph.Options, p events.Publisher, logger *slog.Logger) *GraphServer {
	if p == nil {
		p = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GraphServer{
		source:    source,
		searcher:  searcher,
		styler:    styler,
		opts:      opts,
		publisher: p,
		sseHub:    newSSEHub(),
		logger:    logger,
	}
}

// renderer returns a pipeline for one request's options.
func (s *GraphServer) renderer(opts graph.Options) graph.Renderer {
	return graph.New(s.source, s.styler, opts, s.logger)
}

// publish sends an event to the bus and to SSE clients. Both are
// best-effort; failures are logged but do not fail the request.
func (s *GraphServer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
	s.broadcastEvent(topic, event)
}

// inputError indicates invalid user input. It maps to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// broadcastEvent fans an event out to SSE clients.
func (s *GraphServer) broadcastEvent(topic string, event any) {
	if s.sseHub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event for SSE broadcast", "topic", topic, "error", err)
		return
	}
	s.sseHub.broadcast(topic, payload)
}
