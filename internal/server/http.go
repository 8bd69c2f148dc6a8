package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/issuegraph/internal/events"
	"github.com/alfredjeanlab/issuegraph/internal/graph"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// ContentTypeDOT is the media type of rendered graphs.
const ContentTypeDOT = "text/vnd.graphviz; charset=utf-8"

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *GraphServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/graph", s.handleGetGraph)
	mux.HandleFunc("GET /v1/items/{key}", s.handleGetItem)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return RecoveryMiddleware(s.logger, LoggingMiddleware(s.logger, AuthMiddleware(authToken, mux)))
}

// handleHealth handles GET /v1/health.
func (s *GraphServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// graphResponse is the JSON form of GET /v1/graph?format=json.
type graphResponse struct {
	Summary any    `json:"summary"`
	Text    string `json:"text"`
}

// handleGetGraph handles GET /v1/graph.
//
// Seeds come from repeated seed parameters, a comma-separated seeds
// parameter and the keys matched by jql. The DOT text is returned as-is
// unless format=json is given.
func (s *GraphServer) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := s.requestOptions(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	seeds := requestSeeds(q)
	jql := q.Get("jql")
	if jql != "" && s.searcher == nil {
		writeError(w, http.StatusBadRequest, "jql is not supported by this server")
		return
	}
	seeds, err = graph.ResolveSeeds(r.Context(), s.searcher, seeds, jql)
	if err != nil {
		s.writeRenderError(r.Context(), w, seeds, err)
		return
	}
	if len(seeds) == 0 {
		writeError(w, http.StatusBadRequest, "at least one seed or a jql query is required")
		return
	}

	g, err := s.renderer(opts).Render(r.Context(), seeds)
	if err != nil {
		s.writeRenderError(r.Context(), w, seeds, err)
		return
	}
	s.publish(r.Context(), events.TopicGraphRendered, events.GraphRendered{Summary: g.Summary})

	w.Header().Set("X-Run-ID", g.Summary.RunID)
	if q.Get("format") == "json" {
		writeJSON(w, http.StatusOK, graphResponse{Summary: g.Summary, Text: g.Text})
		return
	}
	w.Header().Set("Content-Type", ContentTypeDOT)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(g.Text))
}

// handleGetItem handles GET /v1/items/{key}.
func (s *GraphServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	item, err := s.source.GetItem(r.Context(), key)
	switch {
	case errors.Is(err, store.ErrNotFound) || (err == nil && item == nil):
		writeError(w, http.StatusNotFound, "item not found")
	case err != nil:
		writeError(w, http.StatusBadGateway, "failed to fetch item")
	default:
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *GraphServer) writeRenderError(ctx context.Context, w http.ResponseWriter, seeds []string, err error) {
	s.publish(ctx, events.TopicGraphFailed, events.GraphFailed{Seeds: seeds, Error: err.Error(), At: time.Now().UTC()})
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nobody to answer.
	default:
		s.logger.Error("render failed", "seeds", seeds, "error", err)
		writeError(w, http.StatusBadGateway, "failed to render graph")
	}
}

// requestSeeds collects seeds from the seed and seeds parameters.
func requestSeeds(q map[string][]string) []string {
	var seeds []string
	for _, v := range q["seed"] {
		if v = strings.TrimSpace(v); v != "" {
			seeds = append(seeds, v)
		}
	}
	for _, list := range q["seeds"] {
		for _, v := range strings.Split(list, ",") {
			if v = strings.TrimSpace(v); v != "" {
				seeds = append(seeds, v)
			}
		}
	}
	return seeds
}

// requestOptions overlays query parameters on the server's base options.
func (s *GraphServer) requestOptions(q map[string][]string) (graph.Options, error) {
	opts := s.opts
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	if v := get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, inputError(fmt.Sprintf("invalid depth %q", v))
		}
		opts.Walk.DepthLimit = &n
	}
	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"labels", &opts.IncludeLabels},
		{"subgraphs", &opts.Subgraphs},
		{"exclude_empty_epics", &opts.ExcludeEmptyEpics},
		{"ignore_closed", &opts.Walk.IgnoreClosed},
		{"ignore_epic", &opts.Walk.IgnoreEpic},
		{"ignore_subtasks", &opts.Walk.IgnoreSubtasks},
	} {
		v := get(b.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return opts, inputError(fmt.Sprintf("invalid %s %q", b.name, v))
		}
		*b.dst = parsed
	}
	if v := get("rankdir"); v != "" {
		switch strings.ToUpper(v) {
		case "TB", "BT", "LR", "RL":
			opts.RankDir = strings.ToUpper(v)
		default:
			return opts, inputError(fmt.Sprintf("invalid rankdir %q", v))
		}
	}
	return opts, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
