package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// streamHistory is the number of recent events kept for clients that
	// reconnect with Last-Event-ID.
	streamHistory = 256

	// streamKeepalive is how often an idle stream gets a comment line.
	streamKeepalive = 15 * time.Second
)

// streamEvent is one event sent to SSE clients.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte // JSON-encoded payload
}

// sseHub fans events out to connected SSE clients and remembers the most
// recent ones for replay.
type sseHub struct {
	mu      sync.Mutex
	lastID  uint64
	history []streamEvent
	clients map[*sseClient]struct{}
}

// sseClient is one connected stream.
type sseClient struct {
	topics []string // NATS-style patterns; empty matches everything
	ch     chan streamEvent
	sent   uint64 // highest ID written; owned by the streaming handler
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast assigns the next ID to an event, records it and offers it to
// every matching client. Slow clients miss events instead of blocking.
func (h *sseHub) broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	evt := streamEvent{ID: h.lastID, Topic: topic, Data: payload}
	h.history = append(h.history, evt)
	if len(h.history) > streamHistory {
		h.history = h.history[len(h.history)-streamHistory:]
	}

	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

func (h *sseHub) subscribe(topics []string) *sseClient {
	c := &sseClient{topics: topics, ch: make(chan streamEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns the remembered events newer than id, oldest first.
func (h *sseHub) since(id uint64) []streamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, evt := range h.history {
		if evt.ID > id {
			return append([]streamEvent(nil), h.history[i:]...)
		}
	}
	return nil
}

func (c *sseClient) wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if matchTopic(p, topic) {
			return true
		}
	}
	return false
}

// matchTopic matches a dot-separated topic against a NATS-style pattern:
// "*" matches one segment and a trailing ">" matches one or more.
func matchTopic(pattern, topic string) bool {
	for {
		p, pRest, pMore := strings.Cut(pattern, ".")
		if p == ">" {
			return topic != ""
		}
		t, tRest, tMore := strings.Cut(topic, ".")
		if p != "*" && p != t {
			return false
		}
		if !pMore || !tMore {
			return pMore == tMore
		}
		pattern, topic = pRest, tRest
	}
}

// handleEventStream handles GET /v1/events/stream.
//
// The optional topics parameter is a comma-separated list of patterns. A
// Last-Event-ID header replays remembered events newer than that ID.
func (s *GraphServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	client := s.sseHub.subscribe(topics)
	defer s.sseHub.unsubscribe(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if id, err := strconv.ParseUint(last, 10, 64); err == nil {
			for _, evt := range s.sseHub.since(id) {
				if client.wants(evt.Topic) {
					client.send(w, evt)
				}
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			if client.send(w, evt) {
				flusher.Flush()
			}
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// send writes evt unless an event with the same or a later ID was already
// written. Events broadcast while history is replayed arrive on both paths.
func (c *sseClient) send(w io.Writer, evt streamEvent) bool {
	if evt.ID <= c.sent {
		return false
	}
	c.sent = evt.ID
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
	return true
}
