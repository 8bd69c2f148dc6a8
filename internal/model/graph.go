package model

import "time"

// GraphStats holds aggregate counts for one rendered graph.
type GraphStats struct {
	Nodes    int `json:"nodes"`
	Edges    int `json:"edges"`
	Labels   int `json:"labels"`
	Excluded int `json:"excluded"`
}

// GraphSummary describes a rendered graph without its body.
type GraphSummary struct {
	RunID      string     `json:"run_id"`
	Seeds      []string   `json:"seeds"`
	Stats      GraphStats `json:"stats"`
	Bytes      int        `json:"bytes"`
	RenderedAt time.Time  `json:"rendered_at"`
}
