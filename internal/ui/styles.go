// Package ui formats command-line status output.
package ui

import (
	"fmt"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorSuccess = 114 // green
	colorError   = 203 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderSuccess returns s in the success (green) color.
func RenderSuccess(s string) string { return paint(colorSuccess, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return paint(colorError, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// FormatSummary describes a rendered graph in one line:
//
//	wrote PROJ-1.graph.20240301T093000.dot: 12 nodes, 15 edges, 2 labels, 3 excluded (run-abc)
func FormatSummary(location string, s model.GraphSummary) string {
	counts := fmt.Sprintf("%d nodes, %d edges, %d labels, %d excluded",
		s.Stats.Nodes, s.Stats.Edges, s.Stats.Labels, s.Stats.Excluded)
	return fmt.Sprintf("%s %s: %s %s",
		RenderSuccess("wrote"),
		RenderAccent(location),
		counts,
		RenderMuted("("+s.RunID+")"),
	)
}
