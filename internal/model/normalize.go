package model

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// SnakeCase normalizes an identity, state or label for use as a structural key:
// every run of non-word characters becomes a single underscore and the result
// is lower-cased. "PROJ-12" becomes "proj_12", "In Progress" becomes "in_progress".
func SnakeCase(s string) string {
	return strings.ToLower(nonWord.ReplaceAllString(s, "_"))
}
