// Package idgen generates run identifiers. Every rendered graph carries one
// so its published event, stored file and snapshot can be correlated.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RunPrefix marks graph run identifiers.
const RunPrefix = "run-"

// alphabet is lower-case so identifiers are safe in object keys and file
// names on case-insensitive filesystems.
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// runLength is the number of random characters after the prefix.
const runLength = 12

// NewRunID returns a fresh run identifier such as "run-4k2j9x0qa1bz".
func NewRunID() (string, error) {
	id, err := nanoid.Generate(alphabet, runLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return RunPrefix + id, nil
}
