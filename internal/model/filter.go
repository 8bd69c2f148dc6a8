package model

// ItemFilter holds criteria for querying items.
type ItemFilter struct {
	// EpicKey selects items whose epic (structural parent) link points at this key.
	EpicKey string `json:"epic_key,omitempty"`
	// ExcludeStatus drops items in any of these states (case-insensitive).
	ExcludeStatus []string `json:"exclude_status,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}
