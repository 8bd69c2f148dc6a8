package model

// Direction is the side of a link an item sits on.
type Direction string

const (
	DirectionInward  Direction = "inward"
	DirectionOutward Direction = "outward"
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks whether the direction is a known value.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionInward, DirectionOutward:
		return true
	}
	return false
}

// Well-known link type names.
const (
	LinkBlocks    = "Blocks"
	LinkRelates   = "Relates"
	LinkDuplicate = "Duplicate"
	LinkCloners   = "Cloners"
)

// Link is a typed cross-reference from one item to another.
type Link struct {
	// Type is the relation name shared by both sides (e.g. "Blocks").
	Type string `json:"type"`
	// Label is the direction-specific wording (e.g. "is blocked by").
	Label string `json:"label"`
	// Direction is the side of the relation the linked item sits on.
	Direction Direction `json:"direction"`
	// Key identifies the linked item.
	Key string `json:"key"`
	// Status is the linked item's status as embedded in the link payload.
	Status string `json:"status,omitempty"`
}

// IsSymmetric reports whether the link type has no natural orientation.
func (l *Link) IsSymmetric() bool {
	switch l.Type {
	case LinkRelates, LinkDuplicate, LinkCloners:
		return true
	}
	return false
}
