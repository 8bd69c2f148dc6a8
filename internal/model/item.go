package model

import "strings"

// ItemType categorizes the kind of work item.
// Trackers define their own types; only Epic changes how items are walked.
type ItemType string

// Well-known item types.
const (
	TypeEpic    ItemType = "Epic"
	TypeStory   ItemType = "Story"
	TypeTask    ItemType = "Task"
	TypeBug     ItemType = "Bug"
	TypeSubtask ItemType = "Sub-task"
)

// String returns the string representation of the item type.
func (t ItemType) String() string {
	return string(t)
}

// IsEpic reports whether the type is the epic type. Comparison is case-insensitive.
func (t ItemType) IsEpic() bool {
	return strings.EqualFold(string(t), string(TypeEpic))
}

// Well-known status category names.
const (
	CategoryToDo       = "To Do"
	CategoryInProgress = "In Progress"
	CategoryDone       = "Done"
)

// Assignee identifies the person an item is assigned to.
type Assignee struct {
	DisplayName  string `json:"display_name,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

// Initials returns the first two characters of the email address, upper-cased.
func (a *Assignee) Initials() string {
	if a == nil || a.EmailAddress == "" {
		return ""
	}
	email := []rune(a.EmailAddress)
	if len(email) > 2 {
		email = email[:2]
	}
	return strings.ToUpper(string(email))
}

// Name returns the display name, or "" for an unassigned item.
func (a *Assignee) Name() string {
	if a == nil {
		return ""
	}
	return a.DisplayName
}

// Subtask is the abbreviated form of a sub-item embedded in its parent's payload.
type Subtask struct {
	Key    string   `json:"key"`
	Status string   `json:"status,omitempty"`
	Type   ItemType `json:"type,omitempty"`
}

// Item is the core work-item record.
type Item struct {
	Key            string    `json:"key"`
	Type           ItemType  `json:"type"`
	Summary        string    `json:"summary,omitempty"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	StatusCategory string    `json:"status_category,omitempty"`
	Parent         string    `json:"parent,omitempty"`
	Assignee       *Assignee `json:"assignee,omitempty"`

	// Relational data -- populated by the source, not stored on the item itself.
	Labels   []string  `json:"labels,omitempty"`
	Subtasks []Subtask `json:"subtasks,omitempty"`
	Links    []*Link   `json:"links,omitempty"`

	// Partial marks a record built from a payload embedded in another item.
	// Partial records are refetched before they are walked.
	Partial bool `json:"partial,omitempty"`
}

// Project returns the project prefix of the item key ("PROJ" for "PROJ-12").
func (i *Item) Project() string {
	return ProjectOf(i.Key)
}

// IsEpic reports whether the item is an epic.
func (i *Item) IsEpic() bool {
	return i.Type.IsEpic()
}

// HasStatus reports whether the item's status is one of states (case-insensitive).
func (i *Item) HasStatus(states []string) bool {
	return StatusIn(i.Status, states)
}

// ProjectOf returns the project prefix of an item key.
func ProjectOf(key string) string {
	project, _, _ := strings.Cut(key, "-")
	return project
}

// StatusIn reports whether status equals one of states, ignoring case.
func StatusIn(status string, states []string) bool {
	for _, s := range states {
		if strings.EqualFold(status, s) {
			return true
		}
	}
	return false
}
