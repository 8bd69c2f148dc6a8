package client

import (
	"encoding/json"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// issuePayload mirrors the subset of the tracker's issue JSON we read.
type issuePayload struct {
	Key    string      `json:"key"`
	Fields fieldsBlock `json:"fields"`
}

type fieldsBlock struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description"`
	Status      *statusBlock    `json:"status"`
	IssueType   *namedBlock     `json:"issuetype"`
	Labels      []string        `json:"labels"`
	Assignee    *assigneeBlock  `json:"assignee"`
	Parent      *refPayload     `json:"parent"`
	Subtasks    []refPayload    `json:"subtasks"`
	IssueLinks  []linkPayload   `json:"issuelinks"`
}

type namedBlock struct {
	Name string `json:"name"`
}

type statusBlock struct {
	Name           string      `json:"name"`
	StatusCategory *namedBlock `json:"statusCategory"`
}

type assigneeBlock struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// refPayload is an abbreviated issue embedded in another issue.
type refPayload struct {
	Key    string `json:"key"`
	Fields struct {
		Status    *statusBlock `json:"status"`
		IssueType *namedBlock  `json:"issuetype"`
	} `json:"fields"`
}

type linkPayload struct {
	Type struct {
		Name    string `json:"name"`
		Inward  string `json:"inward"`
		Outward string `json:"outward"`
	} `json:"type"`
	InwardIssue  *refPayload `json:"inwardIssue"`
	OutwardIssue *refPayload `json:"outwardIssue"`
}

type searchPayload struct {
	Total  int            `json:"total"`
	Issues []issuePayload `json:"issues"`
}

func (s *statusBlock) name() string {
	if s == nil {
		return ""
	}
	return s.Name
}

func (s *statusBlock) category() string {
	if s == nil || s.StatusCategory == nil {
		return ""
	}
	return s.StatusCategory.Name
}

func (n *namedBlock) name() string {
	if n == nil {
		return ""
	}
	return n.Name
}

// toItem converts an issue payload to an item.
func (p *issuePayload) toItem() *model.Item {
	f := p.Fields
	item := &model.Item{
		Key:            p.Key,
		Type:           model.ItemType(f.IssueType.name()),
		Summary:        f.Summary,
		Description:    description(f.Description),
		Status:         f.Status.name(),
		StatusCategory: f.Status.category(),
		Labels:         f.Labels,
	}
	if f.Parent != nil {
		item.Parent = f.Parent.Key
	}
	if f.Assignee != nil {
		item.Assignee = &model.Assignee{
			DisplayName:  f.Assignee.DisplayName,
			EmailAddress: f.Assignee.EmailAddress,
		}
	}
	for _, st := range f.Subtasks {
		item.Subtasks = append(item.Subtasks, model.Subtask{
			Key:    st.Key,
			Status: st.Fields.Status.name(),
			Type:   model.ItemType(st.Fields.IssueType.name()),
		})
	}
	for _, l := range f.IssueLinks {
		if link := l.toLink(); link != nil {
			item.Links = append(item.Links, link)
		}
	}
	return item
}

func (l *linkPayload) toLink() *model.Link {
	link := &model.Link{Type: l.Type.Name}
	var ref *refPayload
	switch {
	case l.InwardIssue != nil:
		ref = l.InwardIssue
		link.Direction = model.DirectionInward
		link.Label = l.Type.Inward
	case l.OutwardIssue != nil:
		ref = l.OutwardIssue
		link.Direction = model.DirectionOutward
		link.Label = l.Type.Outward
	default:
		return nil
	}
	link.Key = ref.Key
	link.Status = ref.Fields.Status.name()
	return link
}

// description accepts the plain string form. Rich document bodies are not
// rendered and yield "".
func description(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
