package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// Names is a config "name" entry. A scalar name matches any type it contains
// as a substring; a list matches its members exactly.
type Names struct {
	Values []string
	scalar bool
}

// UnmarshalYAML accepts either a scalar or a sequence of strings.
func (n *Names) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		n.Values = []string{value.Value}
		n.scalar = true
		return nil
	case yaml.SequenceNode:
		return value.Decode(&n.Values)
	}
	return fmt.Errorf("line %d: name must be a string or a list of strings", value.Line)
}

// Match reports whether the entry applies to name.
func (n Names) Match(name string) bool {
	for _, v := range n.Values {
		if n.scalar && strings.Contains(v, name) {
			return true
		}
		if !n.scalar && v == name {
			return true
		}
	}
	return false
}

// ColorSetting configures node colouring by workflow progression.
type ColorSetting struct {
	ColorScheme string   `yaml:"color-scheme"`
	FillColors  []string `yaml:"fill-colors"`
	FontColors  []string `yaml:"font-colors"`
}

// Workflow lists the ordered states of a group of item types.
type Workflow struct {
	IssueTypes []string `yaml:"issue-types"`
	PreStates  []string `yaml:"pre-states"`
	States     []string `yaml:"states"`
	PostStates []string `yaml:"post-states"`
}

// NodeStyle holds DOT attributes for a node type and its outgoing edges.
type NodeStyle struct {
	Name        Names             `yaml:"name"`
	NodeOptions map[string]string `yaml:"node-options"`
	EdgeOptions map[string]string `yaml:"edge-options"`
}

// EdgeStyle holds DOT attributes for an edge kind (block, epic, subtask).
type EdgeStyle struct {
	Name        Names             `yaml:"name"`
	EdgeOptions map[string]string `yaml:"edge-options"`
}

// LabelRule consolidates, hides or orients labels.
type LabelRule struct {
	Name        string   `yaml:"name"`
	Group       []string `yaml:"group"`
	Ignore      []string `yaml:"ignore"`
	Orientation string   `yaml:"orientation"`
}

// GraphConfig is the YAML graph configuration file.
type GraphConfig struct {
	ColorSetting ColorSetting `yaml:"color-setting"`
	Workflows    []Workflow   `yaml:"workflows"`
	Nodes        []NodeStyle  `yaml:"nodes"`
	Edges        []EdgeStyle  `yaml:"edges"`
	Labels       []LabelRule  `yaml:"labels"`
}

// ParseGraphConfig decodes a YAML graph configuration.
func ParseGraphConfig(data []byte) (*GraphConfig, error) {
	var gc GraphConfig
	if err := yaml.Unmarshal(data, &gc); err != nil {
		return nil, fmt.Errorf("parse graph config: %w", err)
	}
	return &gc, nil
}

// LoadGraphConfig reads the graph configuration at path. An empty path or a
// missing file yields an empty configuration.
func LoadGraphConfig(path string) (*GraphConfig, error) {
	if path == "" {
		return &GraphConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GraphConfig{}, nil
		}
		return nil, fmt.Errorf("read graph config: %w", err)
	}
	return ParseGraphConfig(data)
}

// DefaultWorkflowStates is the canonical state order used when no story
// workflow is configured.
var DefaultWorkflowStates = []string{"open", "to_do", "ready", "in_progress", "in_review", "done", "closed"}

// Styles is the compiled, read-only form of a GraphConfig. It is safe for
// concurrent use.
type Styles struct {
	colors      ColorSetting
	workflows   []Workflow
	workflowIdx map[string]int
	labelAlias  map[string]string
	labelIgnore map[string]bool
	labelOrient map[string]string
	canonical   []string

	nodes []NodeStyle
	edges []EdgeStyle
}

// Compile builds the lookup tables for gc. A nil gc compiles to defaults.
func Compile(gc *GraphConfig) *Styles {
	if gc == nil {
		gc = &GraphConfig{}
	}
	s := &Styles{
		colors:      gc.ColorSetting,
		workflows:   gc.Workflows,
		workflowIdx: make(map[string]int),
		labelAlias:  make(map[string]string),
		labelIgnore: make(map[string]bool),
		labelOrient: make(map[string]string),
		nodes:       gc.Nodes,
		edges:       gc.Edges,
	}
	for i, wf := range gc.Workflows {
		for _, t := range wf.IssueTypes {
			t = strings.ToLower(t)
			if _, ok := s.workflowIdx[t]; !ok {
				s.workflowIdx[t] = i
			}
		}
	}
	for _, rule := range gc.Labels {
		for _, g := range rule.Group {
			s.labelAlias[strings.ToLower(g)] = rule.Name
		}
		for _, g := range rule.Ignore {
			s.labelIgnore[strings.ToLower(g)] = true
		}
		if rule.Orientation != "" && rule.Name != "" {
			s.labelOrient[rule.Name] = rule.Orientation
		}
	}

	story := append(append(append([]string{},
		s.WorkflowStates("story", "pre-states")...),
		s.WorkflowStates("story", "states")...),
		s.WorkflowStates("story", "post-states")...)
	if len(story) == 0 {
		story = DefaultWorkflowStates
	}
	for _, st := range story {
		s.canonical = append(s.canonical, model.SnakeCase(st))
	}
	return s
}

// NodeOptions returns the node and edge attributes configured for a node type
// (lower-cased item type, "default" or "label"). The first matching entry wins.
func (s *Styles) NodeOptions(nodeType string) (node, edge map[string]string) {
	for _, ns := range s.nodes {
		if ns.Name.Match(nodeType) {
			return copyMap(ns.NodeOptions), copyMap(ns.EdgeOptions)
		}
	}
	return map[string]string{}, map[string]string{}
}

// EdgeOptions returns the attributes configured for an edge kind.
func (s *Styles) EdgeOptions(kind string) map[string]string {
	for _, es := range s.edges {
		if es.Name.Match(kind) {
			return copyMap(es.EdgeOptions)
		}
	}
	return map[string]string{}
}

// DefaultNodeOptions returns the graph-wide node attributes.
func (s *Styles) DefaultNodeOptions() map[string]string {
	opts := map[string]string{}
	if s.colors.ColorScheme != "" {
		opts["colorscheme"] = s.colors.ColorScheme
	}
	node, _ := s.NodeOptions("default")
	for k, v := range node {
		opts[k] = v
	}
	return opts
}

// WorkflowStates returns the lower-cased states of the given category
// ("pre-states", "states", "post-states") for an item type.
func (s *Styles) WorkflowStates(itemType, category string) []string {
	i, ok := s.workflowIdx[strings.ToLower(itemType)]
	if !ok {
		return nil
	}
	wf := s.workflows[i]
	var states []string
	switch category {
	case "pre-states":
		states = wf.PreStates
	case "post-states":
		states = wf.PostStates
	default:
		states = wf.States
	}
	out := make([]string, len(states))
	for j, st := range states {
		out[j] = strings.ToLower(st)
	}
	return out
}

// Workflows returns the configured workflows.
func (s *Styles) Workflows() []Workflow {
	return s.workflows
}

// CanonicalStates returns the normalized workflow order used to chain state
// groups.
func (s *Styles) CanonicalStates() []string {
	return s.canonical
}

// IssueColor returns the fill and font colours for an item. Items whose type
// has no workflow fall back to an x11 colour for their status category.
func (s *Styles) IssueColor(itemType, status, category string) (fill, font string) {
	states := s.WorkflowStates(itemType, "states")
	if len(states) == 0 {
		return "/x11/" + categoryColor(category), ""
	}
	fill = "white"
	idx := -1
	for i, st := range states {
		if st == strings.ToLower(status) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fill, ""
	}
	progress := (float64(idx) + 0.5) / float64(len(states))
	fill = selectFromProgression(s.colors.FillColors, progress, fill)
	font = selectFromProgression(s.colors.FontColors, progress, font)
	return fill, font
}

// LabelAlias returns the consolidated name for a lower-cased label, or false
// when the label is ignored.
func (s *Styles) LabelAlias(label string) (string, bool) {
	if s.labelIgnore[label] {
		return "", false
	}
	if alias, ok := s.labelAlias[label]; ok {
		return alias, alias != ""
	}
	return label, true
}

// LabelOrientation returns "root" or "leaf" (the default) for a label.
func (s *Styles) LabelOrientation(label string) string {
	if o, ok := s.labelOrient[label]; ok {
		return o
	}
	return "leaf"
}

func selectFromProgression(list []string, progress float64, fallback string) string {
	if len(list) == 0 {
		return fallback
	}
	i := int(float64(len(list)) * progress)
	if i >= len(list) {
		i = len(list) - 1
	}
	if list[i] == "None" || list[i] == "" {
		return fallback
	}
	return list[i]
}

func categoryColor(category string) string {
	switch strings.ToUpper(category) {
	case "IN PROGRESS":
		return "yellow"
	case "DONE":
		return "green"
	}
	return "white"
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
