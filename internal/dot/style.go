package dot

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/go-wordwrap"

	"github.com/alfredjeanlab/issuegraph/internal/config"
	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// MaxSummaryLength is the summary width used for truncation and wrapping.
const MaxSummaryLength = 28

// Linker builds the hyperlinks attached to nodes.
type Linker interface {
	ItemURL(key string) string
	QueryURL(jql string) string
}

// WebLinker links into the tracker's web UI at BaseURL.
type WebLinker struct {
	BaseURL string
}

func (l WebLinker) ItemURL(key string) string {
	return l.BaseURL + "/browse/" + key
}

func (l WebLinker) QueryURL(jql string) string {
	return l.BaseURL + "/issues/?jql=" + strings.ReplaceAll(url.QueryEscape(jql), "+", "%20")
}

// LabelOptions selects what goes into node labels.
type LabelOptions struct {
	HTML     bool // narrow HTML table instead of plain text
	WordWrap bool // wrap summaries instead of truncating them
	State    bool // include the upper-cased status
	Assignee bool // include assignee initials (text) or name (HTML)
}

// Styler turns items into styled node definitions.
type Styler struct {
	Styles *config.Styles
	Links  Linker
	Label  LabelOptions
}

// ItemNode returns the node definition for item.
func (s *Styler) ItemNode(item *model.Item) *Node {
	var attrs Attrs
	if s.Links != nil {
		attrs = attrs.Set("href", s.Links.ItemURL(item.Key))
	}
	attrs = attrs.Set("label", s.NodeLabel(item))
	attrs = attrs.Set("style", "filled")

	styles := s.styles()
	nodeOpts, _ := styles.NodeOptions(strings.ToLower(item.Type.String()))
	attrs = attrs.Merge(nodeOpts)

	fill, font := styles.IssueColor(item.Type.String(), item.Status, item.StatusCategory)
	attrs = attrs.Set("fillcolor", fill)
	if font != "" {
		attrs = attrs.Set("fontcolor", font)
	}
	return &Node{ID: item.Key, Attrs: attrs}
}

func (s *Styler) styles() *config.Styles {
	if s.Styles == nil {
		return config.Compile(nil)
	}
	return s.Styles
}

// NodeLabel renders the label attribute value for item.
func (s *Styler) NodeLabel(item *model.Item) string {
	summary := s.summary(item.Summary)
	if s.Label.HTML {
		return s.htmlLabel(item, summary)
	}
	summary = strings.ReplaceAll(summary, `"`, `\"`)
	summary = strings.ReplaceAll(summary, "\n", `\n`)

	var b strings.Builder
	b.WriteString(item.Key)
	if s.Label.State {
		b.WriteString(" " + strings.ToUpper(item.Status))
	}
	if s.Label.Assignee {
		b.WriteString(" " + item.Assignee.Initials())
	}
	b.WriteString(`\n`)
	b.WriteString(summary)
	return b.String()
}

func (s *Styler) summary(summary string) string {
	if s.Label.WordWrap {
		if utf8.RuneCountInString(summary) > MaxSummaryLength {
			return wordwrap.WrapString(summary, MaxSummaryLength)
		}
		return summary
	}
	// Only truncate when "..." replaces more than two characters.
	if r := []rune(summary); len(r) > MaxSummaryLength+2 {
		return string(r[:MaxSummaryLength]) + "..."
	}
	return summary
}

const (
	htmlTableAttrs = `border="0" cellspacing="0" cellpadding="2"`
	htmlFontAttrs  = `POINT-SIZE="12"`
	htmlCellAttrs  = `align="center" colspan="2" cellspacing="0" cellpadding="2"`
)

func (s *Styler) htmlLabel(item *model.Item, summary string) string {
	summary = strings.ReplaceAll(html.EscapeString(summary), "\n", "<br/>")
	state := ""
	if s.Label.State {
		state = strings.ToUpper(item.Status)
	}

	var b strings.Builder
	b.WriteString("<<table " + htmlTableAttrs + ">")
	b.WriteString("<tr>")
	b.WriteString(`<td align="center"><font ` + htmlFontAttrs + "><b> " + item.Key + " </b></font></td>")
	b.WriteString(`<td align="center"><font ` + htmlFontAttrs + "><b> " + state + " </b></font></td>")
	b.WriteString("</tr>")
	b.WriteString("<tr><td " + htmlCellAttrs + "><font > " + summary + " </font></td></tr>")
	if s.Label.Assignee {
		if name := item.Assignee.Name(); name != "" {
			b.WriteString("<tr><td " + htmlCellAttrs + "><font " + htmlFontAttrs + "><b> " +
				html.EscapeString(name) + " </b></font></td></tr>")
		}
	}
	b.WriteString("</table>>")
	return b.String()
}
