// Package export renders a project as a downloadable manuscript.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ziadkadry99/storyforge/internal/project"
)

// Format is an export file format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats in display order.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatHTML, FormatText, FormatJSON}
}

// ParseFormat maps a form or CLI value to a Format. "md" is accepted for
// markdown.
func ParseFormat(s string) (Format, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "md" {
		return FormatMarkdown, true
	}
	for _, f := range Formats() {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	case FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// ContentType returns the MIME type served for downloads.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Document is a rendered export.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Render exports p in format f.
func Render(p *project.Project, f Format) (*Document, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatMarkdown:
		data = []byte(Markdown(p))
	case FormatHTML:
		data, err = HTML(p)
	case FormatText:
		data = []byte(Text(p))
	case FormatJSON:
		data, err = json.MarshalIndent(p, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", f, err)
	}
	return &Document{
		Filename:    Slug(p.Title) + f.Extension(),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a title into a file name stem.
func Slug(title string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// Markdown renders the manuscript as Markdown. Chapter content is already
// Markdown and is copied through.
func Markdown(p *project.Project) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.Genre != "" {
		fmt.Fprintf(&b, "*%s*\n\n", p.Genre)
	}
	if p.Synopsis != "" {
		fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(p.Synopsis), "\n", "\n> "))
	}
	for _, c := range p.Chapters {
		fmt.Fprintf(&b, "## %s\n\n", c.Title)
		if content := strings.TrimSpace(c.Content); content != "" {
			b.WriteString(content)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// Text renders the manuscript as plain text.
func Text(p *project.Project) string {
	var b strings.Builder
	b.WriteString(p.Title + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(p.Title))) + "\n\n")
	if p.Synopsis != "" {
		b.WriteString(strings.TrimSpace(p.Synopsis) + "\n\n")
	}
	for i, c := range p.Chapters {
		heading := fmt.Sprintf("%d. %s", i+1, c.Title)
		b.WriteString(heading + "\n")
		b.WriteString(strings.Repeat("-", len([]rune(heading))) + "\n\n")
		if content := strings.TrimSpace(c.Content); content != "" {
			b.WriteString(content + "\n\n")
		}
	}
	return b.String()
}
