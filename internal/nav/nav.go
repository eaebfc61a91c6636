// Package nav defines the closed set of pages the UI can show and the
// navigation target stored in each session.
package nav

import (
	"net/url"
	"strings"
)

// Page is one of the fixed navigation destinations.
type Page int

const (
	PageHome Page = iota
	PageProjects
	PageEditor
	PageWorldBible
	PageExport
	PageSettings
)

// Default is where unknown identifiers resolve to.
const Default = PageHome

var pageNames = map[Page]string{
	PageHome:       "home",
	PageProjects:   "projects",
	PageEditor:     "editor",
	PageWorldBible: "worldbible",
	PageExport:     "export",
	PageSettings:   "settings",
}

var pageTitles = map[Page]string{
	PageHome:       "Dashboard",
	PageProjects:   "Projects",
	PageEditor:     "Editor",
	PageWorldBible: "World Bible",
	PageExport:     "Export",
	PageSettings:   "Settings",
}

// Pages returns every page in menu order.
func Pages() []Page {
	return []Page{PageHome, PageProjects, PageEditor, PageWorldBible, PageExport, PageSettings}
}

// String returns the identifier used in URLs.
func (p Page) String() string {
	if s, ok := pageNames[p]; ok {
		return s
	}
	return pageNames[Default]
}

// Title returns the human-readable menu label.
func (p Page) Title() string {
	if s, ok := pageTitles[p]; ok {
		return s
	}
	return pageTitles[Default]
}

// Valid reports whether p is one of the enumerated pages.
func (p Page) Valid() bool {
	_, ok := pageNames[p]
	return ok
}

// NeedsProject reports whether the page only makes sense with a project open.
func (p Page) NeedsProject() bool {
	switch p {
	case PageEditor, PageWorldBible, PageExport:
		return true
	}
	return false
}

// Parse maps an identifier to a Page. Unknown or empty identifiers resolve to
// Default with ok=false.
func Parse(s string) (Page, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range pageNames {
		if name == s {
			return p, true
		}
	}
	return Default, false
}

// Target is the navigation state: a page plus optional typed parameters.
type Target struct {
	Page      Page
	ProjectID string
	ChapterID string
	EntityID  string
}

// Home is the zero-parameter default target.
func Home() Target { return Target{Page: Default} }

// To returns a copy of t pointing at page p, keeping the open project.
func (t Target) To(p Page) Target {
	return Target{Page: p, ProjectID: t.ProjectID}
}

// Query encodes the target as URL query values.
func (t Target) Query() url.Values {
	v := url.Values{}
	v.Set("page", t.Page.String())
	if t.ProjectID != "" {
		v.Set("project", t.ProjectID)
	}
	if t.ChapterID != "" {
		v.Set("chapter", t.ChapterID)
	}
	if t.EntityID != "" {
		v.Set("entity", t.EntityID)
	}
	return v
}

// URL returns the relative link for the target.
func (t Target) URL() string {
	return "/?" + t.Query().Encode()
}

// FromQuery decodes a target from query values. ok is false when a page was
// requested but not recognized.
func FromQuery(v url.Values) (Target, bool) {
	raw := v.Get("page")
	p, ok := Parse(raw)
	t := Target{
		Page:      p,
		ProjectID: v.Get("project"),
		ChapterID: v.Get("chapter"),
		EntityID:  v.Get("entity"),
	}
	if raw == "" {
		ok = true
	}
	return t, ok
}
