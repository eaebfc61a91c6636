package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/storyforge/internal/export"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/recall"
)

// handleListProjects lists every project in the store.
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.store.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No projects yet. Create one in the storyforge UI (`storyforge serve`)."), nil
	}

	var b strings.Builder
	for _, p := range list {
		if p.Corrupt {
			fmt.Fprintf(&b, "- %s: damaged file, run `storyforge repair`\n", p.ID)
			continue
		}
		fmt.Fprintf(&b, "- %s: %q", p.ID, p.Title)
		if p.Genre != "" {
			fmt.Fprintf(&b, " (%s)", p.Genre)
		}
		fmt.Fprintf(&b, ", %d chapters, %d words\n", p.Chapters, p.Words)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleGetProject returns the planning material of a project.
func (s *Server) handleGetProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := s.loadProject(request)
	if errResult != nil {
		return errResult, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n\n", p.Genre)
	}
	if p.Synopsis != "" {
		fmt.Fprintf(&b, "## Synopsis\n\n%s\n\n", p.Synopsis)
	}
	if p.Outline != "" {
		fmt.Fprintf(&b, "## Outline\n\n%s\n\n", p.Outline)
	}
	b.WriteString("## Chapters\n\n")
	for i, c := range p.Chapters {
		fmt.Fprintf(&b, "%d. %s (id %s, %d words)\n", i+1, c.Title, c.ID, project.WordCount(c.Content))
	}
	if len(p.Memory) > 0 {
		b.WriteString("\n## Memory notes\n\n")
		for _, m := range p.Memory {
			fmt.Fprintf(&b, "- %s\n", m.Text)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleGetChapter returns one chapter by ID or position.
func (s *Server) handleGetChapter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := s.loadProject(request)
	if errResult != nil {
		return errResult, nil
	}

	var ch *project.Chapter
	if id := request.GetString("chapter_id", ""); id != "" {
		c, ok := p.Chapter(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no chapter %q in project %q", id, p.ID)), nil
		}
		ch = c
	} else {
		n := request.GetInt("number", 1)
		if n < 1 || n > len(p.Chapters) {
			return mcp.NewToolResultError(fmt.Sprintf("chapter number %d out of range (project has %d chapters)", n, len(p.Chapters))), nil
		}
		ch = &p.Chapters[n-1]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ch.Title)
	if ch.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n\n", ch.Summary)
	}
	b.WriteString(ch.Content)
	if ch.Notes != "" {
		fmt.Fprintf(&b, "\n\n## Notes\n\n%s", ch.Notes)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleSearchWorldBible ranks world bible entries and memory notes against
// a query.
func (s *Server) handleSearchWorldBible(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	p, errResult := s.loadProject(request)
	if errResult != nil {
		return errResult, nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}
	kind := request.GetString("kind", "")

	var hits []recall.Hit
	if s.recall != nil {
		// Rank everything, then filter, so a kind filter still returns up
		// to limit results.
		hits, err = s.recall.Query(ctx, p, query, len(p.Entities)+len(p.Memory))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
	} else {
		hits = literalMatches(p, query)
	}

	var kept []recall.Hit
	for _, h := range hits {
		if kind == "" || h.Kind == kind {
			kept = append(kept, h)
		}
		if len(kept) == limit {
			break
		}
	}
	if len(kept) == 0 {
		return mcp.NewToolResultText("No matching world bible entries."), nil
	}
	return mcp.NewToolResultText(formatHits(kept)), nil
}

// handleExportProject renders the manuscript.
func (s *Server) handleExportProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := s.loadProject(request)
	if errResult != nil {
		return errResult, nil
	}
	f, ok := export.ParseFormat(request.GetString("format", "markdown"))
	if !ok || f == export.FormatHTML {
		return mcp.NewToolResultError("unsupported format: use markdown, txt or json"), nil
	}
	doc, err := export.Render(p, f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(doc.Data)), nil
}

// loadProject reads the project_id argument and loads it. On failure it
// returns a tool error result.
func (s *Server) loadProject(request mcp.CallToolRequest) (*project.Project, *mcp.CallToolResult) {
	id, err := request.RequireString("project_id")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: project_id")
	}
	p, err := s.store.Load(id)
	switch {
	case errors.Is(err, project.ErrNotFound):
		return nil, mcp.NewToolResultError(fmt.Sprintf("no project %q. Use list_projects to see valid IDs.", id))
	case errors.Is(err, project.ErrCorruptData):
		return nil, mcp.NewToolResultError(fmt.Sprintf("project %q is damaged. Run `storyforge repair`.", id))
	case err != nil:
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to load project: %v", err))
	}
	return p, nil
}

// literalMatches is the search used without a recall index: entries whose
// name, description or tags contain a query word.
func literalMatches(p *project.Project, query string) []recall.Hit {
	words := strings.Fields(strings.ToLower(query))
	contains := func(text string) bool {
		text = strings.ToLower(text)
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	var hits []recall.Hit
	for _, e := range p.Entities {
		if contains(e.Name + " " + e.Description + " " + strings.Join(e.Tags, " ")) {
			hits = append(hits, recall.Hit{ID: e.ID, Kind: string(e.Kind), Title: e.Name, Text: e.Description, Similarity: 1})
		}
	}
	for _, m := range p.Memory {
		if contains(m.Text) {
			hits = append(hits, recall.Hit{ID: m.ID, Kind: recall.KindMemory, Title: "Memory", Text: m.Text, Similarity: 1})
		}
	}
	return hits
}

// formatHits converts hits into a text format suited to AI agents.
func formatHits(hits []recall.Hit) string {
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s (%s, relevance %.2f)\n\n%s\n", h.Title, h.Kind, h.Similarity, h.Text)
	}
	return b.String()
}
