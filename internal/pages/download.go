package pages

import (
	"context"
	"html/template"
	"net/url"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/export"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/router"
)

type exportData struct {
	Project      *project.Project
	Target       nav.Target
	Formats      []export.Format
	Format       string
	DownloadURL  string
	Filename     string
	Words        int
	ChapterCount int
	Preview      template.HTML
	Keys         map[string]string
}

// DownloadURL is the link that serves project id rendered as f.
func DownloadURL(id string, f export.Format) string {
	return "/export/" + url.PathEscape(id) + "?format=" + url.QueryEscape(string(f))
}

func (a *App) renderExport(_ context.Context, req *router.Request) (router.Output, error) {
	return a.withProject(req, func(p *project.Project) (router.Output, error) {
		f, ok := export.ParseFormat(req.Session.ExportFormat())
		if !ok {
			f = export.FormatMarkdown
		}
		data := exportData{
			Project:      p,
			Target:       nav.Target{Page: nav.PageExport, ProjectID: p.ID},
			Formats:      export.Formats(),
			Format:       string(f),
			DownloadURL:  DownloadURL(p.ID, f),
			Filename:     export.Slug(p.Title) + f.Extension(),
			Words:        p.WordCount(),
			ChapterCount: len(p.Chapters),
			Keys:         keys(ui(req, "export"), "format", "download"),
		}
		preview, err := export.Preview(export.Markdown(p))
		if err != nil {
			a.log.Warn("export preview failed", zap.String("project", p.ID), zap.Error(err))
		}
		data.Preview = preview
		return execute("export", "Export", data)
	})
}

func (a *App) chooseExportFormat(_ context.Context, req *router.Request) (nav.Target, error) {
	f, ok := export.ParseFormat(formTrim(req.Form, "format"))
	if !ok {
		return req.Target, notice.Advise(ErrInvalidInput, "That export format is not supported.")
	}
	req.Session.SetExportFormat(string(f))
	return nav.Target{Page: nav.PageExport, ProjectID: projectTarget(req)}, nil
}

// Export renders project id in the named format for download. A missing or
// damaged project yields the same advisory as opening it.
func (a *App) Export(id, format string) (*export.Document, error) {
	f, ok := export.ParseFormat(format)
	if !ok {
		return nil, notice.Advise(ErrInvalidInput, "That export format is not supported.")
	}
	p, err := a.OpenProject(id)
	if err != nil {
		return nil, err
	}
	return export.Render(p, f)
}
