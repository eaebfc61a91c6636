package pages

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/router"
	"github.com/ziadkadry99/storyforge/internal/usage"
)

// recentProjects is how many projects the dashboard lists.
const recentProjects = 5

type projectRow struct {
	ID        string
	Title     string
	Genre     string
	Chapters  int
	Words     int
	UpdatedAt time.Time
	Corrupt   bool
	URL       string
	DeleteKey string
}

func rows(list []project.Summary) []projectRow {
	out := make([]projectRow, 0, len(list))
	for _, s := range list {
		out = append(out, projectRow{
			ID:        s.ID,
			Title:     s.Title,
			Genre:     s.Genre,
			Chapters:  s.Chapters,
			Words:     s.Words,
			UpdatedAt: s.UpdatedAt,
			Corrupt:   s.Corrupt,
			URL:       nav.Target{Page: nav.PageEditor, ProjectID: s.ID}.URL(),
		})
	}
	return out
}

type homeData struct {
	Warnings     []string
	ProjectCount int
	TotalWords   int
	Recent       []projectRow
	Usage        *usage.Summary
	ProjectsURL  string
}

func (a *App) renderHome(ctx context.Context, req *router.Request) (router.Output, error) {
	list, err := a.store.List()
	if err != nil {
		return router.Output{}, err
	}
	data := homeData{
		Warnings:     warningText(a.configWarnings()),
		ProjectCount: len(list),
		ProjectsURL:  nav.Target{Page: nav.PageProjects}.URL(),
	}
	for _, s := range list {
		data.TotalWords += s.Words
	}
	all := rows(list)
	data.Recent = all[:min(len(all), recentProjects)]

	if a.usage != nil {
		sum, err := a.usage.Summarize(ctx, "")
		if err != nil {
			// The ledger is informational; the dashboard still renders.
			a.log.Warn("reading usage summary failed", zap.Error(err))
		} else if sum.Requests > 0 {
			data.Usage = sum
		}
	}
	return execute("home", "Dashboard", data)
}

func warningText(ws config.Warnings) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}

type projectsData struct {
	Keys     map[string]string
	Projects []projectRow
}

func (a *App) renderProjects(_ context.Context, req *router.Request) (router.Output, error) {
	list, err := a.store.List()
	if err != nil {
		return router.Output{}, err
	}
	scope := ui(req, "projects")
	data := projectsData{
		Keys:     keys(scope.Scope("new"), "title", "genre", "synopsis"),
		Projects: rows(list),
	}
	for i := range data.Projects {
		data.Projects[i].DeleteKey = scope.Scope("row").Key("delete")
	}
	return execute("projects", "Projects", data)
}

func (a *App) createProject(_ context.Context, req *router.Request) (nav.Target, error) {
	title := formTrim(req.Form, "title")
	if title == "" {
		return req.Target, notice.Advise(ErrInvalidInput, "Give the project a title.")
	}
	p, err := a.store.Create(title, formTrim(req.Form, "genre"), formTrim(req.Form, "synopsis"))
	if err != nil {
		a.log.Error("creating project failed", zap.Error(err))
		return req.Target, notice.Advise(err, "The project could not be created.")
	}
	a.log.Info("project created", zap.String("project", p.ID))
	req.Session.AddNotice(notice.Success("Created " + p.Title + "."))
	return nav.Target{Page: nav.PageEditor, ProjectID: p.ID}, nil
}

func (a *App) updateProject(_ context.Context, req *router.Request) (nav.Target, error) {
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	if title := formTrim(req.Form, "title"); title != "" {
		p.Title = title
	}
	p.Genre = formTrim(req.Form, "genre")
	p.Synopsis = formTrim(req.Form, "synopsis")
	p.Outline = req.Form.Get("outline")
	p.UpdatedAt = a.store.Now()
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	req.Session.AddNotice(notice.Success("Story details saved."))
	return req.Target, nil
}

func (a *App) deleteProject(_ context.Context, req *router.Request) (nav.Target, error) {
	id := projectTarget(req)
	if err := a.store.Delete(id); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return req.Target, notice.Advise(err, CouldNotOpenProject)
		}
		return req.Target, err
	}
	if a.recall != nil {
		a.recall.Forget(id)
	}
	a.log.Info("project deleted", zap.String("project", id))
	req.Session.AddNotice(notice.Info("Project deleted."))
	return nav.Target{Page: nav.PageProjects}, nil
}
