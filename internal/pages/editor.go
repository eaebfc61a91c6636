package pages

import (
	"context"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/assist"
	"github.com/ziadkadry99/storyforge/internal/export"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/router"
	"github.com/ziadkadry99/storyforge/internal/session"
)

type chapterRow struct {
	Title  string
	URL    string
	Words  int
	Active bool
}

type chapterStats struct {
	Words   int
	Grade   int
	Ages    string
	Minutes int
}

type generationData struct {
	Generation *session.Generation
	Target     nav.Target
	ApplyLabel string
}

type editorData struct {
	Project  *project.Project
	Target   nav.Target
	Chapters []chapterRow
	Chapter  *project.Chapter
	Keys     map[string]string
	Stats    chapterStats
	Tasks    []assist.Task
	Gen      generationData
	Preview  template.HTML
}

var applyLabels = map[string]string{
	string(assist.TaskContinue):   "Append to chapter",
	string(assist.TaskRewrite):    "Replace rewritten passage",
	string(assist.TaskBrainstorm): "Add to chapter notes",
	string(assist.TaskSummarize):  "Use as chapter summary",
	string(assist.TaskDescribe):   "Use as description",
}

// withProject loads the target project and hands it to fn, or renders the
// unavailable page when there is no usable project.
func (a *App) withProject(req *router.Request, fn func(*project.Project) (router.Output, error)) (router.Output, error) {
	id := req.Target.ProjectID
	if id == "" {
		return unavailable("No project open", "Choose a project from your projects list first.")
	}
	p, err := a.OpenProject(id)
	if err != nil {
		msg, ok := notice.Message(err)
		if !ok {
			return router.Output{}, err
		}
		return unavailable("Project unavailable", msg)
	}
	return fn(p)
}

func (a *App) renderEditor(_ context.Context, req *router.Request) (router.Output, error) {
	return a.withProject(req, func(p *project.Project) (router.Output, error) {
		var ch *project.Chapter
		if id := req.Target.ChapterID; id != "" {
			var ok bool
			if ch, ok = p.Chapter(id); !ok {
				req.Session.AddNotice(notice.Warning("That chapter no longer exists."))
			}
		}
		if ch == nil && len(p.Chapters) > 0 {
			ch = &p.Chapters[0]
		}

		target := nav.Target{Page: nav.PageEditor, ProjectID: p.ID}
		if ch != nil {
			target.ChapterID = ch.ID
		}
		scope := ui(req, "editor")
		data := editorData{
			Project: p,
			Target:  target,
			Chapter: ch,
			Keys:    keys(scope, "add", "story", "title", "content", "notes", "save", "task", "instruction", "generate"),
			Tasks:   []assist.Task{assist.TaskContinue, assist.TaskRewrite, assist.TaskBrainstorm, assist.TaskSummarize},
		}
		for _, c := range p.Chapters {
			data.Chapters = append(data.Chapters, chapterRow{
				Title:  c.Title,
				URL:    nav.Target{Page: nav.PageEditor, ProjectID: p.ID, ChapterID: c.ID}.URL(),
				Words:  project.WordCount(c.Content),
				Active: ch != nil && c.ID == ch.ID,
			})
		}
		if ch != nil {
			words := project.WordCount(ch.Content)
			grade, ages := project.Readability(ch.Content)
			data.Stats = chapterStats{Words: words, Grade: grade, Ages: ages, Minutes: project.ReadingMinutes(words)}

			if strings.TrimSpace(ch.Content) != "" {
				html, err := export.Preview(ch.Content)
				if err != nil {
					a.log.Warn("chapter preview failed", zap.String("chapter", ch.ID), zap.Error(err))
				}
				data.Preview = html
			}
			if g := req.Session.Generation(); g != nil && g.ProjectID == p.ID && g.ChapterID == ch.ID && g.EntityID == "" {
				data.Gen = generationData{Generation: g, Target: target, ApplyLabel: applyLabels[g.Task]}
			}
		}
		return execute("editor", p.Title, data)
	})
}

func editorTarget(projectID, chapterID string) nav.Target {
	return nav.Target{Page: nav.PageEditor, ProjectID: projectID, ChapterID: chapterID}
}

func (a *App) addChapter(_ context.Context, req *router.Request) (nav.Target, error) {
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	ch := p.AddChapter(formTrim(req.Form, "title"), a.store.Now())
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	return editorTarget(p.ID, ch.ID), nil
}

func (a *App) saveChapter(_ context.Context, req *router.Request) (nav.Target, error) {
	chapterID := formTrim(req.Form, "chapter")
	if err := cooldown(req.Session, "chapter.save:"+chapterID, a.Config().SaveCooldown(), "saved this chapter"); err != nil {
		return req.Target, err
	}
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	title := formTrim(req.Form, "title")
	if title == "" {
		title = "Untitled chapter"
	}
	if err := p.UpdateChapter(chapterID, title, req.Form.Get("content"), req.Form.Get("notes"), a.store.Now()); err != nil {
		return req.Target, notice.Advise(err, "That chapter no longer exists.")
	}
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	req.Session.AddNotice(notice.Success("Chapter saved."))
	return editorTarget(p.ID, chapterID), nil
}

func (a *App) deleteChapter(_ context.Context, req *router.Request) (nav.Target, error) {
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	if err := p.DeleteChapter(formTrim(req.Form, "chapter"), a.store.Now()); err != nil {
		return req.Target, notice.Advise(err, "That chapter no longer exists.")
	}
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	req.Session.AddNotice(notice.Info("Chapter deleted."))
	return editorTarget(p.ID, ""), nil
}

func (a *App) moveChapter(_ context.Context, req *router.Request) (nav.Target, error) {
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	chapterID := formTrim(req.Form, "chapter")
	if err := p.MoveChapter(chapterID, formInt(req.Form, "delta", 0), a.store.Now()); err != nil {
		return req.Target, notice.Advise(err, "That chapter no longer exists.")
	}
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	return editorTarget(p.ID, chapterID), nil
}

// generate runs an AI task and keeps the result in the session until the
// user applies or discards it.
func (a *App) generate(ctx context.Context, req *router.Request) (nav.Target, error) {
	if a.assist == nil {
		return req.Target, notice.Advise(ErrInvalidInput, "AI assist is not configured. Run storyforge init to choose a provider.")
	}
	task, ok := assist.ParseTask(formTrim(req.Form, "task"))
	if !ok {
		return req.Target, notice.Advise(ErrInvalidInput, "Choose what the AI should do.")
	}
	if err := cooldown(req.Session, "assist.generate", a.Config().GenerateCooldown(), "asked the AI"); err != nil {
		return req.Target, err
	}
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}

	cfg := a.Config()
	ov := req.Session.Overrides(session.Overrides{Model: cfg.Model, Temperature: cfg.Temperature})
	ar := assist.Request{
		Task:        task,
		Project:     p,
		ChapterID:   formTrim(req.Form, "chapter"),
		EntityID:    formTrim(req.Form, "entity"),
		Text:        req.Form.Get("text"),
		Instruction: req.Form.Get("instruction"),
		Model:       ov.Model,
		Temperature: &ov.Temperature,
	}
	next := editorTarget(p.ID, ar.ChapterID)
	if task == assist.TaskDescribe {
		ar.ChapterID = ""
		next = nav.Target{Page: nav.PageWorldBible, ProjectID: p.ID, EntityID: ar.EntityID}
	}

	res, err := a.assist.Generate(ctx, ar)
	if err != nil {
		return next, assist.Advise(err)
	}
	req.Session.SetGeneration(&session.Generation{
		Task:         string(res.Task),
		Text:         res.Text,
		Source:       res.Source,
		ProjectID:    p.ID,
		ChapterID:    ar.ChapterID,
		EntityID:     ar.EntityID,
		Model:        res.Model,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
		At:           a.store.Now(),
	})
	return next, nil
}

// applyGeneration writes the pending AI output into the project.
func (a *App) applyGeneration(_ context.Context, req *router.Request) (nav.Target, error) {
	g := req.Session.Generation()
	if g == nil {
		return req.Target, notice.Advise(ErrInvalidInput, "There is no AI output to apply.")
	}
	p, err := a.OpenProject(g.ProjectID)
	if err != nil {
		return req.Target, err
	}
	now := a.store.Now()
	next := editorTarget(p.ID, g.ChapterID)

	switch assist.Task(g.Task) {
	case assist.TaskDescribe:
		next = nav.Target{Page: nav.PageWorldBible, ProjectID: p.ID, EntityID: g.EntityID}
		e, ok := p.Entity(g.EntityID)
		if !ok {
			return next, notice.Advise(project.ErrNoSuchItem, "That entry no longer exists.")
		}
		if err := p.UpdateEntity(e.ID, e.Name, g.Text, e.Tags, now); err != nil {
			return next, err
		}
	case assist.TaskBrainstorm:
		if ch, ok := p.Chapter(g.ChapterID); ok {
			ch.Notes = appendBlock(ch.Notes, g.Text)
			ch.UpdatedAt = now
		} else {
			p.Outline = appendBlock(p.Outline, g.Text)
		}
		p.UpdatedAt = now
	default:
		ch, ok := p.Chapter(g.ChapterID)
		if !ok {
			return next, notice.Advise(project.ErrNoSuchItem, "That chapter no longer exists.")
		}
		switch assist.Task(g.Task) {
		case assist.TaskContinue:
			ch.Content = appendBlock(ch.Content, g.Text)
		case assist.TaskRewrite:
			content, ok := replaceSource(ch.Content, g.Source, g.Text)
			if !ok {
				return next, notice.Advise(ErrInvalidInput, "The rewritten passage has changed since it was generated. Generate the rewrite again.")
			}
			ch.Content = content
		case assist.TaskSummarize:
			ch.Summary = g.Text
		}
		ch.UpdatedAt = now
		p.UpdatedAt = now
	}

	if err := a.saveProject(p); err != nil {
		return next, err
	}
	req.Session.SetGeneration(nil)
	req.Session.AddNotice(notice.Success("AI text applied."))
	return next, nil
}

func (a *App) discardGeneration(_ context.Context, req *router.Request) (nav.Target, error) {
	req.Session.SetGeneration(nil)
	return req.Target, nil
}

// replaceSource swaps the first occurrence of source in content for text.
// It fails when source is empty or no longer present.
func replaceSource(content, source, text string) (string, bool) {
	if strings.TrimSpace(source) == "" {
		return content, false
	}
	i := strings.Index(content, source)
	if i < 0 {
		return content, false
	}
	return content[:i] + text + content[i+len(source):], true
}

// appendBlock joins text to existing prose with a blank line between them.
func appendBlock(existing, text string) string {
	existing = strings.TrimRight(existing, " \t\n")
	if existing == "" {
		return text
	}
	return existing + "\n\n" + text
}
