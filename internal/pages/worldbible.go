package pages

import (
	"context"

	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/router"
)

type entityRow struct {
	Name   string
	Kind   project.EntityKind
	URL    string
	Active bool
}

type worldBibleData struct {
	Project  *project.Project
	Target   nav.Target
	Kinds    []project.EntityKind
	Filter   string
	Entities []entityRow
	Entity   *project.Entity
	Memory   []project.MemoryNote
	Keys     map[string]string
	Gen      generationData
}

func (a *App) renderWorldBible(_ context.Context, req *router.Request) (router.Output, error) {
	return a.withProject(req, func(p *project.Project) (router.Output, error) {
		filter := req.Session.WorldBibleFilter()
		kind, filtered := project.ParseKind(filter)

		var e *project.Entity
		if id := req.Target.EntityID; id != "" {
			var ok bool
			if e, ok = p.Entity(id); !ok {
				req.Session.AddNotice(notice.Warning("That entry no longer exists."))
			}
		}

		target := nav.Target{Page: nav.PageWorldBible, ProjectID: p.ID}
		if e != nil {
			target.EntityID = e.ID
		}
		data := worldBibleData{
			Project: p,
			Target:  target,
			Kinds:   project.Kinds(),
			Entity:  e,
			Memory:  p.Memory,
			Keys:    keys(ui(req, "worldbible"), "add", "name", "description", "tags", "save", "describe", "memory"),
		}
		if filtered {
			data.Filter = string(kind)
		}

		list := p.Entities
		if filtered {
			list = p.EntitiesOf(kind)
		}
		for _, x := range list {
			data.Entities = append(data.Entities, entityRow{
				Name:   x.Name,
				Kind:   x.Kind,
				URL:    nav.Target{Page: nav.PageWorldBible, ProjectID: p.ID, EntityID: x.ID}.URL(),
				Active: e != nil && x.ID == e.ID,
			})
		}
		if g := req.Session.Generation(); e != nil && g != nil && g.ProjectID == p.ID && g.EntityID == e.ID {
			data.Gen = generationData{Generation: g, Target: target, ApplyLabel: applyLabels[g.Task]}
		}
		return execute("worldbible", "World Bible", data)
	})
}

func worldBibleTarget(projectID, entityID string) nav.Target {
	return nav.Target{Page: nav.PageWorldBible, ProjectID: projectID, EntityID: entityID}
}

func (a *App) addEntity(_ context.Context, req *router.Request) (nav.Target, error) {
	kind, ok := project.ParseKind(formTrim(req.Form, "kind"))
	if !ok {
		return req.Target, notice.Advise(ErrInvalidInput, "Choose what kind of entry this is.")
	}
	name := formTrim(req.Form, "name")
	if name == "" {
		return req.Target, notice.Advise(ErrInvalidInput, "Give the entry a name.")
	}
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	e := p.AddEntity(kind, name, formTrim(req.Form, "description"), splitTags(req.Form.Get("tags")), a.store.Now())
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	return worldBibleTarget(p.ID, e.ID), nil
}

func (a *App) saveEntity(_ context.Context, req *router.Request) (nav.Target, error) {
	entityID := formTrim(req.Form, "entity")
	if err := cooldown(req.Session, "entity.save:"+entityID, a.Config().SaveCooldown(), "saved this entry"); err != nil {
		return req.Target, err
	}
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	name := formTrim(req.Form, "name")
	if name == "" {
		return req.Target, notice.Advise(ErrInvalidInput, "Give the entry a name.")
	}
	if err := p.UpdateEntity(entityID, name, formTrim(req.Form, "description"), splitTags(req.Form.Get("tags")), a.store.Now()); err != nil {
		return req.Target, notice.Advise(err, "That entry no longer exists.")
	}
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	req.Session.AddNotice(notice.Success("Entry saved."))
	return worldBibleTarget(p.ID, entityID), nil
}

func (a *App) deleteEntity(_ context.Context, req *router.Request) (nav.Target, error) {
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	if err := p.DeleteEntity(formTrim(req.Form, "entity"), a.store.Now()); err != nil {
		return req.Target, notice.Advise(err, "That entry no longer exists.")
	}
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	req.Session.AddNotice(notice.Info("Entry deleted."))
	return worldBibleTarget(p.ID, ""), nil
}

// filterWorldBible remembers the kind filter for this session. An unknown
// kind clears it.
func (a *App) filterWorldBible(_ context.Context, req *router.Request) (nav.Target, error) {
	kind, ok := project.ParseKind(formTrim(req.Form, "kind"))
	if !ok {
		kind = ""
	}
	req.Session.SetWorldBibleFilter(string(kind))
	return worldBibleTarget(projectTarget(req), ""), nil
}

func (a *App) addMemory(_ context.Context, req *router.Request) (nav.Target, error) {
	text := formTrim(req.Form, "text")
	if text == "" {
		return req.Target, notice.Advise(ErrInvalidInput, "Write the fact you want the AI to remember.")
	}
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	p.AddMemory(text, a.store.Now())
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	return worldBibleTarget(p.ID, formTrim(req.Form, "entity")), nil
}

func (a *App) deleteMemory(_ context.Context, req *router.Request) (nav.Target, error) {
	p, err := a.OpenProject(projectTarget(req))
	if err != nil {
		return req.Target, err
	}
	if err := p.DeleteMemory(formTrim(req.Form, "note"), a.store.Now()); err != nil {
		return req.Target, notice.Advise(err, "That note no longer exists.")
	}
	if err := a.saveProject(p); err != nil {
		return req.Target, err
	}
	return worldBibleTarget(p.ID, formTrim(req.Form, "entity")), nil
}
