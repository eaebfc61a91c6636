// Package pages renders every storyforge page and handles their form
// actions. Pages are registered on a router.Router, which supplies the
// error boundary; this package only deals with the happy path and the
// failures it can explain to the user.
package pages

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/assist"
	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/recall"
	"github.com/ziadkadry99/storyforge/internal/router"
	"github.com/ziadkadry99/storyforge/internal/session"
	"github.com/ziadkadry99/storyforge/internal/usage"
)

// CouldNotOpenProject is the single advisory shown for a missing or
// damaged project file.
const CouldNotOpenProject = "Could not open project. It may have been deleted or its file is damaged; run storyforge repair to recover it."

var (
	// ErrCooldown marks an action refused because it ran too recently.
	ErrCooldown = errors.New("action on cooldown")
	// ErrInvalidInput marks a form that is missing a required value.
	ErrInvalidInput = errors.New("invalid form input")
)

// Deps are the services pages use. Usage and Recall may be nil.
type Deps struct {
	Config     *config.Config
	ConfigPath string
	Warnings   config.Warnings
	Store      *project.Store
	Assist     *assist.Service
	Usage      *usage.Store
	Recall     *recall.Index
	Log        *zap.Logger
}

// App holds page state shared across sessions.
type App struct {
	mu       sync.RWMutex
	cfg      *config.Config
	cfgPath  string
	warnings config.Warnings
	store    *project.Store
	assist   *assist.Service
	usage    *usage.Store
	recall   *recall.Index
	log      *zap.Logger
}

// New creates an App.
func New(d Deps) *App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Config == nil {
		d.Config = config.DefaultConfig()
	}
	return &App{
		cfg:      d.Config,
		cfgPath:  d.ConfigPath,
		warnings: d.Warnings,
		store:    d.Store,
		assist:   d.Assist,
		usage:    d.Usage,
		recall:   d.Recall,
		log:      d.Log,
	}
}

// Config returns the current configuration. Callers must not modify it.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) setConfig(c *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = c
	a.warnings = nil
}

func (a *App) configWarnings() config.Warnings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.warnings
}

// Register installs every page renderer, action and the fallback page on r.
func (a *App) Register(r *router.Router) {
	r.Register(nav.PageHome, a.renderHome)
	r.Register(nav.PageProjects, a.renderProjects)
	r.Register(nav.PageEditor, a.renderEditor)
	r.Register(nav.PageWorldBible, a.renderWorldBible)
	r.Register(nav.PageExport, a.renderExport)
	r.Register(nav.PageSettings, a.renderSettings)
	r.SetFallback(a.renderFallback)

	r.RegisterAction("project.create", a.createProject)
	r.RegisterAction("project.update", a.updateProject)
	r.RegisterAction("project.delete", a.deleteProject)

	r.RegisterAction("chapter.add", a.addChapter)
	r.RegisterAction("chapter.save", a.saveChapter)
	r.RegisterAction("chapter.delete", a.deleteChapter)
	r.RegisterAction("chapter.move", a.moveChapter)

	r.RegisterAction("entity.add", a.addEntity)
	r.RegisterAction("entity.save", a.saveEntity)
	r.RegisterAction("entity.delete", a.deleteEntity)
	r.RegisterAction("worldbible.filter", a.filterWorldBible)
	r.RegisterAction("memory.add", a.addMemory)
	r.RegisterAction("memory.delete", a.deleteMemory)

	r.RegisterAction("assist.generate", a.generate)
	r.RegisterAction("generation.apply", a.applyGeneration)
	r.RegisterAction("generation.discard", a.discardGeneration)

	r.RegisterAction("export.format", a.chooseExportFormat)

	r.RegisterAction("settings.overrides", a.saveOverrides)
	r.RegisterAction("settings.save", a.saveSettings)
	r.RegisterAction("debug.toggle", a.toggleDebug)
	r.RegisterAction("debug.clear", a.clearDebug)
}

// OpenProject loads id, converting a missing or corrupt file into one
// advisory. The underlying cause is logged and kept in the error chain.
func (a *App) OpenProject(id string) (*project.Project, error) {
	p, err := a.store.Load(id)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, project.ErrNotFound) || errors.Is(err, project.ErrCorruptData) {
		a.log.Warn("could not open project", zap.String("project", id), zap.Error(err))
		return nil, notice.Advise(err, CouldNotOpenProject)
	}
	return nil, err
}

// saveProject persists p and reports failures as an advisory.
func (a *App) saveProject(p *project.Project) error {
	if err := a.store.Save(p); err != nil {
		a.log.Error("saving project failed", zap.String("project", p.ID), zap.Error(err))
		return notice.Advise(err, "The project could not be saved. Your last saved version is unchanged.")
	}
	return nil
}

// cooldown enforces min between runs of action within one session.
func cooldown(sess *session.Session, action string, min time.Duration, verb string) error {
	wait := sess.Cooldowns().Remaining(action, min)
	if wait <= 0 {
		return nil
	}
	secs := max(1, int((wait+time.Second-1)/time.Second))
	return notice.Advise(ErrCooldown, fmt.Sprintf("You %s a moment ago. Try again in %ds.", verb, secs))
}

// execute renders the named template into an Output.
func execute(name, title string, data any) (router.Output, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return router.Output{}, fmt.Errorf("executing %s template: %w", name, err)
	}
	return router.Output{Title: title, Body: template.HTML(buf.String())}, nil
}

func formInt(form url.Values, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(form.Get(key)))
	if err != nil {
		return def
	}
	return n
}

func formFloat(form url.Values, key string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(form.Get(key)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

func formTrim(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

// splitTags parses a comma separated tag list.
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// projectTarget reads the project ID an action applies to.
func projectTarget(req *router.Request) string {
	if id := formTrim(req.Form, "project"); id != "" {
		return id
	}
	return req.Target.ProjectID
}
