// Package selftest exercises the running installation end to end without
// a browser: configuration, storage, the router's error boundary, input
// sanitizing and provider construction.
package selftest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/assist"
	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/llm"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/pages"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/router"
	"github.com/ziadkadry99/storyforge/internal/session"
	"github.com/ziadkadry99/storyforge/internal/uictx"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is one named step of the self-test.
type Check struct {
	Name    string
	Status  Status
	Detail  string
	Elapsed time.Duration
}

// Report is the result of Run.
type Report struct {
	Checks []Check
}

// OK reports whether no check failed. Warnings do not fail the run.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Options configure Run.
type Options struct {
	ConfigPath string
	// WorkDir is where scratch projects are written. A temporary directory
	// is used when empty.
	WorkDir string
	Log     *zap.Logger
	// ProviderOptions are applied when building the AI provider, for
	// example to supply stored credentials.
	ProviderOptions []llm.Option
}

// errWarn marks a check that passed with a caveat.
type errWarn struct{ msg string }

func (e errWarn) Error() string { return e.msg }

type step struct {
	name string
	run  func(ctx context.Context, env *env) (string, error)
}

type env struct {
	cfg      *config.Config
	warnings config.Warnings
	workDir  string
	log      *zap.Logger
	llmOpts  []llm.Option
}

var steps = []step{
	{"config", checkConfig},
	{"storage", checkStorage},
	{"router", checkRouter},
	{"sanitizer", checkSanitizer},
	{"ui keys", checkUIKeys},
	{"provider", checkProvider},
}

// Run executes every check in order. A failing check does not stop the
// ones after it.
func Run(ctx context.Context, opts Options) (*Report, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	workDir := opts.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "storyforge-selftest-")
		if err != nil {
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	cfg, warnings := config.Load(opts.ConfigPath)
	e := &env{cfg: cfg, warnings: warnings, workDir: workDir, log: log, llmOpts: opts.ProviderOptions}

	report := &Report{}
	for _, s := range steps {
		start := time.Now()
		detail, err := runStep(ctx, s, e)
		c := Check{Name: s.name, Status: StatusPass, Detail: detail, Elapsed: time.Since(start)}
		var w errWarn
		switch {
		case errors.As(err, &w):
			c.Status, c.Detail = StatusWarn, w.msg
		case err != nil:
			c.Status, c.Detail = StatusFail, err.Error()
		}
		log.Debug("self-test check", zap.String("check", c.Name), zap.String("status", string(c.Status)), zap.String("detail", c.Detail))
		report.Checks = append(report.Checks, c)
	}
	return report, nil
}

func runStep(ctx context.Context, s step, e *env) (detail string, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v", v)
		}
	}()
	return s.run(ctx, e)
}

func checkConfig(_ context.Context, e *env) (string, error) {
	warnings := e.warnings
	if err := e.cfg.Validate(); err != nil {
		return "", fmt.Errorf("loaded configuration is invalid: %w", err)
	}
	if len(warnings) > 0 {
		return "", errWarn{fmt.Sprintf("%d setting(s) fell back to defaults, first: %s", len(warnings), warnings[0])}
	}
	return fmt.Sprintf("provider %s, model %s", e.cfg.Provider, e.cfg.Model), nil
}

func checkStorage(_ context.Context, e *env) (string, error) {
	store := project.NewStore(filepath.Join(e.workDir, "projects"))
	p, err := store.Create("Self-test", "", "")
	if err != nil {
		return "", err
	}
	ch := p.AddChapter("One", store.Now())
	if err := p.UpdateChapter(ch.ID, ch.Title, "It works.", "", store.Now()); err != nil {
		return "", err
	}
	if err := store.Save(p); err != nil {
		return "", err
	}
	back, err := store.Load(p.ID)
	if err != nil {
		return "", err
	}
	if got, _ := back.Chapter(ch.ID); got == nil || got.Content != "It works." {
		return "", errors.New("round trip lost chapter content")
	}

	if err := os.WriteFile(filepath.Join(store.Dir(), p.ID+".json"), []byte("{broken"), 0o644); err != nil {
		return "", err
	}
	if _, err := store.Load(p.ID); !errors.Is(err, project.ErrCorruptData) {
		return "", fmt.Errorf("corrupt file not detected: %v", err)
	}
	report, err := store.Repair(nil)
	if err != nil {
		return "", err
	}
	if report.Count(project.RepairRestored) != 1 {
		return "", errors.New("repair did not restore the backup")
	}
	return "save, load, corruption detection and repair", nil
}

func checkRouter(ctx context.Context, e *env) (string, error) {
	cfg := *e.cfg
	app := pages.New(pages.Deps{Config: &cfg, Store: project.NewStore(filepath.Join(e.workDir, "router")), Log: e.log})
	r := router.New(e.log)
	app.Register(r)

	newReq := func(t nav.Target) *router.Request {
		sess := session.New("selftest")
		session.Initialize(sess, &cfg, e.log)
		return &router.Request{Session: sess, Target: t, UI: uictx.NewRoot()}
	}

	for _, p := range nav.Pages() {
		res := r.RenderCurrentPage(ctx, newReq(nav.Target{Page: p, ProjectID: "missing"}))
		if res.Output.Empty() || res.Outcome != router.OutcomeSuccess {
			return "", fmt.Errorf("page %s: outcome %s: %v", p, res.Outcome, res.Err)
		}
	}

	req := newReq(nav.Home())
	req.NotFound = "unknown_page_xyz"
	if res := r.RenderCurrentPage(ctx, req); res.Resolved || res.Page != nav.PageHome || res.Output.Empty() {
		return "", errors.New("unknown page did not resolve to the dashboard")
	}

	r.Register(nav.PageSettings, func(context.Context, *router.Request) (router.Output, error) {
		panic("self-test")
	})
	req = newReq(nav.Target{Page: nav.PageSettings})
	res := r.RenderCurrentPage(ctx, req)
	if res.Outcome != router.OutcomeFailed || res.Output.Empty() || req.Session.LastError() == nil {
		return "", fmt.Errorf("panicking page: outcome %s", res.Outcome)
	}

	r.SetFallback(func(context.Context, *router.Request, *session.ErrorRecord) (router.Output, error) {
		return router.Output{}, errors.New("self-test")
	})
	if res := r.RenderCurrentPage(ctx, newReq(nav.Target{Page: nav.PageSettings})); res.Outcome != router.OutcomeStatic || res.Output.Empty() {
		return "", fmt.Errorf("failing fallback: outcome %s", res.Outcome)
	}
	return fmt.Sprintf("%d pages, unknown page, failing page and failing fallback", len(nav.Pages())), nil
}

func checkSanitizer(context.Context, *env) (string, error) {
	in := "\x1b[31mred\x1b[0m text\x07\u202e"
	if got := assist.Sanitize(in, 0); got != "red text" {
		return "", fmt.Errorf("sanitized %q to %q", in, got)
	}
	return "control sequences removed", nil
}

func checkUIKeys(context.Context, *env) (string, error) {
	root := uictx.NewRoot()
	a := root.Scope("editor").Key("save")
	b := root.Scope("editor").Key("save")
	if a == b {
		return "", fmt.Errorf("duplicate key %q issued twice", a)
	}
	c := uictx.NewCooldowns()
	if c.Remaining("save", time.Minute) != 0 || c.Remaining("save", time.Minute) <= 0 {
		return "", errors.New("cooldown not enforced")
	}
	return "scoped keys unique, cooldown enforced", nil
}

func checkProvider(_ context.Context, e *env) (string, error) {
	p, err := llm.NewProvider(e.cfg, e.llmOpts...)
	if err != nil {
		if errors.Is(err, llm.ErrAuth) {
			return "", errWarn{fmt.Sprintf("%s has no API key; AI assist will report %q", e.cfg.Provider, assist.UserMessage(err))}
		}
		if msg, ok := notice.Message(err); ok {
			return "", errWarn{msg}
		}
		return "", err
	}
	return p.Name() + " ready", nil
}
