// Package router dispatches the session's navigation target to a page
// renderer behind an error boundary. RenderCurrentPage never returns empty
// output: a failing page falls back to the fallback renderer, and a failing
// fallback falls back to a static page.
package router

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/session"
	"github.com/ziadkadry99/storyforge/internal/uictx"
)

var (
	// ErrEmptyOutput is the failure recorded when a renderer returns nothing.
	ErrEmptyOutput = errors.New("renderer produced no output")
	// ErrNoRenderer is the failure recorded when not even the default page
	// is registered.
	ErrNoRenderer = errors.New("no renderer registered")
)

// NotFoundMessage is the notice shown when a page identifier is unknown.
const NotFoundMessage = "That page was not found, so you were taken to the dashboard."

// genericFailure is shown when a failure carries no advisory text.
const genericFailure = "Something went wrong while showing this page."

// Request is everything a renderer or action sees.
type Request struct {
	Session *session.Session
	Target  nav.Target
	// NotFound holds a requested page identifier that did not parse.
	NotFound string
	Form     url.Values
	UI       *uictx.Scope
}

// Output is rendered page content.
type Output struct {
	Title  string
	Body   template.HTML
	Status int
	// Standalone output is a full document and must not be wrapped in the
	// page layout.
	Standalone bool
}

// Empty reports whether o has no visible content.
func (o Output) Empty() bool {
	return strings.TrimSpace(string(o.Body)) == ""
}

// Renderer draws one page.
type Renderer func(ctx context.Context, req *Request) (Output, error)

// FallbackRenderer draws the failure page for rec.
type FallbackRenderer func(ctx context.Context, req *Request, rec *session.ErrorRecord) (Output, error)

// Action handles a form post and returns where to go next.
type Action func(ctx context.Context, req *Request) (nav.Target, error)

// Outcome is how a render ended.
type Outcome int

const (
	// OutcomeSuccess means the page renderer produced the output.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means the page failed and the fallback page was shown.
	OutcomeFailed
	// OutcomeStatic means the fallback failed too and the static page was shown.
	OutcomeStatic
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return "static"
	}
}

// Result is the value RenderCurrentPage returns in place of an error.
type Result struct {
	Page    nav.Page
	Outcome Outcome
	Output  Output
	Err     error
	// Resolved is false when the requested page was unknown and the
	// default page was rendered instead.
	Resolved bool
}

// ActionResult is the value Perform returns.
type ActionResult struct {
	Name string
	Next nav.Target
	Err  error
}

// PanicError wraps a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Router holds the page and action tables.
type Router struct {
	mu        sync.RWMutex
	renderers map[nav.Page]Renderer
	actions   map[string]Action
	fallback  FallbackRenderer
	log       *zap.Logger
	now       func() time.Time
}

// New creates an empty Router using DefaultFallback.
func New(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		renderers: make(map[nav.Page]Renderer),
		actions:   make(map[string]Action),
		fallback:  DefaultFallback,
		log:       log,
		now:       time.Now,
	}
}

// Register sets the renderer for page p.
func (r *Router) Register(p nav.Page, fn Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[p] = fn
}

// RegisterAction sets the handler for a named action.
func (r *Router) RegisterAction(name string, fn Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// SetFallback replaces the failure page renderer.
func (r *Router) SetFallback(fn FallbackRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = fn
}

// Has reports whether page p has a renderer.
func (r *Router) Has(p nav.Page) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.renderers[p]
	return ok
}

// Actions returns the registered action names.
func (r *Router) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

func (r *Router) renderer(p nav.Page) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.renderers[p]
	return fn, ok
}

// RenderCurrentPage resolves req.Target and renders it. It is total: every
// request yields a Result with non-empty Output.
func (r *Router) RenderCurrentPage(ctx context.Context, req *Request) Result {
	res := Result{Resolved: true}

	// Resolving.
	target := req.Target
	fn, ok := r.renderer(target.Page)
	if req.NotFound != "" || !ok {
		requested := req.NotFound
		if requested == "" {
			requested = target.Page.String()
		}
		r.log.Info("page not found", zap.String("page", requested), zap.String("session", req.Session.ID()))
		req.Session.AddNotice(notice.Warning(NotFoundMessage))
		target = nav.Home()
		req.Target = target
		req.NotFound = ""
		req.Session.SetNav(target)
		res.Resolved = false
		fn, ok = r.renderer(target.Page)
	}
	res.Page = target.Page

	// Rendering.
	var err error
	if !ok {
		err = ErrNoRenderer
	} else {
		var out Output
		out, err = callRenderer(ctx, fn, req)
		if err == nil && out.Empty() {
			err = ErrEmptyOutput
		}
		if err == nil {
			if out.Status == 0 {
				out.Status = http.StatusOK
			}
			if out.Title == "" {
				out.Title = target.Page.Title()
			}
			res.Outcome = OutcomeSuccess
			res.Output = out
			return res
		}
	}

	// Failed.
	res.Err = err
	rec := r.record(req, target.Page, err)
	res.Outcome, res.Output = r.renderFallback(ctx, req, rec)
	return res
}

// record stores and logs the failure, returning the session error record.
func (r *Router) record(req *Request, page nav.Page, err error) *session.ErrorRecord {
	msg, ok := notice.Message(err)
	if !ok {
		msg = genericFailure
	}
	detail := err.Error()
	var pe *PanicError
	if errors.As(err, &pe) {
		detail += "\n\n" + string(pe.Stack)
	}

	rec := &session.ErrorRecord{
		Page:    page.String(),
		Message: msg,
		Detail:  detail,
		At:      r.now(),
	}
	req.Session.SetLastError(rec)

	fields := []zap.Field{
		zap.String("page", page.String()),
		zap.String("session", req.Session.ID()),
		zap.Error(err),
	}
	if pe != nil {
		fields = append(fields, zap.ByteString("stack", pe.Stack))
	}
	r.log.Error("page render failed", fields...)
	return rec
}

func (r *Router) renderFallback(ctx context.Context, req *Request, rec *session.ErrorRecord) (Outcome, Output) {
	r.mu.RLock()
	fb := r.fallback
	r.mu.RUnlock()

	if fb != nil {
		out, err := callFallback(ctx, fb, req, rec)
		if err == nil && !out.Empty() {
			if out.Status == 0 {
				out.Status = http.StatusInternalServerError
			}
			return OutcomeFailed, out
		}
		if err == nil {
			err = ErrEmptyOutput
		}
		r.log.Error("fallback render failed", zap.String("session", req.Session.ID()), zap.Error(err))
	}
	return OutcomeStatic, StaticPage(rec.Message)
}

// Perform runs the named action behind the same boundary as rendering.
// Failures become flash notices and keep the current target; success moves
// the session to the returned target.
func (r *Router) Perform(ctx context.Context, req *Request, name string) ActionResult {
	res := ActionResult{Name: name, Next: req.Target}

	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()
	if !ok {
		r.log.Info("unknown action", zap.String("action", name), zap.String("session", req.Session.ID()))
		req.Session.AddNotice(notice.Warning("That action is not available."))
		res.Err = fmt.Errorf("action %q: %w", name, ErrNoRenderer)
		return res
	}

	next, err := callAction(ctx, fn, req)
	if err != nil {
		res.Err = err
		req.Session.AddNotice(notice.From(err, "That action failed. Details are in the debug panel."))
		if _, advisory := notice.Message(err); advisory {
			r.log.Warn("action refused", zap.String("action", name), zap.String("session", req.Session.ID()), zap.Error(err))
		} else {
			r.record(req, req.Target.Page, fmt.Errorf("action %s: %w", name, err))
		}
		return res
	}

	res.Next = next
	req.Session.SetNav(next)
	return res
}

func callRenderer(ctx context.Context, fn Renderer, req *Request) (out Output, err error) {
	defer recoverInto(&err)
	return fn(ctx, req)
}

func callFallback(ctx context.Context, fn FallbackRenderer, req *Request, rec *session.ErrorRecord) (out Output, err error) {
	defer recoverInto(&err)
	return fn(ctx, req, rec)
}

func callAction(ctx context.Context, fn Action, req *Request) (next nav.Target, err error) {
	defer recoverInto(&err)
	return fn(ctx, req)
}

func recoverInto(err *error) {
	if v := recover(); v != nil {
		*err = &PanicError{Value: v, Stack: debug.Stack()}
	}
}
