package router

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/session"
	"github.com/ziadkadry99/storyforge/internal/uictx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRequest(t nav.Target) *Request {
	s := session.New("test-session")
	session.Initialize(s, nil, nil)
	s.SetNav(t)
	return &Request{Session: s, Target: t, UI: uictx.NewRoot()}
}

func static(body string) Renderer {
	return func(context.Context, *Request) (Output, error) {
		return Output{Body: template.HTML(body)}, nil
	}
}

func newRouter() *Router {
	r := New(nil)
	r.Register(nav.PageHome, static("<p>home</p>"))
	r.Register(nav.PageProjects, static("<p>projects</p>"))
	return r
}

func TestRenderSuccess(t *testing.T) {
	r := newRouter()
	req := newRequest(nav.Target{Page: nav.PageProjects})

	res := r.RenderCurrentPage(context.Background(), req)
	if res.Outcome != OutcomeSuccess || !res.Resolved || res.Err != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Output.Status != http.StatusOK || res.Output.Title != "Projects" {
		t.Errorf("expected defaults filled in, got %+v", res.Output)
	}
	if req.Session.LastError() != nil {
		t.Error("success must not record an error")
	}
}

func TestRenderUnknownPageResolvesHomeWithNotice(t *testing.T) {
	r := newRouter()
	req := newRequest(nav.Home())
	req.NotFound = "unknown_page_xyz"

	res := r.RenderCurrentPage(context.Background(), req)
	if res.Resolved {
		t.Error("expected Resolved=false")
	}
	if res.Page != nav.PageHome || res.Outcome != OutcomeSuccess {
		t.Errorf("expected home success, got page %v outcome %v", res.Page, res.Outcome)
	}
	if !strings.Contains(string(res.Output.Body), "home") {
		t.Errorf("expected home content, got %q", res.Output.Body)
	}

	notices := req.Session.TakeNotices()
	if len(notices) != 1 || notices[0].Text != NotFoundMessage || notices[0].Level != notice.LevelWarning {
		t.Errorf("expected a not-found notice, got %+v", notices)
	}
	if req.Session.LastError() != nil {
		t.Error("not found is not a failure")
	}
}

func TestRenderUnregisteredPageResolvesHome(t *testing.T) {
	r := newRouter()
	req := newRequest(nav.Target{Page: nav.PageSettings})

	res := r.RenderCurrentPage(context.Background(), req)
	if res.Resolved || res.Page != nav.PageHome {
		t.Errorf("expected fallback to home, got %+v", res)
	}
	if req.Session.Nav().Page != nav.PageHome {
		t.Errorf("expected session nav reset to home, got %v", req.Session.Nav().Page)
	}
}

func TestRenderFailuresUseFallback(t *testing.T) {
	tests := []struct {
		name     string
		renderer Renderer
		wantErr  func(error) bool
	}{
		{
			name: "error",
			renderer: func(context.Context, *Request) (Output, error) {
				return Output{}, errors.New("disk on fire")
			},
			wantErr: func(err error) bool { return err != nil && strings.Contains(err.Error(), "disk on fire") },
		},
		{
			name: "panic",
			renderer: func(context.Context, *Request) (Output, error) {
				var m map[string]int
				m["boom"]++
				return Output{}, nil
			},
			wantErr: func(err error) bool {
				var pe *PanicError
				return errors.As(err, &pe)
			},
		},
		{
			name:     "empty output",
			renderer: static("   "),
			wantErr:  func(err error) bool { return errors.Is(err, ErrEmptyOutput) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter()
			r.Register(nav.PageEditor, tt.renderer)
			req := newRequest(nav.Target{Page: nav.PageEditor, ProjectID: "p1"})

			res := r.RenderCurrentPage(context.Background(), req)
			if res.Outcome != OutcomeFailed {
				t.Fatalf("expected OutcomeFailed, got %v", res.Outcome)
			}
			if !tt.wantErr(res.Err) {
				t.Errorf("unexpected error %v", res.Err)
			}
			if res.Output.Empty() || res.Output.Status != http.StatusInternalServerError {
				t.Errorf("expected non-empty 500 fallback, got %+v", res.Output)
			}
			body := string(res.Output.Body)
			if !strings.Contains(body, "Return to the dashboard") || !strings.Contains(body, genericFailure) {
				t.Errorf("fallback missing message or home link:\n%s", body)
			}
			if strings.Contains(body, "goroutine") || strings.Contains(body, "disk on fire") {
				t.Errorf("fallback leaks detail:\n%s", body)
			}

			rec := req.Session.LastError()
			if rec == nil || rec.Page != "editor" || rec.Detail == "" {
				t.Errorf("expected an error record, got %+v", rec)
			}
		})
	}
}

func TestRenderAdvisoryMessageShownInFallback(t *testing.T) {
	r := newRouter()
	r.Register(nav.PageExport, func(context.Context, *Request) (Output, error) {
		return Output{}, notice.Advise(errors.New("EOF"), "The export could not be prepared.")
	})
	req := newRequest(nav.Target{Page: nav.PageExport})

	res := r.RenderCurrentPage(context.Background(), req)
	if !strings.Contains(string(res.Output.Body), "The export could not be prepared.") {
		t.Errorf("expected advisory text in fallback, got %s", res.Output.Body)
	}
}

func TestRenderFailingFallbackGivesStaticPage(t *testing.T) {
	for name, fb := range map[string]FallbackRenderer{
		"error": func(context.Context, *Request, *session.ErrorRecord) (Output, error) {
			return Output{}, errors.New("template missing")
		},
		"panic": func(context.Context, *Request, *session.ErrorRecord) (Output, error) {
			panic("fallback exploded")
		},
		"empty": func(context.Context, *Request, *session.ErrorRecord) (Output, error) {
			return Output{}, nil
		},
	} {
		t.Run(name, func(t *testing.T) {
			r := newRouter()
			r.SetFallback(fb)
			r.Register(nav.PageEditor, func(context.Context, *Request) (Output, error) {
				panic("page exploded")
			})
			req := newRequest(nav.Target{Page: nav.PageEditor})

			res := r.RenderCurrentPage(context.Background(), req)
			if res.Outcome != OutcomeStatic || !res.Output.Standalone {
				t.Fatalf("expected static outcome, got %+v", res)
			}
			if !strings.Contains(string(res.Output.Body), "/?page=home") {
				t.Errorf("static page must link home:\n%s", res.Output.Body)
			}
		})
	}
}

func TestRenderWithNoHomeRendererStillProducesOutput(t *testing.T) {
	r := New(nil)
	req := newRequest(nav.Home())

	res := r.RenderCurrentPage(context.Background(), req)
	if !errors.Is(res.Err, ErrNoRenderer) || res.Output.Empty() {
		t.Errorf("expected non-empty failure output, got %+v", res)
	}
}

func TestRenderIsTotalOverAllPages(t *testing.T) {
	r := newRouter()
	r.Register(nav.PageEditor, func(context.Context, *Request) (Output, error) { panic("x") })
	r.Register(nav.PageWorldBible, static(""))

	for _, p := range append(nav.Pages(), nav.Page(99)) {
		req := newRequest(nav.Target{Page: p})
		if res := r.RenderCurrentPage(context.Background(), req); res.Output.Empty() {
			t.Errorf("page %v produced empty output", p)
		}
	}
}

func TestStaticPageEscapesMessage(t *testing.T) {
	out := StaticPage("<b>bad</b>")
	if strings.Contains(string(out.Body), "<b>") || !strings.Contains(string(out.Body), "&lt;b&gt;") {
		t.Errorf("expected escaped message, got %s", out.Body)
	}
	if !strings.Contains(string(StaticPage("").Body), genericFailure) {
		t.Error("expected generic text for empty message")
	}
}

func TestPerformSuccessMovesNav(t *testing.T) {
	r := newRouter()
	r.RegisterAction("open", func(_ context.Context, req *Request) (nav.Target, error) {
		return nav.Target{Page: nav.PageEditor, ProjectID: req.Form.Get("id")}, nil
	})
	req := newRequest(nav.Home())
	req.Form = map[string][]string{"id": {"p9"}}

	res := r.Perform(context.Background(), req, "open")
	if res.Err != nil {
		t.Fatalf("unexpected error %v", res.Err)
	}
	want := nav.Target{Page: nav.PageEditor, ProjectID: "p9"}
	if res.Next != want || req.Session.Nav() != want {
		t.Errorf("expected nav %+v, got %+v / %+v", want, res.Next, req.Session.Nav())
	}
}

func TestPerformAdvisoryBecomesNotice(t *testing.T) {
	r := newRouter()
	r.RegisterAction("save", func(context.Context, *Request) (nav.Target, error) {
		return nav.Target{}, notice.Advise(errors.New("cooldown"), "Please wait before saving again.")
	})
	start := nav.Target{Page: nav.PageEditor, ProjectID: "p1"}
	req := newRequest(start)

	res := r.Perform(context.Background(), req, "save")
	if res.Err == nil || res.Next != start {
		t.Errorf("expected failure staying on %+v, got %+v", start, res)
	}
	notices := req.Session.TakeNotices()
	if len(notices) != 1 || notices[0].Text != "Please wait before saving again." {
		t.Errorf("unexpected notices %+v", notices)
	}
	if req.Session.LastError() != nil {
		t.Error("advisories are not recorded as errors")
	}
}

func TestPerformPanicIsRecorded(t *testing.T) {
	r := newRouter()
	r.RegisterAction("explode", func(context.Context, *Request) (nav.Target, error) { panic("kaboom") })
	req := newRequest(nav.Home())

	res := r.Perform(context.Background(), req, "explode")
	var pe *PanicError
	if !errors.As(res.Err, &pe) {
		t.Fatalf("expected PanicError, got %v", res.Err)
	}
	if rec := req.Session.LastError(); rec == nil || !strings.Contains(rec.Detail, "kaboom") {
		t.Errorf("expected panic in error record, got %+v", rec)
	}
	if n := req.Session.TakeNotices(); len(n) != 1 || n[0].Level != notice.LevelError {
		t.Errorf("expected one error notice, got %+v", n)
	}
}

func TestPerformUnknownAction(t *testing.T) {
	r := newRouter()
	req := newRequest(nav.Home())

	if res := r.Perform(context.Background(), req, "fly"); res.Err == nil {
		t.Error("expected error for unknown action")
	}
	if n := req.Session.TakeNotices(); len(n) != 1 {
		t.Errorf("expected one notice, got %+v", n)
	}
}
