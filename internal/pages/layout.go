package pages

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/router"
	"github.com/ziadkadry99/storyforge/internal/session"
	"github.com/ziadkadry99/storyforge/internal/uictx"
)

type menuItem struct {
	Title    string
	URL      string
	Active   bool
	Disabled bool
}

type debugData struct {
	Record    *session.ErrorRecord
	SessionID string
	Provider  string
	Model     string
	Version   string
}

type layoutData struct {
	Title    string
	Theme    string
	FontSize int
	Menu     []menuItem
	Notices  []notice.Notice
	Body     template.HTML
	Debug    *debugData
}

// Layout writes out wrapped in the page chrome: menu, pending notices and,
// when enabled for the session, the debug panel. Standalone output is
// written unchanged.
func (a *App) Layout(w io.Writer, req *router.Request, out router.Output) error {
	if out.Standalone {
		_, err := io.WriteString(w, string(out.Body))
		return err
	}
	cfg := a.Config()
	sess := req.Session
	current := sess.Nav()

	data := layoutData{
		Title:    out.Title,
		Theme:    cfg.Theme,
		FontSize: cfg.EditorFontSize,
		Body:     out.Body,
	}
	for _, p := range nav.Pages() {
		data.Menu = append(data.Menu, menuItem{
			Title:    p.Title(),
			URL:      current.To(p).URL(),
			Active:   p == current.Page,
			Disabled: p.NeedsProject() && current.ProjectID == "",
		})
	}
	if sess.ShowDebug() {
		d := &debugData{
			Record:    sess.LastError(),
			SessionID: sess.ID(),
			Model:     sess.Overrides(session.Overrides{Model: cfg.Model}).Model,
			Version:   cfg.AppVersion,
		}
		if a.assist != nil {
			d.Provider = a.assist.ProviderName()
		}
		data.Debug = d
	}
	// Notices are taken last so a failed layout does not lose them.
	data.Notices = sess.TakeNotices()

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout", data); err != nil {
		for _, n := range data.Notices {
			sess.AddNotice(n)
		}
		return fmt.Errorf("executing layout template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// ui returns the key scope for a render pass.
func ui(req *router.Request, prefix string) *uictx.Scope {
	root := req.UI
	if root == nil {
		root = uictx.NewRoot()
		req.UI = root
	}
	return root.Scope(prefix)
}

// keys issues one element key per name under scope.
func keys(scope *uictx.Scope, names ...string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[n] = scope.Key(n)
	}
	return m
}

type unavailableData struct {
	Heading     string
	Message     string
	ProjectsURL string
}

// unavailable renders the page shown when a project page has no usable
// project. It is a normal page, not a failure.
func unavailable(heading, message string) (router.Output, error) {
	out, err := execute("unavailable", heading, unavailableData{
		Heading:     heading,
		Message:     message,
		ProjectsURL: nav.Target{Page: nav.PageProjects}.URL(),
	})
	out.Status = http.StatusOK
	return out, err
}

type fallbackData struct {
	Message string
	HomeURL string
	Debug   bool
}

// renderFallback is the failure page. It points the user home and, with
// the debug panel on, at the recorded detail.
func (a *App) renderFallback(_ context.Context, req *router.Request, rec *session.ErrorRecord) (router.Output, error) {
	out, err := execute("fallback", "Something went wrong", fallbackData{
		Message: rec.Message,
		HomeURL: nav.Home().URL(),
		Debug:   req.Session.ShowDebug(),
	})
	out.Status = http.StatusInternalServerError
	return out, err
}
