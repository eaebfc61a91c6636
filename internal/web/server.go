// Package web serves the storyforge UI over HTTP. Every page request and
// form post runs inside the caller's session, which is held exclusively for
// the duration of the request.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/assist"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/pages"
	"github.com/ziadkadry99/storyforge/internal/router"
	"github.com/ziadkadry99/storyforge/internal/session"
	"github.com/ziadkadry99/storyforge/internal/uictx"
)

// CookieName holds the session ID.
const CookieName = "storyforge_session"

// maxFormBytes bounds a form post. Chapters are the largest field.
const maxFormBytes = 4 << 20

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool          // allow all CORS origins (dev mode)
	Timeout  time.Duration // per-request limit; must exceed the AI request timeout
	Version  string
}

// Server is the storyforge HTTP server.
type Server struct {
	cfg        Config
	app        *pages.App
	pages      *router.Router
	sessions   *session.Manager
	assist     *assist.Service
	log        *zap.Logger
	mux        chi.Router
	httpServer *http.Server
}

// New creates a server. svc may be nil, in which case the assist socket
// reports that AI is not configured.
func New(cfg Config, app *pages.App, pageRouter *router.Router, sessions *session.Manager, svc *assist.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		app:      app,
		pages:    pageRouter,
		sessions: sessions,
		assist:   svc,
		log:      log,
	}
	s.mux = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)
	// The socket manages its own deadlines per message.
	r.Get("/ws/assist", s.handleAssistSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Timeout))
		r.Get("/", s.handlePage)
		r.Post("/actions/{name}", s.handleAction)
		r.Get("/export/{id}", s.handleExport)
	})
	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.mux }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info("storyforge listening", zap.String("addr", addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs one line per request through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// session acquires the caller's session and refreshes the cookie when a new
// session was created.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, func()) {
	var id string
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}
	sess, release := s.sessions.Acquire(id)
	if sess.ID() != id {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, release
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","version":%q}`, s.cfg.Version)
}

// handlePage renders the session's current page. A page query parameter
// navigates first; an unknown page identifier is passed to the router,
// which shows the dashboard with a notice.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, release := s.session(w, r)
	defer release()

	req := &router.Request{Session: sess, Target: sess.Nav(), UI: uictx.NewRoot()}
	query := r.URL.Query()
	if query.Has("page") {
		target, ok := nav.FromQuery(query)
		if ok {
			sess.SetNav(target)
			req.Target = target
		} else {
			req.NotFound = query.Get("page")
		}
	}

	res := s.pages.RenderCurrentPage(r.Context(), req)
	s.write(w, req, res.Output)
}

// write sends out inside the layout. A layout failure still produces the
// static page.
func (s *Server) write(w http.ResponseWriter, req *router.Request, out router.Output) {
	var buf bytes.Buffer
	if err := s.app.Layout(&buf, req, out); err != nil {
		s.log.Error("layout failed", zap.String("session", req.Session.ID()), zap.Error(err))
		buf.Reset()
		out = router.StaticPage("")
		buf.WriteString(string(out.Body))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(out.Status)
	_, _ = buf.WriteTo(w)
}

// handleAction runs a form post and redirects to the session's page.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, release := s.session(w, r)
	defer release()

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.log.Warn("bad form post", zap.String("session", sess.ID()), zap.Error(err))
		sess.AddNotice(notice.Warning("That form could not be read. Try again."))
	} else {
		req := &router.Request{Session: sess, Target: sess.Nav(), Form: r.PostForm}
		s.pages.Perform(r.Context(), req, chi.URLParam(r, "name"))
	}
	http.Redirect(w, r, sess.Nav().URL(), http.StatusSeeOther)
}

// handleExport serves a rendered manuscript as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.app.Export(id, r.URL.Query().Get("format"))
	if err != nil {
		sess, release := s.session(w, r)
		defer release()
		s.log.Warn("export failed", zap.String("project", id), zap.Error(err))
		sess.AddNotice(notice.From(err, "The export could not be created."))
		http.Redirect(w, r, nav.Target{Page: nav.PageExport, ProjectID: id}.URL(), http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}
