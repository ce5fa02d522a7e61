// Package web serves the Document Vault pages: login, dashboard and the document list.
//
// Authentication state lives in the documentVaultUser cookie and is read through an auth.Gate built for
// each request. Document state lives in one process-wide docstore.Store shared by every page.
//
// The shared store makes overlapping requests visible to each other: when two searches race, the one
// whose response arrives late is dropped as stale and that request renders the newer collection. The
// server is meant for a single user.
package web

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/docstore"
	"docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/stats"
)

const (
	// MaxUploadBytes is the body limit the web server should be configured with.
	MaxUploadBytes = 64 << 20

	sessionLocalKey = "session"
)

// Server renders the vault UI on top of a document store and a credential check.
type Server struct {
	store    *docstore.Store
	verifier auth.Verifier
	cfg      config.AuthConfig
	logger   *zap.Logger
	limiter  *loginLimiter
	views    views
	now      func() time.Time
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New parses the embedded templates and returns a server ready to Register.
func New(store *docstore.Store, verifier auth.Verifier, cfg config.AuthConfig, opts ...Option) (*Server, error) {
	v, err := parseViews()
	if err != nil {
		return nil, err
	}
	s := &Server{
		store:    store,
		verifier: verifier,
		cfg:      cfg,
		logger:   zap.NewNop(),
		limiter:  newLoginLimiter(cfg.RatePerMin),
		views:    v,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register attaches the UI routes to app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/login", s.loginPage)
	app.Post("/login", s.login)
	app.Post("/logout", s.logout)

	authed := app.Group("", s.requireAuth, middleware.NoStore())
	authed.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	})
	authed.Get("/dashboard", s.dashboard)
	authed.Get("/documents", s.documents)
	authed.Post("/documents", s.upload)
	authed.Get("/documents/:id/delete", s.confirmDelete)
	authed.Post("/documents/:id/delete", s.remove)
	authed.Get("/documents/:id/download", s.download)
	authed.Get("/api/dashboard", s.dashboardJSON)
}

func (s *Server) gate(c *fiber.Ctx, delay time.Duration) *auth.Gate {
	g := auth.NewGate(s.verifier, newCookiePersistence(c, s.cfg.CookieSecure), auth.WithDelay(delay))
	if err := g.RestoreErr(); err != nil {
		s.logger.Warn("discarding persisted session",
			zap.String("request_id", middleware.RequestIDFromCtx(c)),
			zap.Error(err),
		)
	}
	return g
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	sess, ok := s.gate(c, 0).Session()
	if !ok {
		if c.Path() == "/api/dashboard" {
			return handler.WriteError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "login required")
		}
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	c.Locals(sessionLocalKey, &sess)
	return c.Next()
}

func sessionFrom(c *fiber.Ctx) *auth.Session {
	s, _ := c.Locals(sessionLocalKey).(*auth.Session)
	return s
}

func (s *Server) loginPage(c *fiber.Ctx) error {
	if s.gate(c, 0).State() == auth.Authenticated {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return s.render(c, fiber.StatusOK, "login", s.loginData("", ""))
}

func (s *Server) login(c *fiber.Ctx) error {
	if ok, wait := s.limiter.allow(c.IP(), s.now()); !ok {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(wait.Round(time.Second)/time.Second)+1))
		return s.render(c, fiber.StatusTooManyRequests, "login",
			s.loginData(c.FormValue("username"), "Too many login attempts. Please wait and try again."))
	}

	username := c.FormValue("username")
	_, err := s.gate(c, s.cfg.LoginDelay).Submit(c.UserContext(), username, c.FormValue("password"))
	switch {
	case err == nil:
		s.logger.Info("user logged in", zap.String("username", username))
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	case errors.Is(err, auth.ErrAlreadyAuthenticated):
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.logger.Info("login rejected", zap.String("username", username))
		return s.render(c, fiber.StatusUnauthorized, "login", s.loginData(username, "Invalid username or password"))
	default:
		s.logger.Error("login failed", zap.String("username", username), zap.Error(err))
		return s.render(c, fiber.StatusInternalServerError, "login", s.loginData(username, "Something went wrong"))
	}
}

func (s *Server) loginData(username, msg string) *page {
	p := &page{Title: "Sign In", Username: username, Error: msg}
	if fc, ok := s.verifier.(auth.FixedCredentials); ok {
		p.Demo = &fc
	}
	return p
}

func (s *Server) logout(c *fiber.Ctx) error {
	g := s.gate(c, 0)
	username := ""
	if sess, ok := g.Session(); ok {
		username = sess.Username
	}
	if err := g.Logout(); err != nil {
		s.logger.Warn("logout failed to clear session", zap.Error(err))
	}
	if username != "" {
		s.logger.Info("user logged out", zap.String("username", username))
	}
	return c.Redirect("/login", fiber.StatusSeeOther)
}

func (s *Server) dashboard(c *fiber.Ctx) error {
	_ = s.store.LoadAll(c.UserContext())
	v := s.store.Snapshot()
	p := s.base(c, "Dashboard", "dashboard", v)
	p.Stats = v.Stats
	p.Recent = stats.Recent(v.Documents, stats.DashboardRecent)
	p.Distribution = stats.Distribution(v.Stats)
	return s.render(c, fiber.StatusOK, "dashboard", p)
}

type dashboardResponse struct {
	User         *auth.Session     `json:"user"`
	Stats        stats.Statistics  `json:"stats"`
	Distribution []stats.TypeShare `json:"distribution"`
	Recent       []model.Document  `json:"recent"`
}

func (s *Server) dashboardJSON(c *fiber.Ctx) error {
	if err := s.store.LoadAll(c.UserContext()); err != nil {
		return handler.WriteError(c, fiber.StatusBadGateway, "FETCH_FAILED", docstore.Message(err))
	}
	v := s.store.Snapshot()
	return c.JSON(dashboardResponse{
		User:         sessionFrom(c),
		Stats:        v.Stats,
		Distribution: stats.Distribution(v.Stats),
		Recent:       stats.Recent(v.Documents, stats.DashboardRecent),
	})
}

func (s *Server) documents(c *fiber.Ctx) error {
	_ = s.store.Search(c.UserContext(), c.Query("query"))
	return s.renderDocuments(c, fiber.StatusOK, draftForm{})
}

func (s *Server) upload(c *fiber.Ctx) error {
	draft := &docstore.Draft{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
	}
	if fh, err := c.FormFile("file"); err == nil && fh.Filename != "" {
		draft.File = &docstore.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		}
	}

	err := s.store.Upload(c.UserContext(), draft)
	switch {
	case err == nil:
		return s.renderDocuments(c, fiber.StatusOK, draftForm{})
	case errors.Is(err, docstore.ErrValidationFailed):
		return s.renderDocuments(c, fiber.StatusUnprocessableEntity, draftForm{Name: draft.Name, Description: draft.Description})
	default:
		return s.renderDocuments(c, fiber.StatusBadGateway, draftForm{Name: draft.Name, Description: draft.Description})
	}
}

func (s *Server) confirmDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	v := s.store.Snapshot()
	p := s.base(c, "Delete document", "documents", docstore.View{})
	p.Prompt = docstore.DeletePrompt
	p.Document = model.Document{ID: id}
	for _, d := range v.Documents {
		if d.ID == id {
			p.Document = d
			break
		}
	}
	return s.render(c, fiber.StatusOK, "confirm_delete", p)
}

func (s *Server) remove(c *fiber.Ctx) error {
	confirmed := docstore.ConfirmFunc(func(string) bool {
		return c.FormValue("confirm") == "yes"
	})
	removed, err := s.store.Remove(c.UserContext(), c.Params("id"), confirmed)
	if err != nil {
		return s.renderDocuments(c, fiber.StatusBadGateway, draftForm{})
	}
	if !removed {
		return c.Redirect("/documents", fiber.StatusSeeOther)
	}
	return s.renderDocuments(c, fiber.StatusOK, draftForm{})
}

func (s *Server) download(c *fiber.Ctx) error {
	saver := docstore.SaverFunc(func(fileName, contentType string, r io.Reader) error {
		c.Attachment(fileName)
		if contentType != "" {
			c.Set(fiber.HeaderContentType, contentType)
		}
		_, err := io.Copy(c, r)
		return err
	})
	if err := s.store.Download(c.UserContext(), c.Params("id"), c.Query("name"), saver); err != nil {
		c.Response().Header.Del(fiber.HeaderContentDisposition)
		c.Response().ResetBody()
		return s.renderDocuments(c, fiber.StatusBadGateway, draftForm{})
	}
	return nil
}

func (s *Server) renderDocuments(c *fiber.Ctx, status int, draft draftForm) error {
	v := s.store.Snapshot()
	p := s.base(c, "Documents", "documents", v)
	p.Documents = v.Documents
	p.Query = v.Query
	p.Loaded = v.Loaded
	p.Draft = draft
	return s.render(c, status, "documents", p)
}

func (s *Server) base(c *fiber.Ctx, title, active string, v docstore.View) *page {
	p := &page{Title: title, Active: active, User: sessionFrom(c), Notice: v.Notice}
	if !v.Notice.ExpiresAt.IsZero() {
		p.NoticeMS = v.Notice.ExpiresAt.Sub(s.now()).Milliseconds()
	}
	return p
}

func (s *Server) render(c *fiber.Ctx, status int, name string, p *page) error {
	body, err := s.views.render(name, p)
	if err != nil {
		s.logger.Error("render failed", zap.String("view", name), zap.Error(err))
		return err
	}
	c.Status(status)
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(body)
}
