package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/config"
	"certgen/frontend/internal/model"
	"certgen/frontend/internal/report"
	"certgen/frontend/internal/session"
	"certgen/frontend/internal/views"
)

// Server is the local shell: it gates every page on the session and renders
// views as JSON for a UI to draw.
type Server struct {
	cfg      config.Config
	client   *api.Client
	store    *session.Store
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

func NewServer(cfg config.Config, client *api.Client, store *session.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, client: client, store: store, logger: logger, gatherer: prometheus.DefaultGatherer}
}

// WithGatherer serves /metrics from g instead of the default registry.
func (s *Server) WithGatherer(g prometheus.Gatherer) *Server {
	s.gatherer = g
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Get("/", s.handleRoot)

	r.With(s.redirectIfAuthenticated).Get("/login", s.handleLoginPage)
	r.With(s.redirectIfAuthenticated).Post("/login", s.handleLogin)
	r.With(s.redirectIfAuthenticated).Get("/register", s.handleRegisterPage)
	r.With(s.redirectIfAuthenticated).Post("/register", s.handleRegister)
	r.Post("/logout", s.handleLogout)

	r.Get("/verify", s.handleVerify)
	r.Post("/verify", s.handleVerify)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/certificates/export", s.handleExport)
		mountResource(s, r, "certificates", func(d views.Deps) resourceView[views.CertificateForm] {
			return certificatesResource{views.NewCertificates(d)}
		})
		mountResource(s, r, "courses", func(d views.Deps) resourceView[views.CourseForm] {
			return coursesResource{views.NewCourses(d)}
		})
		mountResource(s, r, "templates", func(d views.Deps) resourceView[views.TemplateForm] {
			return templatesResource{views.NewTemplates(d)}
		})
		mountResource(s, r, "users", func(d views.Deps) resourceView[views.UserForm] {
			return usersResource{views.NewUsers(d)}
		})
	})

	return r
}

// Session gate

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store.State() != session.Authenticated {
			if r.Method == http.MethodGet {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			writeError(w, http.StatusUnauthorized, "no_session")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) redirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store.State() == session.Authenticated {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if s.store.State() == session.Authenticated {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Pages

type page struct {
	Page     string         `json:"page"`
	User     *session.User  `json:"user,omitempty"`
	Nav      []views.Card   `json:"nav,omitempty"`
	Data     any            `json:"data,omitempty"`
	Notices  []views.Notice `json:"notices"`
	Redirect string         `json:"redirect,omitempty"`
}

func (s *Server) deps(r *http.Request, notices *views.Notices) views.Deps {
	return views.Deps{
		Client:   s.client,
		Session:  s.store,
		Notifier: notices,
		Confirmer: views.ConfirmFunc(func(context.Context, string) bool {
			return r.URL.Query().Get("confirm") == "true"
		}),
		Logger: s.logger,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, notices *views.Notices, data any) {
	out := page{Page: name, Data: data, Notices: notices.List()}
	if out.Notices == nil {
		out.Notices = []views.Notice{}
	}
	if user, ok := s.store.Current(); ok {
		out.User = &user
		for _, entry := range user.Capabilities().Nav {
			out.Nav = append(out.Nav, views.Card{Title: entry.Title(), Path: entry.Path()})
		}
	}
	writeJSON(w, status, out)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login", &views.Notices{}, nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form views.LoginForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	notices := &views.Notices{}
	if _, err := views.Login(r.Context(), s.deps(r, notices), form); err != nil {
		s.render(w, statusFor(err), "login", notices, nil)
		return
	}
	out := page{Page: "login", Notices: notices.List(), Redirect: "/dashboard"}
	if user, ok := s.store.Current(); ok {
		out.User = &user
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "register", &views.Notices{}, map[string]any{"roles": views.RoleOptions()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form views.RegisterForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	notices := &views.Notices{}
	if err := views.Register(r.Context(), s.deps(r, notices), form); err != nil {
		s.render(w, statusFor(err), "register", notices, map[string]any{"roles": views.RoleOptions()})
		return
	}
	writeJSON(w, http.StatusOK, page{Page: "register", Notices: notices.List(), Redirect: "/login"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Logout(r.Context()); err != nil {
		s.logger.Warn("logout storage error", "error", err)
	}
	writeJSON(w, http.StatusOK, page{Page: "logout", Notices: []views.Notice{}, Redirect: "/login"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := views.BuildDashboard(s.deps(r, &views.Notices{}))
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	s.render(w, http.StatusOK, "dashboard", &views.Notices{}, dash)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if r.Method == http.MethodPost {
		var req struct {
			Code string `json:"code"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		code = req.Code
	} else if code == "" {
		s.render(w, http.StatusOK, "verify", &views.Notices{}, nil)
		return
	}
	notices := &views.Notices{}
	result := views.Verify(r.Context(), s.deps(r, notices), code)
	s.render(w, http.StatusOK, "verify", notices, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	notices := &views.Notices{}
	v := views.NewCertificates(s.deps(r, notices))
	v.Activate(r.Context())
	if len(v.Certificates()) == 0 && hasError(notices) {
		s.render(w, http.StatusBadGateway, "certificates", notices, nil)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(time.Now())))
	if err := report.WriteCertificates(w, v.Certificates()); err != nil {
		s.logger.Error("export failed", "error", err)
	}
}

func hasError(notices *views.Notices) bool {
	for _, n := range notices.List() {
		if n.Level == views.LevelError {
			return true
		}
	}
	return false
}

// Resources

type resourceView[F any] interface {
	Activate(ctx context.Context)
	OpenEditWith(id model.ID, values F)
	Submit(ctx context.Context) error
	Delete(ctx context.Context, id model.ID) (bool, error)
	Page() any
}

type creator[F any] interface {
	OpenCreate()
	SetForm(values F)
}

func mountResource[F any](s *Server, r chi.Router, name string, open func(views.Deps) resourceView[F]) {
	r.Get("/"+name, func(w http.ResponseWriter, req *http.Request) {
		notices := &views.Notices{}
		v := open(s.deps(req, notices))
		v.Activate(req.Context())
		s.render(w, http.StatusOK, name, notices, v.Page())
	})
	r.Post("/"+name, func(w http.ResponseWriter, req *http.Request) {
		notices := &views.Notices{}
		v := open(s.deps(req, notices))
		c, ok := v.(creator[F])
		if !ok {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		var values F
		if err := decodeJSON(req, &values); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		c.OpenCreate()
		c.SetForm(values)
		s.submit(w, req, name, notices, v)
	})
	r.Put("/"+name+"/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := model.ParseID(chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_id")
			return
		}
		notices := &views.Notices{}
		v := open(s.deps(req, notices))
		var values F
		if err := decodeJSON(req, &values); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		v.OpenEditWith(id, values)
		s.submit(w, req, name, notices, v)
	})
	r.Delete("/"+name+"/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := model.ParseID(chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_id")
			return
		}
		notices := &views.Notices{}
		v := open(s.deps(req, notices))
		deleted, err := v.Delete(req.Context(), id)
		if err != nil {
			s.render(w, statusFor(err), name, notices, v.Page())
			return
		}
		if !deleted {
			writeError(w, http.StatusPreconditionRequired, "confirmation_required")
			return
		}
		s.render(w, http.StatusOK, name, notices, v.Page())
	})
}

func (s *Server) submit(w http.ResponseWriter, req *http.Request, name string, notices *views.Notices, v interface {
	Submit(ctx context.Context) error
	Page() any
}) {
	if err := v.Submit(req.Context()); err != nil {
		s.render(w, statusFor(err), name, notices, v.Page())
		return
	}
	s.render(w, http.StatusOK, name, notices, v.Page())
}

// statusFor maps a view failure onto the shell's response status.
func statusFor(err error) int {
	var apiErr *api.Error
	var validation *api.ValidationError
	switch {
	case errors.Is(err, views.ErrRequired), errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, api.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		if apiErr.Unauthorized() || apiErr.NotFound() || apiErr.Status == http.StatusBadRequest {
			return apiErr.Status
		}
		return http.StatusBadGateway
	}
	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

// Utilities

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
