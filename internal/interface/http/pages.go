package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/raizel-hub/academic-assistant/internal/application/query"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages holds the parsed browser templates.
type pages struct {
	login     *template.Template
	dashboard *template.Template
}

func loadPages() (*pages, error) {
	login, err := template.ParseFS(templateFS, "templates/base.html", "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login template: %w", err)
	}
	dashboard, err := template.ParseFS(templateFS, "templates/base.html", "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &pages{login: login, dashboard: dashboard}, nil
}

// loginView is the data of the login page.
type loginView struct {
	Error              string
	RegistrationNumber string
	RequirePIN         bool
}

// dashboardView is the data of the dashboard page. User falls back to the
// registration number when the profile cannot be read.
type dashboardView struct {
	User        string
	Error       string
	LatestMarks []query.LatestMarkDTO
	Tasks       []query.TaskDTO
	Courses     []query.CourseDTO
}

// render executes t into a buffer first so a template error still yields a
// clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		s.logger.ErrorContext(r.Context(), "render page failed", "error", err, "request_id", getRequestID(r.Context()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
