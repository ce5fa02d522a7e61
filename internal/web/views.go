package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"docvault/internal/auth"
	"docvault/internal/docstore"
	"docvault/internal/model"
	"docvault/internal/stats"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "dashboard", "documents", "confirm_delete"}

// page is the data every template is executed with. Each view reads the fields it needs.
type page struct {
	Title    string
	Active   string
	User     *auth.Session
	Notice   docstore.Notice
	NoticeMS int64

	// login
	Error    string
	Username string
	Demo     *auth.FixedCredentials

	// dashboard
	Stats        stats.Statistics
	Recent       []model.Document
	Distribution []stats.TypeShare

	// documents
	Documents []model.Document
	Query     string
	Loaded    bool
	Draft     draftForm

	// confirm_delete
	Document model.Document
	Prompt   string
}

// draftForm is what the upload form is re-filled with after a failed upload.
// A browser can not be handed the picked file back, only the text fields.
type draftForm struct {
	Name        string
	Description string
}

type views map[string]*template.Template

var funcs = template.FuncMap{
	"bytes": func(n int64) string {
		if n <= 0 {
			return "0 B"
		}
		return humanize.IBytes(uint64(n))
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("Jan 2, 2006")
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
	"label": stats.TypeLabel,
	"pct": func(p float64) string {
		return fmt.Sprintf("%.1f", p)
	},
	"comma": func(n int) string {
		return humanize.Comma(int64(n))
	},
}

func parseViews() (views, error) {
	v := make(views, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s view: %w", name, err)
		}
		v[name] = t
	}
	return v, nil
}

func (v views) render(name string, data *page) ([]byte, error) {
	t, ok := v[name]
	if !ok {
		return nil, fmt.Errorf("unknown view %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
