package output

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/review"
)

//go:embed templates/*.tmpl templates/*.css
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("report.html.tmpl").Funcs(template.FuncMap{
		"severityClass": func(s review.Severity) string { return "sev-" + string(s) },
		"upper":         func(s review.Severity) string { return strings.ToUpper(string(s)) },
		"tag":           suggestionTag,
		"lineNo": func(n int) string {
			if n == 0 {
				return ""
			}
			return fmt.Sprint(n)
		},
	}).ParseFS(templateFS, "templates/report.html.tmpl"),
)

var reportCSS = mustReadCSS()

func mustReadCSS() template.CSS {
	b, err := templateFS.ReadFile("templates/report.css")
	if err != nil {
		panic(err)
	}
	return template.CSS(b)
}

// HTMLWriter renders a self-contained HTML page. The interactive variant
// adds download links below ReportsPath; the export variant is what the
// wkhtmltopdf engine prints.
type HTMLWriter struct {
	Interactive bool
	ReportsPath string
}

type htmlLink struct {
	Label string
	Href  string
}

type htmlData struct {
	Report      *review.Report
	Total       int
	Rows        []diff.Row
	Changes     diff.Stats
	Interactive bool
	Links       []htmlLink
	CSS         template.CSS
	Generated   string
}

func (h *HTMLWriter) Write(w io.Writer, report *review.Report) error {
	counts := report.Summary.Counts
	data := htmlData{
		Report:      report,
		Total:       counts.Error + counts.Warning + counts.Info,
		Rows:        diff.Rows(report.Diff),
		Changes:     report.Summary.Changes,
		Interactive: h.Interactive,
		CSS:         reportCSS,
		Generated:   report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"),
	}
	if h.Interactive && report.ID != "" {
		base := strings.TrimRight(h.ReportsPath, "/") + "/" + report.ID
		data.Links = []htmlLink{
			{Label: "Download PDF", Href: base + "/pdf"},
			{Label: "JSON", Href: base + ".json"},
			{Label: "SARIF", Href: base + ".sarif"},
			{Label: "Patch", Href: base + ".patch"},
		}
	}
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("executing HTML template: %w", err)
	}
	return nil
}
