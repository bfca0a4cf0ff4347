package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"venuebooking/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// templateRenderer implements domain.EmailTemplateRenderer using embedded template files.
type templateRenderer struct {
	funcs texttemplate.FuncMap
}

// NewTemplateRenderer returns an EmailTemplateRenderer that loads templates from the embedded
// templates folder. Dates are printed in loc (UTC when nil).
func NewTemplateRenderer(loc *time.Location) domain.EmailTemplateRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &templateRenderer{
		funcs: texttemplate.FuncMap{
			"date": func(t time.Time) string {
				return t.In(loc).Format("02.01.2006")
			},
			"datetime": func(t time.Time) string {
				return t.In(loc).Format("02.01.2006 15:04")
			},
		},
	}
}

// Render executes the named template (e.g. "request_received") with data and returns the
// subject line and the plain-text body.
func (r *templateRenderer) Render(templateName string, data any) (subject, body string, err error) {
	subject, err = r.renderFile(templateName+"_subject.txt", data)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	body, err = r.renderFile(templateName+".txt", data)
	if err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return strings.TrimSpace(subject), body, nil
}

func (r *templateRenderer) renderFile(name string, data any) (string, error) {
	raw, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", err
	}
	t, err := texttemplate.New(name).Funcs(r.funcs).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var layout = template.Must(template.ParseFS(templateFS, "templates/layout.html"))

// renderHTML wraps a plain-text body into the HTML layout, one paragraph per blank-line block.
func renderHTML(subject, body string) (string, error) {
	var paragraphs [][]string
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			paragraphs = append(paragraphs, strings.Split(block, "\n"))
		}
	}
	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		Subject    string
		Paragraphs [][]string
	}{subject, paragraphs})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
