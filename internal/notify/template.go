package notify

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
)

const DefaultTemplate = `[{{.Time}}] {{.StatusLabel}}
{{.DurationLine}}{{ if .ClassificationLine }}
{{.ClassificationLine}}{{ end }}{{ if .ExpectedEnd }}
Expected until {{.ExpectedEnd}}{{ end }}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	Time               string
	Event              string
	StatusLabel        string
	Duration           string
	DurationLine       string
	Classification     string
	ClassificationLine string
	ExpectedEnd        string
	Schedule           string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("power-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("notify template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatDuration renders whole seconds as "2h 10m" or "45m".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
