package usecase

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const otpEmailTemplate = "otp_email.html"

type templates struct {
	set *template.Template
}

func parseTemplates() (*templates, error) {
	set, err := template.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &templates{set: set}, nil
}

func (t *templates) render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
