package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type assessmentConfirmationData struct {
	baseEmailData
	LeadName  string
	Date      string
	StartTime string
	EndTime   string
	Timezone  string
}

func newAssessmentConfirmationData(in AssessmentConfirmation) assessmentConfirmationData {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	start := in.Start.In(loc)
	end := in.End.In(loc)

	name := strings.TrimSpace(in.LeadName)
	if name == "" {
		name = "there"
	}

	return assessmentConfirmationData{
		baseEmailData: baseEmailData{
			Title:   "Level assessment booked",
			Heading: "Your level assessment is booked",
		},
		LeadName:  name,
		Date:      start.Format("Monday 2 January 2006"),
		StartTime: start.Format("15:04"),
		EndTime:   end.Format("15:04"),
		Timezone:  loc.String(),
	}
}

// renderEmailTemplate executes the "email" layout from base.html with the
// content block defined by name.
func renderEmailTemplate(name string, data any) (string, error) {
	tmpl, err := templates.Clone()
	if err != nil {
		return "", fmt.Errorf("clone email templates: %w", err)
	}
	if tmpl.Lookup(name) == nil {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	if _, err := tmpl.New("content").Parse(`{{template "` + name + `" .}}`); err != nil {
		return "", fmt.Errorf("bind email content %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("render email %s: %w", name, err)
	}
	return buf.String(), nil
}
