package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/civicpulse/issue-service/internal/domain"
)

// IssueMailData feeds every issue template.
type IssueMailData struct {
	AppName       string
	RecipientName string
	IssueID       string
	Title         string
	Category      domain.IssueCategory
	Location      string
	ReporterName  string
	OldStatus     domain.IssueStatus
	NewStatus     domain.IssueStatus
}

var templates = template.Must(template.New("mail").Parse(`
{{define "layout_start"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.AppName}}</title></head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="border-bottom: 2px solid #0066cc; padding-bottom: 10px;">{{.AppName}}</h1>
<p>Hi {{.RecipientName}},</p>{{end}}
{{define "layout_end"}}<p style="margin-top: 30px; font-size: 12px; color: #666;">Reference: {{.IssueID}}</p>
</body>
</html>{{end}}
{{define "issue_created_reporter"}}{{template "layout_start" .}}
<p>Thanks for reporting <strong>{{.Title}}</strong> ({{.Category}}) at {{.Location}}. It is now REPORTED and will be reviewed shortly.</p>
{{template "layout_end" .}}{{end}}
{{define "issue_created_admin"}}{{template "layout_start" .}}
<p>{{.ReporterName}} reported a new issue: <strong>{{.Title}}</strong> ({{.Category}}) at {{.Location}}.</p>
{{template "layout_end" .}}{{end}}
{{define "issue_status_changed"}}{{template "layout_start" .}}
<p>The status of <strong>{{.Title}}</strong> changed from {{.OldStatus}} to {{.NewStatus}}.</p>
{{template "layout_end" .}}{{end}}
`))

// IssueCreatedForReporter confirms a new report to its author.
func IssueCreatedForReporter(to string, data IssueMailData) (Message, error) {
	return render(to, fmt.Sprintf("Issue received: %s", data.Title), "issue_created_reporter", data)
}

// IssueCreatedForAdmin alerts an administrator about a new report.
func IssueCreatedForAdmin(to string, data IssueMailData) (Message, error) {
	return render(to, fmt.Sprintf("New issue reported: %s", data.Title), "issue_created_admin", data)
}

// IssueStatusChanged tells the reporter about a status transition.
func IssueStatusChanged(to string, data IssueMailData) (Message, error) {
	return render(to, fmt.Sprintf("Issue %s is now %s", data.Title, data.NewStatus), "issue_status_changed", data)
}

func render(to, subject, name string, data IssueMailData) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s template: %w", name, err)
	}
	return Message{To: []string{to}, Subject: subject, HTML: buf.String()}, nil
}
