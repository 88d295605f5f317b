// Package render builds release messages from plain text templates.
//
// Templates contain literal placeholders which are replaced verbatim:
//
//	[PROJECT_NAME]  the project name
//	[TAG_NAME]      the release tag
//	[TICKETS_LIST]  one "- ID" line per ticket
//	[SUMMARY]       an optional generated summary, empty when there is none
//
// Templates without [SUMMARY] get a generated summary appended after a
// "Summary:" line.
package render

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeffrom/git-release/model"
)

const (
	ProjectNamePlaceholder = "[PROJECT_NAME]"
	TagNamePlaceholder     = "[TAG_NAME]"
	TicketsListPlaceholder = "[TICKETS_LIST]"
	SummaryPlaceholder     = "[SUMMARY]"

	// NoTickets replaces the ticket list when the release has no tickets.
	NoTickets = "No tickets found in this release."

	// SummaryHeading introduces a summary appended to a template without
	// [SUMMARY].
	SummaryHeading = "Summary:"
)

const (
	defaultMarkdownTemplate = "# Deploying [PROJECT_NAME] `[TAG_NAME]`\n\n## Tickets:\n[TICKETS_LIST]"
	defaultPlainTemplate    = "Deploying [PROJECT_NAME] [TAG_NAME]\n\nTickets:\n[TICKETS_LIST]"
)

// DefaultTemplate returns the built-in template for format. Anything other
// than "markdown" gets the plain template.
func DefaultTemplate(format string) string {
	if format == "markdown" {
		return defaultMarkdownTemplate
	}
	return defaultPlainTemplate
}

// TemplatePath is where the template for format lives inside dir.
func TemplatePath(dir, format string) string {
	return filepath.Join(dir, format+".template")
}

// LoadTemplate reads the template for format from dir. If the file can't be
// read the built-in template is returned along with the read error, which
// callers may report.
func LoadTemplate(dir, format string) (string, error) {
	b, err := os.ReadFile(TemplatePath(dir, format))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultTemplate(format), nil
		}
		return DefaultTemplate(format), err
	}
	return string(b), nil
}

// Data is the content substituted into a template.
type Data struct {
	ProjectName string
	TagName     string
	Tickets     []string
	Details     map[string]model.Ticket
	Summary     string
}

// Render substitutes every occurrence of each placeholder in tmpl. A summary
// is appended as its own block when tmpl has no place for it.
func Render(tmpl string, d Data) string {
	r := strings.NewReplacer(
		ProjectNamePlaceholder, d.ProjectName,
		TagNamePlaceholder, d.TagName,
		TicketsListPlaceholder, FormatTickets(d.Tickets, d.Details),
		SummaryPlaceholder, d.Summary,
	)
	msg := r.Replace(tmpl)
	if d.Summary != "" && !strings.Contains(tmpl, SummaryPlaceholder) {
		msg = strings.TrimRight(msg, "\n") + "\n\n" + SummaryHeading + "\n" + d.Summary
	}
	return msg
}

// FormatTickets renders one line per ticket. Enriched tickets get their title
// and status appended when known.
func FormatTickets(tickets []string, details map[string]model.Ticket) string {
	if len(tickets) == 0 {
		return NoTickets
	}

	lines := make([]string, len(tickets))
	for i, id := range tickets {
		lines[i] = "- " + formatTicket(id, details)
	}
	return strings.Join(lines, "\n")
}

func formatTicket(id string, details map[string]model.Ticket) string {
	d, ok := details[id]
	switch {
	case !ok || d.Title == "":
		return id
	case d.Status != "":
		return id + ": " + d.Title + " (" + d.Status + ")"
	default:
		return id + ": " + d.Title
	}
}
