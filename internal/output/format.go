// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"lcwatch/internal/lcapi"
	"lcwatch/internal/service"
)

const (
	// SectionSeparator is the separator line for tenant sections.
	SectionSeparator = "------------"

	timeLayout = "2006-01-02 15:04"
)

// FormatTenantHeader writes a tenant section header.
func FormatTenantHeader(w io.Writer, t service.Tenant) {
	name := normalizeName(t.Name)
	fmt.Fprintln(w, SectionSeparator)
	fmt.Fprintf(w, "%s (%s, %s)\n", name, t.ID, t.Region)
	fmt.Fprintln(w, SectionSeparator)
}

// FormatSnapshot writes the aggregate view of one tenant's tasks.
func FormatSnapshot(w io.Writer, s service.Snapshot) {
	fmt.Fprintf(w, "tasks: %d  overdue: %d  words: %d\n", s.TotalTasks, s.OverdueCount, s.TotalWords)
	for _, status := range lcapi.KnownStatuses {
		if n := s.TasksByStatus[status]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", status, n)
		}
	}
	if !s.NextDue.IsZero() {
		fmt.Fprintf(w, "next due: %s\n", s.NextDue.UTC().Format(timeLayout))
	}
	if len(s.Upcoming) > 0 {
		fmt.Fprintln(w, "due soon:")
		for i, t := range s.Upcoming {
			FormatTask(w, i+1, t)
		}
	}
}

// FormatTask writes one task line.
// Format: "{N:>4}  {NAME}  [{STATUS}]  {PROJECT}  {WORDS}w  due {DUE}"
func FormatTask(w io.Writer, num int, t service.Task) {
	name := normalizeName(t.Name)
	line := fmt.Sprintf("%4d  %s  [%s]", num, name, t.Status)
	if t.ProjectName != "" {
		line += "  " + t.ProjectName
	}
	if t.WordCount > 0 {
		line += fmt.Sprintf("  %dw", t.WordCount)
	}
	if due := formatDue(t.DueBy); due != "" {
		line += "  due " + due
	}
	fmt.Fprintln(w, line)
}

// FormatAccount writes one account line for the accounts command.
func FormatAccount(w io.Writer, a service.Account) {
	name := normalizeName(a.Name)
	if a.Region != "" {
		fmt.Fprintf(w, "%s  %s  [%s]\n", a.ID, name, a.Region)
		return
	}
	fmt.Fprintf(w, "%s  %s\n", a.ID, name)
}

// FormatNotification writes one "new task" line emitted by watch mode.
func FormatNotification(w io.Writer, n service.Notification) {
	line := fmt.Sprintf("new task [%s] %s (%s)", n.TenantName, normalizeName(n.TaskName), n.Status)
	if n.ProjectName != "" {
		line += "  " + n.ProjectName
	}
	if n.WordCount > 0 {
		line += fmt.Sprintf("  %dw", n.WordCount)
	}
	if due := formatDue(n.DueBy); due != "" {
		line += "  due " + due
	}
	fmt.Fprintln(w, line)
}

// FormatUpdateFailed writes the update-failed line for a tenant cycle.
func FormatUpdateFailed(w io.Writer, t service.Tenant, err error) {
	fmt.Fprintf(w, "update failed [%s]: %v\n", t.Name, err)
}

// formatDue renders an RFC3339 due date compactly; unparsable input yields
// the raw string so the information is not lost.
func formatDue(dueBy string) string {
	if dueBy == "" {
		return ""
	}
	due, err := time.Parse(time.RFC3339, dueBy)
	if err != nil {
		return dueBy
	}
	return due.UTC().Format(timeLayout)
}

// normalizeName normalizes a display name.
// - Empty or whitespace-only names become "(unnamed)"
// - Newlines are replaced with spaces
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\n", " ")
	if strings.TrimSpace(name) == "" {
		return "(unnamed)"
	}
	return name
}
