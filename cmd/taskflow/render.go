package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/pkg/store"
)

const (
	defaultBoardWidth = 120
	minColumnWidth    = 16
)

var columnTitles = map[domain.TaskStatus]string{
	domain.TaskStatusTodo:       "TO DO",
	domain.TaskStatusInProgress: "IN PROGRESS",
	domain.TaskStatusInReview:   "IN REVIEW",
	domain.TaskStatusDone:       "DONE",
}

func commandContext(cmd *cobra.Command, a *app) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := a.cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(ctx, 2*timeout)
}

func boardWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultBoardWidth
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func assigneeLabel(t domain.Task) string {
	if t.Assignee != nil && t.Assignee.Username != "" {
		return "@" + t.Assignee.Username
	}
	if t.AssigneeID != nil {
		return *t.AssigneeID
	}
	return "-"
}

func dueLabel(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.Format(time.DateOnly)
}

func renderProject(w io.Writer, p domain.Project) {
	fmt.Fprintf(w, "%s  %s [%s]\n", p.ID, p.Name, p.Status)
	if p.Description != "" {
		fmt.Fprintf(w, "  %s\n", p.Description)
	}
	owner := strings.TrimSpace(p.OwnerFirstName + " " + p.OwnerLastName)
	fmt.Fprintf(w, "  owner: %s\n", orDash(owner))
	if p.StartDate != nil || p.EndDate != nil {
		fmt.Fprintf(w, "  schedule: %s .. %s\n", dueLabel(p.StartDate), dueLabel(p.EndDate))
	}
}

func renderTask(w io.Writer, t domain.Task) {
	fmt.Fprintf(w, "%s  %s\n", t.ID, t.Title)
	fmt.Fprintf(w, "  status: %s  priority: %s  assignee: %s  due: %s\n", t.Status, t.Priority, assigneeLabel(t), dueLabel(t.DueDate))
	if t.ProjectName != "" {
		fmt.Fprintf(w, "  project: %s\n", t.ProjectName)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Description != "" {
		fmt.Fprintf(w, "  %s\n", t.Description)
	}
}

// renderBoard prints one column per status, side by side, fitted to width.
func renderBoard(w io.Writer, p domain.Project, st store.TaskState, width int) {
	cols := st.ByStatus()
	colWidth := width/len(domain.TaskStatuses) - 1
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}

	fmt.Fprintf(w, "%s [%s]\n\n", p.Name, p.Status)
	rows := 0
	header := make([]string, 0, len(domain.TaskStatuses))
	for _, status := range domain.TaskStatuses {
		header = append(header, fit(fmt.Sprintf("%s (%d)", columnTitles[status], len(cols[status])), colWidth))
		if n := len(cols[status]); n > rows {
			rows = n
		}
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(header, " "), " "))
	fmt.Fprintln(w, strings.Repeat("-", (colWidth+1)*len(domain.TaskStatuses)-1))

	for i := 0; i < rows; i++ {
		cells := make([]string, 0, len(domain.TaskStatuses))
		for _, status := range domain.TaskStatuses {
			cell := ""
			if i < len(cols[status]) {
				cell = cardLabel(cols[status][i])
			}
			cells = append(cells, fit(cell, colWidth))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	}
}

func cardLabel(t domain.Task) string {
	label := priorityMarker(t.Priority) + " " + t.Title
	if a := assigneeLabel(t); a != "-" {
		label += " " + a
	}
	return label
}

func priorityMarker(p domain.TaskPriority) string {
	switch p {
	case domain.TaskPriorityUrgent:
		return "!!"
	case domain.TaskPriorityHigh:
		return "! "
	case domain.TaskPriorityLow:
		return ". "
	}
	return "  "
}

// fit pads or truncates s to exactly width runes.
func fit(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}
