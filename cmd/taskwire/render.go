package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/MikeSquared-Agency/taskwire/internal/importer"
	"github.com/MikeSquared-Agency/taskwire/internal/workspace"
)

var (
	colorPrimary = lipgloss.Color("12")  // bright blue
	colorOK      = lipgloss.Color("10")  // bright green
	colorDim     = lipgloss.Color("240") // gray
	colorWarn    = lipgloss.Color("11")  // bright yellow
	colorAlert   = lipgloss.Color("9")   // bright red

	styleTitle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleLabel  = lipgloss.NewStyle().Foreground(colorDim)
	styleCount  = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	styleHeader = lipgloss.NewStyle().Foreground(colorDim).Bold(true)
	styleNote   = lipgloss.NewStyle().Foreground(colorWarn).Italic(true)

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

var priorityColors = map[workspace.Priority]lipgloss.Color{
	workspace.PriorityCritical: colorAlert,
	workspace.PriorityVeryHigh: colorAlert,
	workspace.PriorityHigh:     colorWarn,
	workspace.PriorityMedium:   colorPrimary,
	workspace.PriorityLow:      colorDim,
	workspace.PriorityOptional: colorDim,
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// paint applies style only when styled output is wanted.
func paint(styled bool, style lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}

func formatRange(start, end *time.Time) string {
	if start == nil || end == nil {
		return "-"
	}
	return start.UTC().Format("2006-01-02 15:04") + " to " + end.UTC().Format("2006-01-02 15:04")
}

func renderSummary(s importer.Summary, styled bool) string {
	var sb strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&sb, "%s %s\n", paint(styled, styleLabel, fmt.Sprintf("%-12s", label)), value)
	}

	sb.WriteString(paint(styled, styleTitle, "WhatsApp import: "+s.ChatName) + "\n")
	line("Chat key", s.ChatKey)
	line("Messages", fmt.Sprintf("%d eligible of %d parsed", s.MessagesEligible, s.MessagesParsed))
	line("Range", formatRange(s.RangeStart, s.RangeEnd))

	if s.NoNewMessages {
		sb.WriteString(paint(styled, styleNote, "No new messages since the last import.") + "\n")
	} else {
		line("Candidates", fmt.Sprintf("%d", s.Candidates))
		line("Created", paint(styled, styleCount, fmt.Sprintf("%d tasks", s.TasksCreated)))
	}
	if s.Checkpoint != nil {
		line("Checkpoint", s.Checkpoint.UTC().Format(time.RFC3339))
	}

	if len(s.Tasks) > 0 {
		sb.WriteString("\n")
		sb.WriteString(renderTasks(s.Tasks, styled))
	}

	if !styled {
		return sb.String()
	}
	return stylePanel.Render(strings.TrimRight(sb.String(), "\n")) + "\n"
}

func renderTasks(tasks []workspace.Task, styled bool) string {
	var sb strings.Builder
	for _, t := range tasks {
		priority := fmt.Sprintf("%-9s", t.Priority)
		if styled {
			priority = lipgloss.NewStyle().Foreground(priorityColors[t.Priority]).Render(priority)
		}
		due := t.DueDate
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(&sb, "%s  %-10s  %s\n", priority, due, t.Title)
	}
	return sb.String()
}

func renderTable(header [2]string, rows [][2]string, styled bool) string {
	width := len(header[0])
	for _, r := range rows {
		width = max(width, len(r[0]))
	}

	var sb strings.Builder
	head := fmt.Sprintf("%-*s  %s", width, header[0], header[1])
	sb.WriteString(paint(styled, styleHeader, head) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%-*s  %s\n", width, r[0], r[1])
	}
	return sb.String()
}
