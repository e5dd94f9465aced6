// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

var (
	statusStyles = map[compliance.Status]lipgloss.Style{
		compliance.StatusScheduled:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		compliance.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		compliance.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		compliance.StatusCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ConfigureColor disables styling when stdout is not a terminal or
// NO_COLOR is set. Call once before writing output.
func ConfigureColor() {
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

// StatusText renders a task status in its color.
func StatusText(status compliance.Status) string {
	style, ok := statusStyles[status]
	if !ok {
		return string(status)
	}
	return style.Render(string(status))
}

// OverdueText renders an overdue marker.
func OverdueText(text string) string { return overdueStyle.Render(text) }

// WarningText renders a warning line.
func WarningText(text string) string { return warningStyle.Render(text) }

// Label renders a field label in detail views.
func Label(text string) string { return labelStyle.Render(text) }

// Muted renders secondary text.
func Muted(text string) string { return mutedStyle.Render(text) }
