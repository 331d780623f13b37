package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ericfisherdev/checkpanel/internal/application"
	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

var (
	colorGreen    = lipgloss.Color("#00FF00")
	colorYellow   = lipgloss.Color("#FFFF00")
	colorRed      = lipgloss.Color("#FF0000")
	colorCyan     = lipgloss.Color("#00FFFF")
	colorDarkGray = lipgloss.Color("8")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDarkGray)
	nameStyle   = lipgloss.NewStyle().Width(32)
)

func conclusionColor(c model.Conclusion) lipgloss.Color {
	switch {
	case c.IsFailure():
		return colorRed
	case c == model.ConclusionSuccess:
		return colorGreen
	case !c.IsCompleted():
		return colorYellow
	default:
		return colorDarkGray
	}
}

func ciStatusColor(s model.CIStatus) lipgloss.Color {
	switch s {
	case model.CIStatusPassing:
		return colorGreen
	case model.CIStatusFailing:
		return colorRed
	case model.CIStatusPending:
		return colorYellow
	default:
		return colorDarkGray
	}
}

// renderView formats one panel view as a header line followed by a line per
// check, with failed steps listed under their check.
func renderView(v application.PanelView, now time.Time) string {
	var b strings.Builder

	status := lipgloss.NewStyle().Foreground(ciStatusColor(v.CIStatus)).Render(string(v.CIStatus))
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s#%d", v.Repository.FullName(), v.PRNumber)))
	b.WriteString(" " + status)
	if v.Summary != "" {
		b.WriteString(" " + v.Summary)
	}
	b.WriteString(" " + dimStyle.Render(now.Format("15:04:05")))

	switch {
	case v.EnrichmentFailed:
		b.WriteString(dimStyle.Render(" (job details unavailable)"))
	case v.LoadingWorkflows:
		b.WriteString(dimStyle.Render(" (loading workflows)"))
	case v.LoadingJobLogs:
		b.WriteString(dimStyle.Render(" (loading logs)"))
	}

	for _, c := range v.Checks {
		b.WriteString("\n  ")
		b.WriteString(nameStyle.Render(c.Name))
		b.WriteString(lipgloss.NewStyle().Foreground(conclusionColor(c.Conclusion)).Render(c.Conclusion.Adjective()))
		if c.Description != "" {
			b.WriteString(dimStyle.Render("  " + c.Description))
		}

		for _, s := range c.Steps {
			if !s.Conclusion.IsFailure() {
				continue
			}
			fmt.Fprintf(&b, "\n    step %d %s", s.Number, s.Name)
			for _, line := range s.ErrorLines {
				b.WriteString("\n      " + lipgloss.NewStyle().Foreground(colorRed).Render(line))
			}
		}
	}

	return b.String()
}
