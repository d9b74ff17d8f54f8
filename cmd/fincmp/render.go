package main

import (
	"fmt"

	"fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/present"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	winStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")).Padding(0, 1)
	tieStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Padding(0, 1)
)

// verdictBanner is the one-line headline printed above the text report.
func verdictBanner(dm *present.DisplayModel) string {
	score := fmt.Sprintf("%s %d - %d %s", dm.Company1Label, dm.Scores[dm.Company1Label], dm.Scores[dm.Company2Label], dm.Company2Label)
	if dm.Verdict == compare.VerdictTie {
		return tieStyle.Render("TIE  " + score)
	}
	return winStyle.Render(dm.VerdictLabel + " WINS  " + score)
}

// markdownToTerminal renders md with glamour, returning md unchanged if the
// renderer cannot be built.
func markdownToTerminal(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
