package present

import (
	"fmt"
	"strings"

	"fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/utils"
)

// RenderMarkdown writes a report: heading, verdict, score line and the
// per-metric table. narrative, if non-empty, is appended as an "Analyst
// Notes" section.
func RenderMarkdown(dm *DisplayModel, narrative string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s vs %s\n\n", escapeCell(dm.Company1Label), escapeCell(dm.Company2Label))
	if dm.Verdict == compare.VerdictTie {
		sb.WriteString("**Verdict:** Tie\n\n")
	} else {
		fmt.Fprintf(&sb, "**Verdict:** %s\n\n", escapeCell(dm.VerdictLabel))
	}
	fmt.Fprintf(&sb, "**Score:** %s %d – %d %s\n\n",
		escapeCell(dm.Company1Label), dm.Scores[dm.Company1Label],
		dm.Scores[dm.Company2Label], escapeCell(dm.Company2Label))
	sb.WriteString(dm.Summary)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "| Metric | %s | %s | Better | Winner |\n", escapeCell(dm.Company1Label), escapeCell(dm.Company2Label))
	sb.WriteString("|---|---:|---:|---|---|\n")
	for _, r := range dm.Rows {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
			escapeCell(r.DisplayName), r.Company1Text, r.Company2Text, r.PreferenceHint, escapeCell(r.WinnerLabel))
	}

	if n := strings.TrimSpace(narrative); n != "" {
		sb.WriteString("\n## Analyst Notes\n\n")
		sb.WriteString(n)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderHTML is RenderMarkdown converted to an HTML fragment.
func RenderHTML(dm *DisplayModel, narrative string) (string, error) {
	return utils.MarkdownToHTML(RenderMarkdown(dm, narrative))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
