package present

import (
	"fmt"

	"fin_dashboard/pkg/core/compare"
)

// Icon keys understood by the dashboard front end.
const (
	IconTrophy = "trophy"
	IconTie    = "scale"
	IconNA     = "minus-circle"
)

// DisplayRow is one formatted metric line. Raw readings and the outcome are
// carried unchanged next to their formatted text.
type DisplayRow struct {
	MetricKey      string             `json:"metric_key"`
	DisplayName    string             `json:"display_name"`
	Preference     compare.Preference `json:"preference"`
	PreferenceHint string             `json:"preference_hint"`
	Company1Text   string             `json:"company1_text"`
	Company2Text   string             `json:"company2_text"`
	Company1Raw    compare.Value      `json:"company1_raw"`
	Company2Raw    compare.Value      `json:"company2_raw"`
	Outcome        compare.Outcome    `json:"outcome"`
	WinnerLabel    string             `json:"winner_label"`
	Icon           string             `json:"icon"`
}

// DisplayModel is the read-only projection of a ComparisonResult.
type DisplayModel struct {
	Company1Label string          `json:"company1_label"`
	Company2Label string          `json:"company2_label"`
	Currency      string          `json:"currency"`
	Rows          []DisplayRow    `json:"rows"`
	Scores        map[string]int  `json:"scores"`
	Verdict       compare.Verdict `json:"verdict"`
	VerdictLabel  string          `json:"verdict_label"`
	VerdictIcon   string          `json:"verdict_icon"`
	Summary       string          `json:"summary"`
	Comparable    int             `json:"comparable"`
	Ties          int             `json:"ties"`
}

// Format builds the display model for result. currency is an ISO code or a
// literal symbol. A nil result is a caller bug.
func Format(result *compare.ComparisonResult, currency string) (*DisplayModel, error) {
	if result == nil {
		return nil, fmt.Errorf("present: comparison result is nil")
	}

	symbol := ResolveCurrency(currency)
	dm := &DisplayModel{
		Company1Label: result.Company1Label,
		Company2Label: result.Company2Label,
		Currency:      symbol,
		Rows:          make([]DisplayRow, 0, len(result.PerMetric)),
		Scores:        make(map[string]int, len(result.Scores)),
		Verdict:       result.Verdict,
		Summary:       result.Summary,
		Comparable:    result.ComparableCount,
		Ties:          result.TieCount,
	}
	for k, v := range result.Scores {
		dm.Scores[k] = v
	}

	for _, mc := range result.PerMetric {
		winner, icon := outcomeDisplay(mc.Outcome, result.Company1Label, result.Company2Label)
		dm.Rows = append(dm.Rows, DisplayRow{
			MetricKey:      mc.MetricKey,
			DisplayName:    mc.DisplayName,
			Preference:     mc.Preference,
			PreferenceHint: mc.Preference.Hint(),
			Company1Text:   FormatValue(mc.Company1Value, mc.Unit, symbol),
			Company2Text:   FormatValue(mc.Company2Value, mc.Unit, symbol),
			Company1Raw:    mc.Company1Value,
			Company2Raw:    mc.Company2Value,
			Outcome:        mc.Outcome,
			WinnerLabel:    winner,
			Icon:           icon,
		})
	}

	switch result.Verdict {
	case compare.VerdictCompany1:
		dm.VerdictLabel, dm.VerdictIcon = result.Company1Label, IconTrophy
	case compare.VerdictCompany2:
		dm.VerdictLabel, dm.VerdictIcon = result.Company2Label, IconTrophy
	default:
		dm.VerdictLabel, dm.VerdictIcon = "Tie", IconTie
	}

	return dm, nil
}

func outcomeDisplay(o compare.Outcome, label1, label2 string) (string, string) {
	switch o {
	case compare.Company1Wins:
		return label1, IconTrophy
	case compare.Company2Wins:
		return label2, IconTrophy
	case compare.Tie:
		return "Tie", IconTie
	default:
		return NotAvailableText, IconNA
	}
}
