package compare

import (
	"errors"
	"fmt"
)

var ErrNilSnapshot = errors.New("compare: snapshot is nil")

// Verdict is the overall winner derived from win counts.
type Verdict int

const (
	VerdictCompany1 Verdict = iota
	VerdictCompany2
	VerdictTie
)

var verdictNames = [...]string{"company1", "company2", "tie"}

func (v Verdict) String() string {
	if v < 0 || int(v) >= len(verdictNames) {
		return fmt.Sprintf("verdict(%d)", int(v))
	}
	return verdictNames[v]
}

func (v Verdict) MarshalText() ([]byte, error) {
	if v < 0 || int(v) >= len(verdictNames) {
		return nil, fmt.Errorf("compare: invalid verdict %d", int(v))
	}
	return []byte(verdictNames[v]), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	for i, n := range verdictNames {
		if n == string(text) {
			*v = Verdict(i)
			return nil
		}
	}
	return fmt.Errorf("compare: unknown verdict %q", text)
}

// MetricComparison is one catalog row of a comparison.
type MetricComparison struct {
	MetricKey     string     `json:"metric_key"`
	DisplayName   string     `json:"display_name"`
	Unit          Unit       `json:"unit,omitempty"`
	Preference    Preference `json:"preference"`
	Company1Value Value      `json:"company1_value"`
	Company2Value Value      `json:"company2_value"`
	Outcome       Outcome    `json:"outcome"`
}

// ComparisonResult is the full outcome of one RunComparison call. Callers
// own it; the engine never touches it after returning.
type ComparisonResult struct {
	Company1Label string             `json:"company1_label"`
	Company2Label string             `json:"company2_label"`
	PerMetric     []MetricComparison `json:"per_metric"`
	Scores        map[string]int     `json:"scores"`
	Verdict       Verdict            `json:"verdict"`
	Summary       string             `json:"summary"`

	ComparableCount   int `json:"comparable_count"`
	TieCount          int `json:"tie_count"`
	NotAvailableCount int `json:"not_available_count"`
}

// Company1Score is the win count of the first company.
func (r *ComparisonResult) Company1Score() int { return r.Scores[r.Company1Label] }

// Company2Score is the win count of the second company.
func (r *ComparisonResult) Company2Score() int { return r.Scores[r.Company2Label] }

// WinnerLabel returns the winning company's label, or "" on a tie.
func (r *ComparisonResult) WinnerLabel() string {
	switch r.Verdict {
	case VerdictCompany1:
		return r.Company1Label
	case VerdictCompany2:
		return r.Company2Label
	}
	return ""
}

// Engine runs comparisons with a fixed comparator. The zero Engine uses exact
// tie semantics and is safe for concurrent use.
type Engine struct {
	Comparator Comparator
}

// NewEngine returns an engine that treats |a-b| <= epsilon as a tie.
func NewEngine(epsilon float64) *Engine {
	if epsilon < 0 {
		epsilon = 0
	}
	return &Engine{Comparator: Comparator{Epsilon: epsilon}}
}

// RunComparison scores snap1 against snap2 over catalog with exact ties.
func RunComparison(catalog *Catalog, snap1, snap2 *CompanySnapshot) (*ComparisonResult, error) {
	var e Engine
	return e.Run(catalog, snap1, snap2)
}

// Run compares the two snapshots metric by metric in catalog order.
//
// A nil catalog or snapshot is a caller bug and returns an error. Snapshots
// with no values are valid: every metric becomes NotAvailable and the
// verdict is a tie.
func (e *Engine) Run(catalog *Catalog, snap1, snap2 *CompanySnapshot) (*ComparisonResult, error) {
	if catalog == nil {
		return nil, ErrNilCatalog
	}
	if snap1 == nil {
		return nil, fmt.Errorf("%w: company 1", ErrNilSnapshot)
	}
	if snap2 == nil {
		return nil, fmt.Errorf("%w: company 2", ErrNilSnapshot)
	}

	label1, label2 := scoreLabels(snap1.Label, snap2.Label)
	res := &ComparisonResult{
		Company1Label: label1,
		Company2Label: label2,
		PerMetric:     make([]MetricComparison, 0, catalog.Len()),
		Scores:        map[string]int{label1: 0, label2: 0},
	}

	var wins1, wins2 int
	for _, m := range catalog.metrics {
		a := GetValue(snap1, m.Key)
		b := GetValue(snap2, m.Key)
		outcome := e.Comparator.Compare(a, b, m.Preference)

		res.PerMetric = append(res.PerMetric, MetricComparison{
			MetricKey:     m.Key,
			DisplayName:   m.Label(),
			Unit:          m.Unit,
			Preference:    m.Preference,
			Company1Value: a,
			Company2Value: b,
			Outcome:       outcome,
		})

		switch outcome {
		case Company1Wins:
			wins1++
		case Company2Wins:
			wins2++
		case Tie:
			res.TieCount++
		case NotAvailable:
			res.NotAvailableCount++
		}
	}

	res.Scores[label1] = wins1
	res.Scores[label2] = wins2
	res.ComparableCount = len(res.PerMetric) - res.NotAvailableCount

	switch {
	case wins1 > wins2:
		res.Verdict = VerdictCompany1
	case wins2 > wins1:
		res.Verdict = VerdictCompany2
	default:
		res.Verdict = VerdictTie
	}
	res.Summary = summarize(res, wins1, wins2)

	return res, nil
}

// scoreLabels keeps the two score keys distinct: empty labels get positional
// names and identical labels get a positional suffix.
func scoreLabels(l1, l2 string) (string, string) {
	if l1 == "" {
		l1 = "Company 1"
	}
	if l2 == "" {
		l2 = "Company 2"
	}
	if l1 == l2 {
		l1 += " (Company 1)"
		l2 += " (Company 2)"
	}
	return l1, l2
}

func summarize(r *ComparisonResult, wins1, wins2 int) string {
	n := r.ComparableCount
	if n == 0 {
		return fmt.Sprintf("No comparable metrics were available for %s and %s.", r.Company1Label, r.Company2Label)
	}
	switch r.Verdict {
	case VerdictCompany1:
		return fmt.Sprintf("%s outperformed %s on %d of %d comparable %s (%s).",
			r.Company1Label, r.Company2Label, wins1, n, plural(n, "metric"), tieNote(r.TieCount))
	case VerdictCompany2:
		return fmt.Sprintf("%s outperformed %s on %d of %d comparable %s (%s).",
			r.Company2Label, r.Company1Label, wins2, n, plural(n, "metric"), tieNote(r.TieCount))
	default:
		return fmt.Sprintf("Both companies performed similarly across %d comparable %s (%s).",
			n, plural(n, "metric"), tieNote(r.TieCount))
	}
}

func tieNote(ties int) string {
	return fmt.Sprintf("%d %s", ties, plural(ties, "tie"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
