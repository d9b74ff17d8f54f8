package present

import (
	"strings"
	"testing"

	"fin_dashboard/pkg/core/compare"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{12.345, "12.35"},
		{1500, "1.50K"},
		{2500000, "2.50M"},
		{-1200000000, "-1.20B"},
		{1489030000000, "1.49T"},
		{2e15, "2000000000000000.00"},
		{0.000012, "0.000012"},
		{-0.005, "-0.005"},
		{999.995, "1.00K"},
		{999995, "1.00M"},
		{-999995000, "-1.00B"},
		{999995000000, "1.00T"},
		{999994, "999.99K"},
		{999996000000000, "999996000000000.00"},
	}
	for _, tt := range tests {
		if got := ScaleNumber(tt.in); got != tt.want {
			t.Errorf("ScaleNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name   string
		v      compare.Value
		unit   compare.Unit
		symbol string
		want   string
	}{
		{"missing", compare.Missing(), compare.UnitCurrency, "₹", "N/A"},
		{"currency", compare.Of(1489030000000), compare.UnitCurrency, "₹", "₹1.49T"},
		{"negative currency", compare.Of(-2500000), compare.UnitCurrency, "$", "-$2.50M"},
		{"currency without symbol", compare.Of(1500), compare.UnitCurrency, "", "1.50K"},
		{"percent", compare.Of(0.3125), compare.UnitPercent, "$", "31.25%"},
		{"ratio", compare.Of(2.514), compare.UnitRatio, "$", "2.51"},
		{"large ratio", compare.Of(1250), compare.UnitRatio, "$", "1.25K"},
		{"count", compare.Of(317240), compare.UnitCount, "$", "317.24K"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.v, tt.unit, tt.symbol))
		})
	}
}

func TestResolveCurrency(t *testing.T) {
	assert.Equal(t, "₹", ResolveCurrency("INR"))
	assert.Equal(t, "$", ResolveCurrency("usd"))
	assert.Equal(t, "Rs.", ResolveCurrency("Rs."))
	assert.Equal(t, "€", ResolveCurrency("€"))
	assert.Equal(t, "", ResolveCurrency(""))
}

func sampleResult(t *testing.T) *compare.ComparisonResult {
	t.Helper()
	infy := compare.NewSnapshot("Infosys", map[string]interface{}{
		"total_assets":      1489030000000.0,
		"total_revenue":     1536700000000.0,
		"net_income":        262480000000.0,
		"current_ratio":     map[string]interface{}{"result": "not_available"},
		"debt_to_equity":    0.09,
		"return_on_equity":  0.31,
		"total_liabilities": 389050000000.0,
	})
	tcs := compare.NewSnapshot("TCS", map[string]interface{}{
		"total_assets":      1463100000000.0,
		"total_revenue":     2408930000000.0,
		"net_income":        459080000000.0,
		"current_ratio":     2.51,
		"debt_to_equity":    0.09,
		"return_on_equity":  0.47,
		"total_liabilities": 554680000000.0,
	})
	res, err := compare.RunComparison(compare.DefaultCatalog(), infy, tcs)
	require.NoError(t, err)
	return res
}

func TestFormat_IsLossless(t *testing.T) {
	res := sampleResult(t)
	dm, err := Format(res, "INR")
	require.NoError(t, err)

	assert.Equal(t, "₹", dm.Currency)
	assert.Equal(t, res.Verdict, dm.Verdict)
	assert.Equal(t, res.Scores, dm.Scores)
	assert.Equal(t, res.Summary, dm.Summary)
	require.Len(t, dm.Rows, len(res.PerMetric))
	for i, row := range dm.Rows {
		mc := res.PerMetric[i]
		assert.Equal(t, mc.MetricKey, row.MetricKey)
		assert.Equal(t, mc.Outcome, row.Outcome)
		assert.Equal(t, mc.Company1Value, row.Company1Raw)
		assert.Equal(t, mc.Company2Value, row.Company2Raw)
	}

	// The display model owns its own score map.
	dm.Scores["Infosys"] = 99
	assert.NotEqual(t, 99, res.Scores["Infosys"])
}

func TestFormat_RowLabels(t *testing.T) {
	res := sampleResult(t)
	dm, err := Format(res, "₹")
	require.NoError(t, err)

	byKey := map[string]DisplayRow{}
	for _, r := range dm.Rows {
		byKey[r.MetricKey] = r
	}

	assert.Equal(t, "₹1.49T", byKey["total_assets"].Company1Text)
	assert.Equal(t, "Infosys", byKey["total_assets"].WinnerLabel)
	assert.Equal(t, IconTrophy, byKey["total_assets"].Icon)

	assert.Equal(t, "N/A", byKey["current_ratio"].Company1Text)
	assert.Equal(t, "N/A", byKey["current_ratio"].WinnerLabel)
	assert.Equal(t, IconNA, byKey["current_ratio"].Icon)

	assert.Equal(t, "Tie", byKey["debt_to_equity"].WinnerLabel)
	assert.Equal(t, IconTie, byKey["debt_to_equity"].Icon)
	assert.Equal(t, "Lower is better", byKey["total_liabilities"].PreferenceHint)

	assert.Equal(t, "TCS", dm.VerdictLabel)
	assert.Equal(t, IconTrophy, dm.VerdictIcon)
}

func TestFormat_NilResult(t *testing.T) {
	_, err := Format(nil, "USD")
	assert.Error(t, err)
}

func TestRenderReports(t *testing.T) {
	dm, err := Format(sampleResult(t), "USD")
	require.NoError(t, err)

	md := RenderMarkdown(dm, "TCS grows faster.")
	assert.Contains(t, md, "# Infosys vs TCS")
	assert.Contains(t, md, "**Verdict:** TCS")
	assert.Contains(t, md, "| Total Assets | $1.49T | $1.46T | Higher is better | Infosys |")
	assert.Contains(t, md, "## Analyst Notes")

	html, err := RenderHTML(dm, "")
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, "<table>"), html)
	assert.NotContains(t, html, "Analyst Notes")
}
