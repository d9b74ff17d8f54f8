package ingest

import (
	"testing"

	"fin_dashboard/pkg/core/compare"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueOf(t *testing.T, s *compare.CompanySnapshot, key string) float64 {
	t.Helper()
	f, ok := compare.GetValue(s, key).Float()
	require.True(t, ok, "expected %s to be present", key)
	return f
}

func TestDecodeSnapshot_Flat(t *testing.T) {
	snap, err := DecodeSnapshot("Infosys", []byte(`{"total_assets": 1489030000000.0, "current_ratio": {"result": "not_available"}}`))
	require.NoError(t, err)

	assert.Equal(t, "Infosys", snap.Label)
	assert.Equal(t, 1489030000000.0, valueOf(t, snap, "total_assets"))
	assert.True(t, compare.GetValue(snap, "current_ratio").IsMissing())
}

func TestDecodeSnapshot_EnvelopeAndLenient(t *testing.T) {
	payload := `{
		company: "TCS"
		// figures in INR
		metrics: {"Total Assets": 1463100000000, "net-income": "459080000000"}
	}`
	snap, err := DecodeSnapshot("", []byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "TCS", snap.Label)
	assert.Equal(t, 1463100000000.0, valueOf(t, snap, "total_assets"))
	assert.Equal(t, 459080000000.0, valueOf(t, snap, "net_income"))
}

func TestDecodeSnapshot_NotAnObject(t *testing.T) {
	snap, err := DecodeSnapshot("X", []byte(`[1, 2, 3]`))
	require.NoError(t, err)
	assert.Empty(t, snap.Values)
	assert.True(t, compare.GetValue(snap, "total_assets").IsMissing())
}

func TestDecodeSnapshot_Empty(t *testing.T) {
	_, err := DecodeSnapshot("X", nil)
	assert.Error(t, err)
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Total Assets":       "total_assets",
		"total_assets":       "total_assets",
		"  Net Income (₹)  ": "net_income",
		"R&D Expense":        "r_and_d_expense",
		"Debt/Equity":        "debt_equity",
		"---":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeKey(in), in)
	}
}

func TestParseHTMLTable(t *testing.T) {
	html := `<html><body>
	<table>
	  <caption>Wipro FY24</caption>
	  <tr><th>Metric</th><th>Value</th></tr>
	  <tr><td>Total Assets</td><td>₹ 1,150,000</td></tr>
	  <tr><td>Net Income</td><td>(2,500)</td></tr>
	  <tr><td>Current Ratio</td><td>N/A</td></tr>
	  <tr><td>Debt to Equity</td><td>0.21</td></tr>
	  <tr><td>only one cell</td></tr>
	</table></body></html>`

	snap, err := ParseHTMLTable("", html)
	require.NoError(t, err)

	assert.Equal(t, "Wipro FY24", snap.Label)
	assert.Equal(t, 1150000.0, valueOf(t, snap, "total_assets"))
	assert.Equal(t, -2500.0, valueOf(t, snap, "net_income"))
	assert.Equal(t, 0.21, valueOf(t, snap, "debt_to_equity"))
	assert.True(t, compare.GetValue(snap, "current_ratio").IsMissing())
	assert.NotContains(t, snap.Values, "metric")
}

func TestParseHTMLTable_NoTable(t *testing.T) {
	_, err := ParseHTMLTable("X", "<p>nothing here</p>")
	assert.Error(t, err)
}
