package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fin_dashboard/pkg/core/compare"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tickersJSON = `{"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}}`

const factsJSON = `{
  "cik": 320193,
  "entityName": "Apple Inc.",
  "facts": {"us-gaap": {
    "Assets": {"units": {"USD": [
      {"end": "2022-09-24", "val": 352755000000, "fy": 2022, "fp": "FY", "form": "10-K", "filed": "2022-10-28"},
      {"end": "2023-09-30", "val": 352583000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"},
      {"end": "2023-12-30", "val": 353514000000, "fy": 2024, "fp": "Q1", "form": "10-Q", "filed": "2024-02-02"}
    ]}},
    "Liabilities": {"units": {"USD": [
      {"end": "2023-09-30", "val": 290437000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"}
    ]}},
    "StockholdersEquity": {"units": {"USD": [
      {"end": "2023-09-30", "val": 62146000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"}
    ]}},
    "NetIncomeLoss": {"units": {"USD": [
      {"start": "2023-07-02", "end": "2023-09-30", "val": 22956000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"},
      {"start": "2022-09-25", "end": "2023-09-30", "val": 96995000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"}
    ]}},
    "RevenueFromContractWithCustomerExcludingAssessedTax": {"units": {"USD": [
      {"start": "2022-09-25", "end": "2023-09-30", "val": 383285000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"}
    ]}}
  }}
}`

func newSECServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "user agent required", http.StatusForbidden)
			return
		}
		switch {
		case r.URL.Path == "/tickers":
			w.Write([]byte(tickersJSON))
		case strings.HasPrefix(r.URL.Path, "/facts/CIK0000320193"):
			w.Write([]byte(factsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestEDGARClient_FetchSnapshot(t *testing.T) {
	srv := newSECServer(t)
	defer srv.Close()

	c := NewEDGARClient()
	c.TickersURL = srv.URL + "/tickers"
	c.FactsURL = srv.URL + "/facts/CIK%s.json"

	snap, err := c.FetchSnapshot(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", snap.Label)
	assert.Equal(t, 352583000000.0, valueOf(t, snap, "total_assets"), "latest 10-K, not the 10-Q")
	assert.Equal(t, 96995000000.0, valueOf(t, snap, "net_income"), "full-year duration only")
	assert.Equal(t, 383285000000.0, valueOf(t, snap, "total_revenue"))
	assert.InDelta(t, 290437000000.0/62146000000.0, valueOf(t, snap, "debt_to_equity"), 1e-9)
	assert.InDelta(t, 96995000000.0/383285000000.0, valueOf(t, snap, "net_profit_margin"), 1e-9)
	assert.True(t, compare.GetValue(snap, "current_ratio").IsMissing())
}

func TestSnapshotFromFacts_LatestConceptWins(t *testing.T) {
	facts := &companyFacts{
		EntityName: "Switcher Corp",
		Facts: map[string]map[string]conceptFact{"us-gaap": {
			"Revenues": {Units: map[string][]factEntry{"USD": {
				{Start: "2016-01-01", End: "2016-12-31", Val: 100, FP: "FY", Form: "10-K", Filed: "2017-02-20"},
			}}},
			"RevenueFromContractWithCustomerExcludingAssessedTax": {Units: map[string][]factEntry{"USD": {
				{Start: "2024-01-01", End: "2024-12-31", Val: 1000, FP: "FY", Form: "10-K", Filed: "2025-02-20"},
			}}},
			"NetIncomeLoss": {Units: map[string][]factEntry{"USD": {
				{Start: "2024-01-01", End: "2024-12-31", Val: 50, FP: "FY", Form: "10-K", Filed: "2025-02-20"},
			}}},
			"Liabilities": {Units: map[string][]factEntry{"USD": {
				{End: "2024-12-31", Val: 10, FP: "FY", Form: "10-K", Filed: "2025-02-20"},
			}}},
			"StockholdersEquity": {Units: map[string][]factEntry{"USD": {
				{End: "2024-12-31", Val: 40, FP: "FY", Form: "10-K", Filed: "2025-02-20"},
			}}},
			"StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest": {Units: map[string][]factEntry{"USD": {
				{End: "2024-12-31", Val: 45, FP: "FY", Form: "10-K/A", Filed: "2025-06-01"},
			}}},
		}},
	}

	snap := snapshotFromFacts(facts)
	assert.Equal(t, 1000.0, valueOf(t, snap, "total_revenue"))
	assert.InDelta(t, 0.05, valueOf(t, snap, "net_profit_margin"), 1e-9)
	assert.InDelta(t, 10.0/45.0, valueOf(t, snap, "debt_to_equity"), 1e-9, "same period end, later filing wins")
}

func TestEDGARClient_UnknownTicker(t *testing.T) {
	srv := newSECServer(t)
	defer srv.Close()

	c := NewEDGARClient()
	c.TickersURL = srv.URL + "/tickers"
	_, err := c.LookupCIK(context.Background(), "ZZZZ")
	assert.Error(t, err)
}

func TestFetchDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/table" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<table><tr><td>Total Assets</td><td>1,000</td></tr></table>`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_assets": 2000}`))
	}))
	defer srv.Close()

	snap, err := FetchDocument(context.Background(), nil, "A", srv.URL+"/table")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, valueOf(t, snap, "total_assets"))

	snap, err = FetchDocument(context.Background(), srv.Client(), "B", srv.URL+"/json")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, valueOf(t, snap, "total_assets"))
}
