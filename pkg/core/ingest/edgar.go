package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/logging"
)

const (
	secTickersURL      = "https://www.sec.gov/files/company_tickers.json"
	secCompanyFactsURL = "https://data.sec.gov/api/xbrl/companyfacts/CIK%s.json"

	// UserAgent identifies this client to SEC EDGAR, which rejects anonymous requests.
	UserAgent = "FinDashboard/1.0 (ops@fin-dashboard.local)"
)

// conceptMap lists, per catalog key, the us-gaap concepts that may carry it.
// Filers switch concepts over time, so the most recent period across all of
// them wins.
var conceptMap = []struct {
	key      string
	concepts []string
}{
	{"total_assets", []string{"Assets"}},
	{"total_revenue", []string{"Revenues", "RevenueFromContractWithCustomerExcludingAssessedTax", "SalesRevenueNet"}},
	{"net_income", []string{"NetIncomeLoss", "ProfitLoss"}},
	{"total_liabilities", []string{"Liabilities"}},
	{"current_assets", []string{"AssetsCurrent"}},
	{"current_liabilities", []string{"LiabilitiesCurrent"}},
	{"shareholders_equity", []string{"StockholdersEquity", "StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"}},
}

// EDGARClient builds snapshots from SEC XBRL company facts.
type EDGARClient struct {
	httpClient *http.Client
	TickersURL string
	FactsURL   string // fmt pattern taking the 10-digit CIK
}

func NewEDGARClient() *EDGARClient {
	return &EDGARClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		TickersURL: secTickersURL,
		FactsURL:   secCompanyFactsURL,
	}
}

type companyFacts struct {
	CIK        int                               `json:"cik"`
	EntityName string                            `json:"entityName"`
	Facts      map[string]map[string]conceptFact `json:"facts"`
}

type conceptFact struct {
	Units map[string][]factEntry `json:"units"`
}

type factEntry struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
}

type annualValue struct {
	val   float64
	end   string
	filed string
}

func (a annualValue) newerThan(b annualValue) bool {
	return a.end > b.end || (a.end == b.end && a.filed > b.filed)
}

func (c *EDGARClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// LookupCIK finds the zero-padded CIK for a ticker.
func (c *EDGARClient) LookupCIK(ctx context.Context, ticker string) (string, error) {
	body, err := c.get(ctx, c.TickersURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch ticker mapping: %w", err)
	}

	// { "0": {"cik_str": 320193, "ticker": "AAPL", "title": "..."}, ... }
	var mapping map[string]struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &mapping); err != nil {
		return "", fmt.Errorf("failed to parse ticker mapping: %w", err)
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	for _, entry := range mapping {
		if entry.Ticker == ticker {
			return fmt.Sprintf("%010d", entry.CIK), nil
		}
	}
	return "", fmt.Errorf("ticker %s not found in SEC database", ticker)
}

// FetchSnapshot returns a snapshot of the latest annual figures reported by
// ticker. The label is the SEC entity name.
func (c *EDGARClient) FetchSnapshot(ctx context.Context, ticker string) (*compare.CompanySnapshot, error) {
	cik, err := c.LookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, fmt.Sprintf(c.FactsURL, cik))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company facts: %w", err)
	}

	var facts companyFacts
	if err := json.Unmarshal(body, &facts); err != nil {
		return nil, fmt.Errorf("failed to parse company facts: %w", err)
	}

	snap := snapshotFromFacts(&facts)
	logging.Component("ingest").Info().
		Str("ticker", ticker).
		Str("cik", cik).
		Int("metrics", len(snap.Values)).
		Msg("edgar snapshot built")
	return snap, nil
}

// snapshotFromFacts maps company facts onto catalog keys and derives the
// ratio metrics. A ratio is only derived when both inputs share a period end.
func snapshotFromFacts(facts *companyFacts) *compare.CompanySnapshot {
	gaap := facts.Facts["us-gaap"]
	found := make(map[string]annualValue)
	values := make(map[string]interface{})

	for _, m := range conceptMap {
		for _, concept := range m.concepts {
			v, ok := latestAnnual(gaap[concept])
			if !ok {
				continue
			}
			if cur, seen := found[m.key]; !seen || v.newerThan(cur) {
				found[m.key] = v
				values[m.key] = v.val
			}
		}
	}

	ratio := func(key, num, den string) {
		n, ok1 := found[num]
		d, ok2 := found[den]
		if !ok1 || !ok2 || n.end != d.end || d.val == 0 {
			return
		}
		values[key] = n.val / d.val
	}
	ratio("current_ratio", "current_assets", "current_liabilities")
	ratio("debt_to_equity", "total_liabilities", "shareholders_equity")
	ratio("return_on_equity", "net_income", "shareholders_equity")
	ratio("net_profit_margin", "net_income", "total_revenue")

	return compare.NewSnapshot(facts.EntityName, values)
}

// latestAnnual picks the most recent full-year 10-K value reported in USD.
func latestAnnual(c conceptFact) (annualValue, bool) {
	var best factEntry
	found := false
	for _, e := range c.Units["USD"] {
		if !strings.HasPrefix(e.Form, "10-K") || e.FP != "FY" {
			continue
		}
		if e.Start != "" && !fullYear(e.Start, e.End) {
			continue
		}
		if !found || e.End > best.End || (e.End == best.End && e.Filed > best.Filed) {
			best = e
			found = true
		}
	}
	return annualValue{val: best.Val, end: best.End, filed: best.Filed}, found
}

func fullYear(start, end string) bool {
	s, err1 := time.Parse("2006-01-02", start)
	e, err2 := time.Parse("2006-01-02", end)
	if err1 != nil || err2 != nil {
		return false
	}
	return e.Sub(s) > 300*24*time.Hour
}

// FetchDocument downloads url and decodes it as a snapshot, choosing the
// HTML table reader for text/html responses and DecodeSnapshot otherwise.
func FetchDocument(ctx context.Context, client *http.Client, label, url string) (*compare.CompanySnapshot, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return ParseHTMLTable(label, string(body))
	}
	return DecodeSnapshot(label, body)
}
