package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	core "fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/narrative"
	"fin_dashboard/pkg/core/store"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	snap *core.CompanySnapshot
	err  error
}

func (f stubFetcher) FetchSnapshot(ctx context.Context, ticker string) (*core.CompanySnapshot, error) {
	return f.snap, f.err
}

type stubNarrator struct{}

func (stubNarrator) Summarize(ctx context.Context, r *core.ComparisonResult) (narrative.Narrative, error) {
	return narrative.Narrative{Text: "Revenue decides it.", Source: narrative.SourceLLM, Provider: "stub"}, nil
}

func newServer(t *testing.T) (*Handler, *mux.Router) {
	t.Helper()
	h := NewHandler(core.DefaultCatalog(), nil, "INR", store.NewMemoryComparisonRepo(), store.NewSnapshotCache(nil, t.TempDir()))
	h.Narrator = stubNarrator{}
	r := mux.NewRouter()
	h.Register(r)
	return h, r
}

func do(t *testing.T, r http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const compareBody = `{
  "company1": {"label": "Infosys", "values": {"total_assets": 1489030000000, "total_revenue": 1536700000000, "current_ratio": {"result": "not_available"}, "debt_to_equity": 0.09}},
  "company2": {"label": "TCS", "values": {"total_assets": 1463100000000, "total_revenue": 2408930000000, "current_ratio": 2.51, "debt_to_equity": 0.09}},
  "narrate": true
}`

func TestHealthAndCatalog(t *testing.T) {
	_, r := newServer(t)

	rec := do(t, r, "GET", "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, "GET", "/api/catalog", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Metrics []catalogEntry `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Metrics, 8)
	assert.Equal(t, "total_assets", body.Metrics[0].Key)
	assert.Equal(t, "Lower is better", body.Metrics[3].Hint)
}

func TestCompare_RoundTrip(t *testing.T) {
	_, r := newServer(t)

	rec := do(t, r, "POST", "/api/compare", "application/json", compareBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CompareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, 1, resp.Result.Scores["Infosys"])
	assert.Equal(t, 1, resp.Result.Scores["TCS"])
	assert.Equal(t, core.VerdictTie, resp.Result.Verdict)
	assert.Equal(t, "₹", resp.Display.Currency)
	require.NotNil(t, resp.Narrative)
	assert.Equal(t, "Revenue decides it.", resp.Narrative.Text)

	rec = do(t, r, "GET", "/api/compare/"+resp.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var again CompareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, resp.Result.Summary, again.Result.Summary)
	assert.Equal(t, resp.Result.PerMetric, again.Result.PerMetric)

	rec = do(t, r, "GET", "/api/compare/"+resp.ID+"/report", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table>")
	assert.Contains(t, rec.Body.String(), "Revenue decides it.")

	rec = do(t, r, "GET", "/api/compare/"+resp.ID+"/report?format=markdown", "", "")
	assert.Contains(t, rec.Body.String(), "| Total Assets |")

	rec = do(t, r, "GET", "/api/compare?limit=5", "", "")
	assert.Contains(t, rec.Body.String(), resp.ID)
}

func TestCompare_Errors(t *testing.T) {
	_, r := newServer(t)

	rec := do(t, r, "POST", "/api/compare", "application/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, "POST", "/api/compare", "application/json", `{"company1": {"label": "A"}, "company2": {"label": "B", "values": {}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "company1")

	rec = do(t, r, "POST", "/api/compare", "application/json", `{"company1": {"ticker": "NOPE"}, "company2": {"label": "B", "values": {}}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, "GET", "/api/compare/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompare_MalformedValuesAreAllMissing(t *testing.T) {
	_, r := newServer(t)

	for _, values := range []string{`[1, 2]`, `null`, `"abc"`} {
		t.Run(values, func(t *testing.T) {
			body := `{"company1": {"label": "A", "values": ` + values + `}, "company2": {"label": "B", "values": {"total_assets": 100}}}`
			rec := do(t, r, "POST", "/api/compare", "application/json", body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp CompareResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, core.VerdictTie, resp.Result.Verdict)
			assert.Equal(t, 0, resp.Result.ComparableCount)
			for _, mc := range resp.Result.PerMetric {
				assert.Equal(t, core.NotAvailable, mc.Outcome, mc.MetricKey)
			}
		})
	}

	rec := do(t, r, "POST", "/api/compare", "application/json", `{"company2": {"label": "B", "values": {}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshots_UploadAndCompareByTicker(t *testing.T) {
	_, r := newServer(t)

	rec := do(t, r, "PUT", "/api/snapshots/infy", "application/json", `{company: "Infosys", metrics: {"Total Assets": 100}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, "PUT", "/api/snapshots/tcs?label=TCS", "text/html",
		`<table><tr><td>Total Assets</td><td>90</td></tr></table>`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, "GET", "/api/snapshots", "", "")
	assert.Contains(t, rec.Body.String(), `"INFY"`)
	assert.Contains(t, rec.Body.String(), `"TCS"`)

	rec = do(t, r, "POST", "/api/compare", "application/json", `{"company1": {"ticker": "INFY"}, "company2": {"ticker": "TCS"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp CompareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Infosys", resp.Result.Company1Label)
	assert.Equal(t, core.VerdictCompany1, resp.Result.Verdict)
	assert.Nil(t, resp.Narrative)

	rec = do(t, r, "PUT", "/api/snapshots/bad$ticker", "application/json", `{"a": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshots_Refresh(t *testing.T) {
	h, r := newServer(t)

	rec := do(t, r, "POST", "/api/snapshots/AAPL/refresh", "", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	h.Fetcher = stubFetcher{snap: core.FromFloats("Apple Inc.", map[string]float64{"total_assets": 3.5e11})}
	rec = do(t, r, "POST", "/api/snapshots/AAPL/refresh", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, "GET", "/api/snapshots/aapl", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Apple Inc.")

	h.Fetcher = stubFetcher{err: errors.New("sec down")}
	rec = do(t, r, "POST", "/api/snapshots/AAPL/refresh", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPeers(t *testing.T) {
	_, r := newServer(t)

	add := func(body string) *httptest.ResponseRecorder {
		return do(t, r, "POST", "/api/peers/it", "application/json", body)
	}
	require.Equal(t, http.StatusCreated, add(`{"label": "A", "values": {"total_assets": 300, "total_revenue": 30}}`).Code)
	require.Equal(t, http.StatusCreated, add(`{"label": "B", "values": {"total_assets": 200, "total_revenue": 20}}`).Code)
	require.Equal(t, http.StatusCreated, add(`{"label": "C", "values": {"total_assets": 100, "total_revenue": 10}}`).Code)
	assert.Equal(t, http.StatusConflict, add(`{"label": "A", "values": {}}`).Code)

	rec := do(t, r, "GET", "/api/peers/it", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var peers peersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &peers))
	assert.Equal(t, []string{"A", "B", "C"}, peers.Peers)
	assert.Equal(t, "A", peers.Standings[0].Label)
	assert.Equal(t, 2, peers.Standings[0].MatchWins)

	rec = do(t, r, "GET", "/api/peers/it/A/sector", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), core.SectorAverageLabel)

	assert.Equal(t, http.StatusOK, do(t, r, "DELETE", "/api/peers/it/B", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "DELETE", "/api/peers/it/B", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "GET", "/api/peers/none", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "GET", "/api/peers/it/Z/sector", "", "").Code)
}

func TestWriteErr_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{core.ErrNilSnapshot, http.StatusBadRequest},
		{errBadInput("x"), http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeErr(rec, c.err)
		if rec.Code != c.want {
			t.Errorf("Expected %d for %v, got %d", c.want, c.err, rec.Code)
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&body))
		assert.NotEmpty(t, body["error"])
	}
}
