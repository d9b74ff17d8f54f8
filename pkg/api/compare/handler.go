// Package compare exposes the comparison engine over HTTP.
package compare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	core "fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/ingest"
	"fin_dashboard/pkg/core/logging"
	"fin_dashboard/pkg/core/narrative"
	"fin_dashboard/pkg/core/present"
	"fin_dashboard/pkg/core/store"

	"github.com/gorilla/mux"
)

const maxUploadBytes = 4 << 20

// SnapshotStore is satisfied by *store.SnapshotCache.
type SnapshotStore interface {
	Put(ctx context.Context, ticker string, snap *core.CompanySnapshot) error
	Get(ctx context.Context, ticker string) (*core.CompanySnapshot, error)
	Tickers(ctx context.Context) ([]string, error)
}

// SnapshotFetcher is satisfied by *ingest.EDGARClient.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, ticker string) (*core.CompanySnapshot, error)
}

// Narrator is satisfied by *narrative.Summarizer.
type Narrator interface {
	Summarize(ctx context.Context, result *core.ComparisonResult) (narrative.Narrative, error)
}

// Handler holds dependencies for comparison endpoints. Comparisons and
// Snapshots are required; Fetcher and Narrator are optional.
type Handler struct {
	Catalog     *core.Catalog
	Engine      *core.Engine
	Currency    string
	Comparisons store.ComparisonStore
	Snapshots   SnapshotStore
	Fetcher     SnapshotFetcher
	Narrator    Narrator

	mu     sync.Mutex
	groups map[string]*core.PeerGroup
}

func NewHandler(catalog *core.Catalog, engine *core.Engine, currency string, comparisons store.ComparisonStore, snapshots SnapshotStore) *Handler {
	if engine == nil {
		engine = &core.Engine{}
	}
	return &Handler{
		Catalog:     catalog,
		Engine:      engine,
		Currency:    currency,
		Comparisons: comparisons,
		Snapshots:   snapshots,
		groups:      make(map[string]*core.PeerGroup),
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/health", h.HandleHealth).Methods("GET")
	r.HandleFunc("/api/catalog", h.HandleCatalog).Methods("GET")

	r.HandleFunc("/api/compare", h.HandleCompare).Methods("POST")
	r.HandleFunc("/api/compare", h.HandleListComparisons).Methods("GET")
	r.HandleFunc("/api/compare/{id}", h.HandleGetComparison).Methods("GET")
	r.HandleFunc("/api/compare/{id}/report", h.HandleReport).Methods("GET")

	r.HandleFunc("/api/snapshots", h.HandleListSnapshots).Methods("GET")
	r.HandleFunc("/api/snapshots/{ticker}", h.HandlePutSnapshot).Methods("PUT")
	r.HandleFunc("/api/snapshots/{ticker}", h.HandleGetSnapshot).Methods("GET")
	r.HandleFunc("/api/snapshots/{ticker}/refresh", h.HandleRefreshSnapshot).Methods("POST")

	r.HandleFunc("/api/peers/{group}", h.HandleAddPeer).Methods("POST")
	r.HandleFunc("/api/peers/{group}", h.HandleGetPeers).Methods("GET")
	r.HandleFunc("/api/peers/{group}/{label}", h.HandleRemovePeer).Methods("DELETE")
	r.HandleFunc("/api/peers/{group}/{label}/sector", h.HandleCompareToSector).Methods("GET")
}

// CompanyInput identifies one side of a comparison: inline values, or a
// ticker resolved from the snapshot cache. Values that are null or not a
// JSON object yield a snapshot with every metric missing.
type CompanyInput struct {
	Label  string          `json:"label"`
	Values json.RawMessage `json:"values"`
	Ticker string          `json:"ticker"`
}

type CompareRequest struct {
	Company1 CompanyInput `json:"company1"`
	Company2 CompanyInput `json:"company2"`
	Currency string       `json:"currency"`
	Narrate  bool         `json:"narrate"`
}

type CompareResponse struct {
	ID        string                 `json:"id"`
	Result    *core.ComparisonResult `json:"result"`
	Display   *present.DisplayModel  `json:"display"`
	Narrative *narrative.Narrative   `json:"narrative,omitempty"`
}

type catalogEntry struct {
	Key         string          `json:"key"`
	DisplayName string          `json:"display_name"`
	Preference  core.Preference `json:"preference"`
	Hint        string          `json:"hint"`
	Unit        core.Unit       `json:"unit,omitempty"`
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "metrics": h.Catalog.Len()})
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	defs := h.Catalog.ListMetrics()
	out := make([]catalogEntry, 0, len(defs))
	for _, d := range defs {
		out = append(out, catalogEntry{
			Key:         d.Key,
			DisplayName: d.Label(),
			Preference:  d.Preference,
			Hint:        d.Preference.Hint(),
			Unit:        d.Unit,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"metrics": out})
}

func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	log := logging.Component("compare-api")

	var req CompareRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	snap1, err := h.resolve(r.Context(), req.Company1)
	if err != nil {
		writeErr(w, fmt.Errorf("company1: %w", err))
		return
	}
	snap2, err := h.resolve(r.Context(), req.Company2)
	if err != nil {
		writeErr(w, fmt.Errorf("company2: %w", err))
		return
	}

	result, err := h.Engine.Run(h.Catalog, snap1, snap2)
	if err != nil {
		writeErr(w, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.Currency
	}
	display, err := present.Format(result, currency)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := CompareResponse{Result: result, Display: display}
	if req.Narrate && h.Narrator != nil {
		n, err := h.Narrator.Summarize(r.Context(), result)
		if err != nil {
			writeErr(w, err)
			return
		}
		resp.Narrative = &n
	}

	rec := &store.ComparisonRecord{Currency: currency, Result: result}
	if resp.Narrative != nil {
		rec.Narrative, _ = json.Marshal(resp.Narrative)
	}
	if err := h.Comparisons.Save(r.Context(), rec); err != nil {
		log.Error().Err(err).Msg("failed to persist comparison")
		writeError(w, http.StatusInternalServerError, "failed to persist comparison")
		return
	}
	resp.ID = rec.ID

	log.Info().
		Str("id", rec.ID).
		Str("company1", result.Company1Label).
		Str("company2", result.Company2Label).
		Str("verdict", result.Verdict.String()).
		Int("comparable", result.ComparableCount).
		Msg("comparison complete")
	writeJSON(w, http.StatusOK, resp)
}

// resolve turns one side of the request into a snapshot.
func (h *Handler) resolve(ctx context.Context, in CompanyInput) (*core.CompanySnapshot, error) {
	if in.Ticker != "" {
		snap, err := h.Snapshots.Get(ctx, in.Ticker)
		if err != nil {
			return nil, err
		}
		if in.Label != "" {
			snap = core.NewSnapshot(in.Label, snap.Values)
		}
		return snap, nil
	}
	if len(in.Values) == 0 {
		return nil, errBadInput("either values or ticker is required")
	}
	var values map[string]interface{}
	if err := json.Unmarshal(in.Values, &values); err != nil {
		logging.Component("compare-api").Warn().Str("label", in.Label).Err(err).Msg("values is not an object, treating all metrics as missing")
		values = nil
	}
	return core.NewSnapshot(in.Label, values), nil
}

func (h *Handler) HandleListComparisons(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := h.Comparisons.ListRecent(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	type summary struct {
		ID       string       `json:"id"`
		Company1 string       `json:"company1"`
		Company2 string       `json:"company2"`
		Verdict  core.Verdict `json:"verdict"`
		Summary  string       `json:"summary"`
		Created  string       `json:"created_at"`
	}
	out := make([]summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, summary{
			ID:       rec.ID,
			Company1: rec.Result.Company1Label,
			Company2: rec.Result.Company2Label,
			Verdict:  rec.Result.Verdict,
			Summary:  rec.Result.Summary,
			Created:  rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comparisons": out})
}

func (h *Handler) load(r *http.Request) (*store.ComparisonRecord, *present.DisplayModel, *narrative.Narrative, error) {
	rec, err := h.Comparisons.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, nil, nil, err
	}
	dm, err := present.Format(rec.Result, rec.Currency)
	if err != nil {
		return nil, nil, nil, err
	}
	var n *narrative.Narrative
	if len(rec.Narrative) > 0 {
		n = &narrative.Narrative{}
		if err := json.Unmarshal(rec.Narrative, n); err != nil {
			n = nil
		}
	}
	return rec, dm, n, nil
}

func (h *Handler) HandleGetComparison(w http.ResponseWriter, r *http.Request) {
	rec, dm, n, err := h.load(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompareResponse{ID: rec.ID, Result: rec.Result, Display: dm, Narrative: n})
}

// HandleReport serves the stored comparison as an HTML page, or as markdown
// with ?format=markdown.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	_, dm, n, err := h.load(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	notes := ""
	if n != nil && n.Source == narrative.SourceLLM {
		notes = n.Text
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, present.RenderMarkdown(dm, notes))
		return
	}

	body, err := present.RenderHTML(dm, notes)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s vs %s</title></head><body>\n%s</body></html>\n",
		htmlEscape(dm.Company1Label), htmlEscape(dm.Company2Label), body)
}

func (h *Handler) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.Snapshots.Tickers(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if tickers == nil {
		tickers = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tickers": tickers})
}

func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Snapshots.Get(r.Context(), mux.Vars(r)["ticker"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandlePutSnapshot stores an uploaded snapshot. HTML bodies are read as a
// metric table, anything else as (lenient) JSON. ?label= overrides the label.
func (h *Handler) HandlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	label := r.URL.Query().Get("label")
	var snap *core.CompanySnapshot
	if strings.Contains(r.Header.Get("Content-Type"), "html") {
		snap, err = ingest.ParseHTMLTable(label, string(body))
	} else {
		snap, err = ingest.DecodeSnapshot(label, body)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if snap.Label == "" {
		snap.Label = strings.ToUpper(ticker)
	}

	if err := h.Snapshots.Put(r.Context(), ticker, snap); err != nil {
		writeErr(w, err)
		return
	}
	logging.Component("compare-api").Info().Str("ticker", ticker).Int("metrics", len(snap.Values)).Msg("snapshot stored")
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleRefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.Fetcher == nil {
		writeError(w, http.StatusNotImplemented, "no snapshot source configured")
		return
	}
	ticker := mux.Vars(r)["ticker"]
	snap, err := h.Fetcher.FetchSnapshot(r.Context(), ticker)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err := h.Snapshots.Put(r.Context(), ticker, snap); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) group(name string, create bool) (*core.PeerGroup, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok := h.groups[name]; ok {
		return g, nil
	}
	if !create {
		return nil, fmt.Errorf("peer group %s: %w", name, store.ErrNotFound)
	}
	g, err := core.NewPeerGroup(h.Catalog, h.Engine)
	if err != nil {
		return nil, err
	}
	h.groups[name] = g
	return g, nil
}

type peersResponse struct {
	Group         string                `json:"group"`
	Peers         []string              `json:"peers"`
	Standings     []core.Standing       `json:"standings"`
	SectorAverage *core.CompanySnapshot `json:"sector_average"`
}

func (h *Handler) writePeers(w http.ResponseWriter, status int, name string, g *core.PeerGroup) {
	standings, err := g.Standings()
	if err != nil {
		writeErr(w, err)
		return
	}
	labels := []string{}
	for _, p := range g.Peers() {
		labels = append(labels, p.Label)
	}
	writeJSON(w, status, peersResponse{Group: name, Peers: labels, Standings: standings, SectorAverage: g.SectorAverage()})
}

func (h *Handler) HandleAddPeer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["group"]
	var in CompanyInput
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	snap, err := h.resolve(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	if snap.Label == "" && in.Ticker != "" {
		snap.Label = strings.ToUpper(in.Ticker)
	}

	g, err := h.group(name, true)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := g.Add(snap); err != nil {
		if errors.Is(err, core.ErrDuplicatePeer) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeErr(w, errBadInput(err.Error()))
		return
	}
	h.writePeers(w, http.StatusCreated, name, g)
}

func (h *Handler) HandleGetPeers(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["group"]
	g, err := h.group(name, false)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.writePeers(w, http.StatusOK, name, g)
}

func (h *Handler) HandleRemovePeer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	g, err := h.group(vars["group"], false)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !g.Remove(vars["label"]) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("peer %s not in group %s", vars["label"], vars["group"]))
		return
	}
	h.writePeers(w, http.StatusOK, vars["group"], g)
}

func (h *Handler) HandleCompareToSector(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	g, err := h.group(vars["group"], false)
	if err != nil {
		writeErr(w, err)
		return
	}
	result, err := g.CompareToSector(vars["label"])
	if err != nil {
		writeErr(w, err)
		return
	}
	dm, err := present.Format(result, h.Currency)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompareResponse{Result: result, Display: dm})
}
