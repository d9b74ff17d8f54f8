package compare

import (
	"encoding/json"
	"errors"
	"html"
	"net/http"

	core "fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/logging"
	"fin_dashboard/pkg/core/store"
)

type badInput string

func (e badInput) Error() string { return string(e) }

func errBadInput(msg string) error { return badInput(msg) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Component("compare-api").Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps err to a status: not found is 404, caller mistakes are 400,
// everything else is 500.
func writeErr(w http.ResponseWriter, err error) {
	var bad badInput
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, core.ErrUnknownPeer):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &bad),
		errors.Is(err, store.ErrInvalidTicker),
		errors.Is(err, core.ErrNilSnapshot),
		errors.Is(err, core.ErrNilCatalog),
		errors.Is(err, core.ErrDuplicatePeer):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Component("compare-api").Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func htmlEscape(s string) string {
	return html.EscapeString(s)
}
