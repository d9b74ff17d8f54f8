// Package ingest turns uploaded company financials into comparison snapshots.
package ingest

import (
	"fmt"
	"strings"

	"fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/logging"
	"fin_dashboard/pkg/core/utils"
)

// envelope keys that may wrap the metric map in backend responses.
var (
	labelKeys   = []string{"company", "company_name", "label", "name"}
	metricsKeys = []string{"metrics", "financials", "data", "values"}
)

// DecodeSnapshot parses a snapshot upload. The payload may be strict JSON,
// damaged JSON or Hjson, either a flat object of metric keys or an envelope
// such as {"company": "TCS", "metrics": {...}}.
//
// label wins over any label in the envelope. A payload that parses to
// something other than an object yields an empty snapshot; only input that
// cannot be parsed at all is an error.
func DecodeSnapshot(label string, data []byte) (*compare.CompanySnapshot, error) {
	var decoded interface{}
	if _, err := utils.SmartParse(string(data), &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	obj, ok := decoded.(map[string]interface{})
	if !ok {
		logging.Component("ingest").Warn().
			Str("label", label).
			Str("type", fmt.Sprintf("%T", decoded)).
			Msg("snapshot payload is not an object, treating every metric as missing")
		return compare.NewSnapshot(label, nil), nil
	}

	values := obj
	for _, k := range metricsKeys {
		if inner, ok := obj[k].(map[string]interface{}); ok {
			values = inner
			break
		}
	}

	if label == "" {
		for _, k := range labelKeys {
			if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
				label = strings.TrimSpace(s)
				break
			}
		}
	}

	return compare.NewSnapshot(label, normalizeKeys(values)), nil
}

// normalizeKeys lowercases keys and maps spaces and dashes to underscores
// so "Total Assets" and "total-assets" both read as total_assets.
func normalizeKeys(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		nk := NormalizeKey(k)
		if nk == "" {
			continue
		}
		if _, exists := out[nk]; exists && nk != k {
			// exact key wins over a normalized duplicate
			continue
		}
		out[nk] = v
	}
	return out
}

// NormalizeKey converts a human or camel-free label into a catalog key.
func NormalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '&':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteString("and_")
			lastUnderscore = true
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
