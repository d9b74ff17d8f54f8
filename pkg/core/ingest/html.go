package ingest

import (
	"fmt"
	"strings"

	"fin_dashboard/pkg/core/compare"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTMLTable reads two-column rows ("Total Assets" | "1,489,030") from
// the first <table> in html. Header rows and rows without a label cell are
// skipped; values that do not read as numbers are kept as-is so they
// surface as missing during comparison.
func ParseHTMLTable(label, html string) (*compare.CompanySnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table found in HTML")
	}

	if label == "" {
		label = strings.TrimSpace(table.Find("caption").First().Text())
	}

	values := make(map[string]interface{})
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := NormalizeKey(cells.Eq(0).Text())
		if key == "" {
			return
		}
		raw := strings.TrimSpace(cells.Eq(1).Text())
		if num, ok := cleanNumber(raw); ok {
			values[key] = num
			return
		}
		values[key] = raw
	})

	return compare.NewSnapshot(label, values), nil
}

// cleanNumber strips grouping commas, currency marks and accounting
// parentheses from a cell. "(1,200)" reads as -1200.
func cleanNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "—" {
		return "", false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == 'e', r == 'E', r == '+':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '\u00a0':
		case strings.ContainsRune("$₹€£¥", r):
		default:
			return "", false
		}
	}
	out := b.String()
	if out == "" {
		return "", false
	}
	if neg {
		out = "-" + out
	}
	if compare.Coerce(out).IsMissing() {
		return "", false
	}
	return out, true
}
