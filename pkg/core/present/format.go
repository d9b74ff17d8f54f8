// Package present projects comparison results into display-ready models.
// Nothing here changes an outcome, score or verdict.
package present

import (
	"math"
	"strings"

	"fin_dashboard/pkg/core/compare"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// NotAvailableText is shown for missing readings.
const NotAvailableText = "N/A"

const (
	// scaledCeiling is the magnitude from which suffixes stop being useful
	// (beyond 999.99T) and plain fixed-point is printed instead.
	scaledCeiling = 1e15
	// smallFloor is the magnitude under which two decimals would print 0.00.
	smallFloor = 0.01
)

// scales is ordered smallest first.
var scales = []struct {
	limit  float64
	suffix string
}{
	{1, ""},
	{1e3, "K"},
	{1e6, "M"},
	{1e9, "B"},
	{1e12, "T"},
}

var thousand = decimal.NewFromInt(1000)

// ResolveCurrency maps an ISO 4217 code ("INR", "usd") to its symbol via
// go-money. Anything else, including literal symbols, passes through.
func ResolveCurrency(currency string) string {
	c := strings.TrimSpace(currency)
	if len(c) == 3 {
		if cur := money.GetCurrency(strings.ToUpper(c)); cur != nil && cur.Grapheme != "" {
			return cur.Grapheme
		}
	}
	return c
}

// ScaleNumber renders v with a K/M/B/T suffix and two decimals. The suffix is
// picked after rounding, so 999,995 prints as 1.00M. Magnitudes beyond the
// suffix range or below a hundredth fall back to fixed-point.
func ScaleNumber(v float64) string {
	abs := math.Abs(v)
	switch {
	case v == 0:
		return "0.00"
	case abs >= scaledCeiling:
		return decimal.NewFromFloat(v).StringFixed(2)
	case abs < smallFloor:
		return decimal.NewFromFloat(v).String()
	}
	i := 0
	for i+1 < len(scales) && abs >= scales[i+1].limit {
		i++
	}
	for ; i < len(scales); i++ {
		r := decimal.NewFromFloat(v / scales[i].limit).Round(2)
		if r.Abs().LessThan(thousand) {
			return r.StringFixed(2) + scales[i].suffix
		}
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatValue renders one reading according to the metric's unit. The
// currency symbol is only applied to currency metrics.
func FormatValue(v compare.Value, unit compare.Unit, symbol string) string {
	f, ok := v.Float()
	if !ok {
		return NotAvailableText
	}

	switch unit {
	case compare.UnitPercent:
		return decimal.NewFromFloat(f).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
	case compare.UnitCurrency:
		s := ScaleNumber(f)
		if symbol == "" {
			return s
		}
		if strings.HasPrefix(s, "-") {
			return "-" + symbol + s[1:]
		}
		return symbol + s
	default:
		return ScaleNumber(f)
	}
}
