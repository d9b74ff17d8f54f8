// Package compare implements the pairwise financial comparison engine:
// a metric catalog, a tolerant snapshot accessor, the per-metric comparator
// and the aggregate scorer that produces a verdict for two companies.
package compare

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

var (
	ErrNilCatalog      = errors.New("compare: catalog is nil")
	ErrDuplicateMetric = errors.New("compare: duplicate metric key")
	ErrEmptyMetricKey  = errors.New("compare: metric key is empty")

	ErrMissingPreference = errors.New("compare: catalog entry has no preference")
)

// Preference says which direction of a metric is favorable.
type Preference int

const (
	HigherIsBetter Preference = iota
	LowerIsBetter
)

func (p Preference) String() string {
	switch p {
	case HigherIsBetter:
		return "higher_is_better"
	case LowerIsBetter:
		return "lower_is_better"
	default:
		return fmt.Sprintf("preference(%d)", int(p))
	}
}

// Hint is the short human phrasing used next to a metric in reports.
func (p Preference) Hint() string {
	if p == LowerIsBetter {
		return "Lower is better"
	}
	return "Higher is better"
}

func (p Preference) valid() bool {
	return p == HigherIsBetter || p == LowerIsBetter
}

// ParsePreference accepts the canonical names plus the short forms
// "higher"/"lower" used in hand-written catalogs.
func ParsePreference(s string) (Preference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "higher_is_better", "higher", "high", "max":
		return HigherIsBetter, nil
	case "lower_is_better", "lower", "low", "min":
		return LowerIsBetter, nil
	}
	return 0, fmt.Errorf("compare: unknown preference %q", s)
}

func (p Preference) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("compare: invalid preference %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Preference) UnmarshalText(text []byte) error {
	v, err := ParsePreference(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// UnmarshalYAML lets catalog files spell preferences as strings.
func (p *Preference) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}

// Unit is a display formatting hint; it never affects comparison.
type Unit string

const (
	UnitCurrency Unit = "currency"
	UnitRatio    Unit = "ratio"
	UnitPercent  Unit = "percent"
	UnitCount    Unit = "count"
)

// MetricDefinition describes one comparable financial figure.
type MetricDefinition struct {
	Key         string     `json:"key" yaml:"key" validate:"required"`
	Preference  Preference `json:"preference" yaml:"preference"`
	DisplayName string     `json:"display_name,omitempty" yaml:"display_name"`
	Unit        Unit       `json:"unit,omitempty" yaml:"unit" validate:"omitempty,oneof=currency ratio percent count"`
}

// Label returns DisplayName, or a title-cased form of Key when unset.
func (m MetricDefinition) Label() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return LabelFromKey(m.Key)
}

// LabelFromKey turns "total_assets" into "Total Assets".
func LabelFromKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

// Catalog is an immutable, ordered set of metric definitions.
type Catalog struct {
	metrics []MetricDefinition
}

var validate = validator.New()

// NewCatalog validates defs and freezes their order. Keys must be unique and
// non-empty; an empty catalog is allowed.
func NewCatalog(defs ...MetricDefinition) (*Catalog, error) {
	seen := make(map[string]struct{}, len(defs))
	metrics := make([]MetricDefinition, 0, len(defs))
	for i, d := range defs {
		d.Key = strings.TrimSpace(d.Key)
		if d.Key == "" {
			return nil, fmt.Errorf("%w (position %d)", ErrEmptyMetricKey, i)
		}
		if err := validate.Struct(d); err != nil {
			return nil, fmt.Errorf("compare: metric %q: %w", d.Key, err)
		}
		if !d.Preference.valid() {
			return nil, fmt.Errorf("compare: metric %q: invalid preference %d", d.Key, int(d.Preference))
		}
		if _, dup := seen[d.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMetric, d.Key)
		}
		seen[d.Key] = struct{}{}
		metrics = append(metrics, d)
	}
	return &Catalog{metrics: metrics}, nil
}

// MustCatalog is NewCatalog for static definitions; it panics on error.
func MustCatalog(defs ...MetricDefinition) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// ListMetrics returns the definitions in display order. The slice is a copy.
func (c *Catalog) ListMetrics() []MetricDefinition {
	if c == nil {
		return nil
	}
	out := make([]MetricDefinition, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Len reports the number of metrics.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.metrics)
}

// Lookup finds a definition by key.
func (c *Catalog) Lookup(key string) (MetricDefinition, bool) {
	if c == nil {
		return MetricDefinition{}, false
	}
	for _, m := range c.metrics {
		if m.Key == key {
			return m, true
		}
	}
	return MetricDefinition{}, false
}

var defaultCatalog = MustCatalog(
	MetricDefinition{Key: "total_assets", Preference: HigherIsBetter, Unit: UnitCurrency},
	MetricDefinition{Key: "total_revenue", Preference: HigherIsBetter, Unit: UnitCurrency},
	MetricDefinition{Key: "net_income", Preference: HigherIsBetter, Unit: UnitCurrency},
	MetricDefinition{Key: "total_liabilities", Preference: LowerIsBetter, Unit: UnitCurrency},
	MetricDefinition{Key: "current_ratio", Preference: HigherIsBetter, Unit: UnitRatio},
	MetricDefinition{Key: "debt_to_equity", Preference: LowerIsBetter, DisplayName: "Debt to Equity", Unit: UnitRatio},
	MetricDefinition{Key: "return_on_equity", Preference: HigherIsBetter, Unit: UnitPercent},
	MetricDefinition{Key: "net_profit_margin", Preference: HigherIsBetter, Unit: UnitPercent},
)

// DefaultCatalog is the built-in catalog used when no file is configured.
// The same instance is returned on every call.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// catalogFile is the on-disk YAML shape. Entries decode through
// catalogEntry so a missing preference can be told apart from
// higher_is_better.
type catalogFile struct {
	Metrics []catalogEntry `yaml:"metrics"`
}

type catalogEntry struct {
	Key         string      `yaml:"key"`
	Preference  *Preference `yaml:"preference"`
	DisplayName string      `yaml:"display_name"`
	Unit        Unit        `yaml:"unit"`
}

// LoadCatalog reads a YAML catalog of the form
//
//	metrics:
//	  - key: total_assets
//	    preference: higher
//	    unit: currency
//
// Every entry must name its preference.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML catalog bytes. Unknown fields are rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	defs := make([]MetricDefinition, 0, len(f.Metrics))
	for i, e := range f.Metrics {
		if e.Preference == nil {
			return nil, fmt.Errorf("%w: metric %q (position %d)", ErrMissingPreference, e.Key, i)
		}
		defs = append(defs, MetricDefinition{
			Key:         e.Key,
			Preference:  *e.Preference,
			DisplayName: e.DisplayName,
			Unit:        e.Unit,
		})
	}
	return NewCatalog(defs...)
}
