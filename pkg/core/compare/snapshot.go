package compare

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a metric reading that may be missing. The zero Value is Missing.
type Value struct {
	v  float64
	ok bool
}

// Missing returns the "no usable number" marker.
func Missing() Value { return Value{} }

// Of wraps f; NaN and ±Inf become Missing.
func Of(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{v: f, ok: true}
}

func (v Value) IsMissing() bool { return !v.ok }

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) { return v.v, v.ok }

func (v Value) String() string {
	if !v.ok {
		return "missing"
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}

// MarshalJSON encodes Missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Coerce(raw)
	return nil
}

// CompanySnapshot is one company's raw metric values. Values may hold any
// decoded JSON shape; reads go through GetValue.
type CompanySnapshot struct {
	Label  string                 `json:"label"`
	Values map[string]interface{} `json:"values"`
}

// NewSnapshot builds a snapshot over values. A nil map is an empty snapshot.
func NewSnapshot(label string, values map[string]interface{}) *CompanySnapshot {
	if values == nil {
		values = map[string]interface{}{}
	}
	return &CompanySnapshot{Label: label, Values: values}
}

// FromFloats is a convenience constructor for already-numeric data.
func FromFloats(label string, values map[string]float64) *CompanySnapshot {
	raw := make(map[string]interface{}, len(values))
	for k, f := range values {
		raw[k] = f
	}
	return NewSnapshot(label, raw)
}

// MarshalJSON writes non-finite floats as null so stored snapshots stay valid JSON.
func (s *CompanySnapshot) MarshalJSON() ([]byte, error) {
	type wire struct {
		Label  string                 `json:"label"`
		Values map[string]interface{} `json:"values"`
	}
	clean := make(map[string]interface{}, len(s.Values))
	for k, raw := range s.Values {
		if f, ok := raw.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			clean[k] = nil
			continue
		}
		clean[k] = raw
	}
	return json.Marshal(wire{Label: s.Label, Values: clean})
}

// GetValue extracts key from snapshot. It never fails: a nil snapshot, an
// absent key, null, non-finite numbers and anything that does not coerce to a
// number all yield Missing.
func GetValue(snapshot *CompanySnapshot, key string) Value {
	if snapshot == nil || snapshot.Values == nil {
		return Missing()
	}
	raw, ok := snapshot.Values[key]
	if !ok {
		return Missing()
	}
	return Coerce(raw)
}

// Coerce converts one decoded field to a Value.
//
// Numbers pass through, numeric strings are parsed, and object entries are
// read through their "value" field. Objects carrying a "result" marker such as
// {"result": "not_available"} without a usable value are Missing, the same as
// null. Booleans, arrays and empty strings are Missing.
func Coerce(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Missing()
	case float64:
		return Of(x)
	case float32:
		return Of(float64(x))
	case int:
		return Of(float64(x))
	case int8:
		return Of(float64(x))
	case int16:
		return Of(float64(x))
	case int32:
		return Of(float64(x))
	case int64:
		return Of(float64(x))
	case uint:
		return Of(float64(x))
	case uint8:
		return Of(float64(x))
	case uint16:
		return Of(float64(x))
	case uint32:
		return Of(float64(x))
	case uint64:
		return Of(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Missing()
		}
		return Of(f)
	case string:
		return parseNumeric(x)
	case Value:
		return x
	case *Value:
		if x == nil {
			return Missing()
		}
		return *x
	case map[string]interface{}:
		if inner, ok := x["value"]; ok {
			return Coerce(inner)
		}
		return Missing()
	default:
		return Missing()
	}
}

func parseNumeric(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing()
	}
	return Of(f)
}
