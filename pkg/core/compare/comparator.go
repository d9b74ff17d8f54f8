package compare

import (
	"fmt"
	"math"
)

// Outcome is the per-metric result of a head-to-head comparison.
type Outcome int

const (
	Company1Wins Outcome = iota
	Company2Wins
	Tie
	NotAvailable
)

var outcomeNames = [...]string{"company1_wins", "company2_wins", "tie", "not_available"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

func (o Outcome) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(outcomeNames) {
		return nil, fmt.Errorf("compare: invalid outcome %d", int(o))
	}
	return []byte(outcomeNames[o]), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for i, n := range outcomeNames {
		if n == string(text) {
			*o = Outcome(i)
			return nil
		}
	}
	return fmt.Errorf("compare: unknown outcome %q", text)
}

// Comparator decides a single metric. Epsilon is the absolute tolerance under
// which two readings count as a tie; zero means exact equality.
type Comparator struct {
	Epsilon float64
}

// Compare applies the exact-equality rule. See Comparator.Compare.
func Compare(a, b Value, pref Preference) Outcome {
	return Comparator{}.Compare(a, b, pref)
}

// Compare returns NotAvailable if either side is missing, Tie on equality,
// and otherwise the side favored by pref.
func (c Comparator) Compare(a, b Value, pref Preference) Outcome {
	x, okA := a.Float()
	y, okB := b.Float()
	if !okA || !okB {
		return NotAvailable
	}
	if x == y || (c.Epsilon > 0 && math.Abs(x-y) <= c.Epsilon) {
		return Tie
	}
	if pref == LowerIsBetter {
		if x < y {
			return Company1Wins
		}
		return Company2Wins
	}
	if x > y {
		return Company1Wins
	}
	return Company2Wins
}
