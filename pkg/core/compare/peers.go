package compare

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDuplicatePeer = errors.New("compare: peer already in group")
	ErrUnknownPeer   = errors.New("compare: peer not in group")
)

// SectorAverageLabel labels the synthetic snapshot built by SectorAverage.
const SectorAverageLabel = "Sector Average"

// PeerGroup is the caller-owned list of companies on a sector or search
// view. Every query re-runs the scorer against the current members.
type PeerGroup struct {
	mu      sync.RWMutex
	catalog *Catalog
	engine  *Engine
	peers   []*CompanySnapshot
}

// NewPeerGroup returns an empty group. A nil engine means exact ties.
func NewPeerGroup(catalog *Catalog, engine *Engine) (*PeerGroup, error) {
	if catalog == nil {
		return nil, ErrNilCatalog
	}
	if engine == nil {
		engine = &Engine{}
	}
	return &PeerGroup{catalog: catalog, engine: engine}, nil
}

// Add appends snap. Labels identify peers and must be unique and non-empty.
func (g *PeerGroup) Add(snap *CompanySnapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if snap.Label == "" {
		return fmt.Errorf("compare: peer label is empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.indexOf(snap.Label) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePeer, snap.Label)
	}
	g.peers = append(g.peers, snap)
	return nil
}

// Remove drops the peer with label and reports whether it was present.
func (g *PeerGroup) Remove(label string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexOf(label)
	if i < 0 {
		return false
	}
	g.peers = append(g.peers[:i], g.peers[i+1:]...)
	return true
}

// Peers returns the members in insertion order.
func (g *PeerGroup) Peers() []*CompanySnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*CompanySnapshot, len(g.peers))
	copy(out, g.peers)
	return out
}

// Len reports the number of members.
func (g *PeerGroup) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.peers)
}

func (g *PeerGroup) indexOf(label string) int {
	for i, p := range g.peers {
		if p.Label == label {
			return i
		}
	}
	return -1
}

// Compare runs a head-to-head between two members.
func (g *PeerGroup) Compare(label1, label2 string) (*ComparisonResult, error) {
	g.mu.RLock()
	i, j := g.indexOf(label1), g.indexOf(label2)
	var a, b *CompanySnapshot
	if i >= 0 {
		a = g.peers[i]
	}
	if j >= 0 {
		b = g.peers[j]
	}
	g.mu.RUnlock()

	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, label1)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, label2)
	}
	return g.engine.Run(g.catalog, a, b)
}

// Standing is one peer's record across the round robin.
type Standing struct {
	Label       string `json:"label"`
	MatchWins   int    `json:"match_wins"`
	MatchLosses int    `json:"match_losses"`
	MatchTies   int    `json:"match_ties"`
	MetricWins  int    `json:"metric_wins"`
}

// Standings plays every pair of members once and ranks them by match wins,
// then metric wins, then label.
func (g *PeerGroup) Standings() ([]Standing, error) {
	peers := g.Peers()
	table := make([]Standing, len(peers))
	for i, p := range peers {
		table[i].Label = p.Label
	}

	for i := 0; i < len(peers); i++ {
		for j := i + 1; j < len(peers); j++ {
			res, err := g.engine.Run(g.catalog, peers[i], peers[j])
			if err != nil {
				return nil, err
			}
			table[i].MetricWins += res.Company1Score()
			table[j].MetricWins += res.Company2Score()
			switch res.Verdict {
			case VerdictCompany1:
				table[i].MatchWins++
				table[j].MatchLosses++
			case VerdictCompany2:
				table[j].MatchWins++
				table[i].MatchLosses++
			default:
				table[i].MatchTies++
				table[j].MatchTies++
			}
		}
	}

	sort.SliceStable(table, func(a, b int) bool {
		if table[a].MatchWins != table[b].MatchWins {
			return table[a].MatchWins > table[b].MatchWins
		}
		if table[a].MetricWins != table[b].MetricWins {
			return table[a].MetricWins > table[b].MetricWins
		}
		return table[a].Label < table[b].Label
	})
	return table, nil
}

// SectorAverage builds a snapshot holding, for each catalog metric, the mean
// of the members' available readings. Metrics no member reports are left out
// and therefore read as Missing.
func (g *PeerGroup) SectorAverage() *CompanySnapshot {
	peers := g.Peers()
	values := make(map[string]interface{}, g.catalog.Len())
	for _, m := range g.catalog.metrics {
		var sum float64
		var n int
		for _, p := range peers {
			if f, ok := GetValue(p, m.Key).Float(); ok {
				sum += f
				n++
			}
		}
		if n > 0 {
			values[m.Key] = sum / float64(n)
		}
	}
	return NewSnapshot(SectorAverageLabel, values)
}

// CompareToSector runs a member against the group's SectorAverage.
func (g *PeerGroup) CompareToSector(label string) (*ComparisonResult, error) {
	g.mu.RLock()
	i := g.indexOf(label)
	var snap *CompanySnapshot
	if i >= 0 {
		snap = g.peers[i]
	}
	g.mu.RUnlock()
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, label)
	}
	return g.engine.Run(g.catalog, snap, g.SectorAverage())
}
