package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,19}$`)

// ErrInvalidTicker is returned for tickers that cannot be used as a key.
var ErrInvalidTicker = errors.New("store: invalid ticker")

// NormalizeTicker upper-cases ticker and checks it is safe to use as a key
// and file name.
func NormalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w %q", ErrInvalidTicker, ticker)
	}
	return t, nil
}

// SnapshotCache stores company snapshots by ticker. With a pool it uses the
// company_snapshots table; otherwise one JSON file per ticker under dir.
type SnapshotCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

type snapshotEntry struct {
	Ticker    string                   `json:"ticker"`
	Snapshot  *compare.CompanySnapshot `json:"snapshot"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// NewSnapshotCache returns a cache backed by p, or by files under dir when
// p is nil. An empty dir defaults to .cache/snapshots.
func NewSnapshotCache(p *pgxpool.Pool, dir string) *SnapshotCache {
	if p == nil && dir == "" {
		dir = filepath.Join(".cache", "snapshots")
	}
	if p == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.Component("store").Warn().Err(err).Str("dir", dir).Msg("snapshot cache dir unavailable")
		}
	}
	return &SnapshotCache{pool: p, fileDir: dir}
}

// Put stores snap under ticker, replacing any previous entry.
func (c *SnapshotCache) Put(ctx context.Context, ticker string, snap *compare.CompanySnapshot) error {
	if snap == nil {
		return compare.ErrNilSnapshot
	}
	key, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	entry := snapshotEntry{Ticker: key, Snapshot: snap, UpdatedAt: time.Now().UTC()}

	if c.pool != nil {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		_, err = c.pool.Exec(ctx, `
			INSERT INTO company_snapshots (ticker, snapshot_json, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (ticker)
			DO UPDATE SET snapshot_json = EXCLUDED.snapshot_json, updated_at = EXCLUDED.updated_at;
		`, key, data, entry.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", key, err)
		}
		return nil
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	logging.Component("store").Debug().Str("ticker", key).Int("metrics", len(snap.Values)).Msg("snapshot cached")
	return nil
}

// Get returns the snapshot stored under ticker or ErrNotFound.
func (c *SnapshotCache) Get(ctx context.Context, ticker string) (*compare.CompanySnapshot, error) {
	key, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	var data []byte
	if c.pool != nil {
		err := c.pool.QueryRow(ctx, `SELECT snapshot_json FROM company_snapshots WHERE ticker = $1`, key).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
		}
		snap := &compare.CompanySnapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
		}
		return snap, nil
	}

	data, err = os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	var entry snapshotEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
	}
	if entry.Snapshot == nil {
		return nil, fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
	}
	return entry.Snapshot, nil
}

// Tickers lists cached tickers in sorted order.
func (c *SnapshotCache) Tickers(ctx context.Context) ([]string, error) {
	var out []string
	if c.pool != nil {
		rows, err := c.pool.Query(ctx, `SELECT ticker FROM company_snapshots ORDER BY ticker`)
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, rows.Err()
	}

	files, err := filepath.Glob(filepath.Join(c.fileDir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		out = append(out, strings.TrimSuffix(filepath.Base(f), ".json"))
	}
	sort.Strings(out)
	return out, nil
}

func (c *SnapshotCache) path(ticker string) string {
	return filepath.Join(c.fileDir, ticker+".json")
}
