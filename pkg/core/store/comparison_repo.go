package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fin_dashboard/pkg/core/compare"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ComparisonRecord is one persisted comparison run.
type ComparisonRecord struct {
	ID        string                    `json:"id"`
	Currency  string                    `json:"currency"`
	Result    *compare.ComparisonResult `json:"result"`
	Narrative json.RawMessage           `json:"narrative,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
}

// ComparisonStore is implemented by ComparisonRepo and MemoryComparisonRepo.
type ComparisonStore interface {
	Save(ctx context.Context, rec *ComparisonRecord) error
	Load(ctx context.Context, id string) (*ComparisonRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*ComparisonRecord, error)
}

func prepare(rec *ComparisonRecord) error {
	if rec == nil || rec.Result == nil {
		return fmt.Errorf("comparison record has no result")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}

// ComparisonRepo stores comparisons in Postgres as JSONB.
type ComparisonRepo struct {
	pool *pgxpool.Pool
}

func NewComparisonRepo(p *pgxpool.Pool) *ComparisonRepo {
	return &ComparisonRepo{pool: p}
}

// Save inserts rec, assigning an ID and timestamp when unset.
func (r *ComparisonRepo) Save(ctx context.Context, rec *ComparisonRecord) error {
	if r.pool == nil {
		return ErrNoPool
	}
	if err := prepare(rec); err != nil {
		return err
	}
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	var narrative []byte
	if len(rec.Narrative) > 0 {
		narrative = rec.Narrative
	}

	query := `
		INSERT INTO comparisons (id, company1_label, company2_label, verdict, currency, result_json, narrative_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			result_json = EXCLUDED.result_json,
			narrative_json = EXCLUDED.narrative_json,
			currency = EXCLUDED.currency;
	`
	_, err = r.pool.Exec(ctx, query, rec.ID, rec.Result.Company1Label, rec.Result.Company2Label,
		rec.Result.Verdict.String(), rec.Currency, resultJSON, narrative, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save comparison: %w", err)
	}
	return nil
}

func (r *ComparisonRepo) Load(ctx context.Context, id string) (*ComparisonRecord, error) {
	if r.pool == nil {
		return nil, ErrNoPool
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	row := r.pool.QueryRow(ctx,
		`SELECT id::text, currency, result_json, narrative_json, created_at FROM comparisons WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load comparison: %w", err)
	}
	return rec, nil
}

// ListRecent returns up to limit comparisons, newest first.
func (r *ComparisonRepo) ListRecent(ctx context.Context, limit int) ([]*ComparisonRecord, error) {
	if r.pool == nil {
		return nil, ErrNoPool
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, currency, result_json, narrative_json, created_at FROM comparisons ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}
	defer rows.Close()

	var out []*ComparisonRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comparison: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*ComparisonRecord, error) {
	var (
		rec        ComparisonRecord
		resultJSON []byte
		narrative  []byte
	)
	if err := row.Scan(&rec.ID, &rec.Currency, &resultJSON, &narrative, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Result = &compare.ComparisonResult{}
	if err := json.Unmarshal(resultJSON, rec.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if len(narrative) > 0 {
		rec.Narrative = json.RawMessage(narrative)
	}
	return &rec, nil
}

// MemoryComparisonRepo keeps comparisons in process memory. It backs the API
// when no database is configured.
type MemoryComparisonRepo struct {
	mu      sync.RWMutex
	records map[string]*ComparisonRecord
}

func NewMemoryComparisonRepo() *MemoryComparisonRepo {
	return &MemoryComparisonRepo{records: make(map[string]*ComparisonRecord)}
}

func (m *MemoryComparisonRepo) Save(_ context.Context, rec *ComparisonRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *MemoryComparisonRepo) Load(_ context.Context, id string) (*ComparisonRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryComparisonRepo) ListRecent(_ context.Context, limit int) ([]*ComparisonRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ComparisonRecord, 0, len(m.records))
	for _, rec := range m.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
