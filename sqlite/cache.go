package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fwojciec/codedoc"
	"github.com/fwojciec/codedoc/bloom"
)

// Compile-time interface verification.
var (
	_ codedoc.ResultCache = (*CacheService)(nil)
	_ codedoc.AnomalyLog  = (*CacheService)(nil)
)

// Prefilter sizing: expected cached fingerprints and acceptable false
// positive rate. A false positive only costs one extra query.
const (
	prefilterExpectedEntries   = 100000
	prefilterFalsePositiveRate = 0.01
)

// CacheService implements codedoc.ResultCache using SQLite, with a Bloom
// filter over cached fingerprints so definite misses skip the database
// entirely. Writes are once per fingerprint: a second writer with an equal
// result discards its copy; a differing result is recorded as an anomaly and
// the first write stays authoritative.
type CacheService struct {
	db *DB

	mu        sync.Mutex
	prefilter *bloom.Filter
	warmed    bool
}

// NewCacheService creates a new CacheService.
func NewCacheService(db *DB) *CacheService {
	return &CacheService{
		db:        db,
		prefilter: bloom.NewFilter(prefilterExpectedEntries, prefilterFalsePositiveRate),
	}
}

// WarmPrefilter loads all cached fingerprints into the Bloom filter. Until
// warmed, the prefilter is bypassed and every Get queries the database.
func (s *CacheService) WarmPrefilter(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT fingerprint FROM results")
	if err != nil {
		return err
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return err
		}
		s.prefilter.Add(fp)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.warmed = true
	return nil
}

// Get returns the cached result for a fingerprint.
// Returns ENOTFOUND if no entry exists.
func (s *CacheService) Get(ctx context.Context, fp codedoc.Fingerprint) (*codedoc.AnalysisResult, error) {
	s.mu.Lock()
	skip := s.warmed && !s.prefilter.Test(string(fp))
	s.mu.Unlock()
	if skip {
		// Definite miss: the filter has no false negatives.
		return nil, codedoc.Errorf(codedoc.ENOTFOUND, "no cached result for fingerprint %q", fp)
	}

	var result codedoc.AnalysisResult
	var refs, createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, unit_id, explanation, refs, created_at
		FROM results
		WHERE fingerprint = ?
	`, string(fp)).Scan(&result.Fingerprint, &result.UnitID, &result.Explanation, &refs, &createdAt)

	if err == sql.ErrNoRows {
		return nil, codedoc.Errorf(codedoc.ENOTFOUND, "no cached result for fingerprint %q", fp)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(refs), &result.References); err != nil {
		return nil, fmt.Errorf("failed to parse refs: %w", err)
	}
	result.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &result, nil
}

// Put stores a result under its fingerprint. An existing entry is never
// overwritten: an equal duplicate is discarded silently, a differing one is
// recorded as an anomaly.
func (s *CacheService) Put(ctx context.Context, result *codedoc.AnalysisResult) error {
	if err := result.Validate(); err != nil {
		return err
	}

	refs, err := json.Marshal(result.References)
	if err != nil {
		return err
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO results (fingerprint, unit_id, explanation, refs, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, string(result.Fingerprint), result.UnitID, result.Explanation, string(refs),
		result.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		s.mu.Lock()
		s.prefilter.Add(string(result.Fingerprint))
		s.mu.Unlock()
		return nil
	}

	// Lost the race (or a repeat write): compare against the authoritative
	// entry and flag a differing result.
	existing, err := s.Get(ctx, result.Fingerprint)
	if err != nil {
		return err
	}
	if existing.Explanation == result.Explanation {
		return nil
	}
	return s.RecordAnomaly(ctx, &codedoc.CacheAnomaly{
		Fingerprint:  result.Fingerprint,
		UnitID:       result.UnitID,
		KeptHash:     codedoc.HashContent(existing.Explanation),
		RejectedHash: codedoc.HashContent(result.Explanation),
		ObservedAt:   time.Now().UTC(),
	})
}

// List enumerates cached results, oldest first.
func (s *CacheService) List(ctx context.Context, limit int) ([]*codedoc.AnalysisResult, error) {
	query := `
		SELECT fingerprint, unit_id, explanation, refs, created_at
		FROM results
		ORDER BY created_at ASC, fingerprint ASC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*codedoc.AnalysisResult
	for rows.Next() {
		var result codedoc.AnalysisResult
		var refs, createdAt string
		if err := rows.Scan(&result.Fingerprint, &result.UnitID, &result.Explanation, &refs, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(refs), &result.References); err != nil {
			return nil, fmt.Errorf("failed to parse refs: %w", err)
		}
		result.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		results = append(results, &result)
	}

	return results, rows.Err()
}

// Prune removes entries created before the cutoff and returns the number
// removed. The prefilter is left as-is; stale filter entries only cost an
// extra query each.
func (s *CacheService) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM results WHERE created_at < ?", before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// RecordAnomaly stores a cache anomaly for operator inspection.
func (s *CacheService) RecordAnomaly(ctx context.Context, a *codedoc.CacheAnomaly) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anomalies (id, fingerprint, unit_id, kept_hash, rejected_hash, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), string(a.Fingerprint), a.UnitID, a.KeptHash, a.RejectedHash,
		a.ObservedAt.Format(time.RFC3339))
	return err
}

// ListAnomalies returns all recorded anomalies, oldest first.
func (s *CacheService) ListAnomalies(ctx context.Context) ([]*codedoc.CacheAnomaly, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, unit_id, kept_hash, rejected_hash, observed_at
		FROM anomalies
		ORDER BY observed_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anomalies []*codedoc.CacheAnomaly
	for rows.Next() {
		var a codedoc.CacheAnomaly
		var observedAt string
		if err := rows.Scan(&a.Fingerprint, &a.UnitID, &a.KeptHash, &a.RejectedHash, &observedAt); err != nil {
			return nil, err
		}
		a.ObservedAt, err = time.Parse(time.RFC3339, observedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse observed_at: %w", err)
		}
		anomalies = append(anomalies, &a)
	}

	return anomalies, rows.Err()
}
