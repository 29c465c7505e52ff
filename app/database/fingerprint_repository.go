package database

import (
	"fmt"
	"strings"
	"time"
)

// FingerprintRepo handles the seen-post fingerprint index. Insertion happens
// inside the Writer's batch transaction; this repository covers lookups and
// retention eviction.
type FingerprintRepo struct {
	db *DB
}

func NewFingerprintRepository(db *DB) *FingerprintRepo {
	return &FingerprintRepo{db: db}
}

// SeenFingerprints returns which of the given fingerprints are already in
// the index.
func (r *FingerprintRepo) SeenFingerprints(fingerprints []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(fingerprints))
	if len(fingerprints) == 0 {
		return seen, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(fingerprints)), ",")
	args := make([]interface{}, len(fingerprints))
	for i, fp := range fingerprints {
		args[i] = fp
	}

	rows, err := r.db.Query(
		"SELECT fingerprint FROM seen_posts WHERE fingerprint IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen fingerprints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint row: %w", err)
		}
		seen[fp] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fingerprint rows: %w", err)
	}

	return seen, nil
}

// GetFingerprintCount returns the size of the seen-post index
func (r *FingerprintRepo) GetFingerprintCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM seen_posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get fingerprint count: %w", err)
	}
	return count, nil
}

// EvictOlderThan deletes fingerprints first seen before the cutoff and
// returns how many were removed. Bucket rows are untouched; eviction only
// bounds the dedup index.
func (r *FingerprintRepo) EvictOlderThan(cutoff time.Time) (int, error) {
	result, err := r.db.Exec("DELETE FROM seen_posts WHERE first_seen_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to evict fingerprints: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}
