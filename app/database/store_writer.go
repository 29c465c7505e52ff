package database

import (
	"fmt"
	"sort"
	"time"

	"github.com/terracepulse/terracepulse/app/aggregate"
)

// Writer commits one team's processed batch in a single transaction:
// all bucket deltas as additive increments, then the batch's fingerprints.
// The increment is delta application on the stored row, never a
// get-then-overwrite, so concurrent runs touching the same bucket cannot
// lose updates.
type Writer struct {
	db *DB
}

func NewWriter(db *DB) *Writer {
	return &Writer{db: db}
}

func (w *Writer) Commit(deltas map[aggregate.Key]aggregate.Delta, fingerprints []string) error {
	if len(deltas) == 0 && len(fingerprints) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Unix()

	// Stable application order keeps retries and logs reproducible
	keys := make([]aggregate.Key, 0, len(deltas))
	for key := range deltas {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TeamID != keys[j].TeamID {
			return keys[i].TeamID < keys[j].TeamID
		}
		return keys[i].BucketStart.Before(keys[j].BucketStart)
	})

	for _, key := range keys {
		delta := deltas[key]
		_, err := tx.Exec(`
			INSERT INTO team_sentiment_buckets (
				team_id, bucket_start, post_count, sentiment_sum, sentiment_sq_sum,
				min_score, max_score, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (team_id, bucket_start) DO UPDATE SET
				post_count = post_count + excluded.post_count,
				sentiment_sum = sentiment_sum + excluded.sentiment_sum,
				sentiment_sq_sum = sentiment_sq_sum + excluded.sentiment_sq_sum,
				min_score = MIN(min_score, excluded.min_score),
				max_score = MAX(max_score, excluded.max_score),
				updated_at = excluded.updated_at
		`, key.TeamID, key.BucketStart.Unix(), delta.PostCount, delta.SentimentSum,
			delta.SentimentSqSum, delta.MinScore, delta.MaxScore, now)
		if err != nil {
			return fmt.Errorf("failed to apply bucket delta for %s/%d: %w",
				key.TeamID, key.BucketStart.Unix(), err)
		}
	}

	// Fingerprints commit last: a post is only marked seen once its effect
	// on the buckets is durable.
	for _, fp := range fingerprints {
		_, err := tx.Exec(`
			INSERT INTO seen_posts (fingerprint, first_seen_at)
			VALUES (?, ?)
			ON CONFLICT (fingerprint) DO NOTHING
		`, fp, now)
		if err != nil {
			return fmt.Errorf("failed to insert fingerprint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}
