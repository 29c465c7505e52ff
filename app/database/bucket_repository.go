package database

import (
	"fmt"
	"time"
)

// BucketRepo handles read access to team sentiment buckets. Writes go
// through the Writer so delta application and fingerprint commits stay in
// one transaction.
type BucketRepo struct {
	db *DB
}

func NewBucketRepository(db *DB) *BucketRepo {
	return &BucketRepo{db: db}
}

// GetBuckets returns a team's buckets with bucket_start in [from, to],
// oldest first.
func (r *BucketRepo) GetBuckets(teamID string, from, to time.Time) ([]Bucket, error) {
	rows, err := r.db.Query(`
		SELECT team_id, bucket_start, post_count, sentiment_sum, sentiment_sq_sum,
		       min_score, max_score, updated_at
		FROM team_sentiment_buckets
		WHERE team_id = ?
		  AND bucket_start >= ?
		  AND bucket_start <= ?
		ORDER BY bucket_start ASC
	`, teamID, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to get buckets: %w", err)
	}
	defer rows.Close()

	var buckets []Bucket
	for rows.Next() {
		var bucket Bucket
		var bucketStart, updatedAt int64
		err := rows.Scan(
			&bucket.TeamID, &bucketStart, &bucket.PostCount,
			&bucket.SentimentSum, &bucket.SentimentSqSum,
			&bucket.MinScore, &bucket.MaxScore, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket row: %w", err)
		}
		bucket.BucketStart = time.Unix(bucketStart, 0).UTC()
		bucket.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		buckets = append(buckets, bucket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bucket rows: %w", err)
	}

	return buckets, nil
}

// GetBucketCount returns the total number of bucket rows
func (r *BucketRepo) GetBucketCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM team_sentiment_buckets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get bucket count: %w", err)
	}
	return count, nil
}

// GetTotalPostCount returns the number of posts aggregated across all buckets
func (r *BucketRepo) GetTotalPostCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COALESCE(SUM(post_count), 0) FROM team_sentiment_buckets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get total post count: %w", err)
	}
	return count, nil
}
