package database

import (
	"time"
)

// Bucket is one persisted TeamSentimentBucket row. Columns are additive
// counters; mean and variance are derived at read time, never stored.
type Bucket struct {
	TeamID         string
	BucketStart    time.Time
	PostCount      int
	SentimentSum   float64
	SentimentSqSum float64
	MinScore       float64
	MaxScore       float64
	UpdatedAt      time.Time
}
