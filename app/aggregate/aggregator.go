package aggregate

import (
	"time"

	"github.com/terracepulse/terracepulse/app/scorer"
)

// Key identifies one sentiment bucket: a team and a fixed-width time window.
type Key struct {
	TeamID      string
	BucketStart time.Time
}

// Delta is an additive contribution to a bucket. Deltas from any number of
// runs merge commutatively, so partial runs and retries compose without
// recomputing from raw history.
type Delta struct {
	PostCount      int
	SentimentSum   float64
	SentimentSqSum float64
	MinScore       float64
	MaxScore       float64
}

// Aggregator folds scored posts into per-bucket deltas.
type Aggregator struct {
	bucketWidth time.Duration
}

func NewAggregator(bucketWidth time.Duration) *Aggregator {
	return &Aggregator{bucketWidth: bucketWidth}
}

// Run folds the scored posts into deltas keyed by (team, bucket start).
// A post always lands in the bucket containing its posted time, including
// buckets older than anything committed so far; history is update-only,
// never rewritten.
func (a *Aggregator) Run(scored []scorer.ScoredPost) map[Key]Delta {
	deltas := make(map[Key]Delta)

	for _, post := range scored {
		key := Key{
			TeamID:      post.TeamID,
			BucketStart: a.BucketStart(post.PostedAt),
		}

		delta, ok := deltas[key]
		if !ok {
			delta = Delta{MinScore: post.Score, MaxScore: post.Score}
		}

		delta.PostCount++
		delta.SentimentSum += post.Score
		delta.SentimentSqSum += post.Score * post.Score
		if post.Score < delta.MinScore {
			delta.MinScore = post.Score
		}
		if post.Score > delta.MaxScore {
			delta.MaxScore = post.Score
		}

		deltas[key] = delta
	}

	return deltas
}

// BucketStart truncates a timestamp to the start of its bucket.
func (a *Aggregator) BucketStart(t time.Time) time.Time {
	return t.UTC().Truncate(a.bucketWidth)
}

// Mean is the derived average sentiment of a bucket. Derived values are
// computed at read time, never stored.
func Mean(sentimentSum float64, postCount int) float64 {
	if postCount == 0 {
		return 0
	}
	return sentimentSum / float64(postCount)
}

// Variance is the derived population variance of a bucket's scores,
// computed from the running sum and sum of squares.
func Variance(sentimentSum, sentimentSqSum float64, postCount int) float64 {
	if postCount == 0 {
		return 0
	}
	mean := sentimentSum / float64(postCount)
	variance := sentimentSqSum/float64(postCount) - mean*mean
	if variance < 0 {
		// Floating point noise around zero
		return 0
	}
	return variance
}

func (d Delta) Mean() float64 {
	return Mean(d.SentimentSum, d.PostCount)
}

func (d Delta) Variance() float64 {
	return Variance(d.SentimentSum, d.SentimentSqSum, d.PostCount)
}
