package scorer

import (
	"github.com/terracepulse/terracepulse/app/source"
)

// ScoredPost is a RawPost with its remote sentiment verdict attached.
// Score is polarity in [-1, 1]; Magnitude is intensity, >= 0, independent of
// sign. Immutable once created.
type ScoredPost struct {
	source.RawPost
	Score     float64
	Magnitude float64
}

// Result partitions a scoring call: Scored posts carry a real verdict from
// the service, Unscored posts exhausted retries or were rejected and must be
// retried on a later run (they are never fingerprint-committed). Relative
// input order is preserved in both slices.
type Result struct {
	Scored   []ScoredPost
	Unscored []source.RawPost
}
