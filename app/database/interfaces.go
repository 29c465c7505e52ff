package database

import (
	"time"

	"github.com/terracepulse/terracepulse/app/aggregate"
)

type BucketRepository interface {
	GetBuckets(teamID string, from, to time.Time) ([]Bucket, error)
	GetBucketCount() (int, error)
	GetTotalPostCount() (int, error)
}

type FingerprintRepository interface {
	SeenFingerprints(fingerprints []string) (map[string]bool, error)
	GetFingerprintCount() (int, error)
	EvictOlderThan(cutoff time.Time) (int, error)
}

// StoreWriter commits one team's batch: every bucket delta as an atomic
// increment, then the batch's fingerprints. Fingerprints must never land
// without their deltas; a failed commit leaves the posts unseen so the next
// run reprocesses them.
type StoreWriter interface {
	Commit(deltas map[aggregate.Key]aggregate.Delta, fingerprints []string) error
}
