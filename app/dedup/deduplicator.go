package dedup

import (
	"fmt"

	"github.com/terracepulse/terracepulse/app/source"
)

// SeenIndex is the externally owned fingerprint index. Entries are inserted
// by the store writer only after a batch has been durably aggregated, never
// by the deduplicator itself.
type SeenIndex interface {
	SeenFingerprints(fingerprints []string) (map[string]bool, error)
}

type Deduplicator struct {
	index SeenIndex
}

func NewDeduplicator(index SeenIndex) *Deduplicator {
	return &Deduplicator{index: index}
}

// Filter returns the posts whose fingerprints are not in the seen index,
// preserving input order, together with the fingerprint of each retained
// post. Duplicate fingerprints within the batch keep only their first
// occurrence.
func (d *Deduplicator) Filter(posts []source.RawPost) ([]source.RawPost, []string, error) {
	if len(posts) == 0 {
		return nil, nil, nil
	}

	fingerprints := make([]string, len(posts))
	for i, post := range posts {
		fingerprints[i] = Fingerprint(post)
	}

	seen, err := d.index.SeenFingerprints(fingerprints)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check seen fingerprints: %w", err)
	}

	fresh := make([]source.RawPost, 0, len(posts))
	freshFingerprints := make([]string, 0, len(posts))
	inBatch := make(map[string]bool, len(posts))

	for i, post := range posts {
		fp := fingerprints[i]
		if seen[fp] || inBatch[fp] {
			continue
		}
		inBatch[fp] = true
		fresh = append(fresh, post)
		freshFingerprints = append(freshFingerprints, fp)
	}

	return fresh, freshFingerprints, nil
}
