package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/terracepulse/terracepulse/app/cfg"
	"github.com/terracepulse/terracepulse/app/database"
)

// EvictFingerprintsTask bounds the seen-post index by deleting fingerprints
// older than the retention window. Bucket rows are never touched.
type EvictFingerprintsTask struct {
	Task
	fingerprintRepo database.FingerprintRepository
	retention       time.Duration
}

func NewEvictFingerprintsTask(runID string, fingerprintRepo database.FingerprintRepository) *EvictFingerprintsTask {
	cfg := cfg.Get()

	return &EvictFingerprintsTask{
		Task:            NewTask(TaskTypeEvictFingerprints, "", runID),
		fingerprintRepo: fingerprintRepo,
		retention:       time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}
}

func (t *EvictFingerprintsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := time.Now().UTC().Add(-t.retention)

	evicted, err := t.fingerprintRepo.EvictOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("failed to evict fingerprints: %w", err)
	}

	if evicted > 0 {
		slog.Info("Task completed",
			"type", "EvictFingerprints",
			"duration", t.GetDuration(),
			"evicted", evicted,
			"cutoff", cutoff.Format(time.RFC3339))
	}

	return nil
}
