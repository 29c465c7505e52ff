package api

import (
	"time"

	"github.com/terracepulse/terracepulse/app/database"
	"github.com/terracepulse/terracepulse/app/tasks"
	"github.com/terracepulse/terracepulse/app/team"
)

type Handler struct {
	bucketRepo      database.BucketRepository
	fingerprintRepo database.FingerprintRepository
	configCache     *team.ConfigCache
	outcomes        *tasks.OutcomeRecorder
	scheduler       tasks.TaskSchedulerInterface
	startedAt       time.Time
}

// sentimentBucket is one aggregated window in a dashboard response. Mean and
// variance are derived from the stored sums at read time.
type sentimentBucket struct {
	BucketStart time.Time `json:"bucket_start"`
	PostCount   int       `json:"post_count"`
	MeanScore   float64   `json:"mean_score"`
	MinScore    float64   `json:"min_score"`
	MaxScore    float64   `json:"max_score"`
	Variance    float64   `json:"variance"`
}
