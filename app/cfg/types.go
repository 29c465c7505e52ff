package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	TeamsDir          string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Pipeline tuning
	BucketWidthMinutes int
	RetentionDays      int
	LookbackHours      int
	MaxPostsPerRun     int
	MinTextLength      int

	// Source configuration
	RedditBaseUrl string
	MirrorBaseUrl string
	SourceTimeout int

	// Scorer configuration
	ScorerUrl         string
	ScorerBatchSize   int
	ScorerMaxAttempts int
	ScorerBackoffMs   int
	ScorerTimeout     int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
