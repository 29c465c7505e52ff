package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./terracepulse.db" description:"Path to the SQLite database file"`

	// Application configuration
	TeamsDir          string `long:"teams-dir" env:"TEAMS_DIR" default:"./teams" description:"Directory containing team configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for team processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"900" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for trigger endpoints (optional)"`

	// Pipeline tuning
	BucketWidthMinutes int `long:"bucket-width" env:"BUCKET_WIDTH_MINUTES" default:"60" description:"Sentiment bucket width in minutes"`
	RetentionDays      int `long:"retention-days" env:"RETENTION_DAYS" default:"30" description:"Retention window for seen-post fingerprints in days"`
	LookbackHours      int `long:"lookback-hours" env:"LOOKBACK_HOURS" default:"24" description:"How far back to fetch posts per run in hours"`
	MaxPostsPerRun     int `long:"max-posts-per-run" env:"MAX_POSTS_PER_RUN" default:"50" description:"Maximum posts scored per team per run"`
	MinTextLength      int `long:"min-text-length" env:"MIN_TEXT_LENGTH" default:"30" description:"Minimum post text length to be worth scoring"`

	// Source configuration
	RedditBaseUrl string `long:"reddit-base-url" env:"REDDIT_BASE_URL" default:"https://www.reddit.com" description:"Base URL for Reddit RSS feeds"`
	MirrorBaseUrl string `long:"mirror-base-url" env:"MIRROR_BASE_URL" default:"https://nitter.net" description:"Base URL of the Twitter mirror instance"`
	SourceTimeout int    `long:"source-timeout" env:"SOURCE_TIMEOUT" default:"15" description:"Per-call source fetch timeout in seconds"`

	// Scorer configuration
	ScorerUrl         string `long:"scorer-url" env:"SCORER_URL" default:"http://localhost:9090" description:"Base URL of the sentiment scoring service (required)" required:"true"`
	ScorerBatchSize   int    `long:"scorer-batch-size" env:"SCORER_BATCH_SIZE" default:"16" description:"Number of post texts per scoring request"`
	ScorerMaxAttempts int    `long:"scorer-max-attempts" env:"SCORER_MAX_ATTEMPTS" default:"3" description:"Maximum attempts per scoring request"`
	ScorerBackoffMs   int    `long:"scorer-backoff" env:"SCORER_BACKOFF_MS" default:"500" description:"Base backoff between scoring retries in milliseconds"`
	ScorerTimeout     int    `long:"scorer-timeout" env:"SCORER_TIMEOUT" default:"30" description:"Per-call scoring timeout in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Terrace Pulse/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/London)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		TeamsDir:           raw.TeamsDir,
		Port:               raw.Port,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  raw.SchedulerInterval,
		APIAccessKey:       raw.APIAccessKey,
		BucketWidthMinutes: raw.BucketWidthMinutes,
		RetentionDays:      raw.RetentionDays,
		LookbackHours:      raw.LookbackHours,
		MaxPostsPerRun:     raw.MaxPostsPerRun,
		MinTextLength:      raw.MinTextLength,
		RedditBaseUrl:      raw.RedditBaseUrl,
		MirrorBaseUrl:      raw.MirrorBaseUrl,
		SourceTimeout:      raw.SourceTimeout,
		ScorerUrl:          raw.ScorerUrl,
		ScorerBatchSize:    raw.ScorerBatchSize,
		ScorerMaxAttempts:  raw.ScorerMaxAttempts,
		ScorerBackoffMs:    raw.ScorerBackoffMs,
		ScorerTimeout:      raw.ScorerTimeout,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
