package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/terracepulse/terracepulse/app/aggregate"
	"github.com/terracepulse/terracepulse/app/cfg"
	"github.com/terracepulse/terracepulse/app/database"
	"github.com/terracepulse/terracepulse/app/dedup"
	"github.com/terracepulse/terracepulse/app/source"
	"github.com/terracepulse/terracepulse/app/team"
)

// ProcessTeamTask runs the full pipeline for one team: fetch from all
// sources, drop seen and short posts, score the rest, fold scores into bucket
// deltas and commit deltas plus fingerprints in one transaction. A failed
// run is recorded and left for the next scheduled run; tasks are never
// re-enqueued within a run.
type ProcessTeamTask struct {
	Task
	TeamConfig   *team.Config
	sources      []source.Source
	deduplicator *dedup.Deduplicator
	scorer       ScorerInterface
	writer       database.StoreWriter
	aggregator   *aggregate.Aggregator
	outcomes     *OutcomeRecorder

	lookback       time.Duration
	minTextLength  int
	maxPostsPerRun int
}

func NewProcessTeamTask(runID string, teamConfig *team.Config, sources []source.Source,
	deduplicator *dedup.Deduplicator, scorerClient ScorerInterface, writer database.StoreWriter,
	aggregator *aggregate.Aggregator, outcomes *OutcomeRecorder) *ProcessTeamTask {
	cfg := cfg.Get()

	return &ProcessTeamTask{
		Task:           NewTask(TaskTypeProcessTeam, teamConfig.ID, runID),
		TeamConfig:     teamConfig,
		sources:        sources,
		deduplicator:   deduplicator,
		scorer:         scorerClient,
		writer:         writer,
		aggregator:     aggregator,
		outcomes:       outcomes,
		lookback:       time.Duration(cfg.LookbackHours) * time.Hour,
		minTextLength:  cfg.MinTextLength,
		maxPostsPerRun: cfg.MaxPostsPerRun,
	}
}

func (t *ProcessTeamTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.TeamConfig.Settings.Enabled {
		slog.Debug("Team disabled, skipping", "team", t.TeamID)
		return nil
	}

	fetched, sourceErrors, err := t.fetchAll(ctx)
	if err != nil {
		t.recordFailure(0, sourceErrors, "source fetch failed")
		return fmt.Errorf("failed to fetch sources: %w", err)
	}
	if sourceErrors == len(t.sources) {
		t.recordFailure(0, sourceErrors, "all sources unavailable")
		return fmt.Errorf("all sources unavailable for team %s", t.TeamID)
	}

	eligible := t.dropShortPosts(fetched)

	fresh, _, err := t.deduplicator.Filter(eligible)
	if err != nil {
		t.recordFailure(len(fetched), sourceErrors, "fingerprint lookup failed")
		return fmt.Errorf("failed to deduplicate posts: %w", err)
	}

	if t.maxPostsPerRun > 0 && len(fresh) > t.maxPostsPerRun {
		slog.Debug("Capping posts for this run", "team", t.TeamID, "fresh", len(fresh), "cap", t.maxPostsPerRun)
		fresh = fresh[:t.maxPostsPerRun]
	}

	result := t.scorer.Score(ctx, fresh)

	if len(fresh) > 0 && len(result.Scored) == 0 {
		t.recordFailure(len(fetched), sourceErrors, "scoring failed for entire batch")
		return fmt.Errorf("scoring failed for all %d posts of team %s", len(fresh), t.TeamID)
	}

	deltas := t.aggregator.Run(result.Scored)

	// Only scored posts are marked seen. Unscored posts stay invisible to the
	// dedup index and get another chance on the next run.
	fingerprints := make([]string, len(result.Scored))
	for i, post := range result.Scored {
		fingerprints[i] = dedup.Fingerprint(post.RawPost)
	}

	if err := t.writer.Commit(deltas, fingerprints); err != nil {
		t.recordFailure(len(fetched), sourceErrors, "store write failed")
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	status := StatusOK
	reason := ""
	if sourceErrors > 0 {
		status = StatusPartial
		reason = "some sources unavailable"
	}
	if len(result.Unscored) > 0 {
		status = StatusPartial
		reason = "some posts left unscored"
	}

	t.outcomes.Record(TeamOutcome{
		TeamID:       t.TeamID,
		RunID:        t.RunID,
		Status:       status,
		Reason:       reason,
		Fetched:      len(fetched),
		Fresh:        len(fresh),
		Scored:       len(result.Scored),
		Unscored:     len(result.Unscored),
		SourceErrors: sourceErrors,
		Duration:     t.GetDuration(),
	})

	slog.Info("Task completed",
		"type", "ProcessTeam",
		"team", t.TeamID,
		"duration", t.GetDuration(),
		"fetched", len(fetched),
		"fresh", len(fresh),
		"scored", len(result.Scored),
		"unscored", len(result.Unscored),
		"buckets", len(deltas),
		"source_errors", sourceErrors)

	return nil
}

// fetchAll queries every source concurrently. An unavailable source is
// skipped for this run and counted; any other error aborts the task.
func (t *ProcessTeamTask) fetchAll(ctx context.Context) ([]source.RawPost, int, error) {
	since := time.Now().UTC().Add(-t.lookback)

	batches := make([][]source.RawPost, len(t.sources))
	sourceErrors := 0
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range t.sources {
		g.Go(func() error {
			posts, err := src.Fetch(gctx, t.TeamConfig, since)
			if err != nil {
				if source.IsUnavailable(err) {
					slog.Warn("Source unavailable, skipping for this run", "team", t.TeamID, "source", src.Name(), "error", err)
					mu.Lock()
					sourceErrors++
					mu.Unlock()
					return nil
				}
				return err
			}
			batches[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, sourceErrors, err
	}

	var fetched []source.RawPost
	for _, batch := range batches {
		fetched = append(fetched, batch...)
	}
	return fetched, sourceErrors, nil
}

func (t *ProcessTeamTask) dropShortPosts(posts []source.RawPost) []source.RawPost {
	if t.minTextLength <= 0 {
		return posts
	}

	eligible := make([]source.RawPost, 0, len(posts))
	for _, post := range posts {
		if utf8.RuneCountInString(strings.TrimSpace(post.Text)) < t.minTextLength {
			continue
		}
		eligible = append(eligible, post)
	}
	return eligible
}

func (t *ProcessTeamTask) recordFailure(fetched, sourceErrors int, reason string) {
	t.outcomes.Record(TeamOutcome{
		TeamID:       t.TeamID,
		RunID:        t.RunID,
		Status:       StatusFailed,
		Reason:       reason,
		Fetched:      fetched,
		SourceErrors: sourceErrors,
		Duration:     t.GetDuration(),
	})
}
