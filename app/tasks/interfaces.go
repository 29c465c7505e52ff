package tasks

import (
	"context"

	"github.com/terracepulse/terracepulse/app/scorer"
	"github.com/terracepulse/terracepulse/app/source"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing and by
// the API to trigger on-demand runs.
// Example usage:
//
//	scheduler := NewScheduler(configCache, sources, deduplicator, scorerClient, writer, fingerprintRepo, aggregator, outcomes)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueProcessTeam("arsenal")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueProcessTeam(teamID string) error
	EnqueueProcessAll() (int, error)
}

// ScorerInterface is the scoring dependency of a processing run.
type ScorerInterface interface {
	Score(ctx context.Context, posts []source.RawPost) scorer.Result
}
