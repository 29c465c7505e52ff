package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terracepulse/terracepulse/app/aggregate"
	"github.com/terracepulse/terracepulse/app/cfg"
	"github.com/terracepulse/terracepulse/app/database"
	"github.com/terracepulse/terracepulse/app/dedup"
	"github.com/terracepulse/terracepulse/app/source"
	"github.com/terracepulse/terracepulse/app/team"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs the ingestion pipeline on a fixed interval with a bounded
// worker pool. Each tick enqueues one ProcessTeamTask per enabled team under
// a shared run ID, plus a fingerprint eviction task. Failed tasks are logged
// and recorded, not re-enqueued; the next tick is the retry.
type Scheduler struct {
	configCache     *team.ConfigCache
	sources         []source.Source
	deduplicator    *dedup.Deduplicator
	scorer          ScorerInterface
	writer          database.StoreWriter
	fingerprintRepo database.FingerprintRepository
	aggregator      *aggregate.Aggregator
	outcomes        *OutcomeRecorder
	interval        time.Duration
	workerCount     int
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	taskQueue       chan TaskInterface
}

func NewScheduler(configCache *team.ConfigCache, sources []source.Source,
	deduplicator *dedup.Deduplicator, scorerClient ScorerInterface, writer database.StoreWriter,
	fingerprintRepo database.FingerprintRepository, aggregator *aggregate.Aggregator,
	outcomes *OutcomeRecorder) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		configCache:     configCache,
		sources:         sources,
		deduplicator:    deduplicator,
		scorer:          scorerClient,
		writer:          writer,
		fingerprintRepo: fingerprintRepo,
		aggregator:      aggregator,
		outcomes:        outcomes,
		interval:        time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:     cfg.WorkerCount,
		ctx:             ctx,
		cancel:          cancel,
		taskQueue:       make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueRun()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueRun()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueProcessTeam schedules an on-demand run for a single team.
func (s *Scheduler) EnqueueProcessTeam(teamID string) error {
	teamConfig, err := s.configCache.GetConfig(teamID)
	if err != nil {
		return err
	}
	if !teamConfig.Settings.Enabled {
		return fmt.Errorf("team '%s' is disabled", teamID)
	}

	task := NewProcessTeamTask(uuid.NewString(), teamConfig, s.sources,
		s.deduplicator, s.scorer, s.writer, s.aggregator, s.outcomes)
	return s.EnqueueTask(task)
}

// EnqueueProcessAll schedules an on-demand run for every enabled team and
// returns how many tasks were enqueued.
func (s *Scheduler) EnqueueProcessAll() (int, error) {
	runID := uuid.NewString()
	enqueued := 0

	for _, teamID := range s.configCache.GetEnabledIDs() {
		teamConfig, err := s.configCache.GetConfig(teamID)
		if err != nil {
			slog.Warn("Failed to get team config, skipping", "team", teamID, "error", err)
			continue
		}

		task := NewProcessTeamTask(runID, teamConfig, s.sources,
			s.deduplicator, s.scorer, s.writer, s.aggregator, s.outcomes)
		if err := s.EnqueueTask(task); err != nil {
			return enqueued, err
		}
		enqueued++
	}

	return enqueued, nil
}

func (s *Scheduler) enqueueRun() {
	teamIDs := s.configCache.GetEnabledIDs()
	if len(teamIDs) == 0 {
		slog.Debug("No enabled team configurations found")
		return
	}

	runID := uuid.NewString()
	slog.Debug("Scheduling processing run", "run_id", runID, "teams", len(teamIDs))

	for _, teamID := range teamIDs {
		teamConfig, err := s.configCache.GetConfig(teamID)
		if err != nil {
			slog.Warn("Failed to get team config, skipping", "team", teamID, "error", err)
			continue
		}

		task := NewProcessTeamTask(runID, teamConfig, s.sources,
			s.deduplicator, s.scorer, s.writer, s.aggregator, s.outcomes)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue ProcessTeamTask", "team", teamID, "error", err)
		}
	}

	evictTask := NewEvictFingerprintsTask(runID, s.fingerprintRepo)
	if err := s.EnqueueTask(evictTask); err != nil {
		slog.Warn("Failed to enqueue EvictFingerprintsTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		// No re-enqueue: the next scheduled run picks up where this one
		// left off, since failed posts were never marked seen.
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "team", task.GetTeamID(), "error", err)
	}
}
