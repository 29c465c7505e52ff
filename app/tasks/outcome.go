package tasks

import (
	"sort"
	"sync"
	"time"
)

const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// TeamOutcome is the recorded result of a team's most recent processing run.
type TeamOutcome struct {
	TeamID       string        `json:"team_id"`
	RunID        string        `json:"run_id"`
	Status       string        `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	Fetched      int           `json:"fetched"`
	Fresh        int           `json:"fresh"`
	Scored       int           `json:"scored"`
	Unscored     int           `json:"unscored"`
	SourceErrors int           `json:"source_errors"`
	Duration     time.Duration `json:"-"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// OutcomeRecorder keeps the last outcome per team. Failed or partial runs are
// never retried within the run; the record is what operators see until the
// next scheduled run overwrites it.
type OutcomeRecorder struct {
	mu     sync.RWMutex
	byTeam map[string]TeamOutcome
}

func NewOutcomeRecorder() *OutcomeRecorder {
	return &OutcomeRecorder{byTeam: make(map[string]TeamOutcome)}
}

func (r *OutcomeRecorder) Record(outcome TeamOutcome) {
	if outcome.FinishedAt.IsZero() {
		outcome.FinishedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTeam[outcome.TeamID] = outcome
}

func (r *OutcomeRecorder) Get(teamID string) (TeamOutcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	outcome, ok := r.byTeam[teamID]
	return outcome, ok
}

// Snapshot returns all recorded outcomes ordered by team ID.
func (r *OutcomeRecorder) Snapshot() []TeamOutcome {
	r.mu.RLock()
	defer r.mu.RUnlock()

	outcomes := make([]TeamOutcome, 0, len(r.byTeam))
	for _, outcome := range r.byTeam {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].TeamID < outcomes[j].TeamID
	})
	return outcomes
}

// CountByStatus returns how many teams last finished in each status.
func (r *OutcomeRecorder) CountByStatus() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, outcome := range r.byTeam {
		counts[outcome.Status]++
	}
	return counts
}
