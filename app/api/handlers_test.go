package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/terracepulse/terracepulse/app/database"
	"github.com/terracepulse/terracepulse/app/tasks"
	"github.com/terracepulse/terracepulse/app/team"
)

type fakeBucketRepo struct {
	buckets  []database.Bucket
	err      error
	lastTeam string
	lastFrom time.Time
	lastTo   time.Time
}

func (r *fakeBucketRepo) GetBuckets(teamID string, from, to time.Time) ([]database.Bucket, error) {
	r.lastTeam = teamID
	r.lastFrom = from
	r.lastTo = to
	return r.buckets, r.err
}

func (r *fakeBucketRepo) GetBucketCount() (int, error)    { return len(r.buckets), nil }
func (r *fakeBucketRepo) GetTotalPostCount() (int, error) { return 0, nil }

type fakeFingerprintRepo struct {
	count int
	err   error
}

func (r *fakeFingerprintRepo) SeenFingerprints(fingerprints []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}
func (r *fakeFingerprintRepo) GetFingerprintCount() (int, error)     { return r.count, r.err }
func (r *fakeFingerprintRepo) EvictOlderThan(time.Time) (int, error) { return 0, nil }

type fakeScheduler struct {
	processedTeams []string
	processAll     int
	err            error
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) EnqueueTask(tasks.TaskInterface) error { return s.err }

func (s *fakeScheduler) EnqueueProcessTeam(teamID string) error {
	if s.err != nil {
		return s.err
	}
	s.processedTeams = append(s.processedTeams, teamID)
	return nil
}

func (s *fakeScheduler) EnqueueProcessAll() (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.processAll++
	return 2, nil
}

func newTestConfigCache(t *testing.T) *team.ConfigCache {
	t.Helper()

	dir := t.TempDir()
	config := `name: "Arsenal"
aliases:
  - "arsenal"
  - "gunners"
sources:
  subreddit: "Gunners"
settings:
  enabled: true
`
	if err := os.WriteFile(filepath.Join(dir, "arsenal.yml"), []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write team config: %v", err)
	}

	cache := team.NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load team configs: %v", err)
	}
	return cache
}

func newTestServer(t *testing.T, buckets *fakeBucketRepo, scheduler *fakeScheduler) *gin.Engine {
	t.Helper()

	handler := NewHandler(newTestConfigCache(t), buckets, &fakeFingerprintRepo{},
		tasks.NewOutcomeRecorder(), scheduler)
	return NewServer(handler, "test-key")
}

func TestGetTeamSentiment(t *testing.T) {
	bucketStart := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	buckets := &fakeBucketRepo{buckets: []database.Bucket{
		{
			TeamID:         "arsenal",
			BucketStart:    bucketStart,
			PostCount:      3,
			SentimentSum:   1.2,
			SentimentSqSum: 1.1,
			MinScore:       -0.2,
			MaxScore:       0.9,
		},
	}}
	server := newTestServer(t, buckets, &fakeScheduler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/teams/arsenal/sentiment", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		TeamID   string `json:"team_id"`
		TeamName string `json:"team_name"`
		Buckets  []struct {
			PostCount int     `json:"post_count"`
			MeanScore float64 `json:"mean_score"`
			MinScore  float64 `json:"min_score"`
			MaxScore  float64 `json:"max_score"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if response.TeamName != "Arsenal" {
		t.Errorf("Expected team name Arsenal, got %s", response.TeamName)
	}
	if len(response.Buckets) != 1 {
		t.Fatalf("Expected 1 bucket, got %d", len(response.Buckets))
	}

	bucket := response.Buckets[0]
	if bucket.PostCount != 3 {
		t.Errorf("Expected post count 3, got %d", bucket.PostCount)
	}
	if diff := bucket.MeanScore - 0.4; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected mean score 0.4, got %f", bucket.MeanScore)
	}
	if bucket.MinScore != -0.2 || bucket.MaxScore != 0.9 {
		t.Errorf("Unexpected extrema: min %f max %f", bucket.MinScore, bucket.MaxScore)
	}
}

func TestGetTeamSentiment_TimeRange(t *testing.T) {
	buckets := &fakeBucketRepo{}
	server := newTestServer(t, buckets, &fakeScheduler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET",
		"/teams/arsenal/sentiment?from=2026-08-19T00:00:00Z&to=2026-08-20T00:00:00Z", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	expectedFrom := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	expectedTo := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	if !buckets.lastFrom.Equal(expectedFrom) || !buckets.lastTo.Equal(expectedTo) {
		t.Errorf("Expected range [%v, %v], got [%v, %v]", expectedFrom, expectedTo, buckets.lastFrom, buckets.lastTo)
	}
}

func TestGetTeamSentiment_UnknownTeam(t *testing.T) {
	server := newTestServer(t, &fakeBucketRepo{}, &fakeScheduler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/teams/wimbledon/sentiment", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetTeamSentiment_BadTimeRange(t *testing.T) {
	server := newTestServer(t, &fakeBucketRepo{}, &fakeScheduler{})

	cases := []string{
		"/teams/arsenal/sentiment?from=yesterday",
		"/teams/arsenal/sentiment?from=2026-08-20T00:00:00Z&to=2026-08-19T00:00:00Z",
	}
	for _, url := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", url, nil)
		server.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got %d", url, w.Code)
		}
	}
}

func TestAPIAuthentication(t *testing.T) {
	server := newTestServer(t, &fakeBucketRepo{}, &fakeScheduler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/teams", nil)
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/teams", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with wrong key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/teams", nil)
	req.Header.Set("X-API-Key", "test-key")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with valid key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/teams", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with bearer token, got %d", w.Code)
	}
}

func TestAPIProcessTeam(t *testing.T) {
	scheduler := &fakeScheduler{}
	server := newTestServer(t, &fakeBucketRepo{}, scheduler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/teams/arsenal/process", nil)
	req.Header.Set("X-API-Key", "test-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(scheduler.processedTeams) != 1 || scheduler.processedTeams[0] != "arsenal" {
		t.Errorf("Expected arsenal to be enqueued, got %v", scheduler.processedTeams)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/teams/wimbledon/process", nil)
	req.Header.Set("X-API-Key", "test-key")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown team, got %d", w.Code)
	}
}

func TestAPIProcessAll(t *testing.T) {
	scheduler := &fakeScheduler{}
	server := newTestServer(t, &fakeBucketRepo{}, scheduler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/process", nil)
	req.Header.Set("X-API-Key", "test-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if scheduler.processAll != 1 {
		t.Errorf("Expected one process-all run, got %d", scheduler.processAll)
	}
}

func TestGetStats_LastRunOutcomes(t *testing.T) {
	outcomes := tasks.NewOutcomeRecorder()
	outcomes.Record(tasks.TeamOutcome{TeamID: "arsenal", RunID: "r1", Status: tasks.StatusOK, Scored: 4})
	outcomes.Record(tasks.TeamOutcome{TeamID: "chelsea", RunID: "r1", Status: tasks.StatusPartial, Reason: "some sources unavailable"})

	handler := NewHandler(newTestConfigCache(t), &fakeBucketRepo{}, &fakeFingerprintRepo{},
		outcomes, &fakeScheduler{})
	server := NewServer(handler, "test-key")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/stats", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats struct {
		LastRunStatuses map[string]int `json:"last_run_statuses"`
		LastRun         []struct {
			TeamID string `json:"team_id"`
			Status string `json:"status"`
			Scored int    `json:"scored"`
			Reason string `json:"reason"`
		} `json:"last_run"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if len(stats.LastRun) != 2 {
		t.Fatalf("Expected 2 per-team outcomes, got %d", len(stats.LastRun))
	}
	// Outcomes come back ordered by team ID
	if stats.LastRun[0].TeamID != "arsenal" || stats.LastRun[1].TeamID != "chelsea" {
		t.Errorf("Unexpected outcome order: %s, %s", stats.LastRun[0].TeamID, stats.LastRun[1].TeamID)
	}
	if stats.LastRun[0].Status != tasks.StatusOK || stats.LastRun[0].Scored != 4 {
		t.Errorf("Unexpected arsenal outcome: %+v", stats.LastRun[0])
	}
	if stats.LastRun[1].Reason != "some sources unavailable" {
		t.Errorf("Expected partial reason carried through, got %q", stats.LastRun[1].Reason)
	}
	if stats.LastRunStatuses["ok"] != 1 || stats.LastRunStatuses["partial"] != 1 {
		t.Errorf("Unexpected status counts: %v", stats.LastRunStatuses)
	}
}

func TestGetHealth(t *testing.T) {
	server := newTestServer(t, &fakeBucketRepo{}, &fakeScheduler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if health["database"] != "ok" {
		t.Errorf("Expected database ok, got %v", health["database"])
	}
	if health["loaded_teams"] != float64(1) {
		t.Errorf("Expected 1 loaded team, got %v", health["loaded_teams"])
	}
}
