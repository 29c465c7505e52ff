package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/terracepulse/terracepulse/app/aggregate"
	"github.com/terracepulse/terracepulse/app/database"
	"github.com/terracepulse/terracepulse/app/tasks"
	"github.com/terracepulse/terracepulse/app/team"
)

const defaultSentimentWindow = 24 * time.Hour

var errRange = errors.New("'to' must not be before 'from'")

func errInvalidParam(name string) error {
	return fmt.Errorf("invalid '%s' parameter, expected an RFC 3339 timestamp", name)
}

func NewHandler(configCache *team.ConfigCache, bucketRepo database.BucketRepository,
	fingerprintRepo database.FingerprintRepository, outcomes *tasks.OutcomeRecorder,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		bucketRepo:      bucketRepo,
		fingerprintRepo: fingerprintRepo,
		configCache:     configCache,
		outcomes:        outcomes,
		scheduler:       scheduler,
		startedAt:       time.Now().UTC(),
	}
}

// GetTeamSentiment is the dashboard read endpoint: a team's aggregated
// sentiment buckets within a time range, oldest first.
func (h *Handler) GetTeamSentiment(c *gin.Context) {
	teamID := c.Param("id")
	if teamID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing team ID parameter"})
		return
	}

	teamConfig, err := h.configCache.GetConfig(teamID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.bucketRepo.GetBuckets(teamID, from, to)
	if err != nil {
		slog.Error("Database error", "operation", "get_buckets", "team", teamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	buckets := make([]sentimentBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, sentimentBucket{
			BucketStart: row.BucketStart,
			PostCount:   row.PostCount,
			MeanScore:   aggregate.Mean(row.SentimentSum, row.PostCount),
			MinScore:    row.MinScore,
			MaxScore:    row.MaxScore,
			Variance:    aggregate.Variance(row.SentimentSum, row.SentimentSqSum, row.PostCount),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"team_id":   teamID,
		"team_name": teamConfig.Name,
		"from":      from.Format(time.RFC3339),
		"to":        to.Format(time.RFC3339),
		"buckets":   buckets,
	})
}

// parseTimeRange reads the optional from/to query parameters (RFC 3339).
// Defaults to the last 24 hours.
func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.Add(-defaultSentimentWindow)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidParam("from")
		}
		from = parsed.UTC()
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidParam("to")
		}
		to = parsed.UTC()
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, errRange
	}

	return from, to, nil
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	}

	if _, err := h.fingerprintRepo.GetFingerprintCount(); err != nil {
		health["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["database"] = "ok"
	health["loaded_teams"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"loaded_teams":  h.configCache.GetConfigCount(),
		"enabled_teams": len(h.configCache.GetEnabledIDs()),
	}

	if bucketCount, err := h.bucketRepo.GetBucketCount(); err == nil {
		stats["buckets"] = bucketCount
	}
	if postCount, err := h.bucketRepo.GetTotalPostCount(); err == nil {
		stats["posts"] = postCount
	}
	if fingerprintCount, err := h.fingerprintRepo.GetFingerprintCount(); err == nil {
		stats["fingerprints"] = fingerprintCount
	}

	stats["last_run_statuses"] = h.outcomes.CountByStatus()
	stats["last_run"] = h.outcomes.Snapshot()

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListTeams(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	teams := make([]map[string]interface{}, 0, len(configs))
	for _, teamConfig := range configs {
		teamInfo := map[string]interface{}{
			"id":      teamConfig.ID,
			"name":    teamConfig.Name,
			"aliases": teamConfig.Aliases,
			"enabled": teamConfig.Settings.Enabled,
		}

		if outcome, ok := h.outcomes.Get(teamConfig.ID); ok {
			teamInfo["last_run"] = outcome
		}

		teams = append(teams, teamInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"teams": teams,
		"total": len(teams),
	})
}

// APIProcessTeam triggers an on-demand processing run for one team.
func (h *Handler) APIProcessTeam(c *gin.Context) {
	teamID := c.Param("id")
	if teamID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing team ID parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(teamID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	if err := h.scheduler.EnqueueProcessTeam(teamID); err != nil {
		slog.Error("Error enqueueing process task", "team", teamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue processing task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Processing task enqueued",
		"team_id": teamID,
	})
}

// APIProcessAll triggers an on-demand processing run for every enabled team.
func (h *Handler) APIProcessAll(c *gin.Context) {
	enqueued, err := h.scheduler.EnqueueProcessAll()
	if err != nil {
		slog.Error("Error enqueueing processing run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Failed to enqueue processing run",
			"details":  err.Error(),
			"enqueued": enqueued,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Processing run enqueued",
		"enqueued": enqueued,
	})
}
