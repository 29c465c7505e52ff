package scorer

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/terracepulse/terracepulse/app/cfg"
	"github.com/terracepulse/terracepulse/app/source"
)

// Client talks to the remote sentiment scoring service. Requests are
// batched; transient failures (429, 5xx, network errors) are retried with
// exponential backoff up to the configured attempt count. A batch that
// still fails is reported as unscored, never given a fabricated score.
type Client struct {
	http      *resty.Client
	batchSize int
}

type scoreRequest struct {
	Texts []string `json:"texts"`
}

type scoreResponse struct {
	Results []scoreResult `json:"results"`
	Failed  []int         `json:"failed,omitempty"`
}

type scoreResult struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

func NewClient() *Client {
	c := cfg.Get()

	httpClient := resty.New().
		SetBaseURL(c.ScorerUrl).
		SetTimeout(time.Duration(c.ScorerTimeout)*time.Second).
		SetHeader("User-Agent", c.UserAgent).
		SetRetryCount(c.ScorerMaxAttempts-1).
		SetRetryWaitTime(time.Duration(c.ScorerBackoffMs)*time.Millisecond).
		SetRetryMaxWaitTime(time.Duration(c.ScorerBackoffMs)*time.Millisecond*8).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &Client{
		http:      httpClient,
		batchSize: c.ScorerBatchSize,
	}
}

// Score scores all posts, batching up to the configured size per remote
// call. The result covers every input post exactly once, split between
// Scored and Unscored; a failed batch fails only its own posts.
func (c *Client) Score(ctx context.Context, posts []source.RawPost) Result {
	var result Result

	for start := 0; start < len(posts); start += c.batchSize {
		end := min(start+c.batchSize, len(posts))
		c.scoreBatch(ctx, posts[start:end], &result)
	}

	return result
}

func (c *Client) scoreBatch(ctx context.Context, batch []source.RawPost, result *Result) {
	texts := make([]string, len(batch))
	for i, post := range batch {
		texts[i] = post.Text
	}

	var response scoreResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(scoreRequest{Texts: texts}).
		SetResult(&response).
		Post("/v1/score")

	if err != nil {
		slog.Warn("Scoring request failed, posts deferred to next run", "batch_size", len(batch), "error", err)
		result.Unscored = append(result.Unscored, batch...)
		return
	}

	if resp.IsError() {
		slog.Warn("Scoring request rejected, posts deferred to next run", "batch_size", len(batch), "status", resp.StatusCode())
		result.Unscored = append(result.Unscored, batch...)
		return
	}

	failed := make(map[int]bool, len(response.Failed))
	for _, idx := range response.Failed {
		failed[idx] = true
	}

	for i, post := range batch {
		if failed[i] || i >= len(response.Results) {
			result.Unscored = append(result.Unscored, post)
			continue
		}

		result.Scored = append(result.Scored, ScoredPost{
			RawPost:   post,
			Score:     response.Results[i].Score,
			Magnitude: response.Results[i].Magnitude,
		})
	}
}
