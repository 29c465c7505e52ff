package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/terracepulse/terracepulse/app/source"
)

func newTestClient(baseUrl string, batchSize int) *Client {
	httpClient := resty.New().
		SetBaseURL(baseUrl).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &Client{http: httpClient, batchSize: batchSize}
}

func makePosts(n int) []source.RawPost {
	posts := make([]source.RawPost, n)
	for i := range posts {
		posts[i] = source.RawPost{
			Source:       source.SourceReddit,
			TeamID:       "arsenal",
			Text:         fmt.Sprintf("post number %d", i),
			SourcePostID: fmt.Sprintf("t3_%d", i),
			PostedAt:     time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		}
	}
	return posts
}

func scoreHandler(t *testing.T, batchSizes *[]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		*batchSizes = append(*batchSizes, len(req.Texts))

		results := make([]scoreResult, len(req.Texts))
		for i := range results {
			results[i] = scoreResult{Score: 0.5, Magnitude: 1.0}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scoreResponse{Results: results})
	}
}

func TestClient_ScoreBatches(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(scoreHandler(t, &batchSizes))
	defer srv.Close()

	posts := makePosts(10)
	result := newTestClient(srv.URL, 4).Score(context.Background(), posts)

	if len(result.Scored) != 10 {
		t.Fatalf("Expected 10 scored posts, got %d", len(result.Scored))
	}
	if len(result.Unscored) != 0 {
		t.Errorf("Expected 0 unscored posts, got %d", len(result.Unscored))
	}
	if len(batchSizes) != 3 || batchSizes[0] != 4 || batchSizes[1] != 4 || batchSizes[2] != 2 {
		t.Errorf("Expected batch sizes [4 4 2], got %v", batchSizes)
	}

	// Input order is preserved through scoring
	for i, scored := range result.Scored {
		if scored.SourcePostID != posts[i].SourcePostID {
			t.Errorf("Post %d out of order: expected %s, got %s", i, posts[i].SourcePostID, scored.SourcePostID)
		}
	}
}

func TestClient_PartialFailureIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		json.NewDecoder(r.Body).Decode(&req)

		results := make([]scoreResult, len(req.Texts))
		for i := range results {
			results[i] = scoreResult{Score: -0.2, Magnitude: 0.4}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scoreResponse{Results: results, Failed: []int{1}})
	}))
	defer srv.Close()

	posts := makePosts(3)
	result := newTestClient(srv.URL, 10).Score(context.Background(), posts)

	if len(result.Scored) != 2 {
		t.Fatalf("Expected 2 scored posts, got %d", len(result.Scored))
	}
	if len(result.Unscored) != 1 {
		t.Fatalf("Expected 1 unscored post, got %d", len(result.Unscored))
	}
	if result.Unscored[0].SourcePostID != "t3_1" {
		t.Errorf("Expected post t3_1 to be unscored, got %s", result.Unscored[0].SourcePostID)
	}
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req scoreRequest
		json.NewDecoder(r.Body).Decode(&req)
		results := make([]scoreResult, len(req.Texts))
		for i := range results {
			results[i] = scoreResult{Score: 0.9, Magnitude: 2.0}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scoreResponse{Results: results})
	}))
	defer srv.Close()

	result := newTestClient(srv.URL, 10).Score(context.Background(), makePosts(2))

	if len(result.Scored) != 2 {
		t.Fatalf("Expected 2 scored posts after retry, got %d scored / %d unscored", len(result.Scored), len(result.Unscored))
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected 2 calls (1 rate-limited + 1 retry), got %d", calls)
	}
}

func TestClient_ExhaustedRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	posts := makePosts(3)
	result := newTestClient(srv.URL, 10).Score(context.Background(), posts)

	if len(result.Scored) != 0 {
		t.Errorf("Expected 0 scored posts, got %d", len(result.Scored))
	}
	if len(result.Unscored) != 3 {
		t.Errorf("Expected all 3 posts unscored, got %d", len(result.Unscored))
	}
	// 1 initial attempt + 2 retries
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestClient_NeverFabricatesScores(t *testing.T) {
	// Service returns fewer results than texts: the tail must be unscored,
	// not given default scores.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scoreResponse{Results: []scoreResult{{Score: 0.1, Magnitude: 0.2}}})
	}))
	defer srv.Close()

	result := newTestClient(srv.URL, 10).Score(context.Background(), makePosts(3))

	if len(result.Scored) != 1 {
		t.Errorf("Expected 1 scored post, got %d", len(result.Scored))
	}
	if len(result.Unscored) != 2 {
		t.Errorf("Expected 2 unscored posts, got %d", len(result.Unscored))
	}
}

func TestClient_EmptyInput(t *testing.T) {
	result := newTestClient("http://localhost:1", 10).Score(context.Background(), nil)
	if len(result.Scored) != 0 || len(result.Unscored) != 0 {
		t.Error("Expected empty result for empty input")
	}
}
