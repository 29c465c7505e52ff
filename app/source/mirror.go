package source

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/terracepulse/terracepulse/app/cfg"
	"github.com/terracepulse/terracepulse/app/team"
)

// Mirror fetches tweets about a team through a Nitter-style Twitter mirror,
// which exposes search results as an RSS feed without authentication.
type Mirror struct {
	httpClient *http.Client
	baseUrl    string
	userAgent  string
	timeout    time.Duration
}

func NewMirror(httpClient *http.Client) *Mirror {
	c := cfg.Get()

	return &Mirror{
		httpClient: httpClient,
		baseUrl:    c.MirrorBaseUrl,
		userAgent:  c.UserAgent,
		timeout:    time.Duration(c.SourceTimeout) * time.Second,
	}
}

func (m *Mirror) Name() string {
	return SourceTwitter
}

func (m *Mirror) Fetch(ctx context.Context, teamConfig *team.Config, since time.Time) ([]RawPost, error) {
	query := url.Values{}
	query.Set("f", "tweets")
	query.Set("q", teamConfig.Sources.MirrorQuery)
	feedUrl := fmt.Sprintf("%s/search/rss?%s", m.baseUrl, query.Encode())

	data, err := fetchFeed(ctx, m.httpClient, feedUrl, m.userAgent, m.timeout)
	if err != nil {
		return nil, err
	}

	feed, err := parseFeed(data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	posts := make([]RawPost, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		text := entryText(item)
		if text == "" {
			continue
		}

		// Search matches the query, not the team; keep only posts that
		// actually mention a known name variation.
		if !MatchesTeam(text, teamConfig.Aliases) {
			continue
		}

		post := RawPost{
			Source:       SourceTwitter,
			TeamID:       teamConfig.ID,
			AuthorHandle: entryAuthor(item),
			Text:         text,
			SourcePostID: cmp.Or(item.GUID, item.Link),
		}

		if item.PublishedParsed != nil {
			post.PostedAt = item.PublishedParsed.UTC()
		} else {
			post.PostedAt = now
			post.TimestampEstimated = true
		}

		if !post.TimestampEstimated && post.PostedAt.Before(since) {
			continue
		}

		posts = append(posts, post)
	}

	return posts, nil
}
