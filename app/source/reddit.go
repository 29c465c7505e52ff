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

// Reddit fetches posts from a team's subreddit RSS feed, or from a
// site-wide search feed when the team has no subreddit configured.
type Reddit struct {
	httpClient *http.Client
	baseUrl    string
	userAgent  string
	timeout    time.Duration
}

func NewReddit(httpClient *http.Client) *Reddit {
	c := cfg.Get()

	return &Reddit{
		httpClient: httpClient,
		baseUrl:    c.RedditBaseUrl,
		userAgent:  c.UserAgent,
		timeout:    time.Duration(c.SourceTimeout) * time.Second,
	}
}

func (r *Reddit) Name() string {
	return SourceReddit
}

func (r *Reddit) Fetch(ctx context.Context, teamConfig *team.Config, since time.Time) ([]RawPost, error) {
	feedUrl, teamScoped := r.feedUrl(teamConfig)

	data, err := fetchFeed(ctx, r.httpClient, feedUrl, r.userAgent, r.timeout)
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

		// Subreddit feeds are team-scoped already; search results need
		// alias filtering to drop unrelated posts.
		if !teamScoped && !MatchesTeam(text, teamConfig.Aliases) {
			continue
		}

		post := RawPost{
			Source:       SourceReddit,
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

func (r *Reddit) feedUrl(teamConfig *team.Config) (string, bool) {
	if sub := teamConfig.Sources.Subreddit; sub != "" {
		return fmt.Sprintf("%s/r/%s/new/.rss", r.baseUrl, sub), true
	}

	query := url.Values{}
	query.Set("q", teamConfig.Name+" Premier League")
	query.Set("sort", "new")
	return fmt.Sprintf("%s/search.rss?%s", r.baseUrl, query.Encode()), false
}
