package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// fetchFeed downloads a feed URL with a bounded timeout. All failure modes
// are wrapped in ErrSourceUnavailable so callers can treat them uniformly.
func fetchFeed(ctx context.Context, client *http.Client, url, userAgent string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrSourceUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: HTTP %d %s", ErrSourceUnavailable, url, resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, url, err)
	}

	return data, nil
}

func parseFeed(data []byte) (*gofeed.Feed, error) {
	feed, err := gofeed.NewParser().Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %v", ErrSourceUnavailable, err)
	}
	return feed, nil
}

// entryText combines title and summary the way the upstream feeds present
// posts; either part may be empty.
func entryText(item *gofeed.Item) string {
	text := strings.TrimSpace(item.Title)
	if summary := strings.TrimSpace(item.Description); summary != "" {
		if text != "" {
			text += " " + summary
		} else {
			text = summary
		}
	}
	return text
}

func entryAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return strings.TrimSpace(item.Authors[0].Name)
	}
	if item.Author != nil {
		return strings.TrimSpace(item.Author.Name)
	}
	return ""
}

// MatchesTeam reports whether the text mentions any of the team's name
// variations. Case-insensitive substring match, same as the upstream feeds
// are filtered.
func MatchesTeam(text string, aliases []string) bool {
	lower := strings.ToLower(text)
	for _, alias := range aliases {
		if alias == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}
