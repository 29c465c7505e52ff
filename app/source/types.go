package source

import (
	"context"
	"errors"
	"time"

	"github.com/terracepulse/terracepulse/app/team"
)

const (
	SourceReddit  = "reddit"
	SourceTwitter = "twitter"
)

// ErrSourceUnavailable marks transient fetch failures (network errors,
// timeouts, non-200 responses). Callers skip the source for this run and
// rely on the next scheduled run to recover.
var ErrSourceUnavailable = errors.New("source unavailable")

// IsUnavailable reports whether err is a transient source failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// RawPost is a normalized fan post as fetched from a source. Immutable once
// created; downstream stages never mutate it.
type RawPost struct {
	Source       string
	TeamID       string
	AuthorHandle string
	Text         string
	PostedAt     time.Time
	SourcePostID string

	// TimestampEstimated is set when the source provided no usable
	// timestamp and PostedAt was stamped with fetch time. Bucket placement
	// for such posts is approximate.
	TimestampEstimated bool
}

// Source fetches posts about one team published after the given time.
// Implementations return posts in feed order and never panic on transient
// failures; they return ErrSourceUnavailable-wrapped errors instead.
type Source interface {
	Name() string
	Fetch(ctx context.Context, teamConfig *team.Config, since time.Time) ([]RawPost, error)
}
