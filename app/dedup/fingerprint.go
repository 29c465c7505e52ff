package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/terracepulse/terracepulse/app/source"
)

// Fingerprint returns a stable content fingerprint for a post.
// Prefer the source's own post ID; fall back to a composite of team,
// normalized text and the posted time truncated to the minute, so the same
// post fetched twice hashes identically even when the source assigns no ID.
func Fingerprint(post source.RawPost) string {
	var payload string
	if post.SourcePostID != "" {
		payload = fmt.Sprintf("%s|%s", post.Source, post.SourcePostID)
	} else {
		payload = fmt.Sprintf("%s|%s|%s|%d",
			post.Source, post.TeamID, NormalizeText(post.Text),
			post.PostedAt.Truncate(time.Minute).Unix())
	}

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// NormalizeText folds a post text into a canonical form for fingerprinting:
// NFKC normalization, lowercase, whitespace collapsed to single spaces.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)
	return strings.Join(strings.Fields(text), " ")
}
