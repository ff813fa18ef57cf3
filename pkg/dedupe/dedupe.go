// Package dedupe suppresses re-processing of envelopes that arrive more
// than once. Delivery is at least once, and in degraded transport mode the
// same logical event can fire through both the in-process path and the
// spool path, so consumers that must not double-count key on the envelope
// identifier and ask a Suppressor before acting.
package dedupe

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

// DefaultTTL bounds how long an identifier is remembered. It only needs to
// exceed the window in which a duplicate can plausibly arrive, which is the
// spool retention window in degraded mode.
const DefaultTTL = 10 * time.Minute

// Suppressor remembers identifiers it has been asked about. Safe for
// concurrent use.
type Suppressor struct {
	seen *cache.Cache
}

// New creates a Suppressor whose entries expire after ttl. A non-positive
// ttl falls back to DefaultTTL.
func New(ttl time.Duration) *Suppressor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Suppressor{seen: cache.New(ttl, 2*ttl)}
}

// Seen reports whether id was observed before, and marks it observed. The
// check and the mark are a single atomic step, so for any id exactly one
// caller ever gets false.
func (s *Suppressor) Seen(id string) bool {
	if id == "" {
		return false
	}
	return s.seen.Add(id, struct{}{}, cache.DefaultExpiration) != nil
}
