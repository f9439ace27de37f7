package plague

import (
	"sync"
	"time"

	"github.com/lefinal/plague-server/errors"
)

// MatchClock tracks the match start instant and an accumulated skip offset.
// Elapsed match time is now minus start plus skip. The skip offset only ever
// grows and is adjusted through the administrative skip-time command.
type MatchClock struct {
	// m locks all fields.
	m sync.Mutex
	// now returns the current time. Overridable for tests.
	now func() time.Time
	// start is the match start instant. Zero until the first Reset.
	start time.Time
	// skip is the accumulated skip offset.
	skip time.Duration
}

// NewMatchClock creates a new MatchClock. Call Reset on match start.
func NewMatchClock() *MatchClock {
	return &MatchClock{
		now: time.Now,
	}
}

// Reset sets the start instant to now and clears the skip offset.
func (c *MatchClock) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.start = c.now()
	c.skip = 0
}

// Elapsed returns the elapsed match time. Before the first Reset only the skip
// offset counts.
func (c *MatchClock) Elapsed() time.Duration {
	c.m.Lock()
	defer c.m.Unlock()
	if c.start.IsZero() {
		return c.skip
	}
	return c.now().Sub(c.start) + c.skip
}

// Skip advances the skip offset by the given duration. Negative durations are
// rejected as the offset must never shrink.
func (c *MatchClock) Skip(d time.Duration) error {
	if d < 0 {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "skip duration must not be negative",
			Details: errors.Details{"duration": d.String()},
		}
	}
	c.m.Lock()
	defer c.m.Unlock()
	c.skip += d
	return nil
}

// SkipTotal returns the accumulated skip offset.
func (c *MatchClock) SkipTotal() time.Duration {
	c.m.Lock()
	defer c.m.Unlock()
	return c.skip
}
