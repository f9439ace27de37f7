package plague

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClock creates a MatchClock with a controllable current time and
// returns the clock along with the setter for the fake time.
func newTestClock() (*MatchClock, func(t time.Time)) {
	current := time.Date(2021, 8, 1, 12, 0, 0, 0, time.UTC)
	c := NewMatchClock()
	c.now = func() time.Time {
		return current
	}
	return c, func(t time.Time) {
		current = t
	}
}

func TestMatchClock_ElapsedBeforeReset(t *testing.T) {
	c, _ := newTestClock()
	assert.Zero(t, c.Elapsed(), "elapsed should be zero before reset")
	require.NoError(t, c.Skip(3*time.Minute), "skip should not fail")
	assert.Equal(t, 3*time.Minute, c.Elapsed(), "elapsed should equal skip offset before reset")
}

func TestMatchClock_Elapsed(t *testing.T) {
	c, setNow := newTestClock()
	c.Reset()
	setNow(c.now().Add(90 * time.Second))
	assert.Equal(t, 90*time.Second, c.Elapsed(), "elapsed should match passed time")
}

func TestMatchClock_Skip(t *testing.T) {
	c, setNow := newTestClock()
	c.Reset()
	setNow(c.now().Add(time.Minute))
	require.NoError(t, c.Skip(10*time.Minute), "skip should not fail")
	require.NoError(t, c.Skip(5*time.Minute), "skip should not fail")
	assert.Equal(t, 16*time.Minute, c.Elapsed(), "elapsed should include accumulated skip offset")
	assert.Equal(t, 15*time.Minute, c.SkipTotal(), "skip total should accumulate")
}

func TestMatchClock_SkipNegative(t *testing.T) {
	c, _ := newTestClock()
	c.Reset()
	err := c.Skip(-time.Second)
	require.Error(t, err, "negative skip should fail")
	assert.Zero(t, c.SkipTotal(), "skip offset should stay untouched")
}

func TestMatchClock_ResetClearsSkip(t *testing.T) {
	c, setNow := newTestClock()
	c.Reset()
	require.NoError(t, c.Skip(10*time.Minute), "skip should not fail")
	setNow(c.now().Add(time.Hour))
	c.Reset()
	assert.Zero(t, c.Elapsed(), "elapsed should restart at zero")
	assert.Zero(t, c.SkipTotal(), "skip offset should be cleared")
}
