package plague

import (
	"sync"
	"time"
)

// MatchStatus is a snapshot of the running match for status surfaces.
type MatchStatus struct {
	// Phase the match is currently in.
	Phase Phase `json:"phase"`
	// ElapsedSeconds is the elapsed match time in seconds.
	ElapsedSeconds int64 `json:"elapsed_seconds"`
	// SkipSeconds is the accumulated administrative skip in seconds.
	SkipSeconds int64 `json:"skip_seconds"`
	// SurvivorTeams is the number of allocated survivor teams.
	SurvivorTeams int `json:"survivor_teams"`
	// Players is the number of online players.
	Players int `json:"players"`
}

// StatusListener receives MatchStatus snapshots when the match state changed
// in a way worth publishing. Implementations must not block.
type StatusListener interface {
	HandleMatchStatus(status MatchStatus)
}

// StatusNotifier fans MatchStatus snapshots out to registered listeners.
type StatusNotifier struct {
	m         sync.RWMutex
	listeners []StatusListener
}

// NewStatusNotifier creates a StatusNotifier without listeners.
func NewStatusNotifier() *StatusNotifier {
	return &StatusNotifier{}
}

// Listen registers the given listener.
func (n *StatusNotifier) Listen(listener StatusListener) {
	n.m.Lock()
	defer n.m.Unlock()
	n.listeners = append(n.listeners, listener)
}

// Notify sends the snapshot to all registered listeners.
func (n *StatusNotifier) Notify(status MatchStatus) {
	n.m.RLock()
	defer n.m.RUnlock()
	for _, l := range n.listeners {
		l.HandleMatchStatus(status)
	}
}

// StatusSeconds converts a duration to whole seconds for MatchStatus fields.
func StatusSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
