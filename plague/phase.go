package plague

import (
	"sync"
	"time"
)

// Phase is one of the four ordered stages of a match.
type Phase string

const (
	// PhasePrepare is the starting stage in which survivor teams are founded.
	PhasePrepare Phase = "prepare"
	// PhaseFirst is the main playing stage.
	PhaseFirst Phase = "first"
	// PhaseSecond is the late stage with the survivor block damage penalty
	// applied.
	PhaseSecond Phase = "second"
	// PhaseEnded is the informational end stage. The match keeps running while
	// survivor teams remain.
	PhaseEnded Phase = "ended"
)

// PhaseTransition describes a single phase change.
type PhaseTransition struct {
	From Phase
	To   Phase
}

// PhaseController owns the match phase and the state lock that serializes all
// phase-dependent decisions. Decisions taken under the lock return plain
// values; side effects are dispatched by the caller after the lock is
// released, never while holding it.
type PhaseController struct {
	// m is the state lock.
	m sync.Mutex
	// phase is the current match phase.
	phase Phase
	// over is set when the game has been externally signalled as over. All
	// further phase checks are no-ops then.
	over bool
	// firstPhaseAt, secondPhaseAt and endedAt are the elapsed-time thresholds
	// for the three transitions.
	firstPhaseAt  time.Duration
	secondPhaseAt time.Duration
	endedAt       time.Duration
}

// NewPhaseController creates a PhaseController in PhasePrepare using the
// thresholds from the given Config.
func NewPhaseController(config Config) *PhaseController {
	return &PhaseController{
		phase:         PhasePrepare,
		firstPhaseAt:  config.FirstPhaseAt,
		secondPhaseAt: config.SecondPhaseAt,
		endedAt:       config.EndedAt,
	}
}

// Current returns the current phase.
func (pc *PhaseController) Current() Phase {
	pc.m.Lock()
	defer pc.m.Unlock()
	return pc.phase
}

// View runs fn with the current phase while holding the state lock. fn must
// decide quickly and must not block or dispatch simulation work.
func (pc *PhaseController) View(fn func(phase Phase)) {
	pc.m.Lock()
	defer pc.m.Unlock()
	fn(pc.phase)
}

// Reset returns to PhasePrepare for a new match and clears the over flag.
func (pc *PhaseController) Reset() {
	pc.m.Lock()
	defer pc.m.Unlock()
	pc.phase = PhasePrepare
	pc.over = false
}

// MarkOver flags the game as over. Pending phase checks become no-ops so no
// stale transition fires into a subsequent match.
func (pc *PhaseController) MarkOver() {
	pc.m.Lock()
	defer pc.m.Unlock()
	pc.over = true
}

// IsOver reports whether the game has been flagged as over.
func (pc *PhaseController) IsOver() bool {
	pc.m.Lock()
	defer pc.m.Unlock()
	return pc.over
}

// AdvanceIfDue checks the elapsed match time against the thresholds and
// advances the phase value when one is crossed. The phase value flips under
// the state lock, so repeated calls within the same threshold window transition
// at most once. The returned transition's side effects must be performed by
// the caller after this method returned. A check that finds the game already
// over is a no-op.
func (pc *PhaseController) AdvanceIfDue(elapsed time.Duration) (PhaseTransition, bool) {
	pc.m.Lock()
	defer pc.m.Unlock()
	if pc.over {
		return PhaseTransition{}, false
	}
	var to Phase
	switch {
	case pc.phase == PhasePrepare && elapsed >= pc.firstPhaseAt:
		to = PhaseFirst
	case pc.phase == PhaseFirst && elapsed >= pc.secondPhaseAt:
		to = PhaseSecond
	case pc.phase == PhaseSecond && elapsed >= pc.endedAt:
		to = PhaseEnded
	default:
		return PhaseTransition{}, false
	}
	tr := PhaseTransition{From: pc.phase, To: to}
	pc.phase = to
	return tr, true
}
