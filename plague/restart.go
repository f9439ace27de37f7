package plague

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lefinal/plague-server/engine"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/event"
	"github.com/lefinal/plague-server/logging"
	"github.com/lefinal/plague-server/sim"
	"go.uber.org/zap"
)

// RestartCoordinator drains the current match and bootstraps the next one.
// Failures while selecting or loading the next map end the server session.
type RestartCoordinator struct {
	config Config
	eng    engine.Engine
	exec   *sim.Executor
	phases *PhaseController
	teams  *TeamRegistry
	bus    *event.Bus
	m      sync.Mutex
	// restarting guards against overlapping restarts.
	restarting bool
}

// NewRestartCoordinator creates a RestartCoordinator.
func NewRestartCoordinator(config Config, eng engine.Engine, exec *sim.Executor,
	phases *PhaseController, teams *TeamRegistry, bus *event.Bus) *RestartCoordinator {
	return &RestartCoordinator{
		config: config,
		eng:    eng,
		exec:   exec,
		phases: phases,
		teams:  teams,
		bus:    bus,
	}
}

// Restart ends the match, declaring the given winner, waits out the grace
// duration and loads the next map. On success a match-start event is
// dispatched so the mode reinitializes. Concurrent calls while a restart is in
// progress are no-ops. Must not run on the simulation goroutine.
func (rc *RestartCoordinator) Restart(ctx context.Context, winner engine.TeamID) error {
	rc.m.Lock()
	if rc.restarting {
		rc.m.Unlock()
		return nil
	}
	rc.restarting = true
	rc.m.Unlock()
	defer func() {
		rc.m.Lock()
		rc.restarting = false
		rc.m.Unlock()
	}()
	logging.RestartLogger.Info("restarting match", zap.Int("winner", int(winner)))
	rc.phases.MarkOver()
	rc.teams.Clear()
	var next engine.MapInfo
	var fatalErr error
	err := rc.exec.Do(ctx, func() {
		m, ok := rc.eng.NextMap()
		if !ok {
			// Without a follow-up map the session cannot continue.
			rc.eng.KickAll()
			rc.eng.CloseNetworking()
			fatalErr = errors.Error{
				Code:    errors.ErrFatal,
				Kind:    errors.KindMapUnavailable,
				Message: "no next map available",
			}
			return
		}
		next = m
		rc.eng.SetGameOver(winner)
		rc.eng.Broadcast(fmt.Sprintf("Game over! Next map: '%s' by %s. New game begins in %.0f seconds.",
			next.Name, next.Author, rc.config.RestartGrace.Seconds()))
	})
	if err != nil {
		return errors.Wrap(err, "select next map", nil)
	}
	if fatalErr != nil {
		return fatalErr
	}
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("wait out restart grace")
	case <-time.After(rc.config.RestartGrace):
	}
	err = rc.exec.Do(ctx, func() {
		if loadErr := rc.eng.LoadMap(next); loadErr != nil {
			rc.eng.CloseNetworking()
			fatalErr = errors.Error{
				Code:    errors.ErrFatal,
				Kind:    errors.KindMapLoadFailure,
				Err:     loadErr,
				Message: "load next map",
				Details: errors.Details{"map": next.Name},
			}
		}
	})
	if err != nil {
		return errors.Wrap(err, "load next map", nil)
	}
	if fatalErr != nil {
		return fatalErr
	}
	logging.RestartLogger.Info("next map loaded", zap.String("map", next.Name))
	rc.bus.Dispatch(ctx, event.MatchStart{})
	return nil
}
