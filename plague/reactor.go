package plague

import (
	"context"
	"fmt"

	"github.com/lefinal/plague-server/engine"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/event"
	"github.com/lefinal/plague-server/logging"
	"github.com/lefinal/plague-server/sim"
	"go.uber.org/zap"
)

// Restarter drains the current match and bootstraps the next one.
type Restarter interface {
	// Restart ends the match, declaring the given winner, and loads the next map.
	Restart(ctx context.Context, winner engine.TeamID) error
}

// KickAuditor records owner-initiated kicks. Implementations must not block
// for long.
type KickAuditor interface {
	RecordKick(team engine.TeamID, target engine.PlayerID, by engine.PlayerID)
}

// Reactor reacts to engine-fired events and performs the mode's rule updates.
// Every handler follows the same shape: take decisions under the respective
// lock, release it, then marshal mutations onto the simulation executor. Bus
// dispatch must never happen from the simulation goroutine itself as handlers
// block on it.
type Reactor struct {
	config    Config
	eng       engine.Engine
	exec      *sim.Executor
	phases    *PhaseController
	clock     *MatchClock
	teams     *TeamRegistry
	rules     *RuleBroadcaster
	status    *StatusNotifier
	restarter Restarter
	// auditor is optional.
	auditor KickAuditor
}

// NewReactor creates a Reactor. Set the Restarter with SetRestarter before
// registering handlers, then call Register.
func NewReactor(config Config, eng engine.Engine, exec *sim.Executor, phases *PhaseController,
	clock *MatchClock, teams *TeamRegistry, rules *RuleBroadcaster, status *StatusNotifier) *Reactor {
	return &Reactor{
		config: config,
		eng:    eng,
		exec:   exec,
		phases: phases,
		clock:  clock,
		teams:  teams,
		rules:  rules,
		status: status,
	}
}

// SetRestarter sets the Restarter used on match end.
func (r *Reactor) SetRestarter(restarter Restarter) {
	r.restarter = restarter
}

// SetKickAuditor sets the optional KickAuditor.
func (r *Reactor) SetKickAuditor(auditor KickAuditor) {
	r.auditor = auditor
}

// Register builds the event registration table.
func (r *Reactor) Register(bus *event.Bus) {
	bus.Subscribe(event.TypeMatchStart, func(ctx context.Context, e event.Event) {
		r.handleMatchStart(ctx)
	})
	bus.Subscribe(event.TypeTick, func(ctx context.Context, e event.Event) {
		r.handleTick(ctx)
	})
	bus.Subscribe(event.TypeBlockDestroyed, func(ctx context.Context, e event.Event) {
		r.handleBlockDestroyed(ctx, e.(event.BlockDestroyed))
	})
	bus.Subscribe(event.TypeBuildSelect, func(ctx context.Context, e event.Event) {
		r.handleBuildSelect(ctx, e.(event.BuildSelect))
	})
	bus.Subscribe(event.TypeUnitCreated, func(ctx context.Context, e event.Event) {
		r.handleUnitCreated(ctx, e.(event.UnitCreated))
	})
	bus.Subscribe(event.TypePlayerJoined, func(ctx context.Context, e event.Event) {
		r.handlePlayerJoined(ctx, e.(event.PlayerJoined))
	})
	bus.Subscribe(event.TypePlayerLeft, func(ctx context.Context, e event.Event) {
		r.handlePlayerLeft(ctx, e.(event.PlayerLeft))
	})
	bus.Subscribe(event.TypeGameOver, func(ctx context.Context, e event.Event) {
		r.phases.MarkOver()
	})
}

// handleMatchStart resets clock and phase for the new match and applies the
// baseline rules.
func (r *Reactor) handleMatchStart(ctx context.Context) {
	r.phases.Reset()
	r.clock.Reset()
	err := r.exec.Do(ctx, func() {
		r.eng.SetRules(BaselineRules(r.eng.Rules(), r.config))
		r.eng.ClearCoreItems(TeamPlague)
	})
	if err != nil {
		errors.Log(logging.ReactorLogger, errors.Wrap(err, "apply baseline rules", nil))
		return
	}
	r.notifyStatus()
}

// handleTick reasserts the invulnerability clamps and checks for a due phase
// transition. Both clamps are idempotent safety reassertions, not one-time
// effects.
func (r *Reactor) handleTick(ctx context.Context) {
	r.exec.Submit(func() {
		if r.eng.IsGameOver() {
			return
		}
		r.eng.MakeCoresInvulnerable(TeamPlague)
		r.eng.MakeUnitsInvulnerable(TeamNeutral)
	})
	// Decide under the state lock, dispatch after it is released.
	tr, due := r.phases.AdvanceIfDue(r.clock.Elapsed())
	if !due {
		return
	}
	logging.PhaseLogger.Info("phase transition",
		zap.String("from", string(tr.From)), zap.String("to", string(tr.To)))
	r.applyTransition(ctx, tr)
	r.notifyStatus()
}

// applyTransition performs the side effects of an already-taken phase
// transition on the simulation executor.
func (r *Reactor) applyTransition(ctx context.Context, tr PhaseTransition) {
	var err error
	switch tr.To {
	case PhaseFirst:
		err = r.exec.Do(ctx, func() {
			// Expand the plague build radius to the map's baseline.
			rules := r.eng.Rules()
			rules.EnemyCoreBuildRadius = r.eng.MapDefaultCoreBuildRadius()
			r.eng.SetRules(rules)
			r.rules.PushAll()
			// Force every still-unassigned player onto the plague team.
			for _, p := range r.eng.Players() {
				if p.Team != TeamNeutral {
					continue
				}
				r.eng.SetTeam(p.ID, TeamPlague)
				r.eng.KillUnit(p.ID)
				p.Team = TeamPlague
				r.rules.PushPlayer(p)
			}
		})
	case PhaseSecond:
		err = r.exec.Do(ctx, func() {
			for _, team := range r.eng.ActiveTeams() {
				if !IsSurvivorTeam(team) {
					continue
				}
				r.eng.SetBlockDamageMultiplier(team,
					r.eng.BlockDamageMultiplier(team)*r.config.SurvivorDamagePenalty)
			}
			r.rules.PushAll()
		})
	case PhaseEnded:
		err = r.exec.Do(ctx, func() {
			r.rules.PushAll()
			survivors := make([]engine.TeamID, 0)
			for _, team := range r.eng.ActiveTeams() {
				if IsSurvivorTeam(team) {
					survivors = append(survivors, team)
				}
			}
			if len(survivors) == 0 {
				return
			}
			// Informational end. The match keeps running.
			r.eng.Broadcast(fmt.Sprintf("Survivor teams won (%d remaining). Plague lost. Game will still continue.",
				len(survivors)))
		})
	}
	if err != nil {
		errors.Log(logging.ReactorLogger, errors.Wrap(err, "apply phase transition",
			errors.Details{"to": tr.To}))
	}
}

// handleBlockDestroyed runs the destruction cascade when a survivor team lost
// its last core. The event fires before the core is removed, so a count of one
// means the last one is going away.
func (r *Reactor) handleBlockDestroyed(ctx context.Context, e event.BlockDestroyed) {
	if !e.IsCore || !IsSurvivorTeam(e.Team) {
		return
	}
	destroyed := false
	err := r.exec.Do(ctx, func() {
		if len(r.eng.Cores(e.Team)) > 1 {
			return
		}
		destroyed = true
		r.eng.Broadcast(fmt.Sprintf("Survivor team %d lost.", e.Team))
		for _, p := range r.eng.TeamPlayers(e.Team) {
			r.eng.SetTeam(p.ID, TeamPlague)
			r.eng.KillUnit(p.ID)
			p.Team = TeamPlague
			r.rules.PushPlayer(p)
			r.eng.Broadcast(fmt.Sprintf("'%s' has been infected.", p.Name))
		}
		r.eng.ClearTeam(e.Team)
	})
	if err != nil {
		errors.Log(logging.ReactorLogger, errors.Wrap(err, "run core destruction cascade",
			errors.Details{"team": e.Team}))
		return
	}
	if !destroyed {
		return
	}
	r.teams.Remove(e.Team)
	r.notifyStatus()
	r.onSurvivorTeamDestroyed(ctx)
}

// onSurvivorTeamDestroyed checks whether the destroyed team was the last one
// and triggers the match-end cascade if so. Must not run on the simulation
// goroutine.
func (r *Reactor) onSurvivorTeamDestroyed(ctx context.Context) {
	if r.teams.ActiveCount() > 0 {
		return
	}
	winner := TeamPlague
	message := "Plague team won the game."
	r.phases.View(func(phase Phase) {
		if phase == PhaseEnded {
			winner = TeamDefeated
			message = "All survivors have been destroyed."
		}
	})
	r.exec.Submit(func() {
		r.eng.Broadcast(message)
	})
	// The restart blocks for the grace duration, so it runs detached.
	go func() {
		if err := r.restarter.Restart(ctx, winner); err != nil {
			errors.Log(logging.RestartLogger, errors.Wrap(err, "restart after survivor team destruction", nil))
		}
	}()
}

// handleBuildSelect materializes a survivor core when a neutral player selects
// a build tile during the prepare phase.
func (r *Reactor) handleBuildSelect(ctx context.Context, e event.BuildSelect) {
	inPrepare := false
	r.phases.View(func(phase Phase) {
		inPrepare = phase == PhasePrepare
	})
	if !inPrepare {
		return
	}
	if e.Player == "" || e.Team != TeamNeutral || e.Breaking {
		return
	}
	err := r.exec.Do(ctx, func() {
		r.placeSurvivorCore(e)
	})
	if err != nil {
		errors.Log(logging.ReactorLogger, errors.Wrap(err, "place survivor core", nil))
		return
	}
	r.notifyStatus()
}

// placeSurvivorCore runs on the simulation executor. It validates the
// position, then either joins the nearest survivor team or founds a new one.
func (r *Reactor) placeSurvivorCore(e event.BuildSelect) {
	r.eng.ResetTile(e.Tile)
	if !r.eng.CanPlace(r.config.CoreBlock, e.Tile) {
		r.eng.SendMessage(e.Player, "Invalid core position.")
		return
	}
	for _, core := range r.eng.Cores(TeamPlague) {
		if core.Tile.Dst(e.Tile) < r.config.MinPlagueCoreDistance {
			r.eng.SendMessage(e.Player, fmt.Sprintf("Core must be at least %.0f tiles away from the nearest plague core.",
				r.config.MinPlagueCoreDistance))
			return
		}
	}
	closest, found := r.eng.ClosestCore(e.Tile, r.config.AutoJoinRadius, IsSurvivorTeam)
	if found {
		// Join the nearest survivor team.
		if err := r.teams.Join(closest.Team, e.Player); err != nil {
			r.surfaceError(e.Player, err)
			return
		}
		r.eng.SetTeam(e.Player, closest.Team)
		r.rules.PushPlayer(engine.Player{ID: e.Player, Team: closest.Team})
		r.eng.PlaceCore(closest.Team, r.config.CoreBlock, e.Tile)
		return
	}
	// Found a new team.
	team, err := r.teams.Allocate(e.Player)
	if err != nil {
		r.surfaceError(e.Player, err)
		return
	}
	r.eng.SetTeam(e.Player, team)
	r.rules.PushPlayer(engine.Player{ID: e.Player, Team: team})
	r.eng.PlaceCore(team, r.config.CoreBlock, e.Tile)
	// Seed the starting resources from the map loadout.
	r.eng.AddCoreItems(team, r.eng.Rules().Loadout)
	logging.TeamsLogger.Info("survivor team founded",
		zap.Int("team", int(team)), zap.String("owner", string(e.Player)))
}

// handleUnitCreated implements the reward economy rule: the designated reward
// unit is neutralized immediately and its owner's core is credited a fixed
// resource reward.
func (r *Reactor) handleUnitCreated(ctx context.Context, e event.UnitCreated) {
	if e.Type != r.config.RewardUnit {
		return
	}
	r.exec.Submit(func() {
		if len(r.eng.Cores(e.Team)) == 0 {
			return
		}
		r.eng.ShowLabel(fmt.Sprintf("%s created", e.Type), e.Spawner, 5)
		// Dispose instead of kill so the unit does not explode out of nowhere.
		r.eng.DisposeUnit(e.Unit)
		r.eng.AddCoreItems(e.Team, r.config.RewardStacks)
	})
}

// handlePlayerJoined assigns the joining player per current phase, restoring a
// recorded survivor team membership if there is one.
func (r *Reactor) handlePlayerJoined(ctx context.Context, e event.PlayerJoined) {
	if team, ok := r.teams.TeamOf(e.Player.ID); ok {
		// Returning member.
		err := r.exec.Do(ctx, func() {
			r.eng.SetTeam(e.Player.ID, team)
			p := e.Player
			p.Team = team
			r.rules.PushPlayer(p)
		})
		if err != nil {
			errors.Log(logging.ReactorLogger, errors.Wrap(err, "restore survivor team membership", nil))
		}
		r.notifyStatus()
		return
	}
	target := TeamPlague
	r.phases.View(func(phase Phase) {
		if phase == PhasePrepare {
			target = TeamNeutral
		}
	})
	err := r.exec.Do(ctx, func() {
		r.eng.SetTeam(e.Player.ID, target)
		if target == TeamNeutral {
			// Neutral players spectate from a plague core until they found or join a
			// team.
			r.eng.SpawnAtRandomCore(e.Player.ID, TeamPlague)
		}
		p := e.Player
		p.Team = target
		r.rules.PushPlayer(p)
	})
	if err != nil {
		errors.Log(logging.ReactorLogger, errors.Wrap(err, "assign joining player", nil))
	}
	r.notifyStatus()
}

// handlePlayerLeft notifies the members of a team whose owner disconnected.
// The membership record stays so the owner can return.
func (r *Reactor) handlePlayerLeft(ctx context.Context, e event.PlayerLeft) {
	defer r.notifyStatus()
	team, ok := r.teams.OwnedBy(e.Player.ID)
	if !ok {
		return
	}
	data, ok := r.teams.Data(team)
	if !ok {
		return
	}
	r.exec.Submit(func() {
		if len(r.eng.TeamPlayers(team)) == 0 {
			return
		}
		for _, member := range data.Members {
			if member == e.Player.ID {
				continue
			}
			r.eng.SendMessage(member, "Team owner left.")
		}
	})
}

// MoveToPlague moves the player to the plague team, leaving any survivor team.
func (r *Reactor) MoveToPlague(ctx context.Context, id engine.PlayerID) error {
	p, ok := r.eng.PlayerByID(id)
	if !ok {
		return errors.NewUnknownPlayerError(string(id))
	}
	if p.Team == TeamPlague {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "you are already in the plague team",
		}
	}
	teamDestroyed := false
	err := r.exec.Do(ctx, func() {
		if IsSurvivorTeam(p.Team) {
			teamDestroyed = r.leaveSurvivorTeamSim(p)
		}
		r.eng.SetTeam(id, TeamPlague)
		r.eng.KillUnit(id)
		r.rules.PushPlayer(engine.Player{ID: id, Name: p.Name, Team: TeamPlague})
	})
	if err != nil {
		return errors.Wrap(err, "move player to plague", nil)
	}
	if teamDestroyed {
		r.notifyStatus()
		r.onSurvivorTeamDestroyed(ctx)
	}
	return nil
}

// LeaveTeam moves the player to the neutral pool during prepare or to the
// plague team afterwards, leaving any survivor team.
func (r *Reactor) LeaveTeam(ctx context.Context, id engine.PlayerID) error {
	p, ok := r.eng.PlayerByID(id)
	if !ok {
		return errors.NewUnknownPlayerError(string(id))
	}
	if p.Team == TeamNeutral {
		return errors.NewNotOnTeamError()
	}
	target := TeamPlague
	r.phases.View(func(phase Phase) {
		if phase == PhasePrepare {
			target = TeamNeutral
		}
	})
	teamDestroyed := false
	err := r.exec.Do(ctx, func() {
		if IsSurvivorTeam(p.Team) {
			teamDestroyed = r.leaveSurvivorTeamSim(p)
		}
		r.eng.SetTeam(id, target)
		if target != TeamNeutral {
			r.eng.KillUnit(id)
		}
		r.rules.PushPlayer(engine.Player{ID: id, Name: p.Name, Team: target})
	})
	if err != nil {
		return errors.Wrap(err, "move player out of team", nil)
	}
	if teamDestroyed {
		r.notifyStatus()
		r.onSurvivorTeamDestroyed(ctx)
	}
	return nil
}

// leaveSurvivorTeamSim removes the player from their survivor team and runs
// the in-simulation part of a possible destruction. It returns whether the
// team was destroyed; the caller must then invoke onSurvivorTeamDestroyed
// after the simulation task completed.
func (r *Reactor) leaveSurvivorTeamSim(p engine.Player) bool {
	result, err := r.teams.Leave(p.Team, p.ID)
	if err != nil {
		// Not a member. Nothing to do.
		return false
	}
	if result.Destroyed {
		r.eng.Broadcast(fmt.Sprintf("All players of survivor team %d left. Team will be removed.", p.Team))
		r.eng.ClearTeam(p.Team)
		return true
	}
	if result.NewOwner != "" {
		for _, member := range result.Members {
			r.eng.SendMessage(member, fmt.Sprintf("'%s' is now the owner of this team because the previous owner left.",
				r.playerName(result.NewOwner)))
		}
	}
	return false
}

// Kick evicts the target from the requester's survivor team, blacklists them
// and moves them off the team like LeaveTeam would.
func (r *Reactor) Kick(ctx context.Context, requesterID engine.PlayerID, targetName string) error {
	requester, ok := r.eng.PlayerByID(requesterID)
	if !ok {
		return errors.NewUnknownPlayerError(string(requesterID))
	}
	if requester.Team == TeamPlague {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "you cannot kick in the plague team",
		}
	}
	if !IsSurvivorTeam(requester.Team) {
		return errors.NewNotOnTeamError()
	}
	target, ok := r.eng.PlayerByName(targetName)
	if !ok {
		return errors.NewUnknownPlayerError(targetName)
	}
	if target.Team != requester.Team {
		return errors.NewCrossTeamTargetError("cannot kick other team's member",
			errors.Details{"target": target.ID})
	}
	result, err := r.teams.Kick(requester.Team, requesterID, target.ID)
	if err != nil {
		return err
	}
	if r.auditor != nil {
		r.auditor.RecordKick(requester.Team, target.ID, requesterID)
	}
	moveTo := TeamPlague
	r.phases.View(func(phase Phase) {
		if phase == PhasePrepare {
			moveTo = TeamNeutral
		}
	})
	err = r.exec.Do(ctx, func() {
		for _, member := range result.Members {
			r.eng.SendMessage(member, fmt.Sprintf("'%s' was kicked from the team.", target.Name))
		}
		r.eng.SetTeam(target.ID, moveTo)
		if moveTo != TeamNeutral {
			r.eng.KillUnit(target.ID)
		}
		r.rules.PushPlayer(engine.Player{ID: target.ID, Name: target.Name, Team: moveTo})
	})
	if err != nil {
		return errors.Wrap(err, "move kicked player", nil)
	}
	return nil
}

// TransferOwnership reassigns the requester's team ownership to the target.
func (r *Reactor) TransferOwnership(ctx context.Context, requesterID engine.PlayerID, targetName string) error {
	requester, ok := r.eng.PlayerByID(requesterID)
	if !ok {
		return errors.NewUnknownPlayerError(string(requesterID))
	}
	if requester.Team == TeamPlague {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "you cannot transfer ownership in the plague team",
		}
	}
	if !IsSurvivorTeam(requester.Team) {
		return errors.NewNotOnTeamError()
	}
	target, ok := r.eng.PlayerByName(targetName)
	if !ok {
		return errors.NewUnknownPlayerError(targetName)
	}
	if target.Team != requester.Team {
		return errors.NewCrossTeamTargetError("cannot transfer ownership to other team's member",
			errors.Details{"target": target.ID})
	}
	members, err := r.teams.TransferOwnership(requester.Team, requesterID, target.ID)
	if err != nil {
		return err
	}
	r.exec.Submit(func() {
		for _, member := range members {
			r.eng.SendMessage(member, fmt.Sprintf("'%s' is now the owner of this team because the previous owner transferred the ownership.",
				target.Name))
		}
	})
	return nil
}

// ToggleLock flips the lock flag of the requester's team.
func (r *Reactor) ToggleLock(ctx context.Context, requesterID engine.PlayerID) error {
	requester, ok := r.eng.PlayerByID(requesterID)
	if !ok {
		return errors.NewUnknownPlayerError(string(requesterID))
	}
	if requester.Team == TeamPlague {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "you cannot lock the plague team",
		}
	}
	if !IsSurvivorTeam(requester.Team) {
		return errors.NewNotOnTeamError()
	}
	locked, members, err := r.teams.ToggleLock(requester.Team, requesterID)
	if err != nil {
		return err
	}
	message := "This team is now unlocked by the owner."
	if locked {
		message = "This team is now locked by the owner."
	}
	r.exec.Submit(func() {
		for _, member := range members {
			r.eng.SendMessage(member, message)
		}
	})
	return nil
}

// Status returns a snapshot of the running match.
func (r *Reactor) Status() MatchStatus {
	return MatchStatus{
		Phase:          r.phases.Current(),
		ElapsedSeconds: StatusSeconds(r.clock.Elapsed()),
		SkipSeconds:    StatusSeconds(r.clock.SkipTotal()),
		SurvivorTeams:  r.teams.ActiveCount(),
		Players:        len(r.eng.Players()),
	}
}

// notifyStatus publishes a fresh status snapshot.
func (r *Reactor) notifyStatus() {
	if r.status == nil {
		return
	}
	r.status.Notify(r.Status())
}

// surfaceError sends a user-facing error as chat message to the player. Other
// errors are logged and replaced by a generic message. Runs wherever messaging
// is safe, which for the reactor means on the simulation executor.
func (r *Reactor) surfaceError(id engine.PlayerID, err error) {
	e, _ := errors.Cast(err)
	if errors.BlameUser(err) || e.Kind == errors.KindNoTeamData {
		r.eng.SendMessage(id, e.Message)
		return
	}
	errors.Log(logging.ReactorLogger, err)
	r.eng.SendMessage(id, "An internal error occurred.")
}

// playerName resolves the display name of an online player, falling back to
// the identity.
func (r *Reactor) playerName(id engine.PlayerID) string {
	if p, ok := r.eng.PlayerByID(id); ok {
		return p.Name
	}
	return string(id)
}
