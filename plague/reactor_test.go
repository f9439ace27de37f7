package plague

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lefinal/plague-server/engine"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/event"
	"github.com/lefinal/plague-server/sim"
	"github.com/stretchr/testify/suite"
)

// fakeRestarter records restart requests.
type fakeRestarter struct {
	m       sync.Mutex
	winners []engine.TeamID
}

func (f *fakeRestarter) Restart(_ context.Context, winner engine.TeamID) error {
	f.m.Lock()
	defer f.m.Unlock()
	f.winners = append(f.winners, winner)
	return nil
}

func (f *fakeRestarter) Winners() []engine.TeamID {
	f.m.Lock()
	defer f.m.Unlock()
	winners := make([]engine.TeamID, len(f.winners))
	copy(winners, f.winners)
	return winners
}

// fakeKickAuditor records audited kicks.
type fakeKickAuditor struct {
	m     sync.Mutex
	kicks []string
}

func (f *fakeKickAuditor) RecordKick(team engine.TeamID, target engine.PlayerID, by engine.PlayerID) {
	f.m.Lock()
	defer f.m.Unlock()
	f.kicks = append(f.kicks, string(by)+">"+string(target))
}

// ReactorSuite tests Reactor with a fully wired mode core on an in-memory
// engine.
type ReactorSuite struct {
	suite.Suite
	config    Config
	eng       *engine.InMemory
	exec      *sim.Executor
	phases    *PhaseController
	clock     *MatchClock
	setNow    func(t time.Time)
	teams     *TeamRegistry
	rules     *RuleBroadcaster
	status    *StatusNotifier
	restarter *fakeRestarter
	reactor   *Reactor
	bus       *event.Bus
	ctx       context.Context
	cancel    context.CancelFunc
}

func (suite *ReactorSuite) SetupTest() {
	suite.config = DefaultConfig()
	suite.eng = engine.NewInMemory()
	suite.exec = sim.NewExecutor()
	suite.phases = NewPhaseController(suite.config)
	suite.clock, suite.setNow = newTestClock()
	suite.teams = NewTeamRegistry()
	suite.rules = NewRuleBroadcaster(suite.eng, suite.phases, testResolver())
	suite.status = NewStatusNotifier()
	suite.restarter = &fakeRestarter{}
	suite.reactor = NewReactor(suite.config, suite.eng, suite.exec, suite.phases,
		suite.clock, suite.teams, suite.rules, suite.status)
	suite.reactor.SetRestarter(suite.restarter)
	suite.bus = event.NewBus()
	suite.reactor.Register(suite.bus)
	suite.ctx, suite.cancel = context.WithCancel(context.Background())
	go suite.exec.Run(suite.ctx)
}

func (suite *ReactorSuite) TearDownTest() {
	suite.cancel()
}

// flushSim waits until all previously submitted simulation tasks ran.
func (suite *ReactorSuite) flushSim() {
	suite.Require().NoError(suite.exec.Do(suite.ctx, func() {}), "flush should not fail")
}

// advanceTo moves the fake clock to the given elapsed match time and fires a
// tick.
func (suite *ReactorSuite) advanceTo(elapsed time.Duration) {
	suite.setNow(time.Date(2021, 8, 1, 12, 0, 0, 0, time.UTC).Add(elapsed))
	suite.bus.Dispatch(suite.ctx, event.Tick{})
	suite.flushSim()
}

func (suite *ReactorSuite) TestMatchStart() {
	suite.eng.SetRules(engine.RuleSet{EnemyCoreBuildRadius: 80})
	suite.eng.AddCoreItems(TeamPlague, []engine.ItemStack{{Item: "copper", Amount: 1000}})
	suite.phases.MarkOver()
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.Equal(PhasePrepare, suite.phases.Current(), "match start should reset the phase")
	suite.False(suite.phases.IsOver(), "match start should clear the over flag")
	suite.Equal(suite.config.PrepareCoreBuildRadius, suite.eng.Rules().EnemyCoreBuildRadius,
		"match start should restrict the build radius")
	suite.Empty(suite.eng.CoreItems(TeamPlague), "match start should clear plague core items")
}

func (suite *ReactorSuite) TestTickClamps() {
	suite.bus.Dispatch(suite.ctx, event.Tick{})
	suite.bus.Dispatch(suite.ctx, event.Tick{})
	suite.flushSim()
	suite.Equal(2, suite.eng.CoreInvulnerabilityClamps(TeamPlague),
		"plague cores should be clamped invulnerable every tick")
	suite.Equal(2, suite.eng.UnitInvulnerabilityClamps(TeamNeutral),
		"neutral units should be clamped invulnerable every tick")
}

func (suite *ReactorSuite) TestTickClampsSkippedWhenOver() {
	suite.eng.SetGameOver(TeamPlague)
	suite.bus.Dispatch(suite.ctx, event.Tick{})
	suite.flushSim()
	suite.Zero(suite.eng.CoreInvulnerabilityClamps(TeamPlague), "clamps should be skipped when the game is over")
}

func (suite *ReactorSuite) TestFirstPhaseTransition() {
	suite.eng.SetMapDefaultCoreBuildRadius(90)
	suite.eng.AddPlayer(engine.Player{ID: "nia", Name: "Nia", Team: TeamNeutral})
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: FirstSurvivorTeam})
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.advanceTo(suite.config.FirstPhaseAt)
	suite.Equal(PhaseFirst, suite.phases.Current(), "should be in first phase")
	suite.Equal(float64(90), suite.eng.Rules().EnemyCoreBuildRadius,
		"build radius should be restored to the map default")
	nia, _ := suite.eng.PlayerByID("nia")
	suite.Equal(TeamPlague, nia.Team, "unassigned players should be forced onto the plague team")
	suite.Equal(1, suite.eng.KilledUnits("nia"), "forced players should lose their unit")
	anna, _ := suite.eng.PlayerByID("anna")
	suite.Equal(FirstSurvivorTeam, anna.Team, "assigned players should stay on their team")
	_, ok := suite.eng.PushedRules("anna")
	suite.True(ok, "rules should be pushed to all players")
}

func (suite *ReactorSuite) TestSecondPhaseTransition() {
	suite.eng.AddCore(FirstSurvivorTeam, engine.Tile{X: 10, Y: 10})
	suite.eng.AddCore(TeamPlague, engine.Tile{X: 300, Y: 300})
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.advanceTo(suite.config.FirstPhaseAt)
	suite.advanceTo(suite.config.SecondPhaseAt)
	suite.Equal(PhaseSecond, suite.phases.Current(), "should be in second phase")
	suite.InDelta(1.3, suite.eng.BlockDamageMultiplier(FirstSurvivorTeam), 0.001,
		"survivor teams should receive the block damage penalty")
	suite.InDelta(1, suite.eng.BlockDamageMultiplier(TeamPlague), 0.001,
		"the plague team should not be penalized")
}

func (suite *ReactorSuite) TestEndedPhaseTransition() {
	suite.eng.AddCore(FirstSurvivorTeam, engine.Tile{X: 10, Y: 10})
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.advanceTo(suite.config.FirstPhaseAt)
	suite.advanceTo(suite.config.SecondPhaseAt)
	suite.advanceTo(suite.config.EndedAt)
	suite.Equal(PhaseEnded, suite.phases.Current(), "should be in ended phase")
	broadcasts := suite.eng.Broadcasts()
	suite.Require().NotEmpty(broadcasts, "survivor victory should be announced")
	suite.Contains(broadcasts[len(broadcasts)-1], "Survivor teams won", "announcement should name the winners")
	suite.Empty(suite.restarter.Winners(), "the match should keep running")
}

func (suite *ReactorSuite) TestCoreCascade() {
	team, err := suite.teams.Allocate("anna")
	suite.Require().NoError(err, "allocate should not fail")
	suite.Require().NoError(suite.teams.Join(team, "ben"), "join should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: team})
	suite.eng.AddCore(team, engine.Tile{X: 10, Y: 10})
	suite.bus.Dispatch(suite.ctx, event.BlockDestroyed{
		Team:   team,
		Block:  suite.config.CoreBlock,
		IsCore: true,
	})
	anna, _ := suite.eng.PlayerByID("anna")
	suite.Equal(TeamPlague, anna.Team, "members should be moved to the plague team")
	suite.Equal(1, suite.eng.KilledUnits("anna"), "members should lose their unit")
	suite.Equal(1, suite.eng.ClearedTeams(team), "team structures should be cleared")
	suite.Zero(suite.teams.ActiveCount(), "team should be removed from the registry")
	suite.Contains(suite.eng.Broadcasts()[0], "lost", "team loss should be announced")
	suite.Require().Eventually(func() bool {
		return len(suite.restarter.Winners()) == 1
	}, time.Second, 5*time.Millisecond, "restart should be triggered for the last team")
	suite.Equal(TeamPlague, suite.restarter.Winners()[0], "plague should be the winner")
}

func (suite *ReactorSuite) TestCoreCascadeKeepsOtherTeams() {
	team, _ := suite.teams.Allocate("anna")
	other, _ := suite.teams.Allocate("ben")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: other})
	suite.eng.AddCore(team, engine.Tile{X: 10, Y: 10})
	suite.eng.AddCore(other, engine.Tile{X: 200, Y: 200})
	suite.bus.Dispatch(suite.ctx, event.BlockDestroyed{Team: team, IsCore: true})
	suite.Equal(1, suite.teams.ActiveCount(), "other teams should stay")
	time.Sleep(20 * time.Millisecond)
	suite.Empty(suite.restarter.Winners(), "no restart while teams remain")
}

func (suite *ReactorSuite) TestCoreCascadeIgnoresNonLastCore() {
	team, _ := suite.teams.Allocate("anna")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.eng.AddCore(team, engine.Tile{X: 10, Y: 10})
	suite.eng.AddCore(team, engine.Tile{X: 20, Y: 20})
	suite.bus.Dispatch(suite.ctx, event.BlockDestroyed{Team: team, IsCore: true})
	anna, _ := suite.eng.PlayerByID("anna")
	suite.Equal(team, anna.Team, "members should stay while cores remain")
	suite.Equal(1, suite.teams.ActiveCount(), "team should stay in the registry")
}

func (suite *ReactorSuite) TestCoreCascadeAfterEnded() {
	team, _ := suite.teams.Allocate("anna")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.eng.AddCore(team, engine.Tile{X: 10, Y: 10})
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.advanceTo(suite.config.FirstPhaseAt)
	suite.advanceTo(suite.config.SecondPhaseAt)
	suite.advanceTo(suite.config.EndedAt)
	suite.bus.Dispatch(suite.ctx, event.BlockDestroyed{Team: team, IsCore: true})
	suite.Require().Eventually(func() bool {
		return len(suite.restarter.Winners()) == 1
	}, time.Second, 5*time.Millisecond, "restart should be triggered")
	suite.Equal(TeamDefeated, suite.restarter.Winners()[0],
		"a cascade after the ended phase should declare no winner")
}

func (suite *ReactorSuite) TestBuildSelectFoundsTeam() {
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: TeamNeutral})
	suite.eng.AddCore(TeamPlague, engine.Tile{X: 0, Y: 0})
	loadout := []engine.ItemStack{{Item: "copper", Amount: 150}}
	rules := suite.eng.Rules()
	rules.Loadout = loadout
	suite.eng.SetRules(rules)
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player: "anna",
		Team:   TeamNeutral,
		Tile:   engine.Tile{X: 200, Y: 200},
	})
	anna, _ := suite.eng.PlayerByID("anna")
	suite.Equal(FirstSurvivorTeam, anna.Team, "founder should be moved onto the new team")
	suite.Len(suite.eng.Cores(FirstSurvivorTeam), 1, "core should be placed")
	suite.Equal(loadout, suite.eng.CoreItems(FirstSurvivorTeam), "loadout should seed the new core")
	data, ok := suite.teams.Data(FirstSurvivorTeam)
	suite.Require().True(ok, "team should be registered")
	suite.Equal(engine.PlayerID("anna"), data.Owner, "founder should own the team")
}

func (suite *ReactorSuite) TestBuildSelectTooCloseToPlague() {
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: TeamNeutral})
	suite.eng.AddCore(TeamPlague, engine.Tile{X: 0, Y: 0})
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player: "anna",
		Team:   TeamNeutral,
		Tile:   engine.Tile{X: 30, Y: 40},
	})
	suite.Zero(suite.teams.ActiveCount(), "no team should be created")
	suite.NotEmpty(suite.eng.MessagesTo("anna"), "player should be told why")
}

func (suite *ReactorSuite) TestBuildSelectOccupiedTile() {
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: TeamNeutral})
	suite.eng.OccupyTile(engine.Tile{X: 200, Y: 200})
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player: "anna",
		Team:   TeamNeutral,
		Tile:   engine.Tile{X: 200, Y: 200},
	})
	suite.Zero(suite.teams.ActiveCount(), "no team should be created")
	suite.Contains(suite.eng.MessagesTo("anna")[0], "Invalid core position", "player should be told why")
}

func (suite *ReactorSuite) TestBuildSelectAutoJoin() {
	team, _ := suite.teams.Allocate("anna")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: TeamNeutral})
	suite.eng.AddCore(team, engine.Tile{X: 150, Y: 150})
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player: "ben",
		Team:   TeamNeutral,
		Tile:   engine.Tile{X: 160, Y: 160},
	})
	ben, _ := suite.eng.PlayerByID("ben")
	suite.Equal(team, ben.Team, "player should be joined to the nearby team")
	suite.Len(suite.eng.Cores(team), 2, "core should be added to the joined team")
	suite.Empty(suite.eng.CoreItems(team), "auto-join should not seed a loadout")
	data, _ := suite.teams.Data(team)
	suite.Contains(data.Members, engine.PlayerID("ben"), "registry should record the membership")
}

func (suite *ReactorSuite) TestBuildSelectAutoJoinBlacklisted() {
	team, _ := suite.teams.Allocate("anna")
	suite.Require().NoError(suite.teams.Join(team, "ben"), "join should not fail")
	_, err := suite.teams.Kick(team, "anna", "ben")
	suite.Require().NoError(err, "kick should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: TeamNeutral})
	suite.eng.AddCore(team, engine.Tile{X: 150, Y: 150})
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player: "ben",
		Team:   TeamNeutral,
		Tile:   engine.Tile{X: 160, Y: 160},
	})
	ben, _ := suite.eng.PlayerByID("ben")
	suite.Equal(TeamNeutral, ben.Team, "blacklisted player should stay neutral")
	suite.NotEmpty(suite.eng.MessagesTo("ben"), "player should be told why")
}

func (suite *ReactorSuite) TestBuildSelectAutoJoinLocked() {
	team, _ := suite.teams.Allocate("anna")
	_, _, err := suite.teams.ToggleLock(team, "anna")
	suite.Require().NoError(err, "toggle lock should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: TeamNeutral})
	suite.eng.AddCore(team, engine.Tile{X: 150, Y: 150})
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player: "ben",
		Team:   TeamNeutral,
		Tile:   engine.Tile{X: 160, Y: 160},
	})
	ben, _ := suite.eng.PlayerByID("ben")
	suite.Equal(TeamNeutral, ben.Team, "locked team should not be joined")
	suite.NotEmpty(suite.eng.MessagesTo("ben"), "player should be told why")
}

func (suite *ReactorSuite) TestBuildSelectIgnored() {
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: TeamNeutral})
	// Breaking selections are ignored.
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player:   "anna",
		Team:     TeamNeutral,
		Tile:     engine.Tile{X: 200, Y: 200},
		Breaking: true,
	})
	// Non-neutral builders are ignored.
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player: "anna",
		Team:   TeamPlague,
		Tile:   engine.Tile{X: 220, Y: 220},
	})
	// Outside prepare everything is ignored.
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.advanceTo(suite.config.FirstPhaseAt)
	suite.bus.Dispatch(suite.ctx, event.BuildSelect{
		Player: "anna",
		Team:   TeamNeutral,
		Tile:   engine.Tile{X: 240, Y: 240},
	})
	suite.Zero(suite.teams.ActiveCount(), "no team should be created")
}

func (suite *ReactorSuite) TestRewardUnit() {
	suite.eng.AddCore(FirstSurvivorTeam, engine.Tile{X: 10, Y: 10})
	suite.bus.Dispatch(suite.ctx, event.UnitCreated{
		Unit: "u1",
		Type: suite.config.RewardUnit,
		Team: FirstSurvivorTeam,
	})
	suite.flushSim()
	suite.Equal([]engine.UnitRef{"u1"}, suite.eng.DisposedUnits(), "reward unit should be disposed")
	suite.Equal(suite.config.RewardStacks, suite.eng.CoreItems(FirstSurvivorTeam),
		"reward should be credited to the core")
	suite.NotEmpty(suite.eng.Labels(), "a label should be shown")
}

func (suite *ReactorSuite) TestRewardUnitWithoutCore() {
	suite.bus.Dispatch(suite.ctx, event.UnitCreated{
		Unit: "u1",
		Type: suite.config.RewardUnit,
		Team: FirstSurvivorTeam,
	})
	suite.flushSim()
	suite.Empty(suite.eng.DisposedUnits(), "reward should not apply without a core")
}

func (suite *ReactorSuite) TestRewardUnitIgnoresOtherTypes() {
	suite.eng.AddCore(FirstSurvivorTeam, engine.Tile{X: 10, Y: 10})
	suite.bus.Dispatch(suite.ctx, event.UnitCreated{
		Unit: "u1",
		Type: "dagger",
		Team: FirstSurvivorTeam,
	})
	suite.flushSim()
	suite.Empty(suite.eng.DisposedUnits(), "other unit types should pass")
	suite.Empty(suite.eng.CoreItems(FirstSurvivorTeam), "no reward should be credited")
}

func (suite *ReactorSuite) TestPlayerJoinedDuringPrepare() {
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna"})
	suite.bus.Dispatch(suite.ctx, event.PlayerJoined{Player: engine.Player{ID: "anna", Name: "Anna"}})
	anna, _ := suite.eng.PlayerByID("anna")
	suite.Equal(TeamNeutral, anna.Team, "players joining during prepare should go to the neutral pool")
	spawned, ok := suite.eng.SpawnedAt("anna")
	suite.Require().True(ok, "player should be spawned")
	suite.Equal(TeamPlague, spawned, "neutral players should spectate from a plague core")
}

func (suite *ReactorSuite) TestPlayerJoinedAfterPrepare() {
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.advanceTo(suite.config.FirstPhaseAt)
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna"})
	suite.bus.Dispatch(suite.ctx, event.PlayerJoined{Player: engine.Player{ID: "anna", Name: "Anna"}})
	anna, _ := suite.eng.PlayerByID("anna")
	suite.Equal(TeamPlague, anna.Team, "players joining after prepare should go to the plague team")
}

func (suite *ReactorSuite) TestPlayerJoinedReturningMember() {
	team, _ := suite.teams.Allocate("anna")
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.advanceTo(suite.config.FirstPhaseAt)
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna"})
	suite.bus.Dispatch(suite.ctx, event.PlayerJoined{Player: engine.Player{ID: "anna", Name: "Anna"}})
	anna, _ := suite.eng.PlayerByID("anna")
	suite.Equal(team, anna.Team, "recorded membership should be restored")
}

func (suite *ReactorSuite) TestPlayerLeftOwner() {
	team, _ := suite.teams.Allocate("anna")
	suite.Require().NoError(suite.teams.Join(team, "ben"), "join should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: team})
	suite.bus.Dispatch(suite.ctx, event.PlayerLeft{Player: engine.Player{ID: "anna", Name: "Anna", Team: team}})
	suite.flushSim()
	suite.Contains(suite.eng.MessagesTo("ben"), "Team owner left.", "members should be notified")
	suite.Equal(1, suite.teams.ActiveCount(), "membership record should survive the disconnect")
}

func (suite *ReactorSuite) TestGameOverEvent() {
	suite.bus.Dispatch(suite.ctx, event.GameOver{Winner: TeamPlague})
	suite.True(suite.phases.IsOver(), "game over should flag the phase controller")
}

func (suite *ReactorSuite) TestMoveToPlague() {
	team, _ := suite.teams.Allocate("anna")
	suite.Require().NoError(suite.teams.Join(team, "ben"), "join should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: team})
	suite.Require().NoError(suite.reactor.MoveToPlague(suite.ctx, "ben"), "move should not fail")
	ben, _ := suite.eng.PlayerByID("ben")
	suite.Equal(TeamPlague, ben.Team, "player should be on the plague team")
	suite.Equal(1, suite.eng.KilledUnits("ben"), "player should lose their unit")
	data, _ := suite.teams.Data(team)
	suite.NotContains(data.Members, engine.PlayerID("ben"), "membership should be removed")
}

func (suite *ReactorSuite) TestMoveToPlagueAlreadyPlague() {
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: TeamPlague})
	err := suite.reactor.MoveToPlague(suite.ctx, "anna")
	suite.Require().Error(err, "move should fail for plague members")
	suite.True(errors.BlameUser(err), "error should blame the user")
}

func (suite *ReactorSuite) TestMoveToPlagueDestroysTeam() {
	team, _ := suite.teams.Allocate("anna")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.Require().NoError(suite.reactor.MoveToPlague(suite.ctx, "anna"), "move should not fail")
	suite.Zero(suite.teams.ActiveCount(), "team should be destroyed with its last member")
	suite.Equal(1, suite.eng.ClearedTeams(team), "team structures should be cleared")
	suite.Require().Eventually(func() bool {
		return len(suite.restarter.Winners()) == 1
	}, time.Second, 5*time.Millisecond, "restart should be triggered for the last team")
}

func (suite *ReactorSuite) TestLeaveTeamDuringPrepare() {
	team, _ := suite.teams.Allocate("anna")
	suite.Require().NoError(suite.teams.Join(team, "ben"), "join should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: team})
	suite.Require().NoError(suite.reactor.LeaveTeam(suite.ctx, "ben"), "leave should not fail")
	ben, _ := suite.eng.PlayerByID("ben")
	suite.Equal(TeamNeutral, ben.Team, "leaving during prepare should move to the neutral pool")
	suite.Zero(suite.eng.KilledUnits("ben"), "unit should survive during prepare")
}

func (suite *ReactorSuite) TestLeaveTeamAfterPrepare() {
	team, _ := suite.teams.Allocate("anna")
	suite.Require().NoError(suite.teams.Join(team, "ben"), "join should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: team})
	suite.bus.Dispatch(suite.ctx, event.MatchStart{})
	suite.advanceTo(suite.config.FirstPhaseAt)
	suite.Require().NoError(suite.reactor.LeaveTeam(suite.ctx, "ben"), "leave should not fail")
	ben, _ := suite.eng.PlayerByID("ben")
	suite.Equal(TeamPlague, ben.Team, "leaving after prepare should move to the plague team")
	suite.Equal(1, suite.eng.KilledUnits("ben"), "player should lose their unit")
}

func (suite *ReactorSuite) TestLeaveTeamNotOnTeam() {
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: TeamNeutral})
	err := suite.reactor.LeaveTeam(suite.ctx, "anna")
	suite.Require().Error(err, "leave should fail for neutral players")
	suite.True(errors.IsKind(err, errors.KindNotOnTeam), "error should have not-on-team kind")
}

func (suite *ReactorSuite) TestLeaveTeamTransfersOwnership() {
	team, _ := suite.teams.Allocate("cleo")
	suite.Require().NoError(suite.teams.Join(team, "anna"), "join should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "cleo", Name: "Cleo", Team: team})
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.Require().NoError(suite.reactor.LeaveTeam(suite.ctx, "cleo"), "leave should not fail")
	data, _ := suite.teams.Data(team)
	suite.Equal(engine.PlayerID("anna"), data.Owner, "ownership should transfer")
	suite.NotEmpty(suite.eng.MessagesTo("anna"), "remaining members should be notified")
}

func (suite *ReactorSuite) TestKick() {
	auditor := &fakeKickAuditor{}
	suite.reactor.SetKickAuditor(auditor)
	team, _ := suite.teams.Allocate("anna")
	suite.Require().NoError(suite.teams.Join(team, "ben"), "join should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: team})
	suite.Require().NoError(suite.reactor.Kick(suite.ctx, "anna", "Ben"), "kick should not fail")
	ben, _ := suite.eng.PlayerByID("ben")
	suite.Equal(TeamNeutral, ben.Team, "kicked player should be moved off the team")
	suite.True(suite.teams.IsBlacklisted(team, "ben"), "kicked player should be blacklisted")
	suite.NotEmpty(suite.eng.MessagesTo("anna"), "remaining members should be notified")
	suite.Equal([]string{"anna>ben"}, auditor.kicks, "kick should be audited")
}

func (suite *ReactorSuite) TestKickChecks() {
	team, _ := suite.teams.Allocate("anna")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: TeamPlague})
	err := suite.reactor.Kick(suite.ctx, "ben", "Anna")
	suite.Require().Error(err, "kick by plague member should fail")
	err = suite.reactor.Kick(suite.ctx, "anna", "Ben")
	suite.Require().Error(err, "kick across teams should fail")
	suite.True(errors.IsKind(err, errors.KindCrossTeamTarget), "error should have cross-team-target kind")
	err = suite.reactor.Kick(suite.ctx, "anna", "Nobody")
	suite.Require().Error(err, "kick of unknown player should fail")
}

func (suite *ReactorSuite) TestTransferOwnership() {
	team, _ := suite.teams.Allocate("anna")
	suite.Require().NoError(suite.teams.Join(team, "ben"), "join should not fail")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.eng.AddPlayer(engine.Player{ID: "ben", Name: "Ben", Team: team})
	suite.Require().NoError(suite.reactor.TransferOwnership(suite.ctx, "anna", "Ben"), "transfer should not fail")
	suite.flushSim()
	data, _ := suite.teams.Data(team)
	suite.Equal(engine.PlayerID("ben"), data.Owner, "ownership should move")
	suite.NotEmpty(suite.eng.MessagesTo("ben"), "members should be notified")
}

func (suite *ReactorSuite) TestToggleLock() {
	team, _ := suite.teams.Allocate("anna")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: team})
	suite.Require().NoError(suite.reactor.ToggleLock(suite.ctx, "anna"), "toggle should not fail")
	suite.flushSim()
	data, _ := suite.teams.Data(team)
	suite.True(data.Locked, "team should be locked")
	suite.Contains(suite.eng.MessagesTo("anna")[0], "locked", "members should be notified")
	suite.Require().NoError(suite.reactor.ToggleLock(suite.ctx, "anna"), "toggle should not fail")
	data, _ = suite.teams.Data(team)
	suite.False(data.Locked, "second toggle should unlock")
}

func (suite *ReactorSuite) TestStatus() {
	suite.teams.Allocate("anna")
	suite.eng.AddPlayer(engine.Player{ID: "anna", Name: "Anna", Team: FirstSurvivorTeam})
	status := suite.reactor.Status()
	suite.Equal(PhasePrepare, status.Phase, "status should report the phase")
	suite.Equal(1, status.SurvivorTeams, "status should count survivor teams")
	suite.Equal(1, status.Players, "status should count players")
}

func TestReactor(t *testing.T) {
	suite.Run(t, new(ReactorSuite))
}
