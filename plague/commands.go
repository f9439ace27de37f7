package plague

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lefinal/plague-server/engine"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/logging"
	"github.com/lefinal/plague-server/sim"
	"go.uber.org/zap"
)

// Scope restricts who may issue a command.
type Scope string

const (
	// ScopePlayer commands require an in-game player as sender.
	ScopePlayer Scope = "player"
	// ScopeServer commands are issued from the server console or an admin
	// surface without an attached player.
	ScopeServer Scope = "server"
)

// Sender issues a command and receives replies for it.
type Sender interface {
	// Player returns the in-game player the sender acts as. The second return
	// value is false for server-side senders.
	Player() (engine.Player, bool)
	// Reply sends a response message to the sender.
	Reply(message string)
}

// Command is a registered command.
type Command struct {
	Name        string
	Scope       Scope
	Description string
	// Handle runs the command. Returned user-facing errors are replied to the
	// sender, others are logged.
	Handle func(ctx context.Context, sender Sender, args []string) error
}

// CommandRegistry holds the command registration table and dispatches incoming
// commands against it.
type CommandRegistry struct {
	m        sync.RWMutex
	commands map[string]Command
}

// NewCommandRegistry creates an empty CommandRegistry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]Command),
	}
}

// Register adds the command to the registration table. Registering the same
// name twice fails.
func (reg *CommandRegistry) Register(cmd Command) error {
	reg.m.Lock()
	defer reg.m.Unlock()
	if _, ok := reg.commands[cmd.Name]; ok {
		return errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindCommandAlreadyRegistered,
			Message: fmt.Sprintf("command already registered: %s", cmd.Name),
		}
	}
	reg.commands[cmd.Name] = cmd
	return nil
}

// Commands returns all registered commands.
func (reg *CommandRegistry) Commands() []Command {
	reg.m.RLock()
	defer reg.m.RUnlock()
	commands := make([]Command, 0, len(reg.commands))
	for _, cmd := range reg.commands {
		commands = append(commands, cmd)
	}
	return commands
}

// Handle dispatches the named command. Scope violations and unknown commands
// are replied like command errors.
func (reg *CommandRegistry) Handle(ctx context.Context, sender Sender, name string, args []string) {
	reg.m.RLock()
	cmd, ok := reg.commands[name]
	reg.m.RUnlock()
	if !ok {
		reg.surface(sender, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindUnknownCommand,
			Message: fmt.Sprintf("unknown command: %s", name),
		})
		return
	}
	_, isPlayer := sender.Player()
	if (cmd.Scope == ScopePlayer) != isPlayer {
		reg.surface(sender, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindWrongCommandScope,
			Message: fmt.Sprintf("command %s is not available in this scope", name),
		})
		return
	}
	if err := cmd.Handle(ctx, sender, args); err != nil {
		reg.surface(sender, err)
	}
}

// surface replies a user-facing error message to the sender. Internal errors
// are logged instead and replaced by a generic message.
func (reg *CommandRegistry) surface(sender Sender, err error) {
	e, _ := errors.Cast(err)
	if errors.BlameUser(err) || e.Code == errors.ErrNotFound {
		sender.Reply(e.Message)
		return
	}
	errors.Log(logging.CommandLogger, err)
	sender.Reply("An internal error occurred.")
}

// ModeCommands bundles the dependencies of the mode's commands.
type ModeCommands struct {
	config   Config
	eng      engine.Engine
	exec     *sim.Executor
	reactor  *Reactor
	clock    *MatchClock
	phases   *PhaseController
	rules    *RuleBroadcaster
	restarts Restarter
	now      func() time.Time
	// resyncM guards lastResync.
	resyncM    sync.Mutex
	lastResync map[engine.PlayerID]time.Time
}

// NewModeCommands creates the mode's commands and registers them.
func NewModeCommands(config Config, eng engine.Engine, exec *sim.Executor, reactor *Reactor,
	clock *MatchClock, phases *PhaseController, rules *RuleBroadcaster, restarts Restarter,
	registry *CommandRegistry) (*ModeCommands, error) {
	mc := &ModeCommands{
		config:     config,
		eng:        eng,
		exec:       exec,
		reactor:    reactor,
		clock:      clock,
		phases:     phases,
		rules:      rules,
		restarts:   restarts,
		now:        time.Now,
		lastResync: make(map[engine.PlayerID]time.Time),
	}
	commands := []Command{
		{
			Name:        "plague",
			Scope:       ScopePlayer,
			Description: "Join the plague team.",
			Handle:      mc.handlePlague,
		},
		{
			Name:        "teamleave",
			Scope:       ScopePlayer,
			Description: "Leave your current team.",
			Handle:      mc.handleTeamLeave,
		},
		{
			Name:        "teamkick",
			Scope:       ScopePlayer,
			Description: "Kick a player from your team and blacklist them.",
			Handle:      mc.handleTeamKick,
		},
		{
			Name:        "teamtransfer",
			Scope:       ScopePlayer,
			Description: "Transfer team ownership to another member.",
			Handle:      mc.handleTeamTransfer,
		},
		{
			Name:        "teamlock",
			Scope:       ScopePlayer,
			Description: "Toggle whether your team accepts new members.",
			Handle:      mc.handleTeamLock,
		},
		{
			Name:        "sync",
			Scope:       ScopePlayer,
			Description: "Resynchronize your world state with the server.",
			Handle:      mc.handleSync,
		},
		{
			Name:        "state",
			Scope:       ScopeServer,
			Description: "Show the current game phase and timing.",
			Handle:      mc.handleState,
		},
		{
			Name:        "skiptime",
			Scope:       ScopeServer,
			Description: "Skip the given duration of match time.",
			Handle:      mc.handleSkipTime,
		},
		{
			Name:        "gameover",
			Scope:       ScopeServer,
			Description: "End the match and restart with the next map.",
			Handle:      mc.handleGameOver,
		},
	}
	for _, cmd := range commands {
		if err := registry.Register(cmd); err != nil {
			return nil, errors.Wrap(err, "register mode command", nil)
		}
	}
	return mc, nil
}

func (mc *ModeCommands) handlePlague(ctx context.Context, sender Sender, _ []string) error {
	p, _ := sender.Player()
	if err := mc.reactor.MoveToPlague(ctx, p.ID); err != nil {
		return err
	}
	sender.Reply("You are now in the plague team.")
	return nil
}

func (mc *ModeCommands) handleTeamLeave(ctx context.Context, sender Sender, _ []string) error {
	p, _ := sender.Player()
	if err := mc.reactor.LeaveTeam(ctx, p.ID); err != nil {
		return err
	}
	sender.Reply("You left your team.")
	return nil
}

func (mc *ModeCommands) handleTeamKick(ctx context.Context, sender Sender, args []string) error {
	if len(args) != 1 {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "usage: teamkick <player>",
		}
	}
	p, _ := sender.Player()
	if err := mc.reactor.Kick(ctx, p.ID, args[0]); err != nil {
		return err
	}
	sender.Reply(fmt.Sprintf("Kicked '%s' from the team.", args[0]))
	return nil
}

func (mc *ModeCommands) handleTeamTransfer(ctx context.Context, sender Sender, args []string) error {
	if len(args) != 1 {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "usage: teamtransfer <player>",
		}
	}
	p, _ := sender.Player()
	if err := mc.reactor.TransferOwnership(ctx, p.ID, args[0]); err != nil {
		return err
	}
	sender.Reply(fmt.Sprintf("Transferred team ownership to '%s'.", args[0]))
	return nil
}

func (mc *ModeCommands) handleTeamLock(ctx context.Context, sender Sender, _ []string) error {
	p, _ := sender.Player()
	return mc.reactor.ToggleLock(ctx, p.ID)
}

// handleSync resynchronizes the sender's world state. Denied for the local
// host and rate limited per player.
func (mc *ModeCommands) handleSync(ctx context.Context, sender Sender, _ []string) error {
	p, _ := sender.Player()
	if p.Local {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "the local host cannot resynchronize",
		}
	}
	mc.resyncM.Lock()
	last, ok := mc.lastResync[p.ID]
	now := mc.now()
	if ok && now.Sub(last) < mc.config.ResyncMinInterval {
		mc.resyncM.Unlock()
		return errors.Error{
			Code: errors.ErrBadRequest,
			Kind: errors.KindRateLimited,
			Message: fmt.Sprintf("you can only resynchronize every %.0f seconds",
				mc.config.ResyncMinInterval.Seconds()),
		}
	}
	mc.lastResync[p.ID] = now
	mc.resyncM.Unlock()
	mc.exec.Submit(func() {
		mc.eng.ResyncWorld(p.ID)
		mc.rules.PushPlayer(p)
	})
	sender.Reply("Resynchronizing.")
	return nil
}

func (mc *ModeCommands) handleState(_ context.Context, sender Sender, _ []string) error {
	sender.Reply(fmt.Sprintf("Phase: %s. Elapsed: %s. Skipped: %s.",
		mc.phases.Current(), mc.clock.Elapsed().Round(time.Second), mc.clock.SkipTotal().Round(time.Second)))
	return nil
}

func (mc *ModeCommands) handleSkipTime(_ context.Context, sender Sender, args []string) error {
	if len(args) != 1 {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "usage: skiptime <duration>",
		}
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Err:     err,
			Message: fmt.Sprintf("invalid duration: %s", args[0]),
		}
	}
	if err := mc.clock.Skip(d); err != nil {
		return err
	}
	sender.Reply(fmt.Sprintf("Skipped %s of match time.", d))
	return nil
}

// handleGameOver ends the match. An optional argument names the winning team,
// defaulting to no winner.
func (mc *ModeCommands) handleGameOver(ctx context.Context, sender Sender, args []string) error {
	winner := TeamDefeated
	if len(args) == 1 {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return errors.Error{
				Code:    errors.ErrBadRequest,
				Err:     err,
				Message: fmt.Sprintf("invalid team: %s", args[0]),
			}
		}
		winner = engine.TeamID(id)
	}
	sender.Reply("Ending the match.")
	if err := mc.restarts.Restart(ctx, winner); err != nil {
		return err
	}
	logging.CommandLogger.Info("match ended via command", zap.Int("winner", int(winner)))
	return nil
}
