// Package event declares the engine-fired events the mode core consumes and a
// Bus that dispatches them through an explicit registration table built at
// startup.
package event

import (
	"context"
	"sync"

	"github.com/lefinal/plague-server/engine"
)

// Type identifies an event.
type Type string

const (
	// TypeMatchStart fires when a new game begins on a loaded map.
	TypeMatchStart Type = "match-start"
	// TypeTick fires periodically from the engine update loop.
	TypeTick Type = "tick"
	// TypeBlockDestroyed fires when a block is destroyed. It fires before the
	// block is removed from its team, so core counts still include it.
	TypeBlockDestroyed Type = "block-destroyed"
	// TypeBuildSelect fires when a player selects a tile for building or
	// breaking.
	TypeBuildSelect Type = "build-select"
	// TypeUnitCreated fires when a unit finished construction.
	TypeUnitCreated Type = "unit-created"
	// TypePlayerJoined fires when a player connects.
	TypePlayerJoined Type = "player-joined"
	// TypePlayerLeft fires when a player disconnects.
	TypePlayerLeft Type = "player-left"
	// TypeGameOver fires when the game is externally signalled as over.
	TypeGameOver Type = "game-over"
)

// Event is implemented by all event payloads.
type Event interface {
	// EventType returns the Type the payload belongs to.
	EventType() Type
}

// MatchStart is the payload for TypeMatchStart.
type MatchStart struct{}

func (MatchStart) EventType() Type { return TypeMatchStart }

// Tick is the payload for TypeTick.
type Tick struct{}

func (Tick) EventType() Type { return TypeTick }

// BlockDestroyed is the payload for TypeBlockDestroyed.
type BlockDestroyed struct {
	// Team that owned the block.
	Team engine.TeamID
	// Block type that was destroyed.
	Block engine.Block
	// Tile the block occupied.
	Tile engine.Tile
	// IsCore is true when the destroyed block was a core structure.
	IsCore bool
}

func (BlockDestroyed) EventType() Type { return TypeBlockDestroyed }

// BuildSelect is the payload for TypeBuildSelect.
type BuildSelect struct {
	// Player that selected the tile. Empty for AI builders.
	Player engine.PlayerID
	// Team of the builder.
	Team engine.TeamID
	// Tile that was selected.
	Tile engine.Tile
	// Breaking is true when the selection breaks instead of builds.
	Breaking bool
}

func (BuildSelect) EventType() Type { return TypeBuildSelect }

// UnitCreated is the payload for TypeUnitCreated.
type UnitCreated struct {
	// Unit references the created unit.
	Unit engine.UnitRef
	// Type of the created unit.
	Type engine.UnitType
	// Team that owns the unit.
	Team engine.TeamID
	// Spawner is the tile of the structure that created the unit.
	Spawner engine.Tile
}

func (UnitCreated) EventType() Type { return TypeUnitCreated }

// PlayerJoined is the payload for TypePlayerJoined.
type PlayerJoined struct {
	Player engine.Player
}

func (PlayerJoined) EventType() Type { return TypePlayerJoined }

// PlayerLeft is the payload for TypePlayerLeft.
type PlayerLeft struct {
	Player engine.Player
}

func (PlayerLeft) EventType() Type { return TypePlayerLeft }

// GameOver is the payload for TypeGameOver.
type GameOver struct {
	Winner engine.TeamID
}

func (GameOver) EventType() Type { return TypeGameOver }

// Handler handles a dispatched Event.
type Handler func(ctx context.Context, e Event)

// Bus dispatches events to handlers through an explicit registration table.
// Subscriptions are expected to happen at startup, before dispatching begins.
type Bus struct {
	m sync.RWMutex
	// handlers is the registration table.
	handlers map[Type][]Handler
}

// NewBus creates a new Bus with an empty registration table.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
	}
}

// Subscribe adds the handler to the registration table for the given type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.m.Lock()
	defer b.m.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Dispatch calls all handlers registered for the event's type in registration
// order. Handlers run synchronously on the caller's goroutine; handlers that
// need to block fan out themselves.
func (b *Bus) Dispatch(ctx context.Context, e Event) {
	b.m.RLock()
	handlers := b.handlers[e.EventType()]
	b.m.RUnlock()
	for _, h := range handlers {
		h(ctx, e)
	}
}
