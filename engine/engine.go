// Package engine declares the interfaces the hosting RTS engine must supply to
// the plague mode core as well as the value types shared with it. The mode
// never mutates engine state directly; all mutating calls happen on the
// simulation goroutine through sim.Executor.
package engine

import (
	"math"
)

// PlayerID is the stable identity of a player. It survives reconnects.
type PlayerID string

// TeamID identifies a team. A fixed low range is reserved for the built-in
// roles while survivor teams are allocated from the range above them.
type TeamID int

// Block identifies a block type.
type Block string

// UnitType identifies a unit type.
type UnitType string

// UnitRef references a single spawned unit.
type UnitRef string

// Item identifies a resource item type.
type Item string

// ItemStack is an amount of a single Item.
type ItemStack struct {
	Item   Item
	Amount int
}

// Tile is a position in tile coordinates.
type Tile struct {
	X int
	Y int
}

// Dst returns the distance between both tiles in tile units.
func (t Tile) Dst(o Tile) float64 {
	dx := float64(t.X - o.X)
	dy := float64(t.Y - o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Player is a snapshot of an online player.
type Player struct {
	// ID is the player's stable identity.
	ID PlayerID
	// Name is the display name.
	Name string
	// Team the player is currently assigned to.
	Team TeamID
	// Local is true for the hosting session itself.
	Local bool
}

// Core is a snapshot of a core structure.
type Core struct {
	Team TeamID
	Tile Tile
}

// MapInfo describes a playable map.
type MapInfo struct {
	Name   string
	Author string
}

// RuleSet is the effective rule set that can be pushed per player or applied
// world-wide.
type RuleSet struct {
	// BannedBlocks may not be built.
	BannedBlocks map[Block]struct{}
	// BannedUnits may not be created.
	BannedUnits map[UnitType]struct{}
	// EnemyCoreBuildRadius is the radius in tiles around enemy cores in which
	// building is forbidden.
	EnemyCoreBuildRadius float64
	// Loadout seeds a freshly created core.
	Loadout []ItemStack
}

// Clone returns a deep copy of the RuleSet.
func (r RuleSet) Clone() RuleSet {
	c := r
	c.BannedBlocks = make(map[Block]struct{}, len(r.BannedBlocks))
	for b := range r.BannedBlocks {
		c.BannedBlocks[b] = struct{}{}
	}
	c.BannedUnits = make(map[UnitType]struct{}, len(r.BannedUnits))
	for u := range r.BannedUnits {
		c.BannedUnits[u] = struct{}{}
	}
	c.Loadout = make([]ItemStack, len(r.Loadout))
	copy(c.Loadout, r.Loadout)
	return c
}

// World provides tile geometry access. The mode only needs the boolean
// footprint predicate and clearing a pending tile.
type World interface {
	// CanPlace reports whether a block of the given type can occupy the footprint
	// centered at the given tile.
	CanPlace(block Block, at Tile) bool
	// ResetTile removes any pending build plan from the given tile.
	ResetTile(at Tile)
}

// Cores provides core structure queries and mutations.
type Cores interface {
	// Cores returns all cores of the given team.
	Cores(team TeamID) []Core
	// ClosestCore returns the closest core to the given tile within maxDist tiles
	// among teams for which include returns true. The second return value is false
	// when no such core exists.
	ClosestCore(at Tile, maxDist float64, include func(TeamID) bool) (Core, bool)
	// PlaceCore materializes a core structure for the given team.
	PlaceCore(team TeamID, block Block, at Tile)
	// AddCoreItems credits the given stacks to the team's first core, clamped to
	// its storage capacity.
	AddCoreItems(team TeamID, stacks []ItemStack)
	// ClearCoreItems empties the team's core storage.
	ClearCoreItems(team TeamID)
	// MakeCoresInvulnerable clamps the health of all cores of the given team so
	// they cannot be destroyed. Idempotent.
	MakeCoresInvulnerable(team TeamID)
}

// Roster provides access to online players.
type Roster interface {
	// Players returns a snapshot of all online players.
	Players() []Player
	// PlayerByID retrieves the online player with the given identity.
	PlayerByID(id PlayerID) (Player, bool)
	// PlayerByName retrieves the online player with the given display name.
	PlayerByName(name string) (Player, bool)
	// SetTeam assigns the player to the given team.
	SetTeam(id PlayerID, team TeamID)
	// KillUnit kills the unit the player currently controls.
	KillUnit(id PlayerID)
	// SpawnAtRandomCore respawns the player at a random core of the given team.
	SpawnAtRandomCore(id PlayerID, team TeamID)
	// SendMessage sends a chat message to the player.
	SendMessage(id PlayerID, message string)
	// Broadcast sends a chat message to all players.
	Broadcast(message string)
	// ResyncWorld resends the full world state to the player.
	ResyncWorld(id PlayerID)
	// PushRules sends the player an effective rule set that overrides the world
	// rules client-side. Enforcement still happens through the action filters.
	PushRules(id PlayerID, rules RuleSet)
}

// Teams provides team-level queries and mutations.
type Teams interface {
	// ActiveTeams returns all teams that currently hold at least one core.
	ActiveTeams() []TeamID
	// TeamPlayers returns all online players on the given team.
	TeamPlayers(team TeamID) []Player
	// ClearTeam destroys all remaining units and buildings of the given team.
	ClearTeam(team TeamID)
	// MakeUnitsInvulnerable clamps the health of all units of the given team so
	// they cannot be killed. Idempotent.
	MakeUnitsInvulnerable(team TeamID)
	// SetBlockDamageMultiplier sets the multiplier applied to block damage taken
	// by the given team.
	SetBlockDamageMultiplier(team TeamID, multiplier float64)
	// BlockDamageMultiplier returns the team's current block damage multiplier.
	BlockDamageMultiplier(team TeamID) float64
}

// Rules provides the world rule set.
type Rules interface {
	// Rules returns a copy of the current world rules.
	Rules() RuleSet
	// SetRules replaces the world rules and broadcasts them to all players.
	SetRules(rules RuleSet)
	// MapDefaultCoreBuildRadius returns the enemy core build radius the current
	// map ships with.
	MapDefaultCoreBuildRadius() float64
}

// Units provides unit-level mutations needed by the reward economy rule.
type Units interface {
	// DisposeUnit removes the unit quietly instead of killing it with an
	// explosion.
	DisposeUnit(ref UnitRef)
	// ShowLabel displays a floating text label at the given tile for the given
	// amount of seconds.
	ShowLabel(text string, at Tile, seconds float64)
}

// Maps provides map rotation.
type Maps interface {
	// NextMap selects the next map in rotation. The second return value is false
	// when no map is available.
	NextMap() (MapInfo, bool)
	// LoadMap loads the given map and starts a new game on it.
	LoadMap(m MapInfo) error
}

// Session provides control over the hosting session.
type Session interface {
	// SetGameOver marks the current game as over with the given winner.
	SetGameOver(winner TeamID)
	// IsGameOver reports whether the current game is over.
	IsGameOver() bool
	// KickAll kicks all connected players.
	KickAll()
	// CloseNetworking shuts down the server's networking. This ends the hosting
	// session.
	CloseNetworking()
}

// Engine bundles all capabilities the mode core consumes from the hosting
// engine.
type Engine interface {
	World
	Cores
	Roster
	Teams
	Rules
	Units
	Maps
	Session
}
