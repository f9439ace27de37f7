// Package plague implements the rules of the plague game mode: match phase
// progression, survivor team lifecycle and the action authorization pipeline,
// layered on top of a real-time strategy engine it does not control.
package plague

import (
	"time"

	"github.com/lefinal/plague-server/engine"
)

// Fixed team identifiers. Survivor teams are allocated dynamically from the
// range starting at FirstSurvivorTeam.
const (
	// TeamDefeated is the sentinel team used to signal a fully-eliminated match
	// outcome to the restart path. It never holds players or structures.
	TeamDefeated engine.TeamID = 0
	// TeamPlague is the single adversarial team. Its cores are invulnerable.
	TeamPlague engine.TeamID = 3
	// TeamNeutral holds unassigned players awaiting phase-dependent
	// auto-assignment.
	TeamNeutral engine.TeamID = 5
	// FirstSurvivorTeam is the lowest identifier available for survivor teams.
	FirstSurvivorTeam engine.TeamID = 7
	// LastSurvivorTeam is the highest identifier available for survivor teams.
	LastSurvivorTeam engine.TeamID = 255
)

// IsSurvivorTeam reports whether the given identifier lies in the dynamic
// survivor range.
func IsSurvivorTeam(team engine.TeamID) bool {
	return team >= FirstSurvivorTeam && team <= LastSurvivorTeam
}

// Config holds all mode tuning knobs.
type Config struct {
	// FirstPhaseAt is the elapsed match time at which Prepare ends.
	FirstPhaseAt time.Duration
	// SecondPhaseAt is the elapsed match time at which the first phase ends.
	SecondPhaseAt time.Duration
	// EndedAt is the elapsed match time at which the second phase ends.
	EndedAt time.Duration
	// MinPlagueCoreDistance is the minimum distance in tiles a new survivor core
	// must keep from every plague core.
	MinPlagueCoreDistance float64
	// AutoJoinRadius is the distance in tiles within which placing a core joins
	// the nearest existing survivor team instead of creating a new one.
	AutoJoinRadius float64
	// PrepareCoreBuildRadius is the enemy core build radius applied during
	// Prepare. It keeps the plague team from expanding early and is restored to
	// the map default on first phase entry.
	PrepareCoreBuildRadius float64
	// SurvivorDamagePenalty is the multiplicative penalty applied to block damage
	// taken by survivor teams on second phase entry.
	SurvivorDamagePenalty float64
	// RestartGrace is the wait between the game-over announcement and loading the
	// next map.
	RestartGrace time.Duration
	// CoreBlock is the block type used for survivor cores.
	CoreBlock engine.Block
	// PowerSourceBlock is the shared objective block that may never be broken.
	PowerSourceBlock engine.Block
	// RewardUnit is the unit type that is neutralized on creation in exchange for
	// RewardStacks.
	RewardUnit engine.UnitType
	// RewardStacks are credited to the owner's core for every created RewardUnit.
	RewardStacks []engine.ItemStack
	// ResyncMinInterval is the minimum wait between two world resyncs of the same
	// player.
	ResyncMinInterval time.Duration
}

// DefaultConfig returns the Config with the mode's standard values.
func DefaultConfig() Config {
	return Config{
		FirstPhaseAt:           2 * time.Minute,
		SecondPhaseAt:          47 * time.Minute,
		EndedAt:                62 * time.Minute,
		MinPlagueCoreDistance:  100,
		AutoJoinRadius:         50,
		PrepareCoreBuildRadius: 8,
		SurvivorDamagePenalty:  1.3,
		RestartGrace:           20 * time.Second,
		CoreBlock:              "core-shard",
		PowerSourceBlock:       "power-source",
		RewardUnit:             "mono",
		RewardStacks: []engine.ItemStack{
			{Item: "copper", Amount: 300},
			{Item: "lead", Amount: 300},
		},
		ResyncMinInterval: 5 * time.Second,
	}
}
