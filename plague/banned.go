package plague

import (
	"github.com/lefinal/plague-server/engine"
)

// ContentResolver answers which block and unit types are currently banned for
// the plague team and for survivor teams. The policy behind the answers is not
// owned by the mode core; only this query interface is consumed. Results must
// be treated as read-only.
type ContentResolver interface {
	// PlagueBannedBlocks returns the blocks the plague team may not build in the
	// given phase.
	PlagueBannedBlocks(phase Phase) map[engine.Block]struct{}
	// PlagueBannedUnits returns the units the plague team may not create in the
	// given phase.
	PlagueBannedUnits(phase Phase) map[engine.UnitType]struct{}
	// SurvivorBannedBlocks returns the blocks survivor teams may not build in the
	// given phase.
	SurvivorBannedBlocks(phase Phase) map[engine.Block]struct{}
	// SurvivorBannedUnits returns the units survivor teams may not create in the
	// given phase.
	SurvivorBannedUnits(phase Phase) map[engine.UnitType]struct{}
}

// StaticResolverPolicy is the banned-content policy for a single side,
// addressed by phase. Phases without an entry have no bans.
type StaticResolverPolicy struct {
	Blocks map[Phase][]engine.Block
	Units  map[Phase][]engine.UnitType
}

// StaticResolver is a ContentResolver with fixed, config-driven policies.
type StaticResolver struct {
	plagueBlocks   map[Phase]map[engine.Block]struct{}
	plagueUnits    map[Phase]map[engine.UnitType]struct{}
	survivorBlocks map[Phase]map[engine.Block]struct{}
	survivorUnits  map[Phase]map[engine.UnitType]struct{}
}

// NewStaticResolver creates a StaticResolver from the given per-side policies.
func NewStaticResolver(plague StaticResolverPolicy, survivors StaticResolverPolicy) *StaticResolver {
	return &StaticResolver{
		plagueBlocks:   blockSets(plague.Blocks),
		plagueUnits:    unitSets(plague.Units),
		survivorBlocks: blockSets(survivors.Blocks),
		survivorUnits:  unitSets(survivors.Units),
	}
}

func (r *StaticResolver) PlagueBannedBlocks(phase Phase) map[engine.Block]struct{} {
	return r.plagueBlocks[phase]
}

func (r *StaticResolver) PlagueBannedUnits(phase Phase) map[engine.UnitType]struct{} {
	return r.plagueUnits[phase]
}

func (r *StaticResolver) SurvivorBannedBlocks(phase Phase) map[engine.Block]struct{} {
	return r.survivorBlocks[phase]
}

func (r *StaticResolver) SurvivorBannedUnits(phase Phase) map[engine.UnitType]struct{} {
	return r.survivorUnits[phase]
}

func blockSets(byPhase map[Phase][]engine.Block) map[Phase]map[engine.Block]struct{} {
	sets := make(map[Phase]map[engine.Block]struct{}, len(byPhase))
	for phase, blocks := range byPhase {
		set := make(map[engine.Block]struct{}, len(blocks))
		for _, b := range blocks {
			set[b] = struct{}{}
		}
		sets[phase] = set
	}
	return sets
}

func unitSets(byPhase map[Phase][]engine.UnitType) map[Phase]map[engine.UnitType]struct{} {
	sets := make(map[Phase]map[engine.UnitType]struct{}, len(byPhase))
	for phase, units := range byPhase {
		set := make(map[engine.UnitType]struct{}, len(units))
		for _, u := range units {
			set[u] = struct{}{}
		}
		sets[phase] = set
	}
	return sets
}
