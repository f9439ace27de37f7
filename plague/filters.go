package plague

import (
	"github.com/lefinal/plague-server/engine"
)

// ActionType is the kind of a player action passed through the filter
// pipeline.
type ActionType string

const (
	ActionDropPayload ActionType = "drop-payload"
	ActionPickupBlock ActionType = "pickup-block"
	ActionBreakBlock  ActionType = "break-block"
	ActionPlaceBlock  ActionType = "place-block"
	ActionRespawn     ActionType = "respawn"
)

// Action is an attempted player action.
type Action struct {
	Type ActionType
	// Player performing the action. Empty for actions without a player.
	Player engine.PlayerID
	// Team of the acting player.
	Team engine.TeamID
	// Block the action targets, if any.
	Block engine.Block
}

// Filter decides whether an action is allowed. Both acceptance and denial are
// silent at this layer; the caller decides whether to surface a message.
type Filter func(action Action) bool

// Pipeline evaluates filters in order. An action is denied as soon as any
// filter denies it.
type Pipeline struct {
	filters []Filter
}

// NewPipeline creates a Pipeline from the given filters.
func NewPipeline(filters ...Filter) *Pipeline {
	return &Pipeline{filters: filters}
}

// Permit reports whether all filters allow the action.
func (p *Pipeline) Permit(action Action) bool {
	for _, f := range p.filters {
		if !f(action) {
			return false
		}
	}
	return true
}

// NewModePipeline builds the pipeline with the mode's required filters.
func NewModePipeline(config Config, phases *PhaseController, resolver ContentResolver) *Pipeline {
	return NewPipeline(
		PayloadFilter(),
		PowerSourceFilter(config.PowerSourceBlock),
		BannedContentFilter(phases, resolver),
		RespawnFilter(),
	)
}

// PayloadFilter denies all payload drops and block pickups. The mode has no
// payload logistics.
func PayloadFilter() Filter {
	return func(action Action) bool {
		if action.Type == ActionDropPayload {
			return false
		}
		if action.Type == ActionPickupBlock {
			return false
		}
		return true
	}
}

// PowerSourceFilter denies breaking the designated power source block. It
// protects the shared objective structure.
func PowerSourceFilter(powerSource engine.Block) Filter {
	return func(action Action) bool {
		if action.Type != ActionBreakBlock {
			return true
		}
		if action.Block != powerSource {
			return true
		}
		return false
	}
}

// BannedContentFilter denies build and break actions whose target block is in
// the acting team's currently banned set. The banned sets are phase-dependent,
// so the check runs while holding the state lock.
func BannedContentFilter(phases *PhaseController, resolver ContentResolver) Filter {
	return func(action Action) bool {
		if action.Type != ActionPlaceBlock && action.Type != ActionBreakBlock {
			return true
		}
		if action.Player == "" {
			return true
		}
		if action.Team == TeamNeutral {
			return true
		}
		if action.Block == "" {
			return true
		}
		allowed := true
		phases.View(func(phase Phase) {
			var banned map[engine.Block]struct{}
			if action.Team == TeamPlague {
				banned = resolver.PlagueBannedBlocks(phase)
			} else {
				banned = resolver.SurvivorBannedBlocks(phase)
			}
			if _, ok := banned[action.Block]; ok {
				allowed = false
			}
		})
		return allowed
	}
}

// RespawnFilter denies respawning for players on the neutral pool team. They
// are spawned through the team assignment path instead.
func RespawnFilter() Filter {
	return func(action Action) bool {
		if action.Type != ActionRespawn {
			return true
		}
		if action.Team == TeamNeutral {
			return false
		}
		return true
	}
}
