package plague

import (
	"github.com/lefinal/plague-server/engine"
)

// RuleBroadcaster computes per-player effective rule sets from the world rules
// and the banned-content policy and pushes them through the engine. The pushed
// rules only inform the client; enforcement happens through the action filter
// pipeline. All push methods mutate engine state and must therefore run on the
// simulation executor.
type RuleBroadcaster struct {
	eng      engine.Engine
	phases   *PhaseController
	resolver ContentResolver
}

// NewRuleBroadcaster creates a RuleBroadcaster.
func NewRuleBroadcaster(eng engine.Engine, phases *PhaseController, resolver ContentResolver) *RuleBroadcaster {
	return &RuleBroadcaster{
		eng:      eng,
		phases:   phases,
		resolver: resolver,
	}
}

// PushPlayer recomputes and pushes the player's effective rule set. Neutral
// pool players are skipped as they play by the plain world rules until
// assigned.
func (b *RuleBroadcaster) PushPlayer(p engine.Player) {
	if p.Team == TeamNeutral {
		return
	}
	rules := b.eng.Rules()
	b.phases.View(func(phase Phase) {
		if p.Team == TeamPlague {
			for block := range b.resolver.PlagueBannedBlocks(phase) {
				rules.BannedBlocks[block] = struct{}{}
			}
			for unit := range b.resolver.PlagueBannedUnits(phase) {
				rules.BannedUnits[unit] = struct{}{}
			}
		} else {
			for block := range b.resolver.SurvivorBannedBlocks(phase) {
				rules.BannedBlocks[block] = struct{}{}
			}
			for unit := range b.resolver.SurvivorBannedUnits(phase) {
				rules.BannedUnits[unit] = struct{}{}
			}
		}
	})
	b.eng.PushRules(p.ID, rules)
}

// PushAll recomputes and pushes the effective rule set of every online player.
func (b *RuleBroadcaster) PushAll() {
	for _, p := range b.eng.Players() {
		b.PushPlayer(p)
	}
}

// BaselineRules derives the world rules applied on match start from the map
// rules: the plague team's build radius is restricted for the prepare phase.
func BaselineRules(rules engine.RuleSet, config Config) engine.RuleSet {
	baseline := rules.Clone()
	baseline.EnemyCoreBuildRadius = config.PrepareCoreBuildRadius
	return baseline
}
