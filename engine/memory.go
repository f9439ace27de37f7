package engine

import (
	"sync"
)

// InMemory is a mutex-guarded Engine implementation backed by plain maps. It
// is used by tests and for running the server without a real engine attached.
// Beside the Engine interface it exposes helpers for seeding state and
// inspecting what the mode core did.
type InMemory struct {
	m sync.RWMutex
	// occupied holds tiles that cannot be built on.
	occupied map[Tile]struct{}
	// pending holds tiles with a pending build plan.
	pending map[Tile]struct{}
	// cores holds all placed cores.
	cores []Core
	// coreItems holds core storage per team.
	coreItems map[TeamID][]ItemStack
	// players holds all online players.
	players map[PlayerID]*Player
	// blockDamage holds block damage multipliers per team. Missing entries count
	// as 1.
	blockDamage map[TeamID]float64
	// rules are the current world rules.
	rules RuleSet
	// mapDefaultCoreBuildRadius is returned by MapDefaultCoreBuildRadius.
	mapDefaultCoreBuildRadius float64
	// mapQueue holds the rotation for NextMap.
	mapQueue []MapInfo
	// LoadMapErr is returned by LoadMap when set.
	LoadMapErr error
	// gameOver is set via SetGameOver.
	gameOver bool
	// winner is the team passed to SetGameOver.
	winner TeamID
	// kickedAll is set when KickAll was called.
	kickedAll bool
	// networkingClosed is set when CloseNetworking was called.
	networkingClosed bool
	// messages holds sent chat messages per player.
	messages map[PlayerID][]string
	// broadcasts holds all broadcast chat messages.
	broadcasts []string
	// pushedRules holds the last rule set pushed per player.
	pushedRules map[PlayerID]RuleSet
	// killedUnits counts KillUnit calls per player.
	killedUnits map[PlayerID]int
	// spawnedAt holds the team of the last SpawnAtRandomCore call per player.
	spawnedAt map[PlayerID]TeamID
	// resyncs counts ResyncWorld calls per player.
	resyncs map[PlayerID]int
	// clearedTeams counts ClearTeam calls per team.
	clearedTeams map[TeamID]int
	// invulnerableCores counts MakeCoresInvulnerable calls per team.
	invulnerableCores map[TeamID]int
	// invulnerableUnits counts MakeUnitsInvulnerable calls per team.
	invulnerableUnits map[TeamID]int
	// disposedUnits holds all disposed unit refs.
	disposedUnits []UnitRef
	// labels holds all shown labels.
	labels []string
	// loadedMaps holds all maps passed to LoadMap.
	loadedMaps []MapInfo
}

// NewInMemory creates a ready-to-use InMemory engine.
func NewInMemory() *InMemory {
	return &InMemory{
		occupied:          make(map[Tile]struct{}),
		pending:           make(map[Tile]struct{}),
		coreItems:         make(map[TeamID][]ItemStack),
		players:           make(map[PlayerID]*Player),
		blockDamage:       make(map[TeamID]float64),
		messages:          make(map[PlayerID][]string),
		pushedRules:       make(map[PlayerID]RuleSet),
		killedUnits:       make(map[PlayerID]int),
		spawnedAt:         make(map[PlayerID]TeamID),
		resyncs:           make(map[PlayerID]int),
		clearedTeams:      make(map[TeamID]int),
		invulnerableCores: make(map[TeamID]int),
		invulnerableUnits: make(map[TeamID]int),
		rules: RuleSet{
			BannedBlocks: make(map[Block]struct{}),
			BannedUnits:  make(map[UnitType]struct{}),
		},
	}
}

// Seeding helpers.

// AddPlayer adds an online player.
func (im *InMemory) AddPlayer(p Player) {
	im.m.Lock()
	defer im.m.Unlock()
	cp := p
	im.players[p.ID] = &cp
}

// RemovePlayer removes an online player.
func (im *InMemory) RemovePlayer(id PlayerID) {
	im.m.Lock()
	defer im.m.Unlock()
	delete(im.players, id)
}

// OccupyTile marks the tile as not placeable.
func (im *InMemory) OccupyTile(at Tile) {
	im.m.Lock()
	defer im.m.Unlock()
	im.occupied[at] = struct{}{}
}

// AddCore places a core without going through PlaceCore bookkeeping.
func (im *InMemory) AddCore(team TeamID, at Tile) {
	im.m.Lock()
	defer im.m.Unlock()
	im.cores = append(im.cores, Core{Team: team, Tile: at})
}

// RemoveCores removes all cores of the given team.
func (im *InMemory) RemoveCores(team TeamID) {
	im.m.Lock()
	defer im.m.Unlock()
	kept := im.cores[:0]
	for _, c := range im.cores {
		if c.Team != team {
			kept = append(kept, c)
		}
	}
	im.cores = kept
}

// SetMapQueue sets the rotation returned by NextMap.
func (im *InMemory) SetMapQueue(maps ...MapInfo) {
	im.m.Lock()
	defer im.m.Unlock()
	im.mapQueue = maps
}

// SetMapDefaultCoreBuildRadius sets the radius the current map ships with.
func (im *InMemory) SetMapDefaultCoreBuildRadius(radius float64) {
	im.m.Lock()
	defer im.m.Unlock()
	im.mapDefaultCoreBuildRadius = radius
}

// World.

func (im *InMemory) CanPlace(_ Block, at Tile) bool {
	im.m.RLock()
	defer im.m.RUnlock()
	_, ok := im.occupied[at]
	return !ok
}

func (im *InMemory) ResetTile(at Tile) {
	im.m.Lock()
	defer im.m.Unlock()
	delete(im.pending, at)
}

// Cores.

func (im *InMemory) Cores(team TeamID) []Core {
	im.m.RLock()
	defer im.m.RUnlock()
	cores := make([]Core, 0)
	for _, c := range im.cores {
		if c.Team == team {
			cores = append(cores, c)
		}
	}
	return cores
}

func (im *InMemory) ClosestCore(at Tile, maxDist float64, include func(TeamID) bool) (Core, bool) {
	im.m.RLock()
	defer im.m.RUnlock()
	var closest Core
	found := false
	closestDist := maxDist
	for _, c := range im.cores {
		if !include(c.Team) {
			continue
		}
		dist := c.Tile.Dst(at)
		if dist > closestDist {
			continue
		}
		closest = c
		closestDist = dist
		found = true
	}
	return closest, found
}

func (im *InMemory) PlaceCore(team TeamID, _ Block, at Tile) {
	im.m.Lock()
	defer im.m.Unlock()
	im.cores = append(im.cores, Core{Team: team, Tile: at})
	im.occupied[at] = struct{}{}
}

func (im *InMemory) AddCoreItems(team TeamID, stacks []ItemStack) {
	im.m.Lock()
	defer im.m.Unlock()
	im.coreItems[team] = append(im.coreItems[team], stacks...)
}

func (im *InMemory) ClearCoreItems(team TeamID) {
	im.m.Lock()
	defer im.m.Unlock()
	delete(im.coreItems, team)
}

func (im *InMemory) MakeCoresInvulnerable(team TeamID) {
	im.m.Lock()
	defer im.m.Unlock()
	im.invulnerableCores[team]++
}

// Roster.

func (im *InMemory) Players() []Player {
	im.m.RLock()
	defer im.m.RUnlock()
	players := make([]Player, 0, len(im.players))
	for _, p := range im.players {
		players = append(players, *p)
	}
	return players
}

func (im *InMemory) PlayerByID(id PlayerID) (Player, bool) {
	im.m.RLock()
	defer im.m.RUnlock()
	p, ok := im.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (im *InMemory) PlayerByName(name string) (Player, bool) {
	im.m.RLock()
	defer im.m.RUnlock()
	for _, p := range im.players {
		if p.Name == name {
			return *p, true
		}
	}
	return Player{}, false
}

func (im *InMemory) SetTeam(id PlayerID, team TeamID) {
	im.m.Lock()
	defer im.m.Unlock()
	if p, ok := im.players[id]; ok {
		p.Team = team
	}
}

func (im *InMemory) KillUnit(id PlayerID) {
	im.m.Lock()
	defer im.m.Unlock()
	im.killedUnits[id]++
}

func (im *InMemory) SpawnAtRandomCore(id PlayerID, team TeamID) {
	im.m.Lock()
	defer im.m.Unlock()
	im.spawnedAt[id] = team
}

func (im *InMemory) SendMessage(id PlayerID, message string) {
	im.m.Lock()
	defer im.m.Unlock()
	im.messages[id] = append(im.messages[id], message)
}

func (im *InMemory) Broadcast(message string) {
	im.m.Lock()
	defer im.m.Unlock()
	im.broadcasts = append(im.broadcasts, message)
}

func (im *InMemory) ResyncWorld(id PlayerID) {
	im.m.Lock()
	defer im.m.Unlock()
	im.resyncs[id]++
}

func (im *InMemory) PushRules(id PlayerID, rules RuleSet) {
	im.m.Lock()
	defer im.m.Unlock()
	im.pushedRules[id] = rules
}

// Teams.

func (im *InMemory) ActiveTeams() []TeamID {
	im.m.RLock()
	defer im.m.RUnlock()
	seen := make(map[TeamID]struct{})
	teams := make([]TeamID, 0)
	for _, c := range im.cores {
		if _, ok := seen[c.Team]; ok {
			continue
		}
		seen[c.Team] = struct{}{}
		teams = append(teams, c.Team)
	}
	return teams
}

func (im *InMemory) TeamPlayers(team TeamID) []Player {
	im.m.RLock()
	defer im.m.RUnlock()
	players := make([]Player, 0)
	for _, p := range im.players {
		if p.Team == team {
			players = append(players, *p)
		}
	}
	return players
}

func (im *InMemory) ClearTeam(team TeamID) {
	im.m.Lock()
	defer im.m.Unlock()
	im.clearedTeams[team]++
}

func (im *InMemory) MakeUnitsInvulnerable(team TeamID) {
	im.m.Lock()
	defer im.m.Unlock()
	im.invulnerableUnits[team]++
}

func (im *InMemory) SetBlockDamageMultiplier(team TeamID, multiplier float64) {
	im.m.Lock()
	defer im.m.Unlock()
	im.blockDamage[team] = multiplier
}

func (im *InMemory) BlockDamageMultiplier(team TeamID) float64 {
	im.m.RLock()
	defer im.m.RUnlock()
	if mult, ok := im.blockDamage[team]; ok {
		return mult
	}
	return 1
}

// Rules.

func (im *InMemory) Rules() RuleSet {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.rules.Clone()
}

func (im *InMemory) SetRules(rules RuleSet) {
	im.m.Lock()
	defer im.m.Unlock()
	im.rules = rules.Clone()
}

func (im *InMemory) MapDefaultCoreBuildRadius() float64 {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.mapDefaultCoreBuildRadius
}

// Units.

func (im *InMemory) DisposeUnit(ref UnitRef) {
	im.m.Lock()
	defer im.m.Unlock()
	im.disposedUnits = append(im.disposedUnits, ref)
}

func (im *InMemory) ShowLabel(text string, _ Tile, _ float64) {
	im.m.Lock()
	defer im.m.Unlock()
	im.labels = append(im.labels, text)
}

// Maps.

func (im *InMemory) NextMap() (MapInfo, bool) {
	im.m.Lock()
	defer im.m.Unlock()
	if len(im.mapQueue) == 0 {
		return MapInfo{}, false
	}
	next := im.mapQueue[0]
	im.mapQueue = append(im.mapQueue[1:], next)
	return next, true
}

func (im *InMemory) LoadMap(m MapInfo) error {
	im.m.Lock()
	defer im.m.Unlock()
	if im.LoadMapErr != nil {
		return im.LoadMapErr
	}
	im.loadedMaps = append(im.loadedMaps, m)
	im.gameOver = false
	return nil
}

// Session.

func (im *InMemory) SetGameOver(winner TeamID) {
	im.m.Lock()
	defer im.m.Unlock()
	im.gameOver = true
	im.winner = winner
}

func (im *InMemory) IsGameOver() bool {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.gameOver
}

func (im *InMemory) KickAll() {
	im.m.Lock()
	defer im.m.Unlock()
	im.kickedAll = true
	im.players = make(map[PlayerID]*Player)
}

func (im *InMemory) CloseNetworking() {
	im.m.Lock()
	defer im.m.Unlock()
	im.networkingClosed = true
}

// Inspection helpers.

// MessagesTo returns all chat messages sent to the given player.
func (im *InMemory) MessagesTo(id PlayerID) []string {
	im.m.RLock()
	defer im.m.RUnlock()
	messages := make([]string, len(im.messages[id]))
	copy(messages, im.messages[id])
	return messages
}

// Broadcasts returns all broadcast chat messages.
func (im *InMemory) Broadcasts() []string {
	im.m.RLock()
	defer im.m.RUnlock()
	broadcasts := make([]string, len(im.broadcasts))
	copy(broadcasts, im.broadcasts)
	return broadcasts
}

// PushedRules returns the last rule set pushed to the given player.
func (im *InMemory) PushedRules(id PlayerID) (RuleSet, bool) {
	im.m.RLock()
	defer im.m.RUnlock()
	rules, ok := im.pushedRules[id]
	return rules, ok
}

// CoreItems returns the storage of the given team's core.
func (im *InMemory) CoreItems(team TeamID) []ItemStack {
	im.m.RLock()
	defer im.m.RUnlock()
	stacks := make([]ItemStack, len(im.coreItems[team]))
	copy(stacks, im.coreItems[team])
	return stacks
}

// KilledUnits returns how often the unit of the given player was killed.
func (im *InMemory) KilledUnits(id PlayerID) int {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.killedUnits[id]
}

// SpawnedAt returns the team of the last core the player was spawned at.
func (im *InMemory) SpawnedAt(id PlayerID) (TeamID, bool) {
	im.m.RLock()
	defer im.m.RUnlock()
	team, ok := im.spawnedAt[id]
	return team, ok
}

// Resyncs returns how often the world was resent to the given player.
func (im *InMemory) Resyncs(id PlayerID) int {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.resyncs[id]
}

// ClearedTeams returns how often ClearTeam was called for the given team.
func (im *InMemory) ClearedTeams(team TeamID) int {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.clearedTeams[team]
}

// CoreInvulnerabilityClamps returns how often cores of the given team were
// clamped invulnerable.
func (im *InMemory) CoreInvulnerabilityClamps(team TeamID) int {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.invulnerableCores[team]
}

// UnitInvulnerabilityClamps returns how often units of the given team were
// clamped invulnerable.
func (im *InMemory) UnitInvulnerabilityClamps(team TeamID) int {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.invulnerableUnits[team]
}

// DisposedUnits returns all disposed unit refs.
func (im *InMemory) DisposedUnits() []UnitRef {
	im.m.RLock()
	defer im.m.RUnlock()
	refs := make([]UnitRef, len(im.disposedUnits))
	copy(refs, im.disposedUnits)
	return refs
}

// Labels returns all shown labels.
func (im *InMemory) Labels() []string {
	im.m.RLock()
	defer im.m.RUnlock()
	labels := make([]string, len(im.labels))
	copy(labels, im.labels)
	return labels
}

// LoadedMaps returns all maps passed to LoadMap.
func (im *InMemory) LoadedMaps() []MapInfo {
	im.m.RLock()
	defer im.m.RUnlock()
	maps := make([]MapInfo, len(im.loadedMaps))
	copy(maps, im.loadedMaps)
	return maps
}

// Winner returns the team passed to SetGameOver.
func (im *InMemory) Winner() TeamID {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.winner
}

// KickedAll reports whether KickAll was called.
func (im *InMemory) KickedAll() bool {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.kickedAll
}

// NetworkingClosed reports whether CloseNetworking was called.
func (im *InMemory) NetworkingClosed() bool {
	im.m.RLock()
	defer im.m.RUnlock()
	return im.networkingClosed
}
